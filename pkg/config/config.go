// Package config loads application settings. Settings are read once at
// startup and never written back.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const AppName = "Mangetsu"

type Config struct {
	CacheDir    string `mapstructure:"cache_dir"`
	DownloadDir string `mapstructure:"download_dir"`
	// EPubDir receives exported books; empty means <download_dir>/epub.
	EPubDir string `mapstructure:"epub_dir"`
	Library struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"library"`
	Log struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"log"`
	HTTP struct {
		Timeout   time.Duration `mapstructure:"timeout"`
		UserAgent string        `mapstructure:"user_agent"`
	} `mapstructure:"http"`
	Cache struct {
		MangaEntries int `mapstructure:"manga_entries"`
		ImageEntries int `mapstructure:"image_entries"`
	} `mapstructure:"cache"`
	Connectors struct {
		Manganato struct {
			BaseURL string `mapstructure:"base_url"`
		} `mapstructure:"manganato"`
	} `mapstructure:"connectors"`
}

// Load reads config.yml from the working directory (or the explicit file when
// path is set), applies MANGETSU_* environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
	}

	// MANGETSU_LOG_LEVEL overrides log.level, and so on.
	v.SetEnvPrefix("MANGETSU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	cacheDir := defaultCacheDir()
	v.SetDefault("cache_dir", cacheDir)
	v.SetDefault("download_dir", defaultDownloadDir())
	// Empty means <download_dir>/epub; the key still has to be known for
	// MANGETSU_EPUB_DIR to apply.
	v.SetDefault("epub_dir", "")
	v.SetDefault("library.path", filepath.Join(cacheDir, "library.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(cacheDir, "mangetsu.log"))
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (X11; Linux x86_64) Mangetsu")
	v.SetDefault("cache.manga_entries", 256)
	v.SetDefault("cache.image_entries", 256)
	v.SetDefault("connectors.manganato.base_url", "https://manganato.com")
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, AppName)
	}
	return filepath.Join(os.TempDir(), AppName)
}

func defaultDownloadDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Documents", AppName)
	}
	return AppName
}
