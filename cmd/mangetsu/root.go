package cmd

import (
	"errors"
	"io"
	"os"

	"github.com/kerbaras/mangetsu/pkg/app"
	"github.com/kerbaras/mangetsu/pkg/config"
	"github.com/kerbaras/mangetsu/pkg/services"
	"github.com/kerbaras/mangetsu/pkg/utils"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mangetsu",
	Short: "A terminal manga reader and downloader",
	Long:  "Browse manga sites, queue chapter downloads and export them to EPUB from a TUI or the command line",
	Run: func(cmd *cobra.Command, args []string) {
		ctl, closer, err := newController()
		cobra.CheckErr(err)
		defer closer.Close()

		cobra.CheckErr(app.NewApp(ctl).Run())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yml)")

	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(chaptersCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(epubCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newController loads the configuration and builds the shared controller.
// The returned closer releases the controller and the log file.
func newController() (*services.Controller, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, logCloser, err := utils.NewLogger(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	ctl, err := services.NewController(cfg, logger)
	if err != nil {
		logCloser.Close()
		return nil, nil, err
	}
	return ctl, closeFunc(func() error {
		return errors.Join(ctl.Close(), logCloser.Close())
	}), nil
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
