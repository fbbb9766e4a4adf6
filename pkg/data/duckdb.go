package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS mangas (
	url       VARCHAR PRIMARY KEY,
	title     VARCHAR NOT NULL,
	icon_url  VARCHAR,
	connector VARCHAR NOT NULL
);
CREATE TABLE IF NOT EXISTS chapters (
	url           VARCHAR PRIMARY KEY,
	manga_url     VARCHAR NOT NULL,
	title         VARCHAR NOT NULL,
	connector     VARCHAR NOT NULL,
	path          VARCHAR,
	downloaded_at TIMESTAMP
);
`

// InitDuckDB opens (creating if needed) the library database at path and
// ensures the schema exists.
func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// Repository records which chapters have been downloaded and where.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// OpenRepository is InitDuckDB followed by NewRepository.
func OpenRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) SaveManga(manga Manga) error {
	_, err := r.db.Exec(`
		INSERT INTO mangas (url, title, icon_url, connector) VALUES (?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET title = excluded.title, icon_url = excluded.icon_url`,
		manga.URL, manga.Title, manga.IconURL, string(manga.Connector))
	if err != nil {
		return fmt.Errorf("failed to save manga: %w", err)
	}
	return nil
}

func (r *Repository) GetManga(url string) (*Manga, error) {
	var m Manga
	var connector string
	err := r.db.QueryRow(`SELECT url, title, icon_url, connector FROM mangas WHERE url = ?`, url).
		Scan(&m.URL, &m.Title, &m.IconURL, &connector)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Connector = ConnectorID(connector)
	return &m, nil
}

func (r *Repository) ListMangas() ([]Manga, error) {
	rows, err := r.db.Query(`SELECT url, title, icon_url, connector FROM mangas ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mangas []Manga
	for rows.Next() {
		var m Manga
		var connector string
		if err := rows.Scan(&m.URL, &m.Title, &m.IconURL, &connector); err != nil {
			return nil, err
		}
		m.Connector = ConnectorID(connector)
		mangas = append(mangas, m)
	}
	return mangas, rows.Err()
}

// MarkChapterDownloaded stores the chapter (and its manga) with the directory
// its pages were written to.
func (r *Repository) MarkChapterDownloaded(chapter Chapter, path string) error {
	if err := r.SaveManga(chapter.Manga); err != nil {
		return err
	}
	_, err := r.db.Exec(`
		INSERT INTO chapters (url, manga_url, title, connector, path, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET path = excluded.path, downloaded_at = excluded.downloaded_at`,
		chapter.URL, chapter.Manga.URL, chapter.Title, string(chapter.Connector), path, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save chapter: %w", err)
	}
	return nil
}

// DownloadedChapters returns chapter URL -> download directory for a manga.
func (r *Repository) DownloadedChapters(mangaURL string) (map[string]string, error) {
	rows, err := r.db.Query(`SELECT url, path FROM chapters WHERE manga_url = ? AND downloaded_at IS NOT NULL`, mangaURL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var url, path string
		if err := rows.Scan(&url, &path); err != nil {
			return nil, err
		}
		out[url] = path
	}
	return out, rows.Err()
}
