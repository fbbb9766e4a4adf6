package sources

import (
	"context"
	"iter"
	"net/url"
	"regexp"
	"strconv"

	"github.com/andybalholm/cascadia"
	"github.com/kerbaras/mangetsu/pkg/data"
)

// Connector scrapes one source site. Streams are lazy and single-pass: they
// perform no I/O until ranged over and stop after yielding the first error.
type Connector interface {
	Info() ConnectorInfo
	CanHandleURI(uri string) bool

	GetMangaFromURL(ctx context.Context, url string) (data.Manga, error)
	GetMangaIcon(ctx context.Context, url string) (string, error)

	GetMangas(ctx context.Context) iter.Seq2[data.Manga, error]
	GetMangasFromPage(ctx context.Context, page int) iter.Seq2[data.Manga, error]
	GetChapters(ctx context.Context, manga data.Manga) iter.Seq2[data.Chapter, error]
	GetPages(ctx context.Context, chapter data.Chapter) iter.Seq2[data.Page, error]
}

// ConnectorInfo is the static description of a connector: where its catalog
// lives and how its pages are picked apart.
type ConnectorInfo struct {
	ID    data.ConnectorID
	Label string
	Tags  []string

	URL  *url.URL
	Path string

	MangaTitleFilter   *regexp.Regexp
	ChapterTitleFilter *regexp.Regexp

	QueryMangaTitle      cascadia.Selector
	QueryMangasPageCount cascadia.Selector
	QueryMangas          cascadia.Selector
	QueryIcon            cascadia.Selector
	QueryChapters        cascadia.Selector
	QueryPages           cascadia.Selector
}

// CatalogPage returns the absolute URL of the n-th catalog listing page.
func (i ConnectorInfo) CatalogPage(n int) string {
	return i.URL.JoinPath(i.Path, strconv.Itoa(n)).String()
}

// Collect drains a stream into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
