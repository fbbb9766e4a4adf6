package sources

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/utils"
)

const ManganatoBaseURL = "https://manganato.com"

var (
	manganatoHost = regexp.MustCompile(`^(m\.|chap\.)?(read)?manganato\.com$`)
	digitRuns     = regexp.MustCompile(`\d+`)
)

// Manganato scrapes manganato.com and the sites sharing its layout family.
type Manganato struct {
	api  *utils.API
	info ConnectorInfo
}

// NewManganato builds the connector. An empty baseURL uses the public site.
func NewManganato(api *utils.API, baseURL string) (*Manganato, error) {
	if baseURL == "" {
		baseURL = ManganatoBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid manganato base url: %w", err)
	}

	return &Manganato{
		api: api,
		info: ConnectorInfo{
			ID:    data.Manganato,
			Label: "Manganato",
			Tags:  []string{"manga", "webtoon", "english"},
			URL:   base,
			Path:  "/genre-all/",

			MangaTitleFilter:   regexp.MustCompile(`(?i)(\s+manga|\s+webtoon|\s+others)+\s*$`),
			ChapterTitleFilter: regexp.MustCompile(`(?i)^\s*(\s+manga|\s+webtoon|\s+others)+`),

			QueryMangaTitle:      cascadia.MustCompile("div.container-main div.panel-story-info div.story-info-right h1"),
			QueryMangasPageCount: cascadia.MustCompile("div.panel-page-number div.group-page a.page-last:last-of-type"),
			QueryMangas:          cascadia.MustCompile("div.genres-item-info h3 a.genres-item-name"),
			QueryIcon:            cascadia.MustCompile(".info-image > img:nth-child(1)"),
			QueryChapters: cascadia.MustCompile(strings.Join([]string{
				"ul.row-content-chapter li a.chapter-name",                                      // manganato, mangabat
				"div.chapter_list ul li a",                                                      // mangairo
				"div.chapter-list div.row span a",                                               // mangakakalot
				"div.content.mCustomScrollbar div.chapter-list ul li.row div.chapter h4 a.xanh", // mangapark
			}, ", ")),
			QueryPages: cascadia.MustCompile(strings.Join([]string{
				"div.container-chapter-reader img",
				"div.chapter-content div.panel-read-story img",
				"div#vungdoc img, div.vung-doc img, div.vung_doc img",
			}, ", ")),
		},
	}, nil
}

func (m *Manganato) Info() ConnectorInfo {
	return m.info
}

func (m *Manganato) CanHandleURI(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}
	return manganatoHost.MatchString(host) || host == m.info.URL.Hostname()
}

func (m *Manganato) GetMangaFromURL(ctx context.Context, mangaURL string) (data.Manga, error) {
	doc, err := m.api.Document(ctx, mangaURL)
	if err != nil {
		return data.Manga{}, err
	}
	title := doc.FindMatcher(m.info.QueryMangaTitle).Last()
	if title.Length() == 0 {
		return data.Manga{}, data.ParseErrorf("no manga title on %s", mangaURL)
	}

	icon, err := m.GetMangaIcon(ctx, mangaURL)
	if err != nil {
		return data.Manga{}, err
	}
	return data.Manga{
		URL:       mangaURL,
		Title:     strings.TrimSpace(title.Text()),
		IconURL:   icon,
		Connector: data.Manganato,
	}, nil
}

func (m *Manganato) GetMangaIcon(ctx context.Context, mangaURL string) (string, error) {
	doc, err := m.api.Document(ctx, mangaURL)
	if err != nil {
		return "", err
	}
	src, ok := doc.FindMatcher(m.info.QueryIcon).Last().Attr("src")
	if !ok {
		return "", data.ParseErrorf("no icon on %s", mangaURL)
	}
	return resolveURL(mangaURL, src)
}

func (m *Manganato) GetMangas(ctx context.Context) iter.Seq2[data.Manga, error] {
	return func(yield func(data.Manga, error) bool) {
		last, err := m.lastCatalogPage(ctx)
		if err != nil {
			yield(data.Manga{}, err)
			return
		}
		for page := 1; page <= last; page++ {
			for manga, err := range m.GetMangasFromPage(ctx, page) {
				if !yield(manga, err) || err != nil {
					return
				}
			}
		}
	}
}

// lastCatalogPage reads the page count from the pagination control on the
// first listing page.
func (m *Manganato) lastCatalogPage(ctx context.Context) (int, error) {
	pageURL := m.info.CatalogPage(1)
	doc, err := m.api.Document(ctx, pageURL)
	if err != nil {
		return 0, err
	}
	href, ok := doc.FindMatcher(m.info.QueryMangasPageCount).Last().Attr("href")
	if !ok {
		return 0, data.ParseErrorf("no page count on %s", pageURL)
	}
	return parsePageNumber(href)
}

func parsePageNumber(href string) (int, error) {
	// hosts may carry digits, only the path counts
	path := href
	if u, err := url.Parse(href); err == nil {
		path = u.Path
	}
	runs := digitRuns.FindAllString(path, -1)
	if len(runs) == 0 {
		return 0, data.ParseErrorf("no page number in %q", href)
	}
	n, err := strconv.Atoi(runs[len(runs)-1])
	if err != nil {
		return 0, data.ParseErrorf("bad page number in %q: %v", href, err)
	}
	return n, nil
}

type catalogEntry struct {
	title string
	url   string
}

func (m *Manganato) GetMangasFromPage(ctx context.Context, page int) iter.Seq2[data.Manga, error] {
	return func(yield func(data.Manga, error) bool) {
		pageURL := m.info.CatalogPage(page)
		doc, err := m.api.Document(ctx, pageURL)
		if err != nil {
			yield(data.Manga{}, err)
			return
		}

		var entries []catalogEntry
		var parseErr error
		doc.FindMatcher(m.info.QueryMangas).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, ok := s.Attr("href")
			if !ok {
				parseErr = data.ParseErrorf("catalog entry without href on %s", pageURL)
				return false
			}
			abs, err := resolveURL(pageURL, href)
			if err != nil {
				parseErr = err
				return false
			}
			title, ok := s.Attr("title")
			if !ok {
				title = s.Text()
			}
			title = strings.TrimSpace(m.info.MangaTitleFilter.ReplaceAllString(title, ""))
			entries = append(entries, catalogEntry{title: title, url: abs})
			return true
		})
		if parseErr != nil {
			yield(data.Manga{}, parseErr)
			return
		}

		for _, entry := range entries {
			icon, err := m.GetMangaIcon(ctx, entry.url)
			if err != nil {
				yield(data.Manga{}, err)
				return
			}
			manga := data.Manga{
				URL:       entry.url,
				Title:     entry.title,
				IconURL:   icon,
				Connector: data.Manganato,
			}
			if !yield(manga, nil) {
				return
			}
		}
	}
}

func (m *Manganato) GetChapters(ctx context.Context, manga data.Manga) iter.Seq2[data.Chapter, error] {
	return func(yield func(data.Chapter, error) bool) {
		doc, err := m.api.Document(ctx, manga.URL)
		if err != nil {
			yield(data.Chapter{}, err)
			return
		}

		var chapters []data.Chapter
		var parseErr error
		doc.FindMatcher(m.info.QueryChapters).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, ok := s.Attr("href")
			if !ok {
				parseErr = data.ParseErrorf("chapter without href on %s", manga.URL)
				return false
			}
			abs, err := resolveURL(manga.URL, href)
			if err != nil {
				parseErr = err
				return false
			}
			chapters = append(chapters, data.Chapter{
				URL:       abs,
				Title:     m.chapterTitle(s, manga.Title),
				Connector: data.Manganato,
				Manga:     manga,
			})
			return true
		})
		if parseErr != nil {
			yield(data.Chapter{}, parseErr)
			return
		}

		for _, chapter := range chapters {
			if !yield(chapter, nil) {
				return
			}
		}
	}
}

func (m *Manganato) chapterTitle(s *goquery.Selection, mangaTitle string) string {
	title, ok := s.Attr("title")
	if !ok {
		title = s.Text()
	}
	if mangaTitle != "" {
		title = strings.ReplaceAll(title, mangaTitle, "")
	}
	title = m.info.ChapterTitleFilter.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

func (m *Manganato) GetPages(ctx context.Context, chapter data.Chapter) iter.Seq2[data.Page, error] {
	return func(yield func(data.Page, error) bool) {
		doc, err := m.api.Document(ctx, chapter.URL)
		if err != nil {
			yield(data.Page{}, err)
			return
		}

		var pages []data.Page
		var parseErr error
		doc.FindMatcher(m.info.QueryPages).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			src, ok := s.Attr("src")
			if !ok {
				parseErr = data.ParseErrorf("page image without src on %s", chapter.URL)
				return false
			}
			abs, err := resolveURL(chapter.URL, strings.TrimSpace(src))
			if err != nil {
				parseErr = err
				return false
			}
			pages = append(pages, data.Page{URL: abs, Referer: chapter.URL, Connector: data.Manganato})
			return true
		})
		if parseErr != nil {
			yield(data.Page{}, parseErr)
			return
		}

		for _, page := range pages {
			if !yield(page, nil) {
				return
			}
		}
	}
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", data.ParseErrorf("bad url %q: %v", base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", data.ParseErrorf("bad url %q: %v", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}
