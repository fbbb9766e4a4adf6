package integrations

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-shiori/go-epub"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/utils"
)

var chapterNumber = regexp.MustCompile(`\d+(\.\d+)?`)

type EPubBuilder struct {
	outputDir string
}

// NewEPubBuilder writes books into outputDir, created on demand.
func NewEPubBuilder(outputDir string) *EPubBuilder {
	return &EPubBuilder{outputDir: outputDir}
}

// ExportChapter builds "<manga> - <chapter>.epub" from one chapter directory.
func (b *EPubBuilder) ExportChapter(chapterDir string) (string, error) {
	chapter, err := data.ReadChapterMetadata(chapterDir)
	if err != nil {
		return "", fmt.Errorf("failed to read chapter metadata: %w", err)
	}

	book, err := b.newBook(chapter.Manga, chapter.Manga.Title+" - "+chapter.Title)
	if err != nil {
		return "", err
	}
	if err := addChapter(book, 0, chapterDir, chapter.Title); err != nil {
		return "", err
	}
	return b.write(book, chapter.Manga.Title+" - "+chapter.Title)
}

// ExportManga builds "<manga>.epub" from every downloaded chapter under
// mangaDir, ordered by chapter number.
func (b *EPubBuilder) ExportManga(mangaDir string) (string, error) {
	manga, err := data.ReadMangaMetadata(mangaDir)
	if err != nil {
		return "", fmt.Errorf("failed to read manga metadata: %w", err)
	}

	entries, err := os.ReadDir(mangaDir)
	if err != nil {
		return "", data.NewIoError(err)
	}
	var chapters []data.Chapter
	dirs := map[string]string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(mangaDir, entry.Name())
		chapter, err := data.ReadChapterMetadata(dir)
		if err != nil {
			continue
		}
		chapters = append(chapters, chapter)
		dirs[chapter.URL] = dir
	}
	if len(chapters) == 0 {
		return "", fmt.Errorf("no chapters to compile in %s", mangaDir)
	}
	sortChapters(chapters)

	book, err := b.newBook(manga, manga.Title)
	if err != nil {
		return "", err
	}
	for i, chapter := range chapters {
		if err := addChapter(book, i, dirs[chapter.URL], chapter.Title); err != nil {
			return "", fmt.Errorf("failed to add chapter %s: %w", chapter.Title, err)
		}
	}
	return b.write(book, manga.Title)
}

func (b *EPubBuilder) newBook(manga data.Manga, title string) (*epub.Epub, error) {
	book, err := epub.NewEpub(title)
	if err != nil {
		return nil, fmt.Errorf("failed to create EPub: %w", err)
	}
	book.SetAuthor(string(manga.Connector))
	book.SetLang("en")
	book.SetIdentifier(manga.URL)
	return book, nil
}

func (b *EPubBuilder) write(book *epub.Epub, name string) (string, error) {
	if err := os.MkdirAll(b.outputDir, 0755); err != nil {
		return "", data.NewIoError(err)
	}
	outputPath := filepath.Join(b.outputDir, utils.SanitizeFilename(name)+".epub")
	if err := book.Write(outputPath); err != nil {
		return "", fmt.Errorf("failed to write EPub: %w", err)
	}
	return outputPath, nil
}

// addChapter appends one section holding every page image of dir. The first
// page of the first chapter is also the book cover.
func addChapter(book *epub.Epub, index int, dir, title string) error {
	pages, err := pageFiles(dir)
	if err != nil {
		return err
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<h1>%s</h1>\n", html.EscapeString(title))
	for i, name := range pages {
		internalName := fmt.Sprintf("c%03d-p%04d%s", index, i, strings.ToLower(filepath.Ext(name)))
		internalPath, err := book.AddImage(filepath.Join(dir, name), internalName)
		if err != nil {
			return fmt.Errorf("failed to add image %s: %w", name, err)
		}
		if index == 0 && i == 0 {
			book.SetCover(internalPath, "")
		}
		fmt.Fprintf(&body, `<div class="page"><img src="%s" alt="Page %d" style="width:100%%;height:auto;"/></div>`+"\n", internalPath, i+1)
	}

	if _, err := book.AddSection(body.String(), title, "", ""); err != nil {
		return fmt.Errorf("failed to add section: %w", err)
	}
	return nil
}

// pageFiles lists the "{index}.{ext}" images of dir in page order.
func pageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, data.NewIoError(err)
	}

	type page struct {
		index int
		name  string
	}
	var pages []page
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isImageFile(name) {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSuffix(name, filepath.Ext(name)))
		if err != nil {
			continue
		}
		pages = append(pages, page{index: index, name: name})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].index < pages[j].index })
	names := make([]string, len(pages))
	for i, p := range pages {
		names[i] = p.name
	}
	return names, nil
}

// sortChapters orders by the first number in the title, then by title.
func sortChapters(chapters []data.Chapter) {
	number := func(c data.Chapter) float64 {
		n, err := strconv.ParseFloat(chapterNumber.FindString(c.Title), 64)
		if err != nil {
			return -1
		}
		return n
	}
	sort.SliceStable(chapters, func(i, j int) bool {
		ni, nj := number(chapters[i]), number(chapters[j])
		if ni != nj {
			return ni < nj
		}
		return chapters[i].Title < chapters[j].Title
	})
}

func isImageFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".jpg" || ext == ".jpeg" || ext == ".png" || ext == ".gif" || ext == ".webp"
}
