package integrations

// Exporter packages downloaded chapters into a single file. Directories are
// the ones produced by the downloader: a manga directory with one
// subdirectory per chapter, each carrying its metadata file.
type Exporter interface {
	ExportChapter(chapterDir string) (string, error)
	ExportManga(mangaDir string) (string, error)
}
