package data

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// MetadataFile holds the serialized Manga inside a manga directory and the
// serialized Chapter inside a chapter directory.
const MetadataFile = "metadata.json"

func WriteMetadata(dir string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return NewIoError(err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return NewIoError(err)
	}
	return NewIoError(os.WriteFile(filepath.Join(dir, MetadataFile), b, 0644))
}

func ReadMangaMetadata(dir string) (Manga, error) {
	var manga Manga
	err := readMetadata(dir, &manga)
	return manga, err
}

func ReadChapterMetadata(dir string) (Chapter, error) {
	var chapter Chapter
	err := readMetadata(dir, &chapter)
	return chapter, err
}

func readMetadata(dir string, v any) error {
	b, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return NewIoError(err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return ParseErrorf("bad metadata in %s: %v", dir, err)
	}
	return nil
}
