package data

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMangaIdentity(t *testing.T) {
	a := Manga{URL: "https://manganato.com/manga-aa1", Title: "One", IconURL: "https://x/1.jpg", Connector: Manganato}
	b := Manga{URL: "https://manganato.com/manga-aa1", Title: "Another title", IconURL: "https://x/2.jpg"}
	c := Manga{URL: "https://manganato.com/manga-bb2", Title: "One", IconURL: "https://x/1.jpg", Connector: Manganato}

	assert.True(t, a.Equal(b), "same url must be equal regardless of title/icon")
	assert.Equal(t, a.Key(), b.Key())
	assert.False(t, a.Equal(c))

	seen := map[string]Manga{a.Key(): a}
	_, ok := seen[b.Key()]
	assert.True(t, ok)
}

func TestChapterIdentity(t *testing.T) {
	a := Chapter{URL: "https://chapmanganato.com/manga-aa1/chapter-1", Title: "Chapter 1"}
	b := Chapter{URL: "https://chapmanganato.com/manga-aa1/chapter-1", Title: "Vol.1 Chapter 1"}

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
}

func TestMangaJSONRoundTrip(t *testing.T) {
	manga := Manga{URL: "https://manganato.com/manga-aa1", Title: "Test Manga", IconURL: "https://x/1.jpg", Connector: Manganato}

	raw, err := json.MarshalIndent(manga, "", "  ")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"icon_url"`)

	var decoded Manga
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, manga.Equal(decoded))
	assert.Equal(t, manga, decoded)
}

func TestChapterJSONRoundTrip(t *testing.T) {
	chapter := Chapter{
		URL:       "https://chapmanganato.com/manga-aa1/chapter-1",
		Title:     "Chapter 1",
		Connector: Manganato,
		Manga:     Manga{URL: "https://manganato.com/manga-aa1", Title: "Test Manga"},
	}

	raw, err := json.Marshal(chapter)
	require.NoError(t, err)

	var decoded Chapter
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, chapter.Equal(decoded))
	assert.True(t, chapter.Manga.Equal(decoded.Manga))
}
