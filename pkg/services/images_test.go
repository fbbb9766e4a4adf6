package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kerbaras/mangetsu/pkg/cache"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestImageLoader(t *testing.T, store *cache.Store, client *http.Client) *ImageLoader {
	t.Helper()
	memory, err := cache.NewMemory[string, image.Image](8)
	require.NoError(t, err)
	return NewImageLoader(utils.NewAPIWithClient(client), store, memory, nil)
}

func TestImageLoaderFallsBackToNetworkThenCaches(t *testing.T) {
	var hits atomic.Int32
	var referer atomic.Value
	body := pngBytes(t, 400, 600)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		referer.Store(r.Header.Get("Referer"))
		w.Write(body)
	}))
	defer server.Close()

	store := cache.NewStore(t.TempDir())
	loader := newTestImageLoader(t, store, server.Client())
	url := server.URL + "/icons/moon.png"

	img, err := loader.Load(context.Background(), url, "https://manganato.com/manga-m")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 300), img.Bounds())
	assert.Equal(t, "https://manganato.com/manga-m", referer.Load())

	_, ok := store.GetImage(cache.ImagesBucket, "moon.png")
	assert.True(t, ok, "written to disk")

	_, err = loader.Load(context.Background(), url, "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second load served from memory")

	fresh := newTestImageLoader(t, store, server.Client())
	img, err = fresh.Load(context.Background(), url, "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "empty memory falls back to disk")
	assert.Equal(t, image.Rect(0, 0, 200, 300), img.Bounds())
}

func TestImageLoaderDecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not an image</html>"))
	}))
	defer server.Close()

	loader := newTestImageLoader(t, cache.NewStore(t.TempDir()), server.Client())
	_, err := loader.Load(context.Background(), server.URL+"/x.jpg", "")
	assert.True(t, data.IsKind(err, data.ParseError))
}

func TestThumbnailKeepsSmallImages(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 20, 30))
	assert.Equal(t, small.Bounds(), Thumbnail(small).Bounds())
}

func TestImageKey(t *testing.T) {
	assert.Equal(t, "cover.jpg", imageKey("https://avt.mkklcdnv6temp.com/12/a/cover.jpg?x=1"))
	assert.NotEmpty(t, imageKey("https://example.com/"))
}
