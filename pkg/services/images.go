package services

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"path"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/charmbracelet/log"
	"github.com/kerbaras/mangetsu/pkg/cache"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/utils"
	"github.com/nfnt/resize"
)

const (
	thumbnailWidth  uint = 200
	thumbnailHeight uint = 300
)

// ImageLoader fetches remote icons, trying memory first, then the disk
// cache, then the network. Network results are shrunk to thumbnail size
// before they are cached.
type ImageLoader struct {
	api    *utils.API
	store  *cache.Store
	memory *cache.Memory[string, image.Image]
	log    *log.Logger
}

func NewImageLoader(api *utils.API, store *cache.Store, memory *cache.Memory[string, image.Image], logger *log.Logger) *ImageLoader {
	if logger == nil {
		logger = utils.DiscardLogger()
	}
	return &ImageLoader{api: api, store: store, memory: memory, log: logger.WithPrefix("images")}
}

func (l *ImageLoader) Load(ctx context.Context, imageURL, referer string) (image.Image, error) {
	if img, ok := l.memory.Get(imageURL); ok {
		return img, nil
	}

	key := imageKey(imageURL)
	if img, ok := l.store.GetImage(cache.ImagesBucket, key); ok {
		l.memory.Add(imageURL, img)
		return img, nil
	}

	resp, err := l.api.Get(ctx, imageURL, referer)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, data.ParseErrorf("failed to decode image %s: %v", imageURL, err)
	}
	img = Thumbnail(img)

	if err := l.store.SetImage(cache.ImagesBucket, key, img); err != nil {
		l.log.Warn("failed to cache image", "url", imageURL, "err", err)
	}
	l.memory.Add(imageURL, img)
	return img, nil
}

// Thumbnail scales img down to fit the icon box, keeping its aspect ratio.
// Smaller images are returned unchanged.
func Thumbnail(img image.Image) image.Image {
	return resize.Thumbnail(thumbnailWidth, thumbnailHeight, img, resize.Lanczos3)
}

// imageKey is the file name of the image URL, which is unique per icon on the
// supported sites.
func imageKey(imageURL string) string {
	if u, err := url.Parse(imageURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return fmt.Sprintf("%x", imageURL)
}
