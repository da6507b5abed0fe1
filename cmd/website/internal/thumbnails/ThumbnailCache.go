package thumbnails

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/adampresley/picturegallery/pkg/models"
	"github.com/alitto/pond/v2"
	"github.com/nfnt/resize"
)

/*
ThumbnailCacher builds small JPEG copies of gallery pictures in the
background so the grid does not pull full-size originals.
*/
type ThumbnailCacher interface {
	Get(name string) (Thumbnail, bool)
	Warm(pictures []models.Picture) int
	Stop()
}

type ThumbnailCacheConfig struct {
	HttpClient  *http.Client
	MaxSize     uint
	MaxWorkers  int
	ShutdownCtx context.Context
	Store       Store
}

type ThumbnailCache struct {
	httpClient *http.Client
	maxSize    uint
	pool       pond.Pool
	shutdown   context.Context
	store      Store
	inFlight   sync.Map
}

func NewThumbnailCache(config ThumbnailCacheConfig) *ThumbnailCache {
	ctx := config.ShutdownCtx
	if ctx == nil {
		ctx = context.Background()
	}

	httpClient := config.HttpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	maxSize := config.MaxSize
	if maxSize == 0 {
		maxSize = 300
	}

	workers := config.MaxWorkers
	if workers < 1 {
		workers = 4
	}

	return &ThumbnailCache{
		httpClient: httpClient,
		maxSize:    maxSize,
		pool:       pond.NewPool(workers, pond.WithContext(ctx)),
		shutdown:   ctx,
		store:      config.Store,
	}
}

func (c *ThumbnailCache) Get(name string) (Thumbnail, bool) {
	thumb, ok, err := c.store.Get(name)

	if err != nil {
		slog.Error("error reading thumbnail", "picture", name, "error", err)
		return Thumbnail{}, false
	}

	return thumb, ok
}

/*
Warm creates thumbnails for every picture that has none, or whose
thumbnail is older than the picture, then drops thumbnails of pictures no
longer in the list. It blocks until the batch is done and returns how many
were written.
*/
func (c *ThumbnailCache) Warm(pictures []models.Picture) int {
	var (
		mu      sync.Mutex
		created int
	)

	group := c.pool.NewGroup()

	for _, picture := range pictures {
		if picture.URL == "" || c.isFresh(picture) {
			continue
		}

		if _, busy := c.inFlight.LoadOrStore(picture.Name, true); busy {
			continue
		}

		group.Submit(func() {
			defer c.inFlight.Delete(picture.Name)

			if err := c.createThumbnail(picture); err != nil {
				slog.Error("error creating thumbnail", "picture", picture.Name, "error", err)
				return
			}

			mu.Lock()
			created++
			mu.Unlock()
		})
	}

	_ = group.Wait()

	if removed, err := c.store.Prune(models.PictureNames(pictures)); err != nil {
		slog.Error("error pruning thumbnails", "error", err)
	} else if removed > 0 {
		slog.Info("removed orphaned thumbnails", "count", removed)
	}

	if created > 0 {
		slog.Info("thumbnails created", "count", created, "pictures", len(pictures))
	}

	return created
}

func (c *ThumbnailCache) Stop() {
	_ = c.pool.Stop().Wait()
}

func (c *ThumbnailCache) isFresh(picture models.Picture) bool {
	modified, ok, err := c.store.Stat(picture.Name)

	if err != nil {
		slog.Error("error retrieving metadata for thumbnail", "picture", picture.Name, "error", err)
		return false
	}

	if !ok {
		return false
	}

	return !modified.Before(picture.Date.Time)
}

func (c *ThumbnailCache) createThumbnail(picture models.Picture) error {
	var (
		err error
		img image.Image
		buf bytes.Buffer
	)

	if img, err = c.resizeUrl(picture.URL); err != nil {
		return err
	}

	if err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("error encoding image for thumbnail: %w", err)
	}

	if err = c.store.Put(picture.Name, buf.Bytes()); err != nil {
		return fmt.Errorf("error storing thumbnail: %w", err)
	}

	return nil
}

func (c *ThumbnailCache) resizeUrl(url string) (image.Image, error) {
	var (
		err      error
		request  *http.Request
		response *http.Response
	)

	if request, err = http.NewRequestWithContext(c.shutdown, http.MethodGet, url, nil); err != nil {
		return nil, fmt.Errorf("error building request for '%s': %w", url, err)
	}

	if response, err = c.httpClient.Do(request); err != nil {
		return nil, fmt.Errorf("error downloading image from '%s': %w", url, err)
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error downloading image from '%s', status: %s", url, response.Status)
	}

	return c.resizeReader(response.Body)
}

func (c *ThumbnailCache) resizeReader(r io.Reader) (image.Image, error) {
	var (
		err error
		img image.Image
	)

	if img, _, err = image.Decode(r); err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}

	return Fit(img, c.maxSize), nil
}

/*
Fit scales img so its longest edge is maxSize.
*/
func Fit(img image.Image, maxSize uint) image.Image {
	bounds := img.Bounds()
	width := uint(bounds.Dx())
	height := uint(bounds.Dy())

	var newWidth, newHeight uint
	if width > height {
		newWidth = maxSize
		newHeight = uint(float64(height) * (float64(maxSize) / float64(width)))
	} else {
		newHeight = maxSize
		newWidth = uint(float64(width) * (float64(maxSize) / float64(height)))
	}

	return resize.Resize(newWidth, newHeight, img, resize.Lanczos3)
}
