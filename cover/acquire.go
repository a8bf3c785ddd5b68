package cover

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/coreybb/ebookgen/models"
	"github.com/coreybb/ebookgen/storage"
)

var ErrNoImageGenerator = errors.New("no image generator configured")

// Prompter writes image generation prompts for a book.
type Prompter interface {
	CoverPrompt(ctx context.Context, spec models.BookSpec) (string, error)
}

// Acquirer resolves a cover source into covers/<bookID>.png.
type Acquirer struct {
	store    *storage.MediaStore
	prompter Prompter
	images   ImageGenerator
	fetcher  *Fetcher
}

func NewAcquirer(store *storage.MediaStore, prompter Prompter, images ImageGenerator, fetcher *Fetcher) *Acquirer {
	if fetcher == nil {
		fetcher = NewFetcher(nil)
	}
	return &Acquirer{store: store, prompter: prompter, images: images, fetcher: fetcher}
}

// Acquire obtains the source image, keeps it as a temporary pre-crop file,
// fits it to Width x Height and returns the relative path of the final PNG.
func (a *Acquirer) Acquire(ctx context.Context, bookID string, spec models.BookSpec, source models.CoverSource) (string, error) {
	data, err := a.source(ctx, spec, source)
	if err != nil {
		return "", err
	}

	tmpPath, err := a.store.Path(storage.KindCover, bookID+"_source", sniffExtension(data))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write pre-crop cover: %w", err)
	}
	defer func() {
		if err := a.store.Remove(a.store.Rel(storage.KindCover, filepath.Base(tmpPath))); err != nil {
			log.Printf("WARN (Acquirer): %v", err)
		}
	}()

	src, err := decodeFile(tmpPath)
	if err != nil {
		return "", err
	}
	fitted, err := Fit(src)
	if err != nil {
		return "", err
	}

	finalPath, err := a.store.Path(storage.KindCover, bookID, "png")
	if err != nil {
		return "", err
	}
	if err := encodePNG(finalPath, fitted); err != nil {
		return "", err
	}

	rel := a.store.Rel(storage.KindCover, filepath.Base(finalPath))
	log.Printf("INFO (Acquirer): Cover for book %s saved to %s (source %dx%d)", bookID, rel, src.Bounds().Dx(), src.Bounds().Dy())
	return rel, nil
}

func (a *Acquirer) source(ctx context.Context, spec models.BookSpec, source models.CoverSource) ([]byte, error) {
	switch {
	case source.IsGenerate():
		if a.images == nil || a.prompter == nil {
			return nil, ErrNoImageGenerator
		}
		prompt, err := a.prompter.CoverPrompt(ctx, spec)
		if err != nil {
			return nil, err
		}
		data, err := a.images.GenerateImage(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("failed to generate cover image: %w", err)
		}
		return data, nil
	case source.IsURL():
		data, err := a.fetcher.Fetch(ctx, string(source))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch cover %s: %w", source, err)
		}
		return data, nil
	default:
		path, err := a.store.Resolve(string(source))
		if err != nil {
			return nil, fmt.Errorf("invalid cover reference: %w", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read cover %s: %w", source, err)
		}
		return data, nil
	}
}

func sniffExtension(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "img"
	}
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cover source: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read cover image header: %w", err)
	}
	if err := checkPixelBudget(cfg); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind cover source: %w", err)
	}

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover image: %w", err)
	}
	log.Printf("INFO (Acquirer): Decoded %s cover source", format)
	return img, nil
}

func encodePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cover file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode cover: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close cover file: %w", err)
	}
	return nil
}
