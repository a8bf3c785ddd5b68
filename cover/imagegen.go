package cover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/opd-ai/horde"
	openai "github.com/sashabaranov/go-openai"
)

// maxImageBytes bounds any single image download.
const maxImageBytes = 20 << 20

var ErrNoImage = errors.New("image generation returned no image")

// ImageGenerator produces raw encoded image bytes for a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// Fetcher downloads images over HTTP.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	return data, nil
}

// OpenAIImage generates covers with DALL-E and downloads the returned URL.
type OpenAIImage struct {
	client  *openai.Client
	model   string
	size    string
	fetcher *Fetcher
}

func NewOpenAIImage(apiKey, baseURL, model, size string, httpClient *http.Client) *OpenAIImage {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if model == "" {
		model = openai.CreateImageModelDallE2
	}
	if size == "" {
		size = openai.CreateImageSize512x512
	}
	return &OpenAIImage{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		size:    size,
		fetcher: NewFetcher(httpClient),
	}
}

func (o *OpenAIImage) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          o.model,
		N:              1,
		Size:           o.size,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, fmt.Errorf("openai image generation failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, ErrNoImage
	}
	return o.fetcher.Fetch(ctx, resp.Data[0].URL)
}

// HordeImage generates covers on the AI Horde.
type HordeImage struct {
	client *horde.Client
}

func NewHordeImage(apiKey string) *HordeImage {
	return &HordeImage{client: horde.NewClient(apiKey)}
}

// GenerateImage blocks until the horde finishes; the horde client has no
// context support, so cancellation is only observed before submitting.
func (h *HordeImage) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := h.client.RequestGeneration(horde.GenerationRequest{
		Prompt: prompt,
		Params: horde.Params{
			Steps:     horde.DefaultSteps,
			Width:     horde.DefaultWidth,
			Height:    horde.DefaultHeight,
			ModelName: horde.DefaultModel,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("requesting horde generation: %w", err)
	}
	log.Printf("INFO (HordeImage): Generation %s accepted, waiting", resp.ID)

	status, err := h.client.WaitForCompletion(resp.ID)
	if err != nil {
		return nil, fmt.Errorf("waiting for horde generation %s: %w", resp.ID, err)
	}
	if len(status.Generation) == 0 || status.Generation[0].Image == "" {
		return nil, ErrNoImage
	}

	data, err := h.client.DownloadImage(status.Generation[0].Image)
	if err != nil {
		return nil, fmt.Errorf("downloading horde image: %w", err)
	}
	return data, nil
}
