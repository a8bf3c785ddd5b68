package authoring

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// ErrEmptyCompletion is returned when a provider answers without any text.
var ErrEmptyCompletion = errors.New("completion contained no text")

const anthropicMaxTokens = 4096

// TextGenerator turns a single prompt into a single completion.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIText generates text with the OpenAI chat completions API.
type OpenAIText struct {
	client *openai.Client
	model  string
}

// NewOpenAIText builds a chat client. baseURL may be empty for the public API.
func NewOpenAIText(apiKey, baseURL, model string, httpClient *http.Client) *OpenAIText {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAIText{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAIText) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai chat completion: %w", ErrEmptyCompletion)
	}
	return resp.Choices[0].Message.Content, nil
}

// AnthropicText generates text with the Anthropic messages API.
type AnthropicText struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewAnthropicText(apiKey, model string, httpClient *http.Client) *AnthropicText {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	return &AnthropicText{
		client: anthropic.NewClient(opts...),
		model:  anthropic.Model(model),
	}
}

func (a *AnthropicText) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		MaxTokens: anthropicMaxTokens,
		Model:     a.model,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic message request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("anthropic message: %w", ErrEmptyCompletion)
	}
	return sb.String(), nil
}

// Throttled paces calls to the wrapped generator. Calls are never retried.
type Throttled struct {
	next    TextGenerator
	limiter *rate.Limiter
}

// NewThrottled allows perMinute calls per minute with a burst of one.
// A non-positive perMinute returns next unchanged.
func NewThrottled(next TextGenerator, perMinute int) TextGenerator {
	if perMinute <= 0 {
		return next
	}
	log.Printf("INFO (Throttled): Limiting LLM calls to %d per minute", perMinute)
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (t *Throttled) Generate(ctx context.Context, prompt string) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for LLM rate limiter: %w", err)
	}
	return t.next.Generate(ctx, prompt)
}
