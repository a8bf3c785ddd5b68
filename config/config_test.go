package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "MEDIA_ROOT", "LLM_PROVIDER", "TOC_FONT", "PDF_ENABLED", "GENERATION_TIMEOUT", "LLM_REQUESTS_PER_MINUTE"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, defaultMediaRoot, cfg.MediaRoot)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, defaultTOCFont, cfg.Fonts.TOC)
	assert.True(t, cfg.PDFEnabled)
	assert.Equal(t, defaultGenerationTimeout, cfg.GenerationTimeout)
	assert.Zero(t, cfg.LLMRequestsPerMinute)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("CONTENT_FONT", "Baskerville")
	t.Setenv("PDF_ENABLED", "false")
	t.Setenv("GENERATION_TIMEOUT", "90s")
	t.Setenv("LLM_REQUESTS_PER_MINUTE", "12")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, ProviderAnthropic, cfg.LLMProvider)
	assert.Equal(t, "Baskerville", cfg.Fonts.Content)
	assert.False(t, cfg.PDFEnabled)
	assert.Equal(t, 90*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, 12, cfg.LLMRequestsPerMinute)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("EPUB_ENABLED", "sometimes")
	t.Setenv("CREATE_REQUESTS_PER_MINUTE", "-3")
	t.Setenv("GENERATION_TIMEOUT", "soon")

	cfg := Load()

	assert.True(t, cfg.EPUBEnabled)
	assert.Equal(t, defaultCreatePerMinute, cfg.CreateRequestsPerMinute)
	assert.Equal(t, defaultGenerationTimeout, cfg.GenerationTimeout)
}
