package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort              = "8080"
	defaultDatabaseURL       = "user=postgres password=password dbname=ebookgen host=localhost port=5432 sslmode=disable"
	defaultMediaRoot         = "public"
	defaultChatModel         = "gpt-3.5-turbo"
	defaultImageModel        = "dall-e-2"
	defaultImageSize         = "512x512"
	defaultAnthropicModel    = "claude-sonnet-4-20250514"
	defaultCoverMediaName    = "image1.png"
	defaultTOCFont           = "Garamond"
	defaultTitleFont         = "Garamond"
	defaultContentFont       = "Georgia"
	defaultGenerationTimeout = 30 * time.Minute
	defaultCreatePerMinute   = 5
)

// Provider names accepted by LLM_PROVIDER and IMAGE_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderHorde     = "horde"
)

// Fonts names the three typefaces used when composing documents.
type Fonts struct {
	TOC     string
	Title   string
	Content string
}

// Config is loaded once at startup and handed to each component that needs it.
type Config struct {
	Port        string
	DatabaseURL string
	MediaRoot   string

	LLMProvider     string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	ChatModel       string
	AnthropicAPIKey string
	AnthropicModel  string

	ImageProvider string
	ImageModel    string
	ImageSize     string
	HordeAPIKey   string

	Fonts          Fonts
	TemplatePath   string
	CoverMediaName string

	PDFEnabled  bool
	EPUBEnabled bool
	SofficePath string

	LLMRequestsPerMinute    int
	CreateRequestsPerMinute int
	GenerationTimeout       time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("WARNING: could not read .env file: %v", err)
	}

	cfg := Config{
		Port:        getEnv("PORT", defaultPort),
		DatabaseURL: os.Getenv("DB_CONNECTION_STRING"),
		MediaRoot:   getEnv("MEDIA_ROOT", defaultMediaRoot),

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		ChatModel:       getEnv("OPENAI_CHAT_MODEL", defaultChatModel),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", defaultAnthropicModel),

		ImageProvider: strings.ToLower(getEnv("IMAGE_PROVIDER", ProviderOpenAI)),
		ImageModel:    getEnv("OPENAI_IMAGE_MODEL", defaultImageModel),
		ImageSize:     getEnv("OPENAI_IMAGE_SIZE", defaultImageSize),
		HordeAPIKey:   os.Getenv("HORDE_API_KEY"),

		Fonts: Fonts{
			TOC:     getEnv("TOC_FONT", defaultTOCFont),
			Title:   getEnv("TITLE_FONT", defaultTitleFont),
			Content: getEnv("CONTENT_FONT", defaultContentFont),
		},
		TemplatePath:   os.Getenv("DOCX_TEMPLATE_PATH"),
		CoverMediaName: getEnv("DOCX_COVER_MEDIA", defaultCoverMediaName),

		PDFEnabled:  getEnvBool("PDF_ENABLED", true),
		EPUBEnabled: getEnvBool("EPUB_ENABLED", true),
		SofficePath: os.Getenv("SOFFICE_PATH"),

		LLMRequestsPerMinute:    getEnvInt("LLM_REQUESTS_PER_MINUTE", 0),
		CreateRequestsPerMinute: getEnvInt("CREATE_REQUESTS_PER_MINUTE", defaultCreatePerMinute),
		GenerationTimeout:       getEnvDuration("GENERATION_TIMEOUT", defaultGenerationTimeout),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
		log.Println("WARNING: DB_CONNECTION_STRING not set, using default local connection string.")
	}
	cfg.warnMissingKeys()
	return cfg
}

func (c Config) warnMissingKeys() {
	switch c.LLMProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			log.Println("WARNING: ANTHROPIC_API_KEY not set. Book generation will fail at runtime.")
		}
	default:
		if c.OpenAIAPIKey == "" {
			log.Println("WARNING: OPENAI_API_KEY not set. Book generation will fail at runtime.")
		}
	}
	switch c.ImageProvider {
	case ProviderHorde:
		if c.HordeAPIKey == "" {
			log.Println("WARNING: HORDE_API_KEY not set, falling back to the anonymous horde key.")
		}
	default:
		if c.OpenAIAPIKey == "" {
			log.Println("WARNING: OPENAI_API_KEY not set. AI cover generation will fail at runtime.")
		}
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARNING: %s=%q is not a boolean, using %t", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("WARNING: %s=%q is not a non-negative integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("WARNING: %s=%q is not a positive duration, using %s", key, v, fallback)
		return fallback
	}
	return d
}
