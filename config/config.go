package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	AppName     = "medguide-bot"
	EnvFileName = "config.env"

	ProviderGrok   = "grok"
	ProviderGemini = "gemini"
)

// Config holds everything the bot needs from the environment.
type Config struct {
	BotToken        string
	LLMProvider     string
	XAIAPIKey       string
	GeminiAPIKey    string
	FirecrawlAPIKey string
	DBPath          string
	MaxConcurrent   int
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory, then from ./config.env. Errors are ignored since the
// files may not exist.
func LoadEnvFile() {
	if configBase, err := os.UserConfigDir(); err == nil {
		_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
	}
	_ = godotenv.Load(EnvFileName)
}

// Load reads and validates the configuration. All missing required variables
// are reported in one error.
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:        os.Getenv("BOT_TOKEN"),
		LLMProvider:     strings.ToLower(os.Getenv("LLM_PROVIDER")),
		XAIAPIKey:       os.Getenv("XAI_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		FirecrawlAPIKey: os.Getenv("FIRECRAWL_API_KEY"),
		DBPath:          os.Getenv("MEDGUIDE_DB_PATH"),
		MaxConcurrent:   5,
	}

	if cfg.LLMProvider == "" {
		cfg.LLMProvider = ProviderGrok
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "medguide.db"
	}
	if raw := os.Getenv("MAX_CONCURRENT_LOOKUPS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("MAX_CONCURRENT_LOOKUPS must be a positive integer, got %q", raw)
		}
		cfg.MaxConcurrent = n
	}

	var missing []string
	if cfg.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if cfg.FirecrawlAPIKey == "" {
		missing = append(missing, "FIRECRAWL_API_KEY")
	}
	switch cfg.LLMProvider {
	case ProviderGrok:
		if cfg.XAIAPIKey == "" {
			missing = append(missing, "XAI_API_KEY")
		}
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
	default:
		return nil, fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderGrok, ProviderGemini, cfg.LLMProvider)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}
