// Package config loads service settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider selects which generative backend to use.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderGroq   Provider = "groq"
)

// QueryMode selects the retrieval strategy.
type QueryMode string

const (
	ModePlain     QueryMode = "plain"
	ModeSelfQuery QueryMode = "selfquery"
)

// Config holds everything the binaries need. Zero values are never
// used directly: Load fills defaults explicitly so the effective
// configuration is visible in one place.
type Config struct {
	RegistryURL string
	CatalogPath string

	QdrantHost     string
	QdrantPort     int
	CollectionName string

	OllamaHost string
	EmbedModel string

	Provider     Provider
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	GroqModel    string

	QueryMode QueryMode

	Port        int
	AllowOrigin string

	ExecEnabled  bool
	WorkspaceDir string

	BatchSize    int
	EnhanceDelay time.Duration
}

// QdrantAddr is the host:port the gRPC client dials.
func (c Config) QdrantAddr() string {
	return fmt.Sprintf("%s:%d", c.QdrantHost, c.QdrantPort)
}

// Load reads the environment, after loading .env if one is present.
// It validates anything that would otherwise fail deep inside a run.
func Load() (Config, error) {
	// A missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	cfg := Config{
		RegistryURL:    getEnv("MCP_REGISTRY_URL", "https://www.mcpserverfinder.com"),
		CatalogPath:    getEnv("CATALOG_PATH", "all_mcp_server.json"),
		QdrantHost:     getEnv("QDRANT_HOST", "localhost"),
		CollectionName: getEnv("QDRANT_COLLECTION", "mcp-server"),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		EmbedModel:     getEnv("EMBED_MODEL", "nomic-embed-text"),
		Provider:       Provider(getEnv("LLM_PROVIDER", string(ProviderGemini))),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GroqAPIKey:     os.Getenv("GROQ_API_KEY"),
		GroqModel:      getEnv("GROQ_MODEL", "deepseek-r1-distill-llama-70b"),
		QueryMode:      QueryMode(getEnv("QUERY_MODE", string(ModePlain))),
		AllowOrigin:    getEnv("ALLOW_ORIGIN", "http://localhost:3000"),
		WorkspaceDir:   getEnv("MCP_WORKSPACE_DIR", "."),
	}

	var err error
	if cfg.QdrantPort, err = getEnvInt("QDRANT_PORT", 6334); err != nil {
		return Config{}, err
	}
	if cfg.Port, err = getEnvInt("PORT", 8081); err != nil {
		return Config{}, err
	}
	if cfg.BatchSize, err = getEnvInt("ENHANCE_BATCH_SIZE", 15); err != nil {
		return Config{}, err
	}

	delaySecs, err := getEnvInt("ENHANCE_DELAY_SECONDS", 30)
	if err != nil {
		return Config{}, err
	}
	cfg.EnhanceDelay = time.Duration(delaySecs) * time.Second

	cfg.ExecEnabled = getEnv("MCP_EXEC_ENABLED", "false") == "true"

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderGroq:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q, want %q or %q", c.Provider, ProviderGemini, ProviderGroq)
	}

	switch c.QueryMode {
	case ModePlain, ModeSelfQuery:
	default:
		return fmt.Errorf("unknown QUERY_MODE %q, want %q or %q", c.QueryMode, ModePlain, ModeSelfQuery)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("ENHANCE_BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	return nil
}

// RequireProviderKey checks that the API key for the selected provider
// is set. Only the binaries that call the provider need it, so this is
// separate from Load.
func (c Config) RequireProviderKey() error {
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY is required when LLM_PROVIDER=groq")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}
