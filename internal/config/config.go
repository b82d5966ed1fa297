package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by HELPDESK_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("HELPDESK_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

// LLMProvider returns the configured generation provider.
// Valid values: openai, anthropic, mock. Defaults to "openai".
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// EmbeddingProvider returns the configured embedding provider.
// Valid values: openai, mock. Defaults to "openai".
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// LLMAPIKey returns the API key for the configured generation provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// RetrievalTopK returns how many fragments retrieval keeps after ranking.
// Defaults to 5.
func RetrievalTopK() int {
	k, err := strconv.Atoi(os.Getenv("RAG_TOP_K"))
	if err != nil || k <= 0 {
		return 5
	}
	return k
}

// SimilarityThreshold returns the minimum cosine similarity a fragment
// needs to participate in ranking. Defaults to 0.5.
func SimilarityThreshold() float32 {
	t, err := strconv.ParseFloat(os.Getenv("SIMILARITY_THRESHOLD"), 32)
	if err != nil || t <= 0 || t >= 1 {
		return 0.5
	}
	return float32(t)
}

// CollaboratorTimeout returns the caller-imposed timeout for embedding and
// generation calls. Defaults to 15s.
func CollaboratorTimeout() time.Duration {
	d, err := time.ParseDuration(os.Getenv("COLLABORATOR_TIMEOUT"))
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// TicketRetryInterval returns how often queued ticket intents are retried.
// Defaults to 30s.
func TicketRetryInterval() time.Duration {
	d, err := time.ParseDuration(os.Getenv("TICKET_RETRY_INTERVAL"))
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
