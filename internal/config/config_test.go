package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("RAG_TOP_K", "")
	t.Setenv("SIMILARITY_THRESHOLD", "")
	t.Setenv("COLLABORATOR_TIMEOUT", "")
	t.Setenv("TICKET_RETRY_INTERVAL", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("RATE_LIMIT_BURST", "")
	t.Setenv("LOG_LEVEL", "")

	assert.Equal(t, 8080, ServerPort())
	assert.Equal(t, ":8080", ServerAddr())
	assert.Equal(t, 5, RetrievalTopK())
	assert.Equal(t, float32(0.5), SimilarityThreshold())
	assert.Equal(t, 15*time.Second, CollaboratorTimeout())
	assert.Equal(t, 30*time.Second, TicketRetryInterval())
	assert.Equal(t, "openai", LLMProvider())
	assert.Equal(t, "openai", EmbeddingProvider())
	assert.Equal(t, float64(100), RateLimitRPS())
	assert.Equal(t, 20, RateLimitBurst())
	assert.Equal(t, "info", LogLevel())
}

func TestOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("RAG_TOP_K", "3")
	t.Setenv("SIMILARITY_THRESHOLD", "0.72")
	t.Setenv("COLLABORATOR_TIMEOUT", "5s")
	t.Setenv("TICKET_RETRY_INTERVAL", "1m")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("OPENAI_API_KEY", "sk-openai-test")

	assert.Equal(t, 9090, ServerPort())
	assert.Equal(t, 3, RetrievalTopK())
	assert.InDelta(t, 0.72, float64(SimilarityThreshold()), 0.001)
	assert.Equal(t, 5*time.Second, CollaboratorTimeout())
	assert.Equal(t, time.Minute, TicketRetryInterval())
	assert.Equal(t, "sk-ant-test", LLMAPIKey())

	t.Setenv("LLM_PROVIDER", "mock")
	assert.Empty(t, LLMAPIKey())

	t.Setenv("EMBEDDING_PROVIDER", "openai")
	assert.Equal(t, "sk-openai-test", EmbeddingAPIKey())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("RAG_TOP_K", "-2")
	t.Setenv("SIMILARITY_THRESHOLD", "1.5")
	t.Setenv("COLLABORATOR_TIMEOUT", "soon")

	assert.Equal(t, 8080, ServerPort())
	assert.Equal(t, 5, RetrievalTopK())
	assert.Equal(t, float32(0.5), SimilarityThreshold())
	assert.Equal(t, 15*time.Second, CollaboratorTimeout())
}
