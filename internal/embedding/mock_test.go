package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClientDeterministic(t *testing.T) {
	client := NewMockClient()
	ctx := context.Background()

	first, err := client.Embed(ctx, "how do I reset my password")
	require.NoError(t, err)
	second, err := client.Embed(ctx, "how do I reset my password")
	require.NoError(t, err)

	assert.Len(t, first, Dimension)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"how do I reset my password", "how do I reset my password"}, client.EmbedCalls)
}

func TestMockClientDistinctTexts(t *testing.T) {
	client := NewMockClient()
	ctx := context.Background()

	a, err := client.Embed(ctx, "vpn connection fails")
	require.NoError(t, err)
	b, err := client.Embed(ctx, "container stuck at init")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestMockClientNormalized(t *testing.T) {
	client := NewMockClient()

	vec, err := client.Embed(context.Background(), "dns resolution broken")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 0.001)
}

func TestMockClientErrorAndReset(t *testing.T) {
	client := NewMockClient()
	client.EmbedError = errors.New("embedding unavailable")

	_, err := client.Embed(context.Background(), "anything")
	assert.Error(t, err)
	assert.Len(t, client.EmbedCalls, 1)

	client.Reset()
	assert.NoError(t, client.EmbedError)
	assert.Empty(t, client.EmbedCalls)
}
