package service

import (
	"context"
	"sort"
	"time"

	"github.com/cyberlab/helpdesk/internal/domain"
	"go.uber.org/zap"
)

const (
	// DefaultTopK is the number of fragments kept after ranking.
	DefaultTopK = 5
	// DefaultSimilarityThreshold is the minimum cosine similarity for a
	// fragment to participate in ranking.
	DefaultSimilarityThreshold = 0.5
	// candidateMultiplier over-fetches so role filtering and conflict
	// resolution still leave enough fragments.
	candidateMultiplier = 2
)

// RetrievalEngine embeds a query and performs similarity search against
// the fragment store. It degrades to an empty candidate set when the
// embedding collaborator fails or times out; the orchestrator treats
// empty retrieval as no coverage.
type RetrievalEngine struct {
	fragmentStore   domain.FragmentStore
	embeddingClient domain.EmbeddingClient
	logger          *zap.Logger

	topK      int
	threshold float32
	timeout   time.Duration
}

func NewRetrievalEngine(fs domain.FragmentStore, ec domain.EmbeddingClient, logger *zap.Logger) *RetrievalEngine {
	return &RetrievalEngine{
		fragmentStore:   fs,
		embeddingClient: ec,
		logger:          logger,
		topK:            DefaultTopK,
		threshold:       DefaultSimilarityThreshold,
		timeout:         15 * time.Second,
	}
}

func (e *RetrievalEngine) SetTopK(k int) {
	if k > 0 {
		e.topK = k
	}
}

func (e *RetrievalEngine) SetThreshold(t float32) {
	if t > 0 && t < 1 {
		e.threshold = t
	}
}

func (e *RetrievalEngine) SetTimeout(d time.Duration) {
	if d > 0 {
		e.timeout = d
	}
}

// TopK returns the configured result limit, for the resolver to truncate
// against after conflict resolution.
func (e *RetrievalEngine) TopK() int {
	return e.topK
}

// Search converts the query to a vector and returns threshold-filtered
// candidates ordered by descending similarity, ties broken by ascending
// fragment position. Collaborator failures return an empty set, never an
// error.
func (e *RetrievalEngine) Search(ctx context.Context, query string) []domain.FragmentWithScore {
	if e.embeddingClient == nil {
		e.logger.Warn("embedding client not configured, treating as no coverage")
		return nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	embedding, err := e.embeddingClient.Embed(embedCtx, query)
	if err != nil {
		e.logger.Warn("query embedding failed, treating as no coverage", zap.Error(err))
		return nil
	}

	candidates, err := e.fragmentStore.Search(ctx, embedding, domain.SearchOpts{
		TopK:          e.topK * candidateMultiplier,
		MinSimilarity: e.threshold,
	})
	if err != nil {
		e.logger.Warn("fragment search failed, treating as no coverage", zap.Error(err))
		return nil
	}

	// The store already filters by threshold and orders by score; re-apply
	// both here so in-memory stores and test doubles get the same contract.
	filtered := candidates[:0]
	for _, c := range candidates {
		if c.Score >= e.threshold {
			filtered = append(filtered, c)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Score != filtered[j].Score {
			return filtered[i].Score > filtered[j].Score
		}
		return filtered[i].Position < filtered[j].Position
	})

	e.logger.Debug("retrieval complete",
		zap.Int("candidates", len(filtered)),
		zap.Float32("threshold", e.threshold))

	return filtered
}
