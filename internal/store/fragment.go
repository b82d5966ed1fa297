package store

import (
	"context"
	"fmt"

	"github.com/cyberlab/helpdesk/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// FragmentStore reads embedded knowledge fragments and their document
// metadata. The table is written by the ingestion job only; this store
// never mutates it.
type FragmentStore struct {
	db *pgxpool.Pool
}

func NewFragmentStore(db *pgxpool.Pool) *FragmentStore {
	return &FragmentStore{db: db}
}

func (s *FragmentStore) Search(ctx context.Context, embedding []float32, opts domain.SearchOpts) ([]domain.FragmentWithScore, error) {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}

	vec := pgvector.NewVector(embedding)

	// Ordering by score then position makes the result deterministic for
	// equal similarities.
	rows, err := s.db.Query(ctx,
		`SELECT f.id, f.document_id, f.text, f.heading_path, f.position, f.visibility_tags,
		        d.id, d.title, d.version, d.last_updated, d.tags, d.deprecated,
		        1 - (f.embedding <=> $1) AS score
		 FROM kb_fragments f
		 JOIN kb_documents d ON d.id = f.document_id
		 WHERE f.embedding IS NOT NULL
		   AND 1 - (f.embedding <=> $1) >= $2
		 ORDER BY score DESC, f.position ASC
		 LIMIT $3`,
		vec, opts.MinSimilarity, opts.TopK,
	)
	if err != nil {
		return nil, fmt.Errorf("fragment search query: %w", err)
	}
	defer rows.Close()

	var results []domain.FragmentWithScore
	for rows.Next() {
		var fs domain.FragmentWithScore
		var visibilityTags []string
		err := rows.Scan(
			&fs.ID, &fs.DocumentID, &fs.Text, &fs.HeadingPath, &fs.Position, &visibilityTags,
			&fs.Document.ID, &fs.Document.Title, &fs.Document.Version, &fs.Document.LastUpdated,
			&fs.Document.Tags, &fs.Document.Deprecated,
			&fs.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fragment row: %w", err)
		}
		for _, t := range visibilityTags {
			fs.VisibilityTags = append(fs.VisibilityTags, domain.VisibilityTag(t))
		}
		results = append(results, fs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fragment search rows: %w", err)
	}

	return results, nil
}

func (s *FragmentStore) ListDocuments(ctx context.Context) ([]domain.KnowledgeDocument, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, title, version, last_updated, tags, deprecated
		 FROM kb_documents
		 ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents query: %w", err)
	}
	defer rows.Close()

	var docs []domain.KnowledgeDocument
	for rows.Next() {
		var d domain.KnowledgeDocument
		if err := rows.Scan(&d.ID, &d.Title, &d.Version, &d.LastUpdated, &d.Tags, &d.Deprecated); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
