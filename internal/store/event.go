package store

import (
	"context"
	"fmt"

	"github.com/cyberlab/helpdesk/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventStore is the append-only audit log.
type EventStore struct {
	db *pgxpool.Pool
}

func NewEventStore(db *pgxpool.Pool) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Append(ctx context.Context, e *domain.AuditEvent) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO audit_events (type, session_id, metadata)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		e.Type, e.SessionID, e.Metadata,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *EventStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, type, session_id, metadata, created_at
		 FROM audit_events
		 WHERE session_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(&e.ID, &e.Type, &e.SessionID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
