package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cyberlab/helpdesk/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TicketStore creates and manages support tickets from escalation intents.
type TicketStore struct {
	db *pgxpool.Pool
}

func NewTicketStore(db *pgxpool.Pool) *TicketStore {
	return &TicketStore{db: db}
}

// newTicketID returns an INC-XXXXXXXX identifier.
func newTicketID() string {
	return "INC-" + strings.ToUpper(uuid.NewString()[:8])
}

func (s *TicketStore) CreateFromIntent(ctx context.Context, intent *domain.TicketIntent, description string) (*domain.Ticket, error) {
	t := &domain.Ticket{
		ID:          newTicketID(),
		SessionID:   intent.SessionID,
		Tier:        intent.Tier,
		Severity:    intent.Severity,
		Subject:     intent.Subject,
		Description: description,
		Status:      domain.TicketNew,
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO tickets (id, session_id, tier, severity, subject, description, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		t.ID, t.SessionID, t.Tier, t.Severity, t.Subject, t.Description, t.Status,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	return t, nil
}

func (s *TicketStore) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	t := &domain.Ticket{}
	err := s.db.QueryRow(ctx,
		`SELECT id, session_id, tier, severity, subject, description, status, created_at, updated_at
		 FROM tickets WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.SessionID, &t.Tier, &t.Severity, &t.Subject, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *TicketStore) List(ctx context.Context, limit, offset int) ([]domain.Ticket, int, error) {
	if limit <= 0 {
		limit = 20
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tickets: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, session_id, tier, severity, subject, description, status, created_at, updated_at
		 FROM tickets
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Tier, &t.Severity, &t.Subject, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan ticket row: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, total, rows.Err()
}

func (s *TicketStore) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE tickets SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
