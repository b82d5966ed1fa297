package service

import (
	"context"
	"sync"
	"time"

	"github.com/cyberlab/helpdesk/internal/domain"
	"go.uber.org/zap"
)

const defaultTicketRetryInterval = 30 * time.Second

// pendingTicket is a ticket intent whose creation failed at the commit
// point. The escalation itself already happened; the ticket must eventually
// exist, so intents are queued here instead of being dropped.
type pendingTicket struct {
	intent      domain.TicketIntent
	description string
	attempts    int
	queuedAt    time.Time
}

// TicketRetryService retries failed ticket creations in the background.
// Intents are never discarded: an intent that keeps failing stays in the
// queue and is logged on every attempt.
type TicketRetryService struct {
	tickets domain.TicketStore
	logger  *zap.Logger

	mu      sync.Mutex
	pending []pendingTicket

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewTicketRetryService(tickets domain.TicketStore, logger *zap.Logger) *TicketRetryService {
	return &TicketRetryService{
		tickets:  tickets,
		logger:   logger,
		interval: defaultTicketRetryInterval,
		stopCh:   make(chan struct{}),
	}
}

// SetInterval overrides the retry interval. Call before Start.
func (s *TicketRetryService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Enqueue stores a failed intent for retry.
func (s *TicketRetryService) Enqueue(intent domain.TicketIntent, description string) {
	s.mu.Lock()
	s.pending = append(s.pending, pendingTicket{
		intent:      intent,
		description: description,
		queuedAt:    time.Now().UTC(),
	})
	n := len(s.pending)
	s.mu.Unlock()

	s.logger.Warn("ticket creation queued for retry",
		zap.String("session_id", intent.SessionID),
		zap.Int("queue_depth", n))
}

// PendingCount reports the current queue depth.
func (s *TicketRetryService) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Start begins the background retry worker.
func (s *TicketRetryService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("ticket retry worker started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				s.Drain(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("ticket retry worker stopped")
				return
			}
		}
	}()
}

// Stop halts the background retry worker.
func (s *TicketRetryService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Drain attempts every queued intent once. Intents that fail again are kept,
// with their attempt counts advanced.
func (s *TicketRetryService) Drain(ctx context.Context) {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	var kept []pendingTicket
	for _, p := range batch {
		p.attempts++
		ticket, err := s.tickets.CreateFromIntent(ctx, &p.intent, p.description)
		if err != nil {
			s.logger.Warn("ticket retry failed",
				zap.String("session_id", p.intent.SessionID),
				zap.Int("attempts", p.attempts),
				zap.Error(err))
			kept = append(kept, p)
			continue
		}
		s.logger.Info("queued ticket created",
			zap.String("ticket_id", ticket.ID),
			zap.String("session_id", p.intent.SessionID),
			zap.Int("attempts", p.attempts))
	}

	if len(kept) > 0 {
		s.mu.Lock()
		s.pending = append(kept, s.pending...)
		s.mu.Unlock()
	}
}
