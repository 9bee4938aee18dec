// Package billing is the settlement engine's stateful side: it validates
// input, owns the bill lifecycle, records payments and answers reconciliation
// queries by loading a fresh snapshot from the store on every call.
//
// The math itself lives in package calculator; billing only gathers the
// inputs and applies the rules around them.
package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/storage"
)

// Service implements participant, group, bill and payment operations on top
// of a storage.Store.
type Service struct {
	store     storage.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where domain events go. Defaults to events.Nop.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the collectors mutations are counted on.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides how participant, group, bill, payment and event
// IDs are generated. Defaults to random UUIDs.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a Service backed by store.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: events.Nop{},
		logger:    slog.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s
}

// publish emits e after a successful write. The write already happened, so a
// broker failure is logged and counted but never returned.
func (s *Service) publish(ctx context.Context, e events.Event) {
	e.ID = s.newID()
	e.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.metrics.PublishFailures.Inc()
		s.logger.WarnContext(ctx, "Failed to publish event",
			"type", e.Type,
			"bill_id", e.BillID,
			"group_id", e.GroupID,
			"error", err,
		)
	}
}
