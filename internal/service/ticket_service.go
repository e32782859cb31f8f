package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/internal/validation"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	validator  *validation.Validator
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Validator  *validation.Validator
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// Clock stamps created_at. Defaults to time.Now.
	Clock func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		validator:  deps.Validator,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
	if s.validator == nil {
		s.validator = validation.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create validates the fields, stamps id and creation time and stores the ticket.
func (s *TicketService) Create(ctx context.Context, fields domain.TicketFields) (*domain.Ticket, error) {
	ticket, err := s.validator.ValidateCreate(fields)
	if err != nil {
		return nil, err
	}
	ticket.ID = uuid.NewString()
	// PostgreSQL keeps microseconds; the returned ticket must match what is read back later.
	ticket.CreatedAt = s.now().UTC().Truncate(time.Microsecond)

	if err := s.tickets.Create(ctx, &ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Category: ticket.Category,
			Priority: ticket.Priority,
		},
	})
	return &ticket, nil
}

// List returns tickets matching every supplied filter, newest first.
func (s *TicketService) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.List(ctx, filter)
}

// Update applies the supplied fields of patch to the ticket. Identifiers that
// are not UUIDs cannot exist and are reported as not found.
func (s *TicketService) Update(ctx context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	patch, err := s.validator.ValidatePatch(patch)
	if err != nil {
		return nil, err
	}
	ticket, err := s.tickets.Update(ctx, id, patch)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, err
	}
	if !patch.IsEmpty() {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketUpdated,
			TicketID: ticket.ID,
			Payload: events.TicketUpdatedPayload{
				ChangedFields: patch.ChangedFields(),
				Status:        ticket.Status,
				Priority:      ticket.Priority,
			},
		})
	}
	return ticket, nil
}

// Ping reports whether the ticket store is reachable.
func (s *TicketService) Ping(ctx context.Context) error {
	return s.tickets.Ping(ctx)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
