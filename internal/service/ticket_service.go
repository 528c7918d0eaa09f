package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketService owns the ticket lifecycle: creation, field updates,
// assignment, status transitions and deletion. Mutations that leave the
// ticket assigned publish an event for the notification pipeline; event
// publication is fire-and-forget and never fails the mutation.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload. AssignedTo may be set
// at creation, in which case the assignee is notified immediately.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	AssignedTo  *string
}

// TicketPatch carries the fields of an update; nil fields are left alone.
type TicketPatch struct {
	Title       *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	AssignedTo  *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Create opens a new ticket on behalf of createdBy.
func (s *TicketService) Create(ctx context.Context, createdBy string, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if !domain.ValidTicketPriority(input.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
		CreatedBy:   createdBy,
		AssignedTo:  input.AssignedTo,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if ticket.AssignedTo != nil {
		assigneeID, assigneeEmail := s.lookupAssignee(ctx, *ticket.AssignedTo)
		s.publish(ctx, events.Event{
			Type:     events.EventTicketCreated,
			TicketID: ticket.ID,
			ActorID:  createdBy,
			Payload: events.TicketCreatedPayload{
				Title:         ticket.Title,
				Priority:      ticket.Priority,
				AssigneeID:    assigneeID,
				AssigneeEmail: assigneeEmail,
			},
		})
	}
	return ticket, nil
}

// Update merges the patch into the ticket and always refreshes updated_at.
// An assignee change here behaves like any other field edit: the (new)
// assignee is still notified.
func (s *TicketService) Update(ctx context.Context, actorID, id string, patch TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		ticket.Title = title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if description == "" {
			return nil, apperrors.NewValidationError("description cannot be empty", nil)
		}
		ticket.Description = description
	}
	if patch.Status != nil {
		if !domain.ValidTicketStatus(*patch.Status) {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *patch.Status})
		}
		ticket.Status = *patch.Status
	}
	if patch.Priority != nil {
		if !domain.ValidTicketPriority(*patch.Priority) {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *patch.Priority})
		}
		ticket.Priority = *patch.Priority
	}
	if patch.AssignedTo != nil {
		assignee := *patch.AssignedTo
		ticket.AssignedTo = &assignee
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if ticket.AssignedTo != nil {
		assigneeID, assigneeEmail := s.lookupAssignee(ctx, *ticket.AssignedTo)
		s.publish(ctx, events.Event{
			Type:     events.EventTicketUpdated,
			TicketID: ticket.ID,
			ActorID:  actorID,
			Payload: events.TicketUpdatedPayload{
				Title:         ticket.Title,
				AssigneeID:    assigneeID,
				AssigneeEmail: assigneeEmail,
			},
		})
	}
	return ticket, nil
}

// Assign sets the ticket's assignee. The notification publishes only after
// the persist succeeds.
func (s *TicketService) Assign(ctx context.Context, actorID, id, userID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	ticket.AssignedTo = &userID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	assigneeID, assigneeEmail := s.lookupAssignee(ctx, userID)
	if assigneeID != nil {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			ActorID:  actorID,
			Payload: events.TicketAssignedPayload{
				Title:         ticket.Title,
				AssigneeID:    *assigneeID,
				AssigneeEmail: assigneeEmail,
			},
		})
	}
	return ticket, nil
}

// SetStatus sets the status unconditionally to any of the three values;
// there is no forward-only constraint, so closed tickets may be reopened.
func (s *TicketService) SetStatus(ctx context.Context, actorID, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidTicketStatus(status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}

	ticket, err := s.getTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	ticket.Status = status
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if ticket.AssignedTo != nil {
		assigneeID, assigneeEmail := s.lookupAssignee(ctx, *ticket.AssignedTo)
		s.publish(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			ActorID:  actorID,
			Payload: events.TicketStatusChangedPayload{
				Title:         ticket.Title,
				OldStatus:     oldStatus,
				NewStatus:     status,
				AssigneeID:    assigneeID,
				AssigneeEmail: assigneeEmail,
			},
		})
	}
	return ticket, nil
}

// Delete hard-deletes the ticket. No notification fires.
func (s *TicketService) Delete(ctx context.Context, id string) error {
	if err := s.tickets.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket")
		}
		return apperrors.MapError(err)
	}
	return nil
}

// GetForRequester fetches a ticket with resolved user projections.
// Customers may only read tickets they created; agents and admins read any.
func (s *TicketService) GetForRequester(ctx context.Context, requester *domain.User, id string) (*domain.TicketView, error) {
	ticket, err := s.getTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if requester.Role == domain.RoleCustomer && ticket.CreatedBy != requester.ID {
		return nil, apperrors.NewAccessDenied("access denied")
	}
	return s.resolveView(ctx, ticket)
}

// ListAll returns every ticket with denormalized createdBy/assignedTo
// projections for read convenience.
func (s *TicketService) ListAll(ctx context.Context) ([]domain.TicketView, error) {
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	views := make([]domain.TicketView, 0, len(tickets))
	for i := range tickets {
		view, err := s.resolveView(ctx, &tickets[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *TicketService) getTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// resolveView dereferences the ticket's weak user references. A dangling
// reference is a data-integrity error, not a crash.
func (s *TicketService) resolveView(ctx context.Context, ticket *domain.Ticket) (*domain.TicketView, error) {
	view := &domain.TicketView{Ticket: *ticket}

	creator, err := s.resolveRef(ctx, ticket.CreatedBy)
	if err != nil {
		return nil, err
	}
	view.Creator = creator

	if ticket.AssignedTo != nil {
		assignee, err := s.resolveRef(ctx, *ticket.AssignedTo)
		if err != nil {
			return nil, err
		}
		view.Assignee = assignee
	}
	return view, nil
}

func (s *TicketService) resolveRef(ctx context.Context, userID string) (*domain.UserRef, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInternalError(errors.New("ticket references missing user " + userID))
		}
		return nil, apperrors.MapError(err)
	}
	ref := user.Ref()
	return &ref, nil
}

// lookupAssignee resolves the assignee for notification purposes. A missing
// user is logged and skipped; notification must never fail the mutation.
func (s *TicketService) lookupAssignee(ctx context.Context, userID string) (*string, string) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("assignee lookup failed, skipping notification",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, ""
	}
	return &user.ID, user.Email
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
