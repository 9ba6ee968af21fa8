package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/sla"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	ticketNumberPrefix   = "TK-"
	ticketNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	ticketNumberLength   = 4
	maxNumberAttempts    = 5
	commentPreviewLength = 120
)

// Clock returns the current instant.
type Clock func() time.Time

// NumberGenerator returns a candidate ticket number.
type NumberGenerator func() (string, error)

// TicketService coordinates ticket workflows. Every mutation and its audit
// activity are written in one store transaction.
type TicketService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        Clock
	nextNumber NumberGenerator
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	Store           repository.Store
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	Metrics         *observability.Metrics
	Clock           Clock
	NumberGenerator NumberGenerator
}

// TicketCreateInput describes ticket creation payload.
// Status is accepted for compatibility with clients that send it and is ignored.
type TicketCreateInput struct {
	Title        string
	Description  string
	Priority     domain.TicketPriority
	AssignedToID *int64
	Status       domain.TicketStatus
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	AssignedToID *int64
	CreatedByID  *int64
	SearchTerm   *string
	Limit        int
	Offset       int
}

// auditError marks a failed activity append so the caller can log it loudly.
type auditError struct {
	action domain.ActivityAction
	err    error
}

func (e *auditError) Error() string {
	return fmt.Sprintf("append %s activity: %v", e.action, e.err)
}

func (e *auditError) Unwrap() error { return e.err }

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		now:        deps.Clock,
		nextNumber: deps.NumberGenerator,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.nextNumber == nil {
		s.nextNumber = GenerateTicketNumber
	}
	return s
}

// GenerateTicketNumber returns "TK-" followed by four random uppercase alphanumerics.
func GenerateTicketNumber() (string, error) {
	code, err := gonanoid.Generate(ticketNumberAlphabet, ticketNumberLength)
	if err != nil {
		return "", err
	}
	return ticketNumberPrefix + code, nil
}

// CreateTicket opens a new ticket on behalf of actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" {
		return nil, errorutil.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if description == "" {
		return nil, errorutil.NewValidationError("description is required", map[string]any{"field": "description"})
	}
	if !input.Priority.Valid() {
		return nil, errorutil.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}

	now := s.clock()
	deadline, err := sla.DeadlineFor(input.Priority, now)
	if err != nil {
		return nil, errorutil.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}

	var ticket *domain.Ticket
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		number, err := s.nextNumber()
		if err != nil {
			return nil, errorutil.NewInternalError(fmt.Errorf("generate ticket number: %w", err))
		}
		candidate := &domain.Ticket{
			TicketNumber: number,
			Title:        title,
			Description:  description,
			Status:       domain.TicketStatusOpen,
			Priority:     input.Priority,
			CreatedByID:  actor.ID(),
			AssignedToID: copyID(input.AssignedToID),
			CreatedAt:    now,
			UpdatedAt:    now,
			SLADeadline:  &deadline,
		}
		err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
			if err := repos.Tickets.Create(ctx, candidate); err != nil {
				return err
			}
			return appendActivity(ctx, repos, candidate, actor, domain.ActivityCreated, "Ticket created", now)
		})
		if err == nil {
			ticket = candidate
			break
		}
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.TicketNumberRetried()
			s.logger.Warn("ticket number collision, retrying",
				zap.String("ticket_number", number),
				zap.Int("attempt", attempt))
			continue
		}
		return nil, s.mutationError(err, 0)
	}
	if ticket == nil {
		s.logger.Error("ticket number allocation exhausted", zap.Int("attempts", maxNumberAttempts))
		return nil, errorutil.NewConflict("could not allocate a unique ticket number", map[string]any{"attempts": maxNumberAttempts})
	}

	s.metrics.TicketCreated(string(ticket.Priority))
	s.metrics.ActivityRecorded(string(domain.ActivityCreated))
	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("priority", string(ticket.Priority)),
		zap.Int64("created_by", actor.ID()))
	s.publishEvent(ctx, events.NewEvent(events.EventTicketCreated, ticket, &actor, now, events.TicketCreatedPayload{
		Title:        ticket.Title,
		Priority:     ticket.Priority,
		AssignedToID: copyID(ticket.AssignedToID),
		SLADeadline:  ticket.SLADeadline,
	}))
	return ticket, nil
}

// ChangeStatus moves a ticket to status. Any status may follow any other,
// including itself; every call is audited.
func (s *TicketService) ChangeStatus(ctx context.Context, actor domain.Actor, ticketID int64, status domain.TicketStatus) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, errorutil.NewValidationError("invalid status", map[string]any{"status": status})
	}

	now := s.clock()
	var (
		ticket    *domain.Ticket
		oldStatus domain.TicketStatus
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		current, err := repos.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			return err
		}
		oldStatus = current.Status
		current.Status = status
		current.UpdatedAt = advance(current.UpdatedAt, now)
		if err := repos.Tickets.Update(ctx, current); err != nil {
			return err
		}
		details := fmt.Sprintf("Status changed from %s to %s", oldStatus, status)
		if err := appendActivity(ctx, repos, current, actor, domain.ActivityStatusChange, details, current.UpdatedAt); err != nil {
			return err
		}
		ticket = current
		return nil
	})
	if err != nil {
		return nil, s.mutationError(err, ticketID)
	}

	s.metrics.StatusChanged(string(status))
	s.metrics.ActivityRecorded(string(domain.ActivityStatusChange))
	s.logger.Info("ticket status changed",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(status)),
		zap.Int64("actor_id", actor.ID()))
	s.publishEvent(ctx, events.NewEvent(events.EventTicketStatusChanged, ticket, &actor, ticket.UpdatedAt, events.TicketStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: status,
	}))
	return ticket, nil
}

// Reassign sets or clears the ticket assignee. A nil assigneeID unassigns.
func (s *TicketService) Reassign(ctx context.Context, actor domain.Actor, ticketID int64, assigneeID *int64) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	now := s.clock()
	var (
		ticket   *domain.Ticket
		previous *int64
		assignee *domain.User
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		current, err := repos.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			return err
		}
		details := "Ticket unassigned"
		if assigneeID != nil {
			assignee, err = repos.Users.GetByID(ctx, *assigneeID)
			if errors.Is(err, repository.ErrNotFound) {
				return errorutil.NewValidationError("assignee does not exist", map[string]any{"assigned_to_id": *assigneeID})
			}
			if err != nil {
				return err
			}
			details = "Ticket assigned to " + assignee.Name
		}
		previous = copyID(current.AssignedToID)
		current.AssignedToID = copyID(assigneeID)
		current.UpdatedAt = advance(current.UpdatedAt, now)
		if err := repos.Tickets.Update(ctx, current); err != nil {
			return err
		}
		if err := appendActivity(ctx, repos, current, actor, domain.ActivityAssignment, details, current.UpdatedAt); err != nil {
			return err
		}
		ticket = current
		return nil
	})
	if err != nil {
		return nil, s.mutationError(err, ticketID)
	}

	s.metrics.TicketAssigned()
	s.metrics.ActivityRecorded(string(domain.ActivityAssignment))
	payload := events.TicketAssignedPayload{
		PreviousAssigneeID: previous,
		AssigneeID:         copyID(ticket.AssignedToID),
	}
	if assignee != nil {
		payload.AssigneeName = assignee.Name
	}
	s.logger.Info("ticket reassigned",
		zap.Int64("ticket_id", ticket.ID),
		zap.Any("assigned_to_id", ticket.AssignedToID),
		zap.Int64("actor_id", actor.ID()))
	s.publishEvent(ctx, events.NewEvent(events.EventTicketAssigned, ticket, &actor, ticket.UpdatedAt, payload))
	return ticket, nil
}

// AddComment appends a comment and advances the ticket's updatedAt to at
// least the comment's creation time.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Actor, ticketID int64, content string) (*domain.Comment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errorutil.NewValidationError("comment content is required", map[string]any{"field": "content"})
	}

	now := s.clock()
	var (
		ticket  *domain.Ticket
		comment *domain.Comment
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		current, err := repos.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			return err
		}
		created := &domain.Comment{
			Content:   content,
			TicketID:  current.ID,
			UserID:    actor.ID(),
			CreatedAt: now,
		}
		if err := repos.Comments.Create(ctx, created); err != nil {
			return err
		}
		current.UpdatedAt = advance(current.UpdatedAt, created.CreatedAt)
		if err := repos.Tickets.Update(ctx, current); err != nil {
			return err
		}
		if err := appendActivity(ctx, repos, current, actor, domain.ActivityComment, "Comment added", created.CreatedAt); err != nil {
			return err
		}
		ticket, comment = current, created
		return nil
	})
	if err != nil {
		return nil, s.mutationError(err, ticketID)
	}

	s.metrics.CommentAdded()
	s.metrics.ActivityRecorded(string(domain.ActivityComment))
	s.logger.Info("comment added",
		zap.Int64("ticket_id", ticket.ID),
		zap.Int64("comment_id", comment.ID),
		zap.Int64("author_id", actor.ID()))
	s.publishEvent(ctx, events.NewEvent(events.EventTicketCommentAdded, ticket, &actor, comment.CreatedAt, events.TicketCommentAddedPayload{
		CommentID:   comment.ID,
		AuthorID:    comment.UserID,
		BodyPreview: stringPreview(comment.Content, commentPreviewLength),
	}))
	return comment, nil
}

// GetTicket loads a single ticket.
func (s *TicketService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.store.Repos().Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, readError(err, "ticket", ticketID)
	}
	return ticket, nil
}

// ListTickets returns tickets newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	tickets, err := s.store.Repos().Tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses:     filter.Statuses,
		Priorities:   filter.Priorities,
		AssignedToID: filter.AssignedToID,
		CreatedByID:  filter.CreatedByID,
		SearchTerm:   filter.SearchTerm,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	})
	if err != nil {
		return nil, errorutil.NewStoreUnavailable(err)
	}
	return tickets, nil
}

// ListComments returns a ticket's comments newest first.
func (s *TicketService) ListComments(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	comments, err := s.store.Repos().Comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, errorutil.NewStoreUnavailable(err)
	}
	return comments, nil
}

// ListActivities returns a ticket's audit trail newest first.
func (s *TicketService) ListActivities(ctx context.Context, ticketID int64) ([]domain.Activity, error) {
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	activities, err := s.store.Repos().Activities.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, errorutil.NewStoreUnavailable(err)
	}
	return activities, nil
}

// EvaluateSLA evaluates ticket against the service clock.
func (s *TicketService) EvaluateSLA(ticket *domain.Ticket) sla.Status {
	return sla.Evaluate(ticket, s.clock())
}

func (s *TicketService) clock() time.Time {
	return s.now().UTC()
}

// mutationError translates a failed write transaction. Audit failures are
// logged at error level because the mutation they guarded was rolled back.
func (s *TicketService) mutationError(err error, ticketID int64) error {
	var audit *auditError
	if errors.As(err, &audit) {
		s.logger.Error("audit activity append failed; ticket mutation rolled back",
			zap.Int64("ticket_id", ticketID),
			zap.String("action", string(audit.action)),
			zap.Error(audit.err))
		return errorutil.NewStoreUnavailable(err)
	}
	return readError(err, "ticket", ticketID)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func appendActivity(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, actor domain.Actor, action domain.ActivityAction, details string, at time.Time) error {
	activity := &domain.Activity{
		Action:    action,
		Details:   details,
		TicketID:  ticket.ID,
		UserID:    actor.ID(),
		CreatedAt: at,
	}
	if err := repos.Activities.Create(ctx, activity); err != nil {
		return &auditError{action: action, err: err}
	}
	return nil
}

func requireActor(actor domain.Actor) error {
	if !actor.Verified() {
		return errorutil.NewUnauthorized("verified actor required")
	}
	return nil
}

// readError maps repository errors onto the domain taxonomy.
func readError(err error, resource string, id int64) error {
	var domainErr *errorutil.DomainError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return errorutil.NewNotFound(resource, map[string]any{"id": id})
	case errors.Is(err, repository.ErrDuplicate):
		return errorutil.NewConflict(resource+" already exists", nil)
	default:
		return errorutil.NewStoreUnavailable(err)
	}
}

// advance never lets a timestamp move backwards.
func advance(previous, next time.Time) time.Time {
	if next.Before(previous) {
		return previous
	}
	return next
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
