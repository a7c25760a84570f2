package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// PermissionChecker answers whether an actor may act as an administrator.
type PermissionChecker interface {
	HasAdminCapability(ctx context.Context, actorID string) (bool, error)
}

// QueueDirectory resolves queues referenced by tickets.
type QueueDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.Queue, error)
}

// CategoryDirectory resolves categories referenced by tickets.
type CategoryDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.Category, error)
}

// Outcome is the result of a ticket mutation: the resulting snapshot, the
// history entry it appended (if any) and the events to hand to a dispatcher.
type Outcome struct {
	Ticket *domain.Ticket
	Entry  *domain.HistoryItem
	Events []events.Event
}

// TicketService is the ticket lifecycle state machine and the only
// component that mutates tickets.
type TicketService struct {
	tickets     repository.TicketRepository
	history     *HistoryService
	queues      QueueDirectory
	categories  CategoryDirectory
	permissions PermissionChecker
	logger      *zap.Logger
	now         func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	History     *HistoryService
	Queues      QueueDirectory
	Categories  CategoryDirectory
	Permissions PermissionChecker
	Logger      *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// CreateInput describes ticket creation payload.
type CreateInput struct {
	QueueID     string
	CategoryID  string
	Title       string
	Details     string
	Priority    domain.TicketPriority
	DocumentIDs []string
}

// UpdateInput is a generic field update. Nil fields are left untouched.
type UpdateInput struct {
	Title        *string
	Details      *string
	CategoryID   *string
	Priority     *domain.TicketPriority
	Status       *domain.TicketStatus
	ClosingNotes *string
	AssignedToID domain.Nullable[string]
	ClosedAt     domain.Nullable[time.Time]
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		history:     deps.History,
		queues:      deps.Queues,
		categories:  deps.Categories,
		permissions: deps.Permissions,
		logger:      logger,
		now:         func() time.Time { return now().UTC() },
	}
}

// Get loads a ticket.
func (s *TicketService) Get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ticketNotFound(ticketID)
	}
	return ticket, err
}

// Create files a new ticket: Opened, unassigned, not closed.
func (s *TicketService) Create(ctx context.Context, creatorID string, input CreateInput) (*Outcome, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}
	if _, err := s.queue(ctx, input.QueueID); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, input.QueueID, input.CategoryID); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		QueueID:     input.QueueID,
		CategoryID:  input.CategoryID,
		Title:       title,
		Details:     strings.TrimSpace(input.Details),
		Status:      domain.TicketStatusOpened,
		Priority:    priority,
		CreatedByID: creatorID,
		DocumentIDs: dedupe(input.DocumentIDs),
	}
	if err := s.tickets.Insert(ctx, ticket); err != nil {
		return nil, err
	}

	return s.record(ctx, ticket, creatorID, domain.HistoryTypeCreated, "Ticket created",
		events.New(events.EventTicketCreated, ticket, creatorID, events.TicketCreatedPayload{
			QueueID:    ticket.QueueID,
			CategoryID: ticket.CategoryID,
			Priority:   ticket.Priority,
			Title:      ticket.Title,
		}))
}

// Assign sets or clears the assignee. Every call is recorded, including
// re-assigning the current assignee.
func (s *TicketService) Assign(ctx context.Context, actorID, ticketID string, assigneeID *string) (*Outcome, error) {
	current, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	previous := current.AssignedToID

	updated, err := s.update(ctx, ticketID, domain.TicketPatch{AssignedToID: domain.FromPtr(assigneeID)})
	if err != nil {
		return nil, err
	}

	var extra []string
	if previous != nil {
		extra = append(extra, *previous)
	}
	return s.record(ctx, updated, actorID, domain.HistoryTypeAssigned, assignDetails(previous, assigneeID),
		events.New(events.EventTicketAssigned, updated, actorID, events.TicketAssignedPayload{
			PreviousAssigneeID: previous,
			AssigneeID:         assigneeID,
		}, extra...))
}

func assignDetails(previous, next *string) string {
	switch {
	case previous == nil && next != nil:
		return fmt.Sprintf("Assigned to user %s", *next)
	case previous != nil && next != nil:
		return fmt.Sprintf("Reassigned from user %s to user %s", *previous, *next)
	case previous != nil:
		return fmt.Sprintf("Unassigned from user %s", *previous)
	default:
		return "Unassigned"
	}
}

// ChangeStatus moves a ticket between Opened and Closed. Setting the
// current status is a no-op: nothing is written, recorded or emitted.
func (s *TicketService) ChangeStatus(ctx context.Context, actorID, ticketID string, status domain.TicketStatus) (*Outcome, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	current, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if current.Status == status {
		return &Outcome{Ticket: current}, nil
	}

	patch := domain.TicketPatch{Status: &status}
	deriveClosure(current, &patch, s.now())
	updated, err := s.update(ctx, ticketID, patch)
	if err != nil {
		return nil, err
	}

	typ, details := domain.HistoryTypeReopened, "Ticket reopened"
	if status == domain.TicketStatusClosed {
		typ, details = domain.HistoryTypeClosed, "Ticket closed"
	}
	return s.record(ctx, updated, actorID, typ, details,
		events.New(events.EventTicketStatusChanged, updated, actorID, events.TicketStatusChangedPayload{
			OldStatus: current.Status,
			NewStatus: status,
		}))
}

// deriveClosure keeps closedAt non-nil exactly when the resulting status is
// Closed. It only acts when the patch touches status or closedAt, so an
// untouched ticket keeps whatever the store already holds.
func deriveClosure(current *domain.Ticket, patch *domain.TicketPatch, now time.Time) {
	if patch.Status == nil && !patch.ClosedAt.Set {
		return
	}
	status := current.Status
	if patch.Status != nil {
		status = *patch.Status
	}

	if status != domain.TicketStatusClosed {
		patch.ClosedAt = domain.Null[time.Time]()
		return
	}
	switch {
	case patch.ClosedAt.Set && !patch.ClosedAt.IsNull():
		// explicit close time on a closed ticket is honoured
	case current.Status == domain.TicketStatusClosed && current.ClosedAt != nil:
		patch.ClosedAt = domain.Some(*current.ClosedAt)
	default:
		patch.ClosedAt = domain.Some(now)
	}
}

// AddDocument attaches a document. Attaching one already present changes
// nothing but is still recorded.
func (s *TicketService) AddDocument(ctx context.Context, actorID, ticketID, documentID string) (*Outcome, error) {
	return s.changeDocuments(ctx, actorID, ticketID, documentID, true)
}

// RemoveDocument detaches a document. Removing an absent one changes
// nothing but is still recorded.
func (s *TicketService) RemoveDocument(ctx context.Context, actorID, ticketID, documentID string) (*Outcome, error) {
	return s.changeDocuments(ctx, actorID, ticketID, documentID, false)
}

func (s *TicketService) changeDocuments(ctx context.Context, actorID, ticketID, documentID string, add bool) (*Outcome, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, apperrors.NewValidationError("document id is required", nil)
	}
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	docs := slices.Clone(ticket.DocumentIDs)
	has := ticket.HasDocument(documentID)
	switch {
	case add && !has:
		docs = append(docs, documentID)
	case !add && has:
		docs = slices.DeleteFunc(docs, func(id string) bool { return id == documentID })
	}
	if len(docs) != len(ticket.DocumentIDs) {
		if ticket, err = s.update(ctx, ticketID, domain.TicketPatch{DocumentIDs: &docs}); err != nil {
			return nil, err
		}
	}

	typ, evType, verb := domain.HistoryTypeDocumentAdded, events.EventTicketDocumentAdded, "added"
	if !add {
		typ, evType, verb = domain.HistoryTypeDocumentRemoved, events.EventTicketDocumentRemoved, "removed"
	}
	return s.record(ctx, ticket, actorID, typ, fmt.Sprintf("Document %s %s", documentID, verb),
		events.New(evType, ticket, actorID, events.TicketDocumentPayload{DocumentID: documentID}))
}

// ChangePriority sets the priority. Setting the current priority is a no-op.
func (s *TicketService) ChangePriority(ctx context.Context, actorID, ticketID string, priority domain.TicketPriority) (*Outcome, error) {
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}
	current, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if current.Priority == priority {
		return &Outcome{Ticket: current}, nil
	}
	updated, err := s.update(ctx, ticketID, domain.TicketPatch{Priority: &priority})
	if err != nil {
		return nil, err
	}
	return s.record(ctx, updated, actorID, domain.HistoryTypePriorityChanged,
		fmt.Sprintf("Priority changed from %s to %s", current.Priority, priority),
		events.New(events.EventTicketPriorityChanged, updated, actorID, events.TicketPriorityChangedPayload{
			OldPriority: current.Priority,
			NewPriority: priority,
		}))
}

// ChangeCategory moves the ticket to another category of the same queue.
// Setting the current category is a no-op.
func (s *TicketService) ChangeCategory(ctx context.Context, actorID, ticketID, categoryID string) (*Outcome, error) {
	current, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if current.CategoryID == categoryID {
		return &Outcome{Ticket: current}, nil
	}
	if err := s.checkCategory(ctx, current.QueueID, categoryID); err != nil {
		return nil, err
	}
	updated, err := s.update(ctx, ticketID, domain.TicketPatch{CategoryID: &categoryID})
	if err != nil {
		return nil, err
	}
	return s.record(ctx, updated, actorID, domain.HistoryTypeCategoryChanged,
		fmt.Sprintf("Category changed from %s to %s", current.CategoryID, categoryID),
		events.New(events.EventTicketCategoryChanged, updated, actorID, events.TicketCategoryChangedPayload{
			OldCategoryID: current.CategoryID,
			NewCategoryID: categoryID,
		}))
}

// AddComment appends a Comment entry; its details are the comment body.
func (s *TicketService) AddComment(ctx context.Context, actorID, ticketID, body string) (*Outcome, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", nil)
	}
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	entry, err := s.history.Append(ctx, ticketID, actorID, domain.HistoryTypeComment, body)
	if err != nil {
		s.logHistoryFailure(ticketID, domain.HistoryTypeComment, err)
		return nil, fmt.Errorf("append history: %w", err)
	}
	return &Outcome{
		Ticket: ticket,
		Entry:  entry,
		Events: []events.Event{events.New(events.EventTicketCommented, ticket, actorID, events.TicketCommentedPayload{
			CommentID:   entry.ID,
			BodyPreview: preview(body, 140),
		})},
	}, nil
}

// RemoveComment retracts a comment. Only its author or an administrator
// may do so, and only Comment entries can be removed.
func (s *TicketService) RemoveComment(ctx context.Context, actorID, ticketID, commentID string) error {
	entry, err := s.history.Get(ctx, commentID)
	if err != nil {
		return err
	}
	if entry.TicketID != ticketID {
		return apperrors.NewNotFound("history item", map[string]any{"history_id": commentID, "ticket_id": ticketID})
	}
	if entry.Type != domain.HistoryTypeComment {
		return apperrors.NewForbidden("only comments can be removed")
	}
	if entry.UserID != actorID {
		admin, err := s.isAdmin(ctx, actorID)
		if err != nil {
			return err
		}
		if !admin {
			return apperrors.NewForbidden("only the author or an administrator can remove a comment")
		}
	}
	return s.history.Remove(ctx, commentID)
}

// Remove deletes a ticket. Allowed for administrators and the ticket's
// creator. History entries are kept.
func (s *TicketService) Remove(ctx context.Context, actorID, ticketID string) error {
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.CreatedByID != actorID {
		admin, err := s.isAdmin(ctx, actorID)
		if err != nil {
			return err
		}
		if !admin {
			return apperrors.NewForbidden("only the creator or an administrator can delete a ticket")
		}
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ticketNotFound(ticketID)
		}
		return err
	}
	return nil
}

// Update applies a generic field update. It records no history and emits
// no events; status changes still derive closedAt.
func (s *TicketService) Update(ctx context.Context, ticketID string, input UpdateInput) (*Outcome, error) {
	current, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, apperrors.NewValidationError("title cannot be empty", nil)
	}
	if input.CategoryID != nil && *input.CategoryID != current.CategoryID {
		if err := s.checkCategory(ctx, current.QueueID, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	patch := domain.TicketPatch{
		Title:        input.Title,
		Details:      input.Details,
		CategoryID:   input.CategoryID,
		Priority:     input.Priority,
		Status:       input.Status,
		ClosingNotes: input.ClosingNotes,
		AssignedToID: input.AssignedToID,
		ClosedAt:     input.ClosedAt,
	}
	deriveClosure(current, &patch, s.now())
	updated, err := s.update(ctx, ticketID, patch)
	if err != nil {
		return nil, err
	}
	return &Outcome{Ticket: updated}, nil
}

func (s *TicketService) update(ctx context.Context, ticketID string, patch domain.TicketPatch) (*domain.Ticket, error) {
	updated, err := s.tickets.UpdateFields(ctx, ticketID, patch)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ticketNotFound(ticketID)
	}
	return updated, err
}

// record appends the history entry for a completed mutation. The ticket
// write is not rolled back when the append fails.
func (s *TicketService) record(ctx context.Context, ticket *domain.Ticket, actorID string, typ domain.HistoryType, details string, ev events.Event) (*Outcome, error) {
	entry, err := s.history.Append(ctx, ticket.ID, actorID, typ, details)
	if err != nil {
		s.logHistoryFailure(ticket.ID, typ, err)
		return nil, fmt.Errorf("append history: %w", err)
	}
	return &Outcome{Ticket: ticket, Entry: entry, Events: []events.Event{ev}}, nil
}

func (s *TicketService) logHistoryFailure(ticketID string, typ domain.HistoryType, err error) {
	s.logger.Error("history append failed after ticket write",
		zap.String("ticket_id", ticketID),
		zap.String("history_type", string(typ)),
		zap.Error(err))
}

func (s *TicketService) isAdmin(ctx context.Context, actorID string) (bool, error) {
	if s.permissions == nil {
		return false, nil
	}
	return s.permissions.HasAdminCapability(ctx, actorID)
}

func (s *TicketService) queue(ctx context.Context, queueID string) (*domain.Queue, error) {
	queue, err := s.queues.GetByID(ctx, queueID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("queue", map[string]any{"queue_id": queueID})
	}
	return queue, err
}

func (s *TicketService) checkCategory(ctx context.Context, queueID, categoryID string) error {
	category, err := s.categories.GetByID(ctx, categoryID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("category", map[string]any{"category_id": categoryID})
	}
	if err != nil {
		return err
	}
	if category.QueueID != queueID {
		return apperrors.NewValidationError("category does not belong to the ticket's queue",
			map[string]any{"category_id": categoryID, "queue_id": queueID})
	}
	return nil
}

func ticketNotFound(id string) error {
	return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
