package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// Notification channels.
const (
	ChannelEmail = "email"
	ChannelInApp = "inapp"
)

// EmailSender delivers one email.
type EmailSender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// Inbox stores in-app notifications per user.
type Inbox interface {
	Push(ctx context.Context, n notify.Notification) error
	List(ctx context.Context, userID string, limit int64) ([]notify.Notification, error)
}

// UserLookup resolves recipients to accounts.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// NotificationService fans domain events out to the email and in-app
// channels. Delivery failures are logged and counted, never returned to
// the mutation that produced the event.
type NotificationService struct {
	bus     events.Bus
	email   EmailSender
	inbox   Inbox
	users   UserLookup
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NotificationDependencies bundles the channels. A nil channel is skipped.
type NotificationDependencies struct {
	Bus     events.Bus
	Email   EmailSender
	Inbox   Inbox
	Users   UserLookup
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		bus:     deps.Bus,
		email:   deps.Email,
		inbox:   deps.Inbox,
		users:   deps.Users,
		logger:  logger,
		metrics: deps.Metrics,
	}
}

// RegisterHandlers subscribes to every ticket event.
func (n *NotificationService) RegisterHandlers() {
	if n.bus == nil {
		return
	}
	for _, typ := range events.AllTypes {
		n.bus.Subscribe(typ, n.Handle)
	}
}

// Handle delivers one event to its recipients on every enabled channel.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	if len(event.Recipients) == 0 {
		return nil
	}
	subject, body := render(event)

	if n.inbox != nil {
		for _, userID := range event.Recipients {
			err := n.inbox.Push(ctx, notify.Notification{
				ID:        uuid.NewString(),
				UserID:    userID,
				TicketID:  event.TicketID,
				EventType: string(event.Type),
				Subject:   subject,
				Body:      body,
				CreatedAt: event.Timestamp,
			})
			n.observe(ChannelInApp, event, err)
		}
	}

	if n.email != nil && n.users != nil {
		to := n.emails(ctx, event.Recipients)
		if len(to) > 0 {
			n.observe(ChannelEmail, event, n.email.Send(ctx, to, subject, body))
		}
	}
	return nil
}

// Inbox returns the user's newest in-app notifications.
func (n *NotificationService) Inbox(ctx context.Context, userID string, limit int64) ([]notify.Notification, error) {
	if n.inbox == nil {
		return []notify.Notification{}, nil
	}
	return n.inbox.List(ctx, userID, limit)
}

func (n *NotificationService) emails(ctx context.Context, userIDs []string) []string {
	var to []string
	for _, id := range userIDs {
		user, err := n.users.GetByID(ctx, id)
		if err != nil {
			n.logger.Warn("notification recipient lookup failed", zap.String("user_id", id), zap.Error(err))
			continue
		}
		if user.Email != "" && user.Status == domain.UserStatusActive {
			to = append(to, user.Email)
		}
	}
	return to
}

func (n *NotificationService) observe(channel string, event events.Event, err error) {
	switch {
	case err == nil:
		n.metrics.RecordNotification(channel, observability.OutcomeDelivered)
	case errors.Is(err, notify.ErrDisabled):
		n.metrics.RecordNotification(channel, observability.OutcomeSkipped)
	default:
		n.metrics.RecordNotification(channel, observability.OutcomeFailed)
		n.logger.Warn("notification delivery failed",
			zap.String("channel", channel),
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func render(event events.Event) (string, string) {
	ref := event.TicketID
	switch p := event.Payload.(type) {
	case events.TicketCreatedPayload:
		return fmt.Sprintf("New ticket: %s", p.Title),
			fmt.Sprintf("Ticket %s was created with %s priority.", ref, p.Priority)
	case events.TicketAssignedPayload:
		if p.AssigneeID == nil {
			return fmt.Sprintf("Ticket %s unassigned", ref), fmt.Sprintf("Ticket %s no longer has an assignee.", ref)
		}
		return fmt.Sprintf("Ticket %s assigned", ref), fmt.Sprintf("Ticket %s was assigned to user %s.", ref, *p.AssigneeID)
	case events.TicketStatusChangedPayload:
		return fmt.Sprintf("Ticket %s %s", ref, p.NewStatus),
			fmt.Sprintf("Ticket %s moved from %s to %s.", ref, p.OldStatus, p.NewStatus)
	case events.TicketPriorityChangedPayload:
		return fmt.Sprintf("Ticket %s priority changed", ref),
			fmt.Sprintf("Ticket %s priority changed from %s to %s.", ref, p.OldPriority, p.NewPriority)
	case events.TicketCategoryChangedPayload:
		return fmt.Sprintf("Ticket %s recategorised", ref),
			fmt.Sprintf("Ticket %s moved to category %s.", ref, p.NewCategoryID)
	case events.TicketDocumentPayload:
		verb := "attached to"
		if event.Type == events.EventTicketDocumentRemoved {
			verb = "removed from"
		}
		return fmt.Sprintf("Ticket %s documents changed", ref),
			fmt.Sprintf("Document %s was %s ticket %s.", p.DocumentID, verb, ref)
	case events.TicketCommentedPayload:
		return fmt.Sprintf("New comment on ticket %s", ref), p.BodyPreview
	}
	return fmt.Sprintf("Ticket %s updated", ref), fmt.Sprintf("Ticket %s: %s", ref, event.Type)
}
