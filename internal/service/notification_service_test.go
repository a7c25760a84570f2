package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type sentMail struct {
	to      []string
	subject string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to []string, subject, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to: to, subject: subject})
	return f.err
}

type fakeInbox struct {
	mu    sync.Mutex
	items map[string][]notify.Notification
}

func (f *fakeInbox) Push(_ context.Context, n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items == nil {
		f.items = map[string][]notify.Notification{}
	}
	f.items[n.UserID] = append([]notify.Notification{n}, f.items[n.UserID]...)
	return nil
}

func (f *fakeInbox) List(_ context.Context, userID string, limit int64) ([]notify.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.items[userID]
	if limit > 0 && int64(len(items)) > limit {
		items = items[:limit]
	}
	return items, nil
}

type userBook map[string]*domain.User

func (u userBook) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, repository.ErrNotFound
}

func TestNotificationFanOut(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	inbox := &fakeInbox{}
	bus := events.NewInMemoryBus(nil)
	svc := NewNotificationService(NotificationDependencies{
		Bus:   bus,
		Email: mailer,
		Inbox: inbox,
		Users: userBook{
			"alice": {ID: "alice", Email: "alice@example.com", Status: domain.UserStatusActive},
			"bob":   {ID: "bob", Email: "bob@example.com", Status: domain.UserStatusSuspended},
		},
	})
	svc.RegisterHandlers()

	assignee := "bob"
	tk := &domain.Ticket{ID: "t1", CreatedByID: "alice", AssignedToID: &assignee}
	bus.Publish(ctx, events.New(events.EventTicketAssigned, tk, "lead", events.TicketAssignedPayload{AssigneeID: &assignee}))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"alice@example.com"}, mailer.sent[0].to, "suspended users get no email")
	assert.Equal(t, "Ticket t1 assigned", mailer.sent[0].subject)

	for _, user := range []string{"alice", "bob"} {
		items, err := svc.Inbox(ctx, user, 10)
		require.NoError(t, err)
		require.Len(t, items, 1, user)
		assert.Equal(t, "t1", items[0].TicketID)
		assert.Equal(t, string(events.EventTicketAssigned), items[0].EventType)
	}
}

func TestNotificationFailuresAreSwallowed(t *testing.T) {
	svc := NewNotificationService(NotificationDependencies{
		Email: &fakeMailer{err: errors.New("smtp down")},
		Users: userBook{"alice": {ID: "alice", Email: "a@example.com", Status: domain.UserStatusActive}},
	})
	tk := &domain.Ticket{ID: "t1", CreatedByID: "alice"}
	err := svc.Handle(context.Background(), events.New(events.EventTicketCommented, tk, "bob",
		events.TicketCommentedPayload{BodyPreview: "hi"}))
	assert.NoError(t, err)

	items, err := svc.Inbox(context.Background(), "alice", 5)
	require.NoError(t, err)
	assert.Empty(t, items, "no inbox configured")
}

func TestRender(t *testing.T) {
	tk := &domain.Ticket{ID: "t9", CreatedByID: "alice"}
	subject, body := render(events.New(events.EventTicketStatusChanged, tk, "bob", events.TicketStatusChangedPayload{
		OldStatus: domain.TicketStatusOpened,
		NewStatus: domain.TicketStatusClosed,
	}))
	assert.Equal(t, "Ticket t9 Closed", subject)
	assert.Equal(t, "Ticket t9 moved from Opened to Closed.", body)

	subject, _ = render(events.New(events.EventTicketAssigned, tk, "bob", events.TicketAssignedPayload{}))
	assert.Equal(t, "Ticket t9 unassigned", subject)
}
