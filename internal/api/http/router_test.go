package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/filter"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

type userStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (s *userStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = fmt.Sprintf("user-%d", len(s.users)+1)
	s.users[u.ID] = u
	return nil
}

func (s *userStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (s *userStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type queues struct{}

func (queues) GetByID(_ context.Context, id string) (*domain.Queue, error) {
	if id != "q1" {
		return nil, repository.ErrNotFound
	}
	return &domain.Queue{ID: "q1", IsActive: true}, nil
}

type categories struct{}

func (categories) GetByID(_ context.Context, id string) (*domain.Category, error) {
	if id != "c1" {
		return nil, repository.ErrNotFound
	}
	return &domain.Category{ID: "c1", QueueID: "q1", IsActive: true}, nil
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Dispatch(_ context.Context, evs ...events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evs...)
}

type testServer struct {
	app    *fiber.App
	tokens map[string]string
	events *recorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	users := &userStore{users: map[string]*domain.User{
		"alice": {ID: "alice", Email: "alice@example.com", Role: domain.UserRoleUser, Status: domain.UserStatusActive},
		"dave":  {ID: "dave", Email: "dave@example.com", Role: domain.UserRoleUser, Status: domain.UserStatusActive},
		"agent": {ID: "agent", Email: "agent@example.com", Role: domain.UserRoleAgent, Status: domain.UserStatusActive, QueueIDs: []string{"q1"}},
		"nora":  {ID: "nora", Email: "nora@example.com", Role: domain.UserRoleAgent, Status: domain.UserStatusActive, QueueIDs: []string{"q2"}},
		"root":  {ID: "root", Email: "root@example.com", Role: domain.UserRoleAdmin, Status: domain.UserStatusActive},
	}}
	tm := auth.NewTokenManager("test-secret", time.Hour)
	tokens := map[string]string{}
	for id, u := range users.users {
		tok, _, err := tm.GenerateToken(id, u.Role)
		require.NoError(t, err)
		tokens[id] = tok
	}

	ticketRepo := repository.NewMemoryTicketRepository(nil)
	history := service.NewHistoryService(repository.NewMemoryHistoryRepository(nil))
	builder := filter.NewBuilder(history)
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		History:     history,
		Queues:      queues{},
		Categories:  categories{},
		Permissions: auth.NewAdminChecker(users),
	})
	rec := &recorder{}
	metrics := observability.NewMetrics()

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk", "test"),
		Auth:           handlers.NewAuthHandler(service.NewAuthService(users, tm, 4)),
		Tickets:        handlers.NewTicketsHandler(tickets, service.NewTicketQueryService(ticketRepo, builder), rec),
		History:        handlers.NewHistoryHandler(tickets, history, rec),
		Notifications:  handlers.NewNotificationsHandler(service.NewNotificationService(service.NotificationDependencies{})),
		AuthMiddleware: auth.NewAuthMiddleware(tm, users),
		Metrics:        metrics,
	})
	return &testServer{app: app, tokens: tokens, events: rec}
}

func (s *testServer) do(t *testing.T, method, path, as string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[as])
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func data(body map[string]any) map[string]any {
	d, _ := body["data"].(map[string]any)
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func (s *testServer) createTicket(t *testing.T, as, title string) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/tickets", as, map[string]any{
		"queue_id": "q1", "category_id": "c1", "title": title,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return data(body)["id"].(string)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.do(t, http.MethodGet, "/tickets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	resp, _ = s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(observability.RequestIDHeader))
}

func TestErrorEnvelope(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	req.Header.Set(observability.RequestIDHeader, "req-42")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body["error"]["code"])
	assert.Equal(t, "req-42", body["error"]["request_id"])

	resp, decoded := s.do(t, http.MethodGet, "/tickets/missing", "root", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, resp.Header.Get(observability.RequestIDHeader), decoded["error"].(map[string]any)["request_id"])
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/tickets", "alice", map[string]any{
		"queue_id": "q1", "category_id": "c1", "title": "<b>Printer</b> jammed", "details": "A & B",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := data(body)
	id := created["id"].(string)
	assert.Equal(t, "Printer jammed", created["title"])
	assert.Equal(t, "A & B", created["details"])
	assert.Equal(t, "Medium", created["priority"])
	assert.Nil(t, created["closed_at"])

	resp, body = s.do(t, http.MethodPost, "/tickets/"+id+"/assign", "alice", map[string]any{"assignee_id": "agent"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	resp, body = s.do(t, http.MethodPost, "/tickets/"+id+"/assign", "agent", map[string]any{"assignee_id": "agent"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "agent", data(body)["assigned_to_id"])

	resp, body = s.do(t, http.MethodPost, "/tickets/"+id+"/status", "agent", map[string]any{"status": "Closed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, data(body)["closed_at"])

	resp, body = s.do(t, http.MethodPatch, "/tickets/"+id, "agent", map[string]any{"assigned_to_id": nil, "status": "Opened"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, data(body)["assigned_to_id"])
	assert.Nil(t, data(body)["closed_at"])

	resp, body = s.do(t, http.MethodPost, "/tickets/"+id+"/history", "agent", map[string]any{"body": "looks like a printer jam"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Comment", data(body)["type"])

	resp, body = s.do(t, http.MethodGet, "/tickets/"+id+"/history", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["data"].([]any)
	require.Len(t, items, 4, "created, assigned, closed, comment")
	assert.Equal(t, "Comment", items[0].(map[string]any)["type"])

	var types []events.EventType
	for _, ev := range s.events.events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTicketStatusChanged,
		events.EventTicketCommented,
	}, types)

	resp, _ = s.do(t, http.MethodDelete, "/tickets/"+id, "dave", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = s.do(t, http.MethodDelete, "/tickets/"+id, "alice", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = s.do(t, http.MethodGet, "/tickets/"+id, "alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestListingFiltersAndScope(t *testing.T) {
	s := newTestServer(t)
	mine := s.createTicket(t, "alice", "Laptop slow")
	s.createTicket(t, "dave", "Printer jam")

	resp, body := s.do(t, http.MethodGet, "/tickets", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["data"].([]any)
	require.Len(t, items, 1, "requesters only see their own tickets")
	assert.Equal(t, mine, items[0].(map[string]any)["id"])

	resp, body = s.do(t, http.MethodGet, "/tickets?assignedTo=null&limit=1", "root", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]any), 1)
	assert.EqualValues(t, 2, body["meta"].(map[string]any)["total"])

	resp, body = s.do(t, http.MethodGet, "/tickets/count?search=PRINTER", "agent", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, data(body)["count"])

	resp, body = s.do(t, http.MethodGet, "/tickets?createdAfter=tomorrow", "root", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_FILTER", errorCode(body))

	resp, body = s.do(t, http.MethodGet, "/tickets?hasDocuments=maybe", "root", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_FILTER", errorCode(body))
}

func TestTicketVisibleOnlyWithinScope(t *testing.T) {
	s := newTestServer(t)
	id := s.createTicket(t, "alice", "Laptop slow")

	for _, as := range []string{"alice", "agent", "root"} {
		resp, _ := s.do(t, http.MethodGet, "/tickets/"+id, as, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, as)
	}

	for _, as := range []string{"dave", "nora"} {
		resp, body := s.do(t, http.MethodGet, "/tickets/"+id, as, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, as)
		assert.Equal(t, "NOT_FOUND", errorCode(body))

		resp, _ = s.do(t, http.MethodGet, "/tickets/"+id+"/history", as, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, as)

		resp, _ = s.do(t, http.MethodPost, "/tickets/"+id+"/history", as, map[string]any{"body": "me too"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, as)

		resp, _ = s.do(t, http.MethodPost, "/tickets/"+id+"/documents/doc-1", as, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, as)
	}

	resp, body := s.do(t, http.MethodGet, "/tickets/"+id+"/history", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]any), 1, "only the creation entry")
}

func TestListingRejectsPageOverflow(t *testing.T) {
	s := newTestServer(t)
	s.createTicket(t, "alice", "Laptop slow")

	resp, body := s.do(t, http.MethodGet, "/tickets?page=1844674407370955161&limit=10", "root", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestExport(t *testing.T) {
	s := newTestServer(t)
	s.createTicket(t, "alice", "Export me")

	resp, _ := s.do(t, http.MethodGet, "/tickets/export?format=csv", "alice", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/tickets/export?format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+s.tokens["root"])
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Export me")
}

func TestLoginOverHTTP(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Erin", "email": "erin@example.com", "password": "s3cret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, data(body)["access_token"])

	resp, body = s.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "erin@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	resp, body = s.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "erin@example.com", "password": "s3cret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := data(body)["access_token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
