package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gofiber/fiber/v2"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/report"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type testServer struct {
	t   *testing.T
	app *fiber.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memory.NewStore()

	users := service.NewUserService(store, logger, bcrypt.MinCost)
	_, err := users.SeedDefaults(ctx)
	require.NoError(t, err)

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	revocations := auth.NewMemoryRevocationStore()
	authService := service.NewAuthService(service.AuthDependencies{
		Store:       store,
		Tokens:      tokens,
		Revocations: revocations,
		Logger:      logger,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     logger,
		Metrics:    metrics,
	})
	performance := service.NewPerformanceService(store, logger)

	app := httptransport.NewApp("helpdesk-test", logger, metrics, 5*time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk", "test", store, nil),
		Auth:           handlers.NewAuthHandler(authService, "session", false),
		Users:          handlers.NewUsersHandler(users),
		Tickets:        handlers.NewTicketsHandler(tickets, users, performance),
		Performance:    handlers.NewPerformanceHandler(performance),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, revocations, store.Repos().Users, "session"),
		Metrics:        metrics,
	})
	return &testServer{t: t, app: app}
}

func (s *testServer) do(method, path, token string, body any) (*http.Response, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	resp, env := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, resp.StatusCode)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(s.t, data.Token)
	return data.Token
}

type ticketBody struct {
	ID           int64  `json:"id"`
	TicketNumber string `json:"ticket_number"`
	Status       string `json:"status"`
	CreatedByID  int64  `json:"created_by_id"`
	AssignedToID *int64 `json:"assigned_to_id"`
	SLA          struct {
		State            string `json:"state"`
		PercentRemaining int    `json:"percent_remaining"`
	} `json:"sla"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(observability.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var ready struct {
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ready))
	assert.Equal(t, "ok", ready.Dependencies["store"])
	assert.Equal(t, "disabled", ready.Dependencies["redis"])

	resp, env := s.do(http.MethodGet, "/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	resp, _ = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "http_requests_total")
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	resp, env = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "required", env.Error.Details["password"])

	token := s.login("admin", "admin123")
	resp, env = s.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[map[string]any](t, env.Data)
	assert.Equal(t, "admin", me["username"])
	assert.NotContains(t, me, "password_hash")

	resp, _ = s.do(http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = s.do(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUsersEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "admin123")
	agent := s.login("agent", "agent123")
	user := s.login("user", "user123")

	resp, _ := s.do(http.MethodGet, "/api/users", user, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env := s.do(http.MethodGet, "/api/users?role=agent", agent, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	agents := decode[[]map[string]any](t, env.Data)
	require.Len(t, agents, 1)
	assert.Equal(t, "agent", agents[0]["username"])

	newUser := map[string]string{"username": "lucia", "password": "secret1", "name": "Lucía", "email": "lucia@example.com", "role": "user"}
	resp, _ = s.do(http.MethodPost, "/api/users", agent, newUser)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(http.MethodPost, "/api/users", admin, newUser)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env = s.do(http.MethodPost, "/api/users", admin, newUser)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestTicketFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "admin123")
	agent := s.login("agent", "agent123")
	user := s.login("user", "user123")

	resp, env := s.do(http.MethodPost, "/api/tickets", user, map[string]any{
		"title": "VPN down", "description": "Cannot connect since morning", "priority": "high", "status": "closed",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[ticketBody](t, env.Data)
	assert.True(t, strings.HasPrefix(created.TicketNumber, "TK-"))
	assert.Len(t, created.TicketNumber, 7)
	assert.Equal(t, "open", created.Status)
	assert.Equal(t, "active", created.SLA.State)
	assert.Nil(t, created.AssignedToID)
	ticketPath := fmt.Sprintf("/api/tickets/%d", created.ID)

	resp, env = s.do(http.MethodPost, "/api/tickets", user, map[string]any{"title": "x", "priority": "urgent"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "required", env.Error.Details["description"])

	resp, _ = s.do(http.MethodPost, "/api/tickets", user, map[string]any{
		"title": "t", "description": "d", "priority": "low", "assigned_to_id": 2,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env = s.do(http.MethodPost, "/api/tickets", agent, map[string]any{
		"title": "t", "description": "d", "priority": "low", "assigned_to_id": 999,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	// A second requester cannot see the first one's ticket.
	resp, _ = s.do(http.MethodPost, "/api/users", admin, map[string]string{
		"username": "lucia", "password": "secret1", "name": "Lucía", "email": "lucia@example.com", "role": "user",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	stranger := s.login("lucia", "secret1")
	resp, _ = s.do(http.MethodGet, ticketPath, stranger, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, env = s.do(http.MethodGet, "/api/tickets", stranger, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]ticketBody](t, env.Data))

	resp, _ = s.do(http.MethodPatch, ticketPath+"/assign", user, map[string]any{"assigned_to_id": 2})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env = s.do(http.MethodGet, "/api/users?role=agent", agent, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	agentID := int64(decode[[]map[string]any](t, env.Data)[0]["id"].(float64))

	resp, env = s.do(http.MethodPatch, ticketPath+"/assign", agent, map[string]any{"assigned_to_id": agentID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assigned := decode[ticketBody](t, env.Data)
	require.NotNil(t, assigned.AssignedToID)
	assert.Equal(t, agentID, *assigned.AssignedToID)

	resp, env = s.do(http.MethodPatch, ticketPath+"/status", agent, map[string]any{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Error.Details, "status")

	resp, env = s.do(http.MethodPatch, ticketPath+"/status", agent, map[string]any{"status": "in-progress"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "in-progress", decode[ticketBody](t, env.Data).Status)

	resp, _ = s.do(http.MethodPost, ticketPath+"/comments", user, map[string]any{"content": "Any update?"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = s.do(http.MethodPost, ticketPath+"/comments", stranger, map[string]any{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, env = s.do(http.MethodGet, ticketPath+"/comments", user, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	comments := decode[[]map[string]any](t, env.Data)
	require.Len(t, comments, 1)
	assert.Equal(t, "Any update?", comments[0]["content"])

	resp, env = s.do(http.MethodGet, ticketPath+"/activities", user, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	activities := decode[[]map[string]any](t, env.Data)
	actions := make([]string, 0, len(activities))
	for _, a := range activities {
		actions = append(actions, a["action"].(string))
	}
	assert.ElementsMatch(t, []string{"created", "assignment", "status_change", "comment"}, actions)

	resp, env = s.do(http.MethodGet, ticketPath+"/sla", user, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "active", decode[map[string]any](t, env.Data)["state"])

	resp, env = s.do(http.MethodGet, "/api/tickets?status=in-progress&priority=high", agent, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]ticketBody](t, env.Data), 1)
	resp, _ = s.do(http.MethodGet, "/api/tickets?status=bogus", agent, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/api/tickets/stats", user, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, env = s.do(http.MethodGet, "/api/tickets/stats", agent, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[map[string]int](t, env.Data)
	assert.Equal(t, 1, stats["total"])
	assert.Equal(t, 1, stats["in_progress"])

	resp, _ = s.do(http.MethodGet, "/api/tickets/abc", agent, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, env = s.do(http.MethodGet, "/api/tickets/9999", agent, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestPerformanceEndpoints(t *testing.T) {
	s := newTestServer(t)
	agent := s.login("agent", "agent123")
	user := s.login("user", "user123")

	resp, _ := s.do(http.MethodGet, "/api/performance/agents", user, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env := s.do(http.MethodGet, "/api/performance/agents", agent, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := decode[[]map[string]any](t, env.Data)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(100), rows[0]["sla_compliance_rate"])

	resp, env = s.do(http.MethodGet, "/api/performance/priorities", agent, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	priorities := decode[[]map[string]any](t, env.Data)
	require.Len(t, priorities, 4)
	assert.Equal(t, "critical", priorities[0]["priority"])

	resp, _ = s.do(http.MethodGet, "/api/performance/export", agent, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, report.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "performance-")
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(body, []byte("PK")), "xlsx is a zip archive")
}
