package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestTokenManager_RoundTripAndExpiry(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	issued, err := tm.GenerateToken(&domain.User{ID: 5, Role: domain.RoleAgent})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := tm.ParseToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(5), claims.UserID)
	assert.Equal(t, domain.RoleAgent, claims.Role)
	assert.Equal(t, issued.ID, claims.ID)

	_, err = NewTokenManager("other", time.Hour).ParseToken(issued.Token)
	assert.Error(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tm.ParseToken(issued.Token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("admin123", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "admin123"))
	assert.Error(t, ComparePassword(hash, "admin124"))
}

func TestRevocationStores(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	stores := map[string]RevocationStore{
		"redis":  NewRevocationStore(client),
		"memory": NewRevocationStore(nil),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))
			require.NoError(t, store.Revoke(ctx, "jti-old", time.Now().Add(-time.Minute)))

			revoked, err := store.IsRevoked(ctx, "jti-1")
			require.NoError(t, err)
			assert.True(t, revoked)

			revoked, err = store.IsRevoked(ctx, "jti-old")
			require.NoError(t, err)
			assert.False(t, revoked)
		})
	}

	mr.FastForward(2 * time.Minute)
	revoked, err := stores["redis"].IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestPolicy(t *testing.T) {
	owner := domain.NewActor(&domain.User{ID: 1, Role: domain.RoleUser})
	stranger := domain.NewActor(&domain.User{ID: 2, Role: domain.RoleUser})
	agent := domain.NewActor(&domain.User{ID: 3, Role: domain.RoleAgent})
	admin := domain.NewActor(&domain.User{ID: 4, Role: domain.RoleAdmin})
	ticket := &domain.Ticket{ID: 10, CreatedByID: 1}

	assert.True(t, CanViewTicket(owner, ticket))
	assert.False(t, CanViewTicket(stranger, ticket))
	assert.True(t, CanViewTicket(agent, ticket))
	assert.False(t, CanViewTicket(domain.Actor{}, ticket))
	assert.True(t, CanModifyTicket(admin, ticket))

	assert.False(t, CanReassign(owner))
	assert.True(t, CanReassign(agent))
	assert.False(t, CanManageUsers(agent))
	assert.True(t, CanManageUsers(admin))

	require.NotNil(t, ScopeCreator(owner))
	assert.Equal(t, int64(1), *ScopeCreator(owner))
	assert.Nil(t, ScopeCreator(agent))
}

func newAuthApp(t *testing.T) (*fiber.App, *TokenManager, RevocationStore, map[domain.Role]*domain.User) {
	t.Helper()
	store := memory.NewStore()
	users := map[domain.Role]*domain.User{}
	for _, role := range domain.Roles {
		u := &domain.User{Username: string(role), Name: string(role), Role: role}
		require.NoError(t, store.Repos().Users.Create(context.Background(), u))
		users[role] = u
	}
	tokens := NewTokenManager("secret", time.Hour)
	revoked := NewMemoryRevocationStore()
	mw := NewAuthMiddleware(tokens, revoked, store.Repos().Users, "session")

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.Username)
	})
	app.Get("/staff", mw.Handle, RequireStaff(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })
	return app, tokens, revoked, users
}

func TestAuthMiddleware(t *testing.T) {
	app, tokens, revoked, users := newAuthApp(t)
	userToken, err := tokens.GenerateToken(users[domain.RoleUser])
	require.NoError(t, err)
	agentToken, err := tokens.GenerateToken(users[domain.RoleAgent])
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+userToken.Token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user", string(body))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: agentToken.Token})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer "+userToken.Token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer "+agentToken.Token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.NoError(t, revoked.Revoke(context.Background(), userToken.ID, userToken.ExpiresAt))
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+userToken.Token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
