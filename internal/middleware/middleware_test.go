package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/auth"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func whoAmI(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID})
}

func newAuthRouter(tokens *auth.JWTService) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("test-secret"))))
	r.POST("/login", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(constants.ContextKeyUserID, uint64(7))
		if err := session.Save(); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/me", RequireAuth(tokens), whoAmI)
	return r
}

func decodeUserID(t *testing.T, w *httptest.ResponseRecorder) uint64 {
	t.Helper()
	var body struct {
		UserID uint64 `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.UserID
}

func TestRequireAuth_Bearer(t *testing.T) {
	tokens := auth.NewJWTService([]byte("jwt-secret"), time.Hour)
	r := newAuthRouter(tokens)

	token, err := tokens.GenerateToken(42, "alice@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(42), decodeUserID(t, w))
}

func TestRequireAuth_Rejects(t *testing.T) {
	tokens := auth.NewJWTService([]byte("jwt-secret"), time.Hour)
	forged, err := auth.NewJWTService([]byte("other-secret"), time.Hour).GenerateToken(42, "a@example.com")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"no credentials", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"forged token", "Bearer " + forged},
		{"garbage", "Bearer not-a-token"},
	}
	r := newAuthRouter(tokens)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
		})
	}
}

func TestRequireAuth_SessionFallback(t *testing.T) {
	r := newAuthRouter(auth.NewJWTService([]byte("jwt-secret"), time.Hour))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(7), decodeUserID(t, w))
}

func TestRequireWorkspaceMember(t *testing.T) {
	db := testutil.NewDB(t)
	log := testutil.Logger()
	activity := services.NewActivityService(repository.NewActivityRepository(db), log)
	workspaces := services.NewWorkspaceService(
		repository.NewWorkspaceRepository(db),
		auth.NewInviteTokens([]byte("invite-secret"), time.Hour),
		activity, "http://localhost:5173", log,
	)

	alice := testutil.CreateUser(t, db, "alice@example.com", "Alice")
	bob := testutil.CreateUser(t, db, "bob@example.com", "Bob")
	carol := testutil.CreateUser(t, db, "carol@example.com", "Carol")
	ws, err := workspaces.CreateWorkspace(context.Background(), alice.ID, services.CreateWorkspaceInput{Name: "Acme", Color: "#123"})
	require.NoError(t, err)
	testutil.AddMember(t, db, ws, bob, models.RoleMember)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			switch id {
			case "alice":
				c.Set(constants.ContextKeyUserID, alice.ID)
			case "bob":
				c.Set(constants.ContextKeyUserID, bob.ID)
			case "carol":
				c.Set(constants.ContextKeyUserID, carol.ID)
			}
		}
	})
	group := r.Group("/workspaces/:workspaceId", RequireWorkspaceMember(workspaces))
	group.GET("", func(c *gin.Context) {
		member, ok := GetWorkspaceMember(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"role": member.Role})
	})
	group.POST("/admin", RequireWorkspaceRole(models.RoleOwner, models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	wsPath := fmt.Sprintf("/workspaces/%d", ws.ID)
	tests := []struct {
		name   string
		method string
		path   string
		user   string
		want   int
	}{
		{"owner reads", http.MethodGet, wsPath, "alice", http.StatusOK},
		{"member reads", http.MethodGet, wsPath, "bob", http.StatusOK},
		{"non-member forbidden", http.MethodGet, wsPath, "carol", http.StatusForbidden},
		{"anonymous", http.MethodGet, wsPath, "", http.StatusUnauthorized},
		{"owner manages", http.MethodPost, wsPath + "/admin", "alice", http.StatusNoContent},
		{"member cannot manage", http.MethodPost, wsPath + "/admin", "bob", http.StatusForbidden},
		{"missing workspace", http.MethodGet, "/workspaces/999", "alice", http.StatusNotFound},
		{"bad id", http.MethodGet, "/workspaces/abc", "alice", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.user != "" {
				req.Header.Set("X-Test-User", tt.user)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(2)
	clock := time.Now()
	limiter.now = func() time.Time { return clock }

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"), "keys are independent")

	clock = clock.Add(30 * time.Second)
	assert.True(t, limiter.Allow("a"), "one token refills every 30s")

	clock = clock.Add(time.Hour)
	limiter.Cleanup()
	assert.Empty(t, limiter.entries)
}

func TestRateLimit_Middleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewRateLimiter(1)))
	r.POST("/login", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}

func TestRecoveryAndRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(testutil.Logger(), true), Recovery(testutil.Logger()), Prometheus())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, w.Body.String(), "kaboom")
	assert.Len(t, w.Header().Get("X-Request-ID"), 8)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS("http://localhost:5173/"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"preflight from frontend", http.MethodOptions, "http://localhost:5173", http.StatusNoContent, "http://localhost:5173"},
		{"request from frontend", http.MethodGet, "http://localhost:5173", http.StatusOK, "http://localhost:5173"},
		{"preflight from other origin", http.MethodOptions, "http://evil.example", http.StatusForbidden, ""},
		{"request from other origin", http.MethodGet, "http://evil.example", http.StatusForbidden, ""},
		{"request without origin", http.MethodGet, "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/ping", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.method == http.MethodOptions && tt.wantAllow != "" {
				assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
				assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			}
		})
	}
}
