package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/services"
)

func newSessionRouter(h *AuthHandler) *gin.Engine {
	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)
	return r
}

func postJSON(t *testing.T, r http.Handler, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Register(t *testing.T) {
	env := newHandlerEnv(t)
	r := newSessionRouter(NewAuthHandler(env.users))

	w := postJSON(t, r, "/auth/register", map[string]string{
		"email":    "  Alice@Example.com ",
		"name":     "Alice",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	response := decode[dto.UserDTO](t, w)
	require.Equal(t, "alice@example.com", response.Email)
	require.Equal(t, "Alice", response.Name)
	require.NotContains(t, w.Body.String(), "password")

	w = postJSON(t, r, "/auth/register", map[string]string{
		"email":    "alice@example.com",
		"name":     "Alice Again",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, apierrors.ErrCodeConflict, decodeError(t, w).Code)
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	env := newHandlerEnv(t)
	r := newSessionRouter(NewAuthHandler(env.users))

	tests := []struct {
		name    string
		payload map[string]string
	}{
		{"missing fields", map[string]string{"email": "a@example.com"}},
		{"short password", map[string]string{"email": "a@example.com", "name": "Alice", "password": "short"}},
		{"bad email", map[string]string{"email": "not-an-email", "name": "Alice", "password": "supersecret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, r, "/auth/register", tt.payload)
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.Equal(t, apierrors.ErrCodeInvalidInput, decodeError(t, w).Code)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	env := newHandlerEnv(t)
	r := newSessionRouter(NewAuthHandler(env.users))

	_, err := env.users.Signup(context.Background(), services.SignupInput{
		Email:    "existing@example.com",
		Name:     "Existing",
		Password: "supersecret",
	})
	require.NoError(t, err)

	w := postJSON(t, r, "/auth/login", map[string]string{
		"email":    "EXISTING@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	response := decode[dto.LoginResponse](t, w)
	require.NotEmpty(t, response.Token)
	require.Equal(t, "Bearer", response.TokenType)
	require.Positive(t, response.ExpiresIn)
	require.Equal(t, "existing@example.com", response.User.Email)
	require.NotNil(t, response.User.LastLogin)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "expected session cookie to be set")

	w = postJSON(t, r, "/auth/login", map[string]string{
		"email":    "existing@example.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	env := newHandlerEnv(t)
	r := newSessionRouter(NewAuthHandler(env.users))

	w := postJSON(t, r, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_Me(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewAuthHandler(env.users)

	user, err := env.users.Signup(context.Background(), services.SignupInput{
		Email:    "current@example.com",
		Name:     "Current",
		Password: "supersecret",
	})
	require.NoError(t, err)

	c, w := testContext(t, http.MethodGet, "/auth/me", nil, user.ID, nil)
	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, user.Email, decode[dto.UserDTO](t, w).Email)

	c, w = testContext(t, http.MethodGet, "/auth/me", nil, 0, nil)
	h.Me(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
