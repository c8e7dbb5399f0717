package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukikurage/project-board-api/internal/dto"
	apierrors "github.com/yukikurage/project-board-api/internal/errors"
)

func TestAuthHandler_Signup(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"email":    "New.User@Example.com",
		"password": "supersecret",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	response := decode[dto.UserDTO](t, w)
	assert.Equal(t, "new.user@example.com", response.Email)
	assert.Equal(t, "new.user", response.DisplayName)
}

func TestAuthHandler_SignupRejections(t *testing.T) {
	env := newTestEnv(t)
	env.signup("taken@example.com")

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"duplicate email", map[string]string{"email": "taken@example.com", "password": "supersecret"}, http.StatusConflict},
		{"short password", map[string]string{"email": "short@example.com", "password": "abc"}, http.StatusBadRequest},
		{"invalid email", map[string]string{"email": "not-an-email", "password": "supersecret"}, http.StatusBadRequest},
		{"missing password", map[string]string{"email": "x@example.com"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/auth/signup", tt.body, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestAuthHandler_LoginWithWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.signup("existing@example.com")

	w := env.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "existing@example.com",
		"password": "wrong-password",
	}, nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apierrors.ErrCodeUnauthorized, decode[apiError](t, w).Code)
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	me := env.signup("current@example.com")

	w := env.do(http.MethodGet, "/api/auth/me", nil, me)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, me.id, decode[dto.UserDTO](t, w).ID)

	w = env.do(http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	env := newTestEnv(t)
	me := env.signup("leaving@example.com")

	w := env.do(http.MethodPost, "/api/auth/logout", nil, me)
	require.Equal(t, http.StatusOK, w.Code)

	// the cleared cookie replaces the session
	loggedOut := &user{id: me.id, cookies: w.Result().Cookies()}
	w = env.do(http.MethodGet, "/api/auth/me", nil, loggedOut)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	me := env.signup("profile@example.com")

	w := env.do(http.MethodPatch, "/api/auth/me", map[string]string{
		"first_name": " Ada ",
		"last_name":  "Lovelace",
		"bio":        "Writes the schedules",
		"avatar_url": "https://cdn.example.com/ada.png",
	}, me)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[dto.UserDTO](t, w)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "Lovelace", updated.LastName)
	assert.Equal(t, "https://cdn.example.com/ada.png", updated.AvatarURL)
	assert.Equal(t, "profile", updated.DisplayName)

	// omitted fields are kept
	w = env.do(http.MethodPatch, "/api/auth/me", map[string]string{"bio": "Moved to ops"}, me)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/api/auth/me", nil, me)
	require.Equal(t, http.StatusOK, w.Code)
	current := decode[dto.UserDTO](t, w)
	assert.Equal(t, "Ada", current.FirstName)
	assert.Equal(t, "Moved to ops", current.Bio)
}

func TestAuthHandler_UpdateProfileRejections(t *testing.T) {
	env := newTestEnv(t)
	me := env.signup("strict@example.com")

	tests := []struct {
		name   string
		body   map[string]string
		as     *user
		status int
	}{
		{"blank display name", map[string]string{"display_name": "  "}, me, http.StatusBadRequest},
		{"non http avatar", map[string]string{"avatar_url": "ftp://example.com/a.png"}, me, http.StatusBadRequest},
		{"not signed in", map[string]string{"bio": "hi"}, nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPatch, "/api/auth/me", tt.body, tt.as)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	me := env.signup("rotate@example.com")

	w := env.do(http.MethodPut, "/api/auth/password", map[string]string{
		"current_password": "not-my-password",
		"new_password":     "evenmoresecret",
	}, me)
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	assert.Equal(t, apierrors.ErrCodeForbidden, decode[apiError](t, w).Code)

	w = env.do(http.MethodPut, "/api/auth/password", map[string]string{
		"current_password": "supersecret",
		"new_password":     "short",
	}, me)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = env.do(http.MethodPut, "/api/auth/password", map[string]string{
		"current_password": "supersecret",
		"new_password":     "evenmoresecret",
	}, me)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "rotate@example.com",
		"password": "supersecret",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "rotate@example.com",
		"password": "evenmoresecret",
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
