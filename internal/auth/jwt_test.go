package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken("secret", "u1", RoleCustomer, time.Hour)
	require.NoError(t, err)

	userID, role, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, RoleCustomer, role)
}

func TestParseTokenRejectsBadInput(t *testing.T) {
	token, err := IssueToken("secret", "u1", RoleCustomer, time.Hour)
	require.NoError(t, err)

	_, _, err = ParseToken("wrong-secret", token)
	assert.ErrorIs(t, err, ErrBadLogin)

	_, _, err = ParseToken("secret", "garbage")
	assert.ErrorIs(t, err, ErrBadLogin)

	expired, err := IssueToken("secret", "u1", RoleCustomer, -time.Minute)
	require.NoError(t, err)
	_, _, err = ParseToken("secret", expired)
	assert.ErrorIs(t, err, ErrBadLogin)
}

func TestMiddleware(t *testing.T) {
	handler := Middleware("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserID(r) + "/" + Role(r)))
	}))

	// no token
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// bad token
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// valid token
	token, err := IssueToken("secret", "u1", RoleAdmin, time.Hour)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1/ADMIN", rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), "u1", RoleCustomer))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), "u1", RoleAdmin))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))
}
