package httpapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jumjum/backend/internal/domain"
)

func TestAuthManagerRoundTrip(t *testing.T) {
	manager := NewAuthManager("round-trip-secret-with-32-characters", time.Hour)
	user := domain.UserView{UserID: "USER-1-ABCD", Username: "admin", Role: domain.RoleAdmin}

	token, expiresAt, err := manager.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	actor, err := manager.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{UserID: "USER-1-ABCD", Username: "admin", Role: domain.RoleAdmin}, actor)

	other := NewAuthManager("a-different-secret-with-32-characters", time.Hour)
	_, err = other.ParseToken(token)
	require.Error(t, err)
}

func TestAuthManagerRejectsExpiredToken(t *testing.T) {
	manager := NewAuthManager("expiry-secret-with-at-least-32-chars", time.Minute)
	issuedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return issuedAt }

	token, _, err := manager.Issue(domain.UserView{UserID: "USER-1-ABCD", Username: "jamjambar", Role: domain.RoleBar})
	require.NoError(t, err)

	manager.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	_, err = manager.ParseToken(token)
	require.Error(t, err)
}

func login(t *testing.T, h http.Handler, username string, password string) string {
	t.Helper()
	rec, body := doJSON(t, h, http.MethodPost, "/api/auth/login", domain.LoginRequest{Username: username, Password: password}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, ok := body["token"].(string)
	require.True(t, ok)
	return token
}

func TestLoginReturnsTokenAndUser(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec, body := doJSON(t, h, http.MethodPost, "/api/auth/login", domain.LoginRequest{Username: "JamJamBar", Password: "bar@123", Role: domain.RoleBar}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "jamjambar", user["username"])
	assert.NotContains(t, user, "passwordHash")
	assert.NotContains(t, user, "PasswordHash")
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	h := newTestAPI(t).Handler()

	for _, req := range []domain.LoginRequest{
		{Username: "ghost", Password: "x"},
		{Username: "jamjambar", Password: "wrong"},
		{Username: "jamjamkitchen", Password: "kitchen@123", Role: domain.RoleBar},
	} {
		rec, body := doJSON(t, h, http.MethodPost, "/api/auth/login", req, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", body["error"])
	}

	rec, _ := doJSON(t, h, http.MethodPost, "/api/auth/login", domain.LoginRequest{Username: "admin"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserAdministrationRequiresAdmin(t *testing.T) {
	h := newTestAPI(t).Handler()
	register := domain.RegisterRequest{Username: "rina", Password: "secret", Name: "Rina", Role: domain.RoleKitchen}

	rec, _ := doJSON(t, h, http.MethodPost, "/api/auth/register", register, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	kitchenToken := login(t, h, "jamjamkitchen", "kitchen@123")
	rec, _ = doJSON(t, h, http.MethodGet, "/api/auth/users", nil, kitchenToken)
	require.Equal(t, http.StatusForbidden, rec.Code)

	adminToken := login(t, h, "admin", "admin@123")
	rec, body := doJSON(t, h, http.MethodPost, "/api/auth/register", register, adminToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	userID := body["user"].(map[string]any)["userId"].(string)

	rec, _ = doJSON(t, h, http.MethodPost, "/api/auth/register", register, adminToken)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec, body = doJSON(t, h, http.MethodGet, "/api/auth/users", nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, body["count"])

	name := "Rina S."
	rec, body = doJSON(t, h, http.MethodPut, "/api/auth/users/"+userID, domain.UserPatch{Name: &name}, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Rina S.", body["user"].(map[string]any)["name"])

	rec, body = doJSON(t, h, http.MethodDelete, "/api/auth/users/"+userID, nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, body["user"].(map[string]any)["isActive"])

	rec, _ = doJSON(t, h, http.MethodPost, "/api/auth/login", domain.LoginRequest{Username: "rina", Password: "secret"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSeedUsersSkipsExisting(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec, body := doJSON(t, h, http.MethodPost, "/api/auth/seed", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 0, body["count"])
}
