package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"event_wallet/internal/db"
	"event_wallet/internal/domain"
	"event_wallet/internal/utils"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) (*gin.Engine, func(role string) string) {
	t.Helper()
	gdb := db.OpenTest(t)
	r := gin.New()
	r.GET("/me", JWTAuthMiddleware(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint("userID"), "role": c.GetString("role")})
	})
	r.GET("/admin", JWTAuthMiddleware(secret), AdminOnlyMiddleware(gdb), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	tokenFor := func(role string) string {
		user := domain.User{Username: "user" + role, Password: "x", Role: role}
		require.NoError(t, gdb.Create(&user).Error)
		token, err := utils.GenerateJWT(user.ID, role, secret)
		require.NoError(t, err)
		return token
	}
	return r, tokenFor
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware(t *testing.T) {
	r, tokenFor := newRouter(t)

	require.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	require.Equal(t, http.StatusUnauthorized, get(r, "/me", "garbage").Code)

	other, err := utils.GenerateJWT(1, domain.RoleUser, "other-secret")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, get(r, "/me", other).Code)

	w := get(r, "/me", tokenFor(domain.RoleUser))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"role":"user"`)
}

func TestAdminOnlyMiddleware(t *testing.T) {
	r, tokenFor := newRouter(t)

	require.Equal(t, http.StatusForbidden, get(r, "/admin", tokenFor(domain.RoleUser)).Code)
	require.Equal(t, http.StatusNoContent, get(r, "/admin", tokenFor(domain.RoleAdmin)).Code)

	// A forged role claim does not grant access.
	forged, err := utils.GenerateJWT(999, domain.RoleAdmin, secret)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, get(r, "/admin", forged).Code)
}
