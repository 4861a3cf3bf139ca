package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/buildsite-dev/buildsite/internal/auth"
	"github.com/buildsite-dev/buildsite/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		user := c.MustGet(types.ContextUserKey).(AuthenticatedUser)
		c.JSON(http.StatusOK, gin.H{"uid": user.UID})
	})
	r.GET("/admin", AuthMiddleware(), RequireRole(types.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/projects", AuthMiddleware(), RequireModule(types.ModuleProjects), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func mintToken(t *testing.T, claims types.Claims) string {
	t.Helper()
	token, err := auth.GenerateJWT("uid-1", "user@x.com", claims)
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	require.NoError(t, auth.InitJWTSecret())

	r := setupRouter()

	viewer := types.Claims{Role: types.RoleViewer}
	admin := types.Claims{Role: types.RoleAdmin}
	granted := types.Claims{Role: types.RoleViewer, AssignedModules: []string{types.ModuleProjects}}

	tests := []struct {
		name       string
		path       string
		token      string
		wantStatus int
	}{
		{"missing token", "/me", "", http.StatusUnauthorized},
		{"garbage token", "/me", "not-a-token", http.StatusUnauthorized},
		{"valid token", "/me", mintToken(t, viewer), http.StatusOK},
		{"viewer blocked from admin route", "/admin", mintToken(t, viewer), http.StatusForbidden},
		{"admin passes role gate", "/admin", mintToken(t, admin), http.StatusOK},
		{"viewer without grant blocked from module", "/projects", mintToken(t, viewer), http.StatusForbidden},
		{"granted module passes", "/projects", mintToken(t, granted), http.StatusOK},
		{"admin passes module gate without grant", "/projects", mintToken(t, admin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestAuthMiddlewareReadsCookie(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	require.NoError(t, auth.InitJWTSecret())

	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: mintToken(t, types.Claims{Role: types.RoleViewer})})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
