package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joefazee/marketcore/app/api"
	"github.com/joefazee/marketcore/app/database"
	"github.com/joefazee/marketcore/internal/deps"
	"github.com/joefazee/marketcore/internal/security"
)

func setupMounter(t *testing.T) (*gin.Engine, security.Maker) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewInMemory()
	require.NoError(t, err)
	maker, err := security.NewPasetoMaker("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	container, err := deps.NewContainer(deps.Options{DB: db, TokenMaker: maker})
	require.NoError(t, err)
	t.Cleanup(container.Close)

	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	engine := gin.New()
	m := NewMounter(container)
	m.Public(engine).Mount(func(r *gin.RouterGroup, c *deps.Container) {
		assert.Same(t, container, c)
		r.GET("/open", ok)
	})
	m.Authenticated(engine).Group("/me").Mount(func(r *gin.RouterGroup, _ *deps.Container) {
		r.GET("", ok)
	})
	m.Authorized(engine, api.PermissionMarketsSettle).Mount(func(r *gin.RouterGroup, _ *deps.Container) {
		r.POST("/settle", ok)
	})
	return engine, maker
}

func TestMounter(t *testing.T) {
	engine, maker := setupMounter(t)

	plain, _, err := maker.CreateToken(uuid.New(), nil, time.Minute)
	require.NoError(t, err)
	operator, _, err := maker.CreateToken(uuid.New(), []string{api.PermissionMarketsSettle}, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"public", http.MethodGet, "/api/v1/open", "", http.StatusOK},
		{"missing token", http.MethodGet, "/api/v1/me", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/me", "garbage", http.StatusUnauthorized},
		{"authenticated", http.MethodGet, "/api/v1/me", plain, http.StatusOK},
		{"missing permission", http.MethodPost, "/api/v1/settle", plain, http.StatusForbidden},
		{"authorized", http.MethodPost, "/api/v1/settle", operator, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
