package router

import (
	"github.com/gin-gonic/gin"

	"github.com/joefazee/marketcore/app/api"
	"github.com/joefazee/marketcore/internal/deps"
)

// MountFunc represents a function that mounts routes for a module
type MountFunc func(*gin.RouterGroup, *deps.Container)

type Mounter struct {
	container *deps.Container
	prefix    string
}

func NewMounter(container *deps.Container) *Mounter {
	return &Mounter{container: container, prefix: "/api/v1"}
}

// Public routes - no authentication required
func (m *Mounter) Public(engine *gin.Engine) *RouteGroup {
	return &RouteGroup{group: engine.Group(m.prefix), container: m.container}
}

// Authenticated routes - requires a valid bearer token
func (m *Mounter) Authenticated(engine *gin.Engine) *RouteGroup {
	group := engine.Group(m.prefix)
	group.Use(api.AuthMiddleware(m.container.TokenMaker))
	return &RouteGroup{group: group, container: m.container}
}

// Authorized routes - requires a valid token carrying permission
func (m *Mounter) Authorized(engine *gin.Engine, permission string) *RouteGroup {
	return m.Authenticated(engine).WithPermission(api.Can(permission))
}

type RouteGroup struct {
	group     *gin.RouterGroup
	container *deps.Container
}

// Mount provides a fluent interface for mounting modules
func (rg *RouteGroup) Mount(mountFunc MountFunc) *RouteGroup {
	mountFunc(rg.group, rg.container)
	return rg
}

// Group creates a sub-group for organizing routes
func (rg *RouteGroup) Group(path string) *RouteGroup {
	return &RouteGroup{group: rg.group.Group(path), container: rg.container}
}

// WithPermission adds permission middleware
func (rg *RouteGroup) WithPermission(permissionMiddleware gin.HandlerFunc) *RouteGroup {
	rg.group.Use(permissionMiddleware)
	return rg
}
