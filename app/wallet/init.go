package wallet

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/app/api"
	"github.com/joefazee/marketcore/internal/clock"
	"github.com/joefazee/marketcore/internal/coordinator"
	"github.com/joefazee/marketcore/internal/events"
	"github.com/joefazee/marketcore/internal/logger"
	"github.com/joefazee/marketcore/internal/sanitizer"
)

// Dependencies represents the dependencies needed for the wallet module
type Dependencies struct {
	DB          *gorm.DB
	Sanitizer   sanitizer.HTMLStripperer
	Coordinator *coordinator.Coordinator
	Events      events.Emitter
	Clock       clock.Clock
	Logger      logger.Logger
}

// Build wires the wallet service without mounting routes.
func Build(deps Dependencies) Service {
	return NewService(ServiceOptions{
		DB:          deps.DB,
		Repo:        NewRepository(deps.DB),
		Coordinator: deps.Coordinator,
		Events:      deps.Events,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	})
}

// Init mounts the caller's wallet routes and the operator account routes.
func Init(r *gin.RouterGroup, deps Dependencies) Service {
	srv := Build(deps)
	handler := NewHandler(srv, deps.Sanitizer)

	walletGroup := r.Group("/wallet")
	walletGroup.GET("", handler.GetMyAccount)
	walletGroup.GET("/ledger", handler.GetMyLedger)
	walletGroup.GET("/audit", handler.AuditMyAccount)

	accountsGroup := r.Group("/accounts", api.Can(api.PermissionAccountsWrite))
	accountsGroup.POST("", handler.OpenAccount)
	accountsGroup.POST("/:id/adjust", handler.AdjustBalance)
	accountsGroup.GET("/:id/audit", handler.AuditAccount)

	return srv
}
