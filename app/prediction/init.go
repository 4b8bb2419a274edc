package prediction

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/app/api"
	"github.com/joefazee/marketcore/app/ledger"
	"github.com/joefazee/marketcore/app/markets"
	"github.com/joefazee/marketcore/internal/clock"
	"github.com/joefazee/marketcore/internal/coordinator"
	"github.com/joefazee/marketcore/internal/events"
	"github.com/joefazee/marketcore/internal/logger"
	"github.com/joefazee/marketcore/internal/sanitizer"
)

// Dependencies represent the dependencies needed for the prediction module
type Dependencies struct {
	DB          *gorm.DB
	Config      *Config
	Markets     markets.Service
	Sanitizer   sanitizer.HTMLStripperer
	Coordinator *coordinator.Coordinator
	Events      events.Emitter
	Clock       clock.Clock
	Logger      logger.Logger
}

// Build wires the bet lifecycle and the settlement orchestrator over one
// set of collaborators.
func Build(deps Dependencies) (Service, Settlement, RiskEngine) {
	if deps.Config == nil {
		deps.Config = GetDefaultConfig()
	}
	if err := deps.Config.Validate(); err != nil {
		panic("Invalid prediction configuration: " + err.Error())
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	opts := ServiceOptions{
		DB:          deps.DB,
		Repo:        NewRepository(deps.DB),
		MarketRepo:  markets.NewRepository(deps.DB),
		Markets:     deps.Markets,
		Engine:      markets.NewPricingEngine(),
		Book:        ledger.NewBook(ledger.NewRepository(deps.DB), deps.Clock),
		Risk:        NewRiskEngine(deps.Config, deps.Clock),
		Config:      deps.Config,
		Coordinator: deps.Coordinator,
		Events:      deps.Events,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}
	return NewService(opts), NewSettlement(opts), opts.Risk
}

// Init mounts the betting and settlement routes.
func Init(r *gin.RouterGroup, deps Dependencies) (Service, Settlement, RiskEngine) {
	srvs, settlement, risk := Build(deps)
	handler := NewHandler(srvs, settlement, deps.Sanitizer)

	bettingGroup := r.Group("/bets")
	bettingGroup.POST("", handler.PlaceBet)
	bettingGroup.GET("", handler.GetMyBets)
	bettingGroup.POST("/quote", handler.GetBetQuote)
	bettingGroup.GET("/:id", handler.GetBetByID)
	bettingGroup.POST("/:id/cancel", handler.CancelBet)

	settle := r.Group("/markets", api.Can(api.PermissionMarketsSettle))
	settle.POST("/:id/resolve", handler.ResolveMarket)
	settle.POST("/:id/void", handler.VoidMarket)
	settle.POST("/:id/settle-pending", handler.SettlePending)

	return srvs, settlement, risk
}
