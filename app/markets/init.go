package markets

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/app/api"
	"github.com/joefazee/marketcore/internal/cache"
	"github.com/joefazee/marketcore/internal/clock"
	"github.com/joefazee/marketcore/internal/coordinator"
	"github.com/joefazee/marketcore/internal/events"
	"github.com/joefazee/marketcore/internal/logger"
	"github.com/joefazee/marketcore/internal/sanitizer"
	"github.com/joefazee/marketcore/models"
)

// Dependencies represents the dependencies needed for the markets module
type Dependencies struct {
	DB          *gorm.DB
	Config      *Config
	Sanitizer   sanitizer.HTMLStripperer
	PriceStore  cache.Cache[models.PriceVector]
	Coordinator *coordinator.Coordinator
	Events      events.Emitter
	Clock       clock.Clock
	Logger      logger.Logger
}

// Build wires the market service without mounting routes.
func Build(deps Dependencies) Service {
	config := deps.Config
	if config == nil {
		config = GetDefaultConfig()
	}

	if err := config.Validate(); err != nil {
		panic("Invalid markets configuration: " + err.Error())
	}

	return NewService(ServiceOptions{
		DB:          deps.DB,
		Repo:        NewRepository(deps.DB),
		Config:      config,
		Engine:      NewPricingEngine(),
		Prices:      NewPriceCache(deps.PriceStore, config.PriceCacheTTL, deps.Logger),
		Coordinator: deps.Coordinator,
		Events:      deps.Events,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	})
}

// Init initializes the markets module, mounts routes and returns the
// service for modules that depend on it.
func Init(r *gin.RouterGroup, deps Dependencies) Service {
	srvs := Build(deps)
	handler := NewHandler(srvs, deps.Sanitizer)

	marketsGroup := r.Group("/markets")
	marketsGroup.GET("", handler.ListMarkets)
	marketsGroup.GET("/:id", handler.GetMarket)
	marketsGroup.GET("/:id/prices", handler.GetPrices)
	marketsGroup.POST("", api.Can(api.PermissionMarketsWrite), handler.CreateMarket)
	marketsGroup.POST("/:id/close", api.Can(api.PermissionMarketsWrite), handler.CloseMarket)

	return srvs
}
