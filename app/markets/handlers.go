package markets

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joefazee/marketcore/app/api"
	"github.com/joefazee/marketcore/internal/sanitizer"
	"github.com/joefazee/marketcore/internal/validator"
)

// Handler handles HTTP requests for markets
type Handler struct {
	service   Service
	sanitizer sanitizer.HTMLStripperer
}

// NewHandler creates a new market handler
func NewHandler(service Service, stripper sanitizer.HTMLStripperer) *Handler {
	if stripper == nil {
		stripper = sanitizer.NewHTMLStripper()
	}
	return &Handler{
		service:   service,
		sanitizer: stripper,
	}
}

// parseUUIDFromParam extracts and validates UUID from path parameter
func (h *Handler) parseUUIDFromParam(c *gin.Context, paramName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(paramName))
	if err != nil {
		api.BadRequestResponse(c, "Invalid "+paramName+" format")
		return uuid.Nil, false
	}
	return id, true
}

// ListMarkets godoc
// @Summary List prediction markets
// @Tags markets
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by market status" Enums(open,closed,resolved,cancelled)
// @Param type query string false "Filter by market type" Enums(binary,multiple,range)
// @Param search query string false "Search in title and description"
// @Param sort_by query string false "Sort field" Enums(created_at,end_date,total_volume,title) default(created_at)
// @Param sort_order query string false "Sort direction" Enums(asc,desc) default(desc)
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} api.Response{data=[]models.Market}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/markets [get]
func (h *Handler) ListMarkets(c *gin.Context) {
	var filters MarketFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}

	v := validator.New()
	if filters.SanitizeAndValidate(v, h.sanitizer); !v.Valid() {
		api.ValidationErrorResponse(c, v.Errors)
		return
	}

	markets, total, err := h.service.ListMarkets(c.Request.Context(), &filters)
	if err != nil {
		api.DomainErrorResponse(c, err, "Markets")
		return
	}

	api.PaginatedResponse(c, "Markets retrieved successfully", markets,
		api.NewPaginationMeta(filters.Page, filters.PerPage, total))
}

// GetMarket godoc
// @Summary Get a market
// @Tags markets
// @Produce json
// @Security BearerAuth
// @Param id path string true "Market ID"
// @Success 200 {object} api.Response{data=models.Market}
// @Failure 404 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/markets/{id} [get]
func (h *Handler) GetMarket(c *gin.Context) {
	id, ok := h.parseUUIDFromParam(c, "id")
	if !ok {
		return
	}

	market, err := h.service.GetMarket(c.Request.Context(), id)
	if err != nil {
		api.DomainErrorResponse(c, err, "Market")
		return
	}

	api.SuccessResponse(c, http.StatusOK, "Market retrieved successfully", market)
}

// GetPrices returns the raw price vector and a normalized display copy.
func (h *Handler) GetPrices(c *gin.Context) {
	id, ok := h.parseUUIDFromParam(c, "id")
	if !ok {
		return
	}

	pv, err := h.service.GetPriceVector(c.Request.Context(), id)
	if err != nil {
		api.DomainErrorResponse(c, err, "Market")
		return
	}

	api.SuccessResponse(c, http.StatusOK, "Prices retrieved successfully", NewPriceView(id, pv))
}

// CreateMarket godoc
// @Summary Create a market
// @Tags markets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateMarketRequest true "Market"
// @Success 201 {object} api.Response{data=models.Market}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 403 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/markets [post]
func (h *Handler) CreateMarket(c *gin.Context) {
	var req CreateMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}

	v := validator.New()
	if req.SanitizeAndValidate(v, h.sanitizer); !v.Valid() {
		api.ValidationErrorResponse(c, v.Errors)
		return
	}

	market, err := h.service.CreateMarket(c.Request.Context(), &req)
	if err != nil {
		api.DomainErrorResponse(c, err, "Market")
		return
	}

	api.CreatedResponse(c, "Market created successfully", market)
}

func (h *Handler) CloseMarket(c *gin.Context) {
	id, ok := h.parseUUIDFromParam(c, "id")
	if !ok {
		return
	}

	market, err := h.service.CloseMarket(c.Request.Context(), id)
	if err != nil {
		api.DomainErrorResponse(c, err, "Market")
		return
	}

	api.SuccessResponse(c, http.StatusOK, "Market closed successfully", market)
}
