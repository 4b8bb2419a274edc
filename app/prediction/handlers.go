package prediction

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/joefazee/marketcore/app/api"
	"github.com/joefazee/marketcore/app/markets"
	"github.com/joefazee/marketcore/internal/sanitizer"
	fieldcheck "github.com/joefazee/marketcore/internal/validator"
)

// Handler handles HTTP requests for betting operations
type Handler struct {
	service    Service
	settlement Settlement
	sanitizer  sanitizer.HTMLStripperer
}

// NewHandler creates a new betting handler
func NewHandler(service Service, settlement Settlement, stripper sanitizer.HTMLStripperer) *Handler {
	if stripper == nil {
		stripper = sanitizer.NewHTMLStripper()
	}
	return &Handler{
		service:    service,
		settlement: settlement,
		sanitizer:  stripper,
	}
}

// PlaceBet godoc
// @Summary Place a bet
// @Description Stake units on one option of an open market
// @Tags betting
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PlaceBetRequest true "Bet placement request"
// @Success 201 {object} api.Response{data=PlaceBetResult}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 401 {object} api.Response{error=api.ErrorInfo}
// @Failure 409 {object} api.Response{error=api.ErrorInfo}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Failure 429 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/bets [post]
func (h *Handler) PlaceBet(c *gin.Context) {
	userID := api.CurrentUserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	var req PlaceBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.ValidationErrorResponse(c, h.formatValidationErrors(err))
		return
	}

	v := fieldcheck.New()
	if req.SanitizeAndValidate(v, h.sanitizer); !v.Valid() {
		api.ValidationErrorResponse(c, v.Errors)
		return
	}

	result, err := h.service.PlaceBet(c.Request.Context(), userID, &req)
	if err != nil {
		api.DomainErrorResponse(c, err, "Market")
		return
	}

	api.CreatedResponse(c, "Bet placed successfully", result)
}

// GetBetQuote godoc
// @Summary Get bet quote
// @Description Price a stake without placing it
// @Tags betting
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body markets.QuoteRequest true "Bet quote request"
// @Success 200 {object} api.Response{data=markets.Quote}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 404 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/bets/quote [post]
func (h *Handler) GetBetQuote(c *gin.Context) {
	var req markets.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.ValidationErrorResponse(c, h.formatValidationErrors(err))
		return
	}
	req.Option = h.sanitizer.Text(req.Option)

	quote, err := h.service.Quote(c.Request.Context(), &req)
	if err != nil {
		api.DomainErrorResponse(c, err, "Market")
		return
	}

	api.SuccessResponse(c, http.StatusOK, "Quote calculated successfully", quote)
}

// GetMyBets godoc
// @Summary List my bets
// @Tags betting
// @Produce json
// @Security BearerAuth
// @Param market_id query string false "Filter by market"
// @Param status query string false "Filter by status" Enums(active,won,lost,refunded)
// @Param sort_by query string false "Sort field" Enums(created_at,amount,settled_at)
// @Param sort_order query string false "Sort direction" Enums(asc,desc)
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} api.Response{data=[]models.Bet}
// @Router /api/v1/bets [get]
func (h *Handler) GetMyBets(c *gin.Context) {
	userID := api.CurrentUserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	var filters BetFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	if raw := c.Query("market_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			api.BadRequestResponse(c, "Invalid market_id format")
			return
		}
		filters.MarketID = &id
	}

	v := fieldcheck.New()
	if filters.Validate(v); !v.Valid() {
		api.ValidationErrorResponse(c, v.Errors)
		return
	}

	bets, total, err := h.service.ListBets(c.Request.Context(), userID, &filters)
	if err != nil {
		api.DomainErrorResponse(c, err, "Bets")
		return
	}

	api.PaginatedResponse(c, "Bets retrieved successfully", bets,
		api.NewPaginationMeta(filters.Page, filters.PerPage, total))
}

func (h *Handler) GetBetByID(c *gin.Context) {
	userID := api.CurrentUserID(c)
	betID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	bet, err := h.service.GetBet(c.Request.Context(), userID, betID)
	if err != nil {
		api.DomainErrorResponse(c, err, "Bet")
		return
	}

	api.SuccessResponse(c, http.StatusOK, "Bet retrieved successfully", bet)
}

// CancelBet godoc
// @Summary Cancel a bet
// @Description Refund an active bet within the cancellation window
// @Tags betting
// @Produce json
// @Security BearerAuth
// @Param id path string true "Bet ID"
// @Success 200 {object} api.Response{data=models.Bet}
// @Failure 403 {object} api.Response{error=api.ErrorInfo}
// @Failure 404 {object} api.Response{error=api.ErrorInfo}
// @Failure 409 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/bets/{id}/cancel [post]
func (h *Handler) CancelBet(c *gin.Context) {
	userID := api.CurrentUserID(c)
	betID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	bet, err := h.service.CancelBet(c.Request.Context(), userID, betID)
	if err != nil {
		api.DomainErrorResponse(c, err, "Bet")
		return
	}

	api.SuccessResponse(c, http.StatusOK, "Bet cancelled successfully", bet)
}

// ResolveMarket godoc
// @Summary Resolve a market
// @Description Set the winning option and settle every active bet
// @Tags settlement
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Market ID"
// @Param request body ResolveRequest true "Winning option"
// @Success 200 {object} api.Response{data=ResolveResult}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 409 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/markets/{id}/resolve [post]
func (h *Handler) ResolveMarket(c *gin.Context) {
	marketID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.ValidationErrorResponse(c, h.formatValidationErrors(err))
		return
	}

	result, err := h.settlement.Resolve(c.Request.Context(), marketID, h.sanitizer.Text(req.Option))
	if err != nil {
		api.DomainErrorResponse(c, err, "Market")
		return
	}

	api.SuccessResponse(c, http.StatusOK, "Market resolved", result)
}

func (h *Handler) VoidMarket(c *gin.Context) {
	h.runSettlement(c, h.settlement.VoidMarket, "Market voided")
}

func (h *Handler) SettlePending(c *gin.Context) {
	h.runSettlement(c, h.settlement.SettlePending, "Pending bets settled")
}

func (h *Handler) runSettlement(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*ResolveResult, error), message string) {
	marketID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	result, err := op(c.Request.Context(), marketID)
	if err != nil {
		api.DomainErrorResponse(c, err, "Market")
		return
	}

	api.SuccessResponse(c, http.StatusOK, message, result)
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		api.BadRequestResponse(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) formatValidationErrors(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string)
		for _, fieldError := range validationErrors {
			fields[fieldError.Field()] = h.getValidationMessage(fieldError)
		}
		return fields
	}
	return err.Error()
}

func (h *Handler) getValidationMessage(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Value must be at least " + fieldError.Param()
	case "max":
		return "Value must be at most " + fieldError.Param()
	default:
		return "Invalid value"
	}
}
