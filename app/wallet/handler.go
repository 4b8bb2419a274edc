package wallet

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joefazee/marketcore/app/api"
	"github.com/joefazee/marketcore/app/ledger"
	"github.com/joefazee/marketcore/internal/sanitizer"
	"github.com/joefazee/marketcore/internal/validator"
)

type Handler struct {
	service   Service
	sanitizer sanitizer.HTMLStripperer
}

func NewHandler(service Service, stripper sanitizer.HTMLStripperer) *Handler {
	if stripper == nil {
		stripper = sanitizer.NewHTMLStripper()
	}
	return &Handler{service: service, sanitizer: stripper}
}

// GetMyAccount godoc
// @Summary Get my account
// @Description Balance and settlement counters of the caller
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} api.Response{data=AccountView}
// @Failure 401 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/wallet [get]
func (h *Handler) GetMyAccount(c *gin.Context) {
	userID := api.CurrentUserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	account, err := h.service.GetAccount(c.Request.Context(), userID)
	if err != nil {
		api.DomainErrorResponse(c, err, "Account")
		return
	}

	api.SuccessResponse(c, http.StatusOK, "Account retrieved successfully", account)
}

// GetMyLedger godoc
// @Summary List my ledger entries
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Param reason query string false "Filter by reason" Enums(bet,refund,win,loss,grant,adjustment)
// @Param market_id query string false "Filter by market"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} api.Response{data=[]models.LedgerEntry}
// @Router /api/v1/wallet/ledger [get]
func (h *Handler) GetMyLedger(c *gin.Context) {
	userID := api.CurrentUserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	var filters ledger.EntryFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	if filters.Reason != "" && !filters.Reason.IsValid() {
		api.BadRequestResponse(c, "Invalid reason")
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

	entries, total, err := h.service.GetLedger(c.Request.Context(), userID, &filters)
	if err != nil {
		api.DomainErrorResponse(c, err, "Account")
		return
	}

	api.PaginatedResponse(c, "Ledger retrieved successfully", entries,
		api.NewPaginationMeta(filters.Page, filters.PerPage, total))
}

func (h *Handler) AuditMyAccount(c *gin.Context) {
	userID := api.CurrentUserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}
	h.audit(c, userID)
}

// OpenAccount godoc
// @Summary Open an account
// @Description Create a user with an opening grant
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body OpenAccountRequest true "Account request"
// @Success 201 {object} api.Response{data=OperationResponse}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 403 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/accounts [post]
func (h *Handler) OpenAccount(c *gin.Context) {
	var req OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}

	v := validator.New()
	if req.SanitizeAndValidate(v, h.sanitizer); !v.Valid() {
		api.ValidationErrorResponse(c, v.Errors)
		return
	}

	result, err := h.service.OpenAccount(c.Request.Context(), &req)
	if err != nil {
		api.DomainErrorResponse(c, err, "Account")
		return
	}

	api.CreatedResponse(c, "Account opened successfully", result)
}

// AdjustBalance godoc
// @Summary Adjust a balance
// @Description Post an operator correction to the ledger
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body AdjustBalanceRequest true "Adjustment"
// @Success 200 {object} api.Response{data=OperationResponse}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 404 {object} api.Response{error=api.ErrorInfo}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/accounts/{id}/adjust [post]
func (h *Handler) AdjustBalance(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		api.BadRequestResponse(c, "Invalid user ID format")
		return
	}

	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}

	v := validator.New()
	if req.SanitizeAndValidate(v, h.sanitizer); !v.Valid() {
		api.ValidationErrorResponse(c, v.Errors)
		return
	}

	result, err := h.service.AdjustBalance(c.Request.Context(), userID, &req)
	if err != nil {
		api.DomainErrorResponse(c, err, "Account")
		return
	}

	api.SuccessResponse(c, http.StatusOK, "Balance adjusted successfully", result)
}

func (h *Handler) AuditAccount(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		api.BadRequestResponse(c, "Invalid user ID format")
		return
	}
	h.audit(c, userID)
}

func (h *Handler) audit(c *gin.Context, userID uuid.UUID) {
	report, err := h.service.Audit(c.Request.Context(), userID)
	if err != nil {
		api.DomainErrorResponse(c, err, "Account")
		return
	}

	api.SuccessResponse(c, http.StatusOK, "Audit completed", report)
}
