package handler

import (
	"github.com/gin-gonic/gin"

	salesapp "github.com/medipos/backend/internal/application/sales"
	"github.com/medipos/backend/internal/infrastructure/telemetry"
	"github.com/medipos/backend/internal/interfaces/http/middleware"
)

// SaleHandler handles sale commit, reversal and lookup endpoints
type SaleHandler struct {
	BaseHandler
	saleService *salesapp.SaleService
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(saleService *salesapp.SaleService) *SaleHandler {
	return &SaleHandler{
		saleService: saleService,
	}
}

// RegisterRoutes registers sale routes on the given group
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sales := rg.Group("/sales")
	{
		sales.POST("", h.Commit)
		sales.GET("", h.List)
		sales.GET("/number/:number", h.GetByNumber)
		sales.GET("/:id", h.GetByID)
		sales.POST("/:id/reverse", h.Reverse)
	}
}

// Commit runs the sale commit transaction: validates lines, allocates stock
// and writes the sale with its audit entries atomically
func (h *SaleHandler) Commit(c *gin.Context) {
	var req salesapp.CommitSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	req.ActorID = getActorID(c)
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	ctx, span := telemetry.StartServiceSpan(c.Request.Context(), "sale", "commit")
	defer span.End()

	sale, err := h.saleService.CommitSale(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		h.HandleDomainError(c, err)
		return
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, sale.ID.String(),
		telemetry.SpanAttrSaleNumber, sale.SaleNumber,
	)
	h.Created(c, sale)
}

// Reverse refunds a completed sale, restoring stock to its batches
func (h *SaleHandler) Reverse(c *gin.Context) {
	saleID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid sale ID")
		return
	}

	var req salesapp.ReverseSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	req.ActorID = getActorID(c)

	ctx, span := telemetry.StartServiceSpan(c.Request.Context(), "sale", "reverse")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrSaleID, saleID.String())

	result, err := h.saleService.ReverseSale(ctx, saleID, req)
	if err != nil {
		telemetry.RecordError(span, err)
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// GetByID returns a sale with its line items
func (h *SaleHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid sale ID")
		return
	}

	sale, err := h.saleService.GetSale(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, sale)
}

// GetByNumber returns a sale by its human-readable sale number
func (h *SaleHandler) GetByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		h.BadRequest(c, "Missing sale number")
		return
	}

	sale, err := h.saleService.GetSaleByNumber(c.Request.Context(), number)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, sale)
}

// List returns sales matching the query filter
func (h *SaleHandler) List(c *gin.Context) {
	filter, err := buildFilter(c)
	if err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}
	if method := c.Query("payment_method"); method != "" {
		filter.Filters["payment_method"] = method
	}

	sales, total, err := h.saleService.ListSales(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, sales, total, filter.Page, filter.PageSize)
}
