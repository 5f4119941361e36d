package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	ledgerapp "github.com/medipos/backend/internal/application/ledger"
	"github.com/medipos/backend/internal/interfaces/http/middleware"
)

// LedgerHandler handles stock batch and audit trail endpoints
type LedgerHandler struct {
	BaseHandler
	ledgerService *ledgerapp.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *ledgerapp.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
	}
}

// RegisterRoutes registers batch and audit routes on the given group
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	batches := rg.Group("/batches")
	{
		batches.POST("", h.CreateBatch)
		batches.GET("/expiring", h.ListExpiring)
		batches.GET("/:id", h.GetBatch)
	}

	products := rg.Group("/products")
	{
		products.GET("/:id/batches", h.ListBatchesByProduct)
		products.GET("/:id/audit", h.GetAuditTrailByProduct)
	}

	rg.GET("/sales/:id/audit", h.GetAuditTrailBySale)
}

// CreateBatch receives a delivery into stock
func (h *LedgerHandler) CreateBatch(c *gin.Context) {
	var req ledgerapp.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	req.ActorID = getActorID(c)

	batch, err := h.ledgerService.CreateBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, batch)
}

// GetBatch returns a single batch by ID
func (h *LedgerHandler) GetBatch(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid batch ID")
		return
	}

	batch, err := h.ledgerService.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, batch)
}

// ListBatchesByProduct returns all batches of a product in deduction order,
// depleted ones included
func (h *LedgerHandler) ListBatchesByProduct(c *gin.Context) {
	productID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	batches, err := h.ledgerService.ListBatchesByProduct(c.Request.Context(), productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, batches)
}

// ListExpiring returns batches with stock left expiring within the given
// number of days. Defaults to 30 days.
func (h *LedgerHandler) ListExpiring(c *gin.Context) {
	withinDays := 30
	if raw := c.Query("within_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.BadRequest(c, "within_days must be a positive integer")
			return
		}
		withinDays = parsed
	}

	filter, err := buildFilter(c)
	if err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	batches, err := h.ledgerService.ListExpiring(c.Request.Context(), withinDays, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, batches)
}

// GetAuditTrailByProduct returns a product's audit entries in chronological order
func (h *LedgerHandler) GetAuditTrailByProduct(c *gin.Context) {
	productID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	filter, err := buildFilter(c)
	if err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	entries, err := h.ledgerService.GetAuditTrailByProduct(c.Request.Context(), productID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, entries)
}

// GetAuditTrailBySale returns the audit entries correlated to a sale,
// its deductions and any later reversal together
func (h *LedgerHandler) GetAuditTrailBySale(c *gin.Context) {
	saleID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid sale ID")
		return
	}

	entries, err := h.ledgerService.GetAuditTrailBySale(c.Request.Context(), saleID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, entries)
}
