package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appcatalog "github.com/medipos/backend/internal/application/catalog"
	appledger "github.com/medipos/backend/internal/application/ledger"
	appsales "github.com/medipos/backend/internal/application/sales"
	"github.com/medipos/backend/internal/domain/catalog"
	"github.com/medipos/backend/internal/domain/ledger"
	"github.com/medipos/backend/internal/domain/sales"
	"github.com/medipos/backend/internal/infrastructure/persistence"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestRouter wires the handlers against an in-memory SQLite database
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&catalog.Product{},
		&ledger.StockBatch{},
		&ledger.AuditEntry{},
		&sales.Sale{},
		&sales.SaleItem{},
	))

	scope := persistence.NewGormTransactionScope(db)
	productRepo := persistence.NewGormProductRepository(db)
	batchRepo := persistence.NewGormStockBatchRepository(db)
	auditRepo := persistence.NewGormAuditEntryRepository(db)
	saleRepo := persistence.NewGormSaleRepository(db)

	productSvc := appcatalog.NewProductService(productRepo)
	ledgerSvc := appledger.NewLedgerService(scope, batchRepo, auditRepo)
	saleSvc := appsales.NewSaleService(scope, saleRepo)

	router := gin.New()
	api := router.Group("/api/v1")
	NewProductHandler(productSvc).RegisterRoutes(api)
	NewLedgerHandler(ledgerSvc).RegisterRoutes(api)
	NewSaleHandler(saleSvc).RegisterRoutes(api)
	NewSystemHandler(nil).RegisterRoutes(api)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func createProductHTTP(t *testing.T, router *gin.Engine, code string) string {
	t.Helper()
	w := doJSON(t, router, "POST", "/api/v1/products", gin.H{
		"code":       code,
		"name":       code + " test product",
		"unit_price": "2.50",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &created))
	return created.ID
}

func receiveBatchHTTP(t *testing.T, router *gin.Engine, productID string, qty int64, expiry *time.Time) string {
	t.Helper()
	body := gin.H{"product_id": productID, "quantity": qty}
	if expiry != nil {
		body["expiry_date"] = expiry.Format(time.RFC3339)
	}
	w := doJSON(t, router, "POST", "/api/v1/batches", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &created))
	return created.ID
}

func TestProductHandler_CreateAndGet(t *testing.T) {
	router := newTestRouter(t)

	id := createProductHTTP(t, router, "AMOX-500")

	w := doJSON(t, router, "GET", "/api/v1/products/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "AMOX-500")

	w = doJSON(t, router, "GET", "/api/v1/products/code/AMOX-500", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProductHandler_DuplicateCode(t *testing.T) {
	router := newTestRouter(t)
	createProductHTTP(t, router, "AMOX-500")

	w := doJSON(t, router, "POST", "/api/v1/products", gin.H{
		"code":       "AMOX-500",
		"name":       "duplicate",
		"unit_price": "1.00",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProductHandler_ValidationFailure(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, "POST", "/api/v1/products", gin.H{"name": "no code"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ERR_VALIDATION", env.Error.Code)
}

func TestProductHandler_NotFound(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, "GET", "/api/v1/products/8e1c0c0a-9d0e-4f57-b2d4-3a9be6e1a111", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ERR_NOT_FOUND", env.Error.Code)
}

func TestProductHandler_ListWithMeta(t *testing.T) {
	router := newTestRouter(t)
	createProductHTTP(t, router, "AMOX-500")
	createProductHTTP(t, router, "IBU-400")

	w := doJSON(t, router, "GET", "/api/v1/products?page=1&page_size=10", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(2), env.Meta.Total)
}

func TestLedgerHandler_CreateBatchAndListByProduct(t *testing.T) {
	router := newTestRouter(t)
	productID := createProductHTTP(t, router, "AMOX-500")

	receiveBatchHTTP(t, router, productID, 10, nil)
	receiveBatchHTTP(t, router, productID, 20, nil)

	w := doJSON(t, router, "GET", "/api/v1/products/"+productID+"/batches", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var batches []appledger.BatchResponse
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &batches))
	assert.Len(t, batches, 2)
}

func TestLedgerHandler_ExpiringWindow(t *testing.T) {
	router := newTestRouter(t)
	productID := createProductHTTP(t, router, "AMOX-500")

	soon := time.Now().AddDate(0, 0, 5)
	far := time.Now().AddDate(0, 0, 120)
	receiveBatchHTTP(t, router, productID, 10, &soon)
	receiveBatchHTTP(t, router, productID, 10, &far)

	w := doJSON(t, router, "GET", "/api/v1/batches/expiring?within_days=30", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var batches []appledger.BatchResponse
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &batches))
	require.Len(t, batches, 1)

	w = doJSON(t, router, "GET", "/api/v1/batches/expiring?within_days=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedgerHandler_AuditTrailByProduct(t *testing.T) {
	router := newTestRouter(t)
	productID := createProductHTTP(t, router, "AMOX-500")
	receiveBatchHTTP(t, router, productID, 10, nil)

	w := doJSON(t, router, "GET", "/api/v1/products/"+productID+"/audit", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var entries []appledger.AuditEntryResponse
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, int64(10), entries[0].Delta)
}

func TestSaleHandler_CommitHappyPath(t *testing.T) {
	router := newTestRouter(t)
	productID := createProductHTTP(t, router, "AMOX-500")
	receiveBatchHTTP(t, router, productID, 10, nil)

	w := doJSON(t, router, "POST", "/api/v1/sales", gin.H{
		"items": []gin.H{{"product_id": productID, "quantity": 4}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sale appsales.SaleResponse
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &sale))
	assert.Equal(t, "completed", sale.Status)
	assert.NotEmpty(t, sale.SaleNumber)

	// the committed sale is retrievable by both ID and number
	w = doJSON(t, router, "GET", "/api/v1/sales/"+sale.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "GET", "/api/v1/sales/number/"+sale.SaleNumber, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// and left correlated audit entries
	w = doJSON(t, router, "GET", fmt.Sprintf("/api/v1/sales/%s/audit", sale.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var entries []appledger.AuditEntryResponse
	env = decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, int64(-4), entries[0].Delta)
}

func TestSaleHandler_InsufficientStockBody(t *testing.T) {
	router := newTestRouter(t)
	productID := createProductHTTP(t, router, "AMOX-500")
	receiveBatchHTTP(t, router, productID, 3, nil)

	w := doJSON(t, router, "POST", "/api/v1/sales", gin.H{
		"items": []gin.H{{"product_id": productID, "quantity": 8}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Success bool `json:"success"`
		Error   *struct {
			Code string `json:"code"`
		} `json:"error"`
		ProductID string `json:"product_id"`
		Available int64  `json:"available"`
		Requested int64  `json:"requested"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "ERR_INSUFFICIENT_STOCK", body.Error.Code)
	assert.Equal(t, productID, body.ProductID)
	assert.Equal(t, int64(3), body.Available)
	assert.Equal(t, int64(8), body.Requested)
}

func TestSaleHandler_CommitValidation(t *testing.T) {
	router := newTestRouter(t)

	// empty items list never reaches the service
	w := doJSON(t, router, "POST", "/api/v1/sales", gin.H{"items": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/sales", gin.H{
		"items":          []gin.H{{"product_id": "not-a-uuid", "quantity": 1}},
		"payment_method": "cash",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaleHandler_ReverseFlow(t *testing.T) {
	router := newTestRouter(t)
	productID := createProductHTTP(t, router, "AMOX-500")
	receiveBatchHTTP(t, router, productID, 10, nil)

	w := doJSON(t, router, "POST", "/api/v1/sales", gin.H{
		"items": []gin.H{{"product_id": productID, "quantity": 6}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var sale appsales.SaleResponse
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &sale))

	w = doJSON(t, router, "POST", fmt.Sprintf("/api/v1/sales/%s/reverse", sale.ID), gin.H{
		"reason": "customer returned unopened goods",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result appsales.ReversalResult
	env = decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 1, result.RestoredProducts)
	assert.Equal(t, int64(6), result.RestoredUnits)

	// reversing twice conflicts
	w = doJSON(t, router, "POST", fmt.Sprintf("/api/v1/sales/%s/reverse", sale.ID), gin.H{
		"reason": "again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	env = decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ERR_ALREADY_CANCELLED", env.Error.Code)
}

func TestSaleHandler_ReverseRequiresReason(t *testing.T) {
	router := newTestRouter(t)
	productID := createProductHTTP(t, router, "AMOX-500")
	receiveBatchHTTP(t, router, productID, 10, nil)

	w := doJSON(t, router, "POST", "/api/v1/sales", gin.H{
		"items": []gin.H{{"product_id": productID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var sale appsales.SaleResponse
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &sale))

	w = doJSON(t, router, "POST", fmt.Sprintf("/api/v1/sales/%s/reverse", sale.ID), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaleHandler_ListFilters(t *testing.T) {
	router := newTestRouter(t)
	productID := createProductHTTP(t, router, "AMOX-500")
	receiveBatchHTTP(t, router, productID, 20, nil)

	w := doJSON(t, router, "POST", "/api/v1/sales", gin.H{
		"items":          []gin.H{{"product_id": productID, "quantity": 1}},
		"payment_method": "cash",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/sales", gin.H{
		"items":          []gin.H{{"product_id": productID, "quantity": 2}},
		"payment_method": "card",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "GET", "/api/v1/sales?payment_method=card", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var list []appsales.SaleResponse
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "card", list[0].PaymentMethod)
}

func TestSystemHandler_PingAndHealth(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, "GET", "/api/v1/system/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")

	// nil db: healthy but reported as not configured
	w = doJSON(t, router, "GET", "/api/v1/system/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "not configured")
}
