package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/lotes-api/internal/middleware"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/sjperalta/lotes-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedClock = services.FixedClock{At: time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)}

// Fakes embed the interface so only the methods a test needs are implemented.

type fakeSaleService struct {
	SaleService
	createInput services.CreateSaleInput
	createActor services.Actor
	cancelled   string
	err         error
}

func (f *fakeSaleService) CreateSale(_ context.Context, input services.CreateSaleInput, actor services.Actor) (*models.Sale, error) {
	f.createInput = input
	f.createActor = actor
	if f.err != nil {
		return nil, f.err
	}
	return &models.Sale{ID: 42, LotID: input.LotID, CustomerID: input.CustomerID, Status: models.SaleStatusActive}, nil
}

func (f *fakeSaleService) CancelSale(_ context.Context, id uint, reason string, _ services.Actor) (*models.Sale, error) {
	f.cancelled = reason
	if f.err != nil {
		return nil, f.err
	}
	return &models.Sale{ID: id, Status: models.SaleStatusCancelled}, nil
}

func (f *fakeSaleService) ResumeSale(_ context.Context, id uint, _ services.Actor) (*models.Sale, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Sale{ID: id, Status: models.SaleStatusActive}, nil
}

func (f *fakeSaleService) ActiveSaleForLot(_ context.Context, _ uint) (*models.Sale, error) {
	return nil, fmt.Errorf("venta activa: %w", services.ErrNotFound)
}

func (f *fakeSaleService) Schedule(_ context.Context, saleID uint) ([]models.Installment, error) {
	return []models.Installment{
		{ID: 1, SaleID: saleID, InstallmentNumber: 1, ScheduledAmount: mustDec("500"), PaidAmount: mustDec("500"), Status: models.InstallmentStatusPaid},
		{ID: 2, SaleID: saleID, InstallmentNumber: 2, ScheduledAmount: mustDec("500"), Status: models.InstallmentStatusPending},
	}, nil
}

type fakeLotService struct {
	LotService
}

func (f *fakeLotService) GetLot(_ context.Context, id uint) (*models.Lot, error) {
	if id != 3 {
		return nil, fmt.Errorf("lote: %w", services.ErrNotFound)
	}
	return &models.Lot{ID: 3, Block: "A", LotNumber: "7", Status: models.LotStatusAvailable}, nil
}

type fakePaymentService struct {
	PaymentService
	input services.RegisterPaymentInput
	query *repository.PaymentQuery
	err   error
}

func (f *fakePaymentService) RegisterPayment(_ context.Context, installmentID uint, input services.RegisterPaymentInput, _ services.Actor) (*models.Installment, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return &models.Installment{ID: installmentID, PaidAmount: input.Amount, Status: models.InstallmentStatusPartial}, nil
}

func (f *fakePaymentService) ListPayments(_ context.Context, query *repository.PaymentQuery) ([]models.Payment, int64, error) {
	f.query = query
	return []models.Payment{{ID: 1, SaleID: query.SaleID, Amount: mustDec("100")}}, 1, nil
}

func mustDec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(), middleware.ActingUser())
	h.Register(router.Group("/api/v1"))
	return router
}

func newTestHandlers(sales *fakeSaleService, payments *fakePaymentService) *Handlers {
	return &Handlers{
		Health:      NewHealthHandler(),
		Lot:         NewLotHandler(&fakeLotService{}, sales),
		Sale:        NewSaleHandler(sales, nil, nil, payments, fixedClock),
		Installment: NewInstallmentHandler(nil, payments, fixedClock),
		Payment:     NewPaymentHandler(payments),
	}
}

func doJSON(router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body == "" {
		reader = &bytes.Buffer{}
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSaleHandler_Create(t *testing.T) {
	sales := &fakeSaleService{}
	router := newTestRouter(newTestHandlers(sales, &fakePaymentService{}))

	w := doJSON(router, http.MethodPost, "/api/v1/sales",
		`{"sale": {"lot_id": 3, "customer_id": 9, "sale_price": "12000", "initial_payment": 2000,
		  "financing_months": 10, "payment_day": 15, "schedule_start_date": "2024-02-01"}}`,
		map[string]string{middleware.UserIDHeader: "7"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, uint(3), sales.createInput.LotID)
	assert.Equal(t, "12000", sales.createInput.SalePrice.String())
	assert.Equal(t, "2000", sales.createInput.InitialPayment.String())
	require.NotNil(t, sales.createInput.ScheduleStartDate)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), *sales.createInput.ScheduleStartDate)
	assert.Nil(t, sales.createInput.SaleDate)
	assert.Equal(t, uint(7), sales.createActor.UserID)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	sale := decodeBody(t, w)["sale"].(map[string]any)
	assert.Equal(t, float64(42), sale["id"])
}

func TestSaleHandler_CreateRejectsBadInput(t *testing.T) {
	sales := &fakeSaleService{}
	router := newTestRouter(newTestHandlers(sales, &fakePaymentService{}))

	w := doJSON(router, http.MethodPost, "/api/v1/sales", `{"lot_id": 3, "sale_date": "01/02/2024"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "sale_date")
	assert.Zero(t, sales.createInput.LotID, "service must not be called")

	w = doJSON(router, http.MethodPost, "/api/v1/sales", `{"lot_id": 3}`, map[string]string{middleware.UserIDHeader: "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaleHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"lot taken", fmt.Errorf("venta: %w", services.ErrLotUnavailable), http.StatusConflict},
		{"validation", fmt.Errorf("%w: precio", services.ErrValidation), http.StatusBadRequest},
		{"missing", fmt.Errorf("lote: %w", services.ErrNotFound), http.StatusNotFound},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(newTestHandlers(&fakeSaleService{err: tt.err}, &fakePaymentService{}))
			w := doJSON(router, http.MethodPost, "/api/v1/sales", `{"lot_id": 1, "customer_id": 1}`, nil)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "connection reset")
			}
		})
	}
}

func TestSaleHandler_Transitions(t *testing.T) {
	sales := &fakeSaleService{}
	router := newTestRouter(newTestHandlers(sales, &fakePaymentService{}))

	w := doJSON(router, http.MethodPost, "/api/v1/sales/5/cancel", `{"reason": "desistimiento"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "desistimiento", sales.cancelled)

	w = doJSON(router, http.MethodPost, "/api/v1/sales/5/resume", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sale := decodeBody(t, w)["sale"].(map[string]any)
	assert.Equal(t, models.SaleStatusActive, sale["status"])

	w = doJSON(router, http.MethodPost, "/api/v1/sales/x/resume", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaleHandler_Schedule(t *testing.T) {
	router := newTestRouter(newTestHandlers(&fakeSaleService{}, &fakePaymentService{}))

	w := doJSON(router, http.MethodGet, "/api/v1/sales/5/schedule", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["installments"], 2)
	plan := body["plan"].(map[string]any)
	assert.Equal(t, float64(2), plan["total"])
	assert.Equal(t, float64(1), plan["paid"])
}

func TestLotHandler_Show(t *testing.T) {
	router := newTestRouter(newTestHandlers(&fakeSaleService{}, &fakePaymentService{}))

	w := doJSON(router, http.MethodGet, "/api/v1/lots/3", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Nil(t, body["active_sale"])
	assert.Equal(t, "Manzana A, Lote 7", body["lot"].(map[string]any)["display"])

	w = doJSON(router, http.MethodGet, "/api/v1/lots/4", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInstallmentHandler_RegisterPayment(t *testing.T) {
	payments := &fakePaymentService{}
	router := newTestRouter(newTestHandlers(&fakeSaleService{}, payments))

	w := doJSON(router, http.MethodPost, "/api/v1/installments/11/payments",
		`{"amount": 250.5, "payment_date": "2024-02-20", "method": "efectivo", "receipt_number": "R-9"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "250.5", payments.input.Amount.String())
	assert.Equal(t, "R-9", payments.input.ReceiptNumber)
	require.NotNil(t, payments.input.PaymentDate)
	assert.Equal(t, 20, payments.input.PaymentDate.Day())

	payments.err = fmt.Errorf("cuota #2: %w", services.ErrInstallmentForgiven)
	w = doJSON(router, http.MethodPost, "/api/v1/installments/11/payments", `{"amount": 10}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "condonada")
}

func TestPaymentHandler_IndexFilters(t *testing.T) {
	payments := &fakePaymentService{}
	router := newTestRouter(newTestHandlers(&fakeSaleService{}, payments))

	w := doJSON(router, http.MethodGet, "/api/v1/payments?sale_id=5&type=initial&start_date=2024-01-01&per_page=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(5), payments.query.SaleID)
	assert.Equal(t, models.PaymentTypeInitial, payments.query.PaymentType)
	require.NotNil(t, payments.query.From)
	assert.Nil(t, payments.query.To)
	assert.Equal(t, 5, payments.query.PerPage)

	pagination := decodeBody(t, w)["pagination"].(map[string]any)
	assert.Equal(t, float64(1), pagination["total_pages"])

	w = doJSON(router, http.MethodGet, "/api/v1/payments?end_date=ayer", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(fmt.Errorf("x: %w", services.ErrPlanIncomplete)))
	assert.Equal(t, http.StatusBadRequest, statusFor(services.ErrInitialPaymentExceeded))
	assert.Equal(t, http.StatusBadRequest, statusFor(services.ErrPaymentMismatch))
	assert.Equal(t, http.StatusConflict, statusFor(services.ErrScheduleHasPayments))
	assert.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("venta: %w", services.ErrNotFound)))
}
