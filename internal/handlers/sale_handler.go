package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/sjperalta/lotes-api/internal/services"
)

type SaleHandler struct {
	saleService        SaleService
	scheduleService    ScheduleService
	installmentService InstallmentService
	paymentService     PaymentService
	clock              services.Clock
}

func NewSaleHandler(saleService SaleService, scheduleService ScheduleService, installmentService InstallmentService, paymentService PaymentService, clock services.Clock) *SaleHandler {
	return &SaleHandler{
		saleService:        saleService,
		scheduleService:    scheduleService,
		installmentService: installmentService,
		paymentService:     paymentService,
		clock:              clock,
	}
}

// @Summary List Sales
// @Tags Sales
// @Produce json
// @Param status query string false "active, cancelled, completed or suspended"
// @Param lot_id query int false "Lot ID"
// @Param customer_id query int false "Customer ID"
// @Param search_term query string false "Search by reference, customer or lot"
// @Success 200 {object} map[string]interface{}
// @Router /sales [get]
func (h *SaleHandler) Index(c *gin.Context) {
	query := &repository.SaleQuery{
		ListQuery:  listQuery(c),
		Status:     c.Query("status"),
		LotID:      queryID(c, "lot_id"),
		CustomerID: queryID(c, "customer_id"),
	}
	sales, total, err := h.saleService.ListSales(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": saleResponses(sales), "pagination": pagination(query.ListQuery, total)})
}

// @Summary Create Sale
// @Description Opens a sale on an available lot and generates its installment schedule
// @Tags Sales
// @Accept json
// @Produce json
// @Param request body createSaleRequest true "Sale"
// @Success 201 {object} models.SaleResponse
// @Failure 409 {object} map[string]string "Lot not available"
// @Router /sales [post]
func (h *SaleHandler) Create(c *gin.Context) {
	var req createSaleRequest
	if err := BindNestedOrFlat(c, "sale", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	input, err := req.input()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	sale, err := h.saleService.CreateSale(c.Request.Context(), input, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sale": sale.ToResponse()})
}

func (h *SaleHandler) Show(c *gin.Context) {
	id, ok := parseID(c, "sale_id")
	if !ok {
		return
	}
	sale, err := h.saleService.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sale": sale.ToResponse()})
}

// @Summary Update Sale Terms
// @Description Changes price, initial payment, term, payment day or start date of an active sale
// @Tags Sales
// @Accept json
// @Produce json
// @Param sale_id path int true "Sale ID"
// @Param request body updateTermsRequest true "Terms"
// @Success 200 {object} models.SaleResponse
// @Router /sales/{sale_id}/terms [patch]
func (h *SaleHandler) UpdateTerms(c *gin.Context) {
	id, ok := parseID(c, "sale_id")
	if !ok {
		return
	}
	var req updateTermsRequest
	if err := BindNestedOrFlat(c, "sale", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	input, err := req.input()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	sale, err := h.saleService.UpdateTerms(c.Request.Context(), id, input, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sale": sale.ToResponse()})
}

func (h *SaleHandler) Cancel(c *gin.Context) {
	h.transition(c, func(ctx context.Context, id uint, req notesRequest, actor services.Actor) (*models.Sale, error) {
		reason := req.Reason
		if reason == "" {
			reason = req.Notes
		}
		return h.saleService.CancelSale(ctx, id, reason, actor)
	})
}

func (h *SaleHandler) Complete(c *gin.Context) {
	h.transition(c, func(ctx context.Context, id uint, req notesRequest, actor services.Actor) (*models.Sale, error) {
		return h.saleService.CompleteSale(ctx, id, req.Notes, actor)
	})
}

func (h *SaleHandler) Suspend(c *gin.Context) {
	h.transition(c, func(ctx context.Context, id uint, req notesRequest, actor services.Actor) (*models.Sale, error) {
		return h.saleService.SuspendSale(ctx, id, req.Notes, actor)
	})
}

func (h *SaleHandler) Resume(c *gin.Context) {
	h.transition(c, func(ctx context.Context, id uint, _ notesRequest, actor services.Actor) (*models.Sale, error) {
		return h.saleService.ResumeSale(ctx, id, actor)
	})
}

type transitionFunc func(ctx context.Context, id uint, req notesRequest, actor services.Actor) (*models.Sale, error)

func (h *SaleHandler) transition(c *gin.Context, fn transitionFunc) {
	id, ok := parseID(c, "sale_id")
	if !ok {
		return
	}
	var req notesRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err.Error())
		return
	}

	sale, err := fn(c.Request.Context(), id, req, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sale": sale.ToResponse()})
}

// InitialPayment records one payment toward the initial payment
func (h *SaleHandler) InitialPayment(c *gin.Context) {
	id, ok := parseID(c, "sale_id")
	if !ok {
		return
	}
	var req paymentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	input, err := req.input()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	payment, err := h.paymentService.RegisterInitialPayment(c.Request.Context(), id, services.InitialPaymentInput(input), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": payment.ToResponse()})
}

// @Summary Sale Schedule
// @Description Installments of a sale in order, with the plan summary
// @Tags Sales
// @Produce json
// @Param sale_id path int true "Sale ID"
// @Success 200 {object} map[string]interface{}
// @Router /sales/{sale_id}/schedule [get]
func (h *SaleHandler) Schedule(c *gin.Context) {
	id, ok := parseID(c, "sale_id")
	if !ok {
		return
	}
	installments, err := h.saleService.Schedule(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"installments": installmentResponses(installments, h.clock),
		"plan":         services.ComputePlanStatus(installments),
	})
}

func (h *SaleHandler) Plan(c *gin.Context) {
	id, ok := parseID(c, "sale_id")
	if !ok {
		return
	}
	plan, err := h.saleService.PlanStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

func (h *SaleHandler) Ledger(c *gin.Context) {
	id, ok := parseID(c, "sale_id")
	if !ok {
		return
	}
	ledger, err := h.saleService.Ledger(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ledger": ledger})
}

// RegenerateSchedule rebuilds the schedule of a sale with no payments applied
func (h *SaleHandler) RegenerateSchedule(c *gin.Context) {
	id, ok := parseID(c, "sale_id")
	if !ok {
		return
	}
	installments, err := h.scheduleService.RegenerateSchedule(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installments": installmentResponses(installments, h.clock)})
}

// @Summary Bulk Modify Installments
// @Description Sets the same amount on several installments and redistributes the rest once
// @Tags Installments
// @Accept json
// @Produce json
// @Param sale_id path int true "Sale ID"
// @Param request body services.BulkModifyInput true "Installments and amount"
// @Success 200 {object} map[string]interface{}
// @Router /sales/{sale_id}/installments/bulk_modify [post]
func (h *SaleHandler) BulkModify(c *gin.Context) {
	id, ok := parseID(c, "sale_id")
	if !ok {
		return
	}
	var input services.BulkModifyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	installments, err := h.installmentService.BulkModifyAmounts(c.Request.Context(), id, input, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installments": installmentResponses(installments, h.clock)})
}

func saleResponses(sales []models.Sale) []models.SaleResponse {
	out := make([]models.SaleResponse, 0, len(sales))
	for i := range sales {
		out = append(out, sales[i].ToResponse())
	}
	return out
}

func installmentResponses(installments []models.Installment, clock services.Clock) []models.InstallmentResponse {
	today := models.DateOnly(clock.Now())
	out := make([]models.InstallmentResponse, 0, len(installments))
	for i := range installments {
		out = append(out, installments[i].ToResponse(today))
	}
	return out
}

// bindOptionalJSON binds a JSON body that may be absent
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
