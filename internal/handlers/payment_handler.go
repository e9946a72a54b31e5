package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
)

type PaymentHandler struct {
	paymentService PaymentService
}

func NewPaymentHandler(paymentService PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// @Summary List Payments
// @Description Get a paginated list of payments
// @Tags Payments
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param sale_id query int false "Sale ID"
// @Param type query string false "installment or initial"
// @Param method query string false "efectivo, transferencia, tarjeta or otro"
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Success 200 {object} map[string]interface{}
// @Router /payments [get]
func (h *PaymentHandler) Index(c *gin.Context) {
	query := &repository.PaymentQuery{
		ListQuery:     listQuery(c),
		SaleID:        queryID(c, "sale_id"),
		InstallmentID: queryID(c, "installment_id"),
		PaymentType:   c.Query("type"),
		Method:        c.Query("method"),
	}
	var ok bool
	if query.From, ok = queryDate(c, "start_date"); !ok {
		return
	}
	if query.To, ok = queryDate(c, "end_date"); !ok {
		return
	}

	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, payments[i].ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"payments": responses, "pagination": pagination(query.ListQuery, total)})
}

// @Summary Get Payment
// @Tags Payments
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Success 200 {object} models.PaymentResponse
// @Failure 404 {object} map[string]string
// @Router /payments/{payment_id} [get]
func (h *PaymentHandler) Show(c *gin.Context) {
	id, ok := parseID(c, "payment_id")
	if !ok {
		return
	}
	payment, err := h.paymentService.GetPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment.ToResponse()})
}

// queryDate reads an optional YYYY-MM-DD query parameter, writing a 400 when malformed
func queryDate(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := models.ParseDate(raw)
	if err != nil {
		badRequest(c, name+": formato de fecha inválido, se espera AAAA-MM-DD")
		return nil, false
	}
	return &t, true
}
