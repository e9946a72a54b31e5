package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/services"
)

type InstallmentHandler struct {
	installmentService InstallmentService
	paymentService     PaymentService
	clock              services.Clock
}

func NewInstallmentHandler(installmentService InstallmentService, paymentService PaymentService, clock services.Clock) *InstallmentHandler {
	return &InstallmentHandler{installmentService: installmentService, paymentService: paymentService, clock: clock}
}

func (h *InstallmentHandler) Show(c *gin.Context) {
	id, ok := parseID(c, "installment_id")
	if !ok {
		return
	}
	inst, err := h.installmentService.GetInstallment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installment": inst.ToResponse(models.DateOnly(h.clock.Now()))})
}

// @Summary Register Payment
// @Description Records a payment against an installment. Partial payments and overpayments are accepted.
// @Tags Installments
// @Accept json
// @Produce json
// @Param installment_id path int true "Installment ID"
// @Param request body paymentRequest true "Payment"
// @Success 201 {object} models.InstallmentResponse
// @Failure 409 {object} map[string]string "Sale not active or installment forgiven"
// @Router /installments/{installment_id}/payments [post]
func (h *InstallmentHandler) RegisterPayment(c *gin.Context) {
	id, ok := parseID(c, "installment_id")
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

	inst, err := h.paymentService.RegisterPayment(c.Request.Context(), id, input, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"installment": inst.ToResponse(models.DateOnly(h.clock.Now()))})
}

func (h *InstallmentHandler) Forgive(c *gin.Context) {
	id, ok := parseID(c, "installment_id")
	if !ok {
		return
	}
	var req notesRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err.Error())
		return
	}

	inst, err := h.paymentService.Forgive(c.Request.Context(), id, req.Notes, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installment": inst.ToResponse(models.DateOnly(h.clock.Now()))})
}

// @Summary Modify Installment Amount
// @Description Changes the scheduled amount of one installment and redistributes the difference over the open ones
// @Tags Installments
// @Accept json
// @Produce json
// @Param installment_id path int true "Installment ID"
// @Param request body services.ModifyAmountInput true "New amount"
// @Success 200 {object} map[string]interface{}
// @Router /installments/{installment_id}/modify_amount [post]
func (h *InstallmentHandler) ModifyAmount(c *gin.Context) {
	id, ok := parseID(c, "installment_id")
	if !ok {
		return
	}
	var input services.ModifyAmountInput
	if err := BindNestedOrFlat(c, "installment", &input); err != nil {
		badRequest(c, err.Error())
		return
	}

	installments, err := h.installmentService.ModifyAmount(c.Request.Context(), id, input, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installments": installmentResponses(installments, h.clock)})
}

// ResetPayment removes every payment of the installment; the payment id must belong to it
func (h *InstallmentHandler) ResetPayment(c *gin.Context) {
	id, ok := parseID(c, "installment_id")
	if !ok {
		return
	}
	paymentID, ok := parseID(c, "payment_id")
	if !ok {
		return
	}

	inst, err := h.paymentService.ResetPayment(c.Request.Context(), id, paymentID, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installment": inst.ToResponse(models.DateOnly(h.clock.Now()))})
}
