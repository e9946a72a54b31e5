package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/sjperalta/lotes-api/internal/services"
)

type LotHandler struct {
	lotService  LotService
	saleService SaleService
}

func NewLotHandler(lotService LotService, saleService SaleService) *LotHandler {
	return &LotHandler{lotService: lotService, saleService: saleService}
}

// @Summary List Lots
// @Description Get a paginated list of lots
// @Tags Lots
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "available, reserved, sold or settled"
// @Param block query string false "Block"
// @Param search_term query string false "Search by block or lot number"
// @Success 200 {object} map[string]interface{}
// @Router /lots [get]
func (h *LotHandler) Index(c *gin.Context) {
	query := &repository.LotQuery{
		ListQuery: listQuery(c),
		Status:    c.Query("status"),
		Block:     c.Query("block"),
	}

	lots, total, err := h.lotService.ListLots(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.LotResponse, 0, len(lots))
	for i := range lots {
		responses = append(responses, lots[i].ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"lots": responses, "pagination": pagination(query.ListQuery, total)})
}

// @Summary Get Lot
// @Description Get a lot and its active sale, if any
// @Tags Lots
// @Produce json
// @Param lot_id path int true "Lot ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /lots/{lot_id} [get]
func (h *LotHandler) Show(c *gin.Context) {
	id, ok := parseID(c, "lot_id")
	if !ok {
		return
	}
	lot, err := h.lotService.GetLot(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{"lot": lot.ToResponse(), "active_sale": nil}
	sale, err := h.saleService.ActiveSaleForLot(c.Request.Context(), id)
	switch {
	case err == nil:
		body["active_sale"] = sale.ToResponse()
	case !errors.Is(err, services.ErrNotFound):
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

// @Summary Create Lot
// @Tags Lots
// @Accept json
// @Produce json
// @Param request body services.CreateLotInput true "Lot"
// @Success 201 {object} models.LotResponse
// @Router /lots [post]
func (h *LotHandler) Create(c *gin.Context) {
	var input services.CreateLotInput
	if err := BindNestedOrFlat(c, "lot", &input); err != nil {
		badRequest(c, err.Error())
		return
	}

	lot, err := h.lotService.CreateLot(c.Request.Context(), input, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"lot": lot.ToResponse()})
}

type bulkLotsRequest struct {
	Lots []services.CreateLotInput `json:"lots"`
}

// BulkCreate creates every lot or none
func (h *LotHandler) BulkCreate(c *gin.Context) {
	var req bulkLotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	lots, err := h.lotService.BulkCreateLots(c.Request.Context(), req.Lots, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.LotResponse, 0, len(lots))
	for i := range lots {
		responses = append(responses, lots[i].ToResponse())
	}
	c.JSON(http.StatusCreated, gin.H{"lots": responses})
}

// @Summary Update Lot
// @Tags Lots
// @Accept json
// @Produce json
// @Param lot_id path int true "Lot ID"
// @Param request body services.UpdateLotInput true "Changes"
// @Success 200 {object} models.LotResponse
// @Router /lots/{lot_id} [put]
func (h *LotHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "lot_id")
	if !ok {
		return
	}
	var input services.UpdateLotInput
	if err := BindNestedOrFlat(c, "lot", &input); err != nil {
		badRequest(c, err.Error())
		return
	}

	lot, err := h.lotService.UpdateLot(c.Request.Context(), id, input, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lot": lot.ToResponse()})
}

func (h *LotHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "lot_id")
	if !ok {
		return
	}
	if err := h.lotService.DeleteLot(c.Request.Context(), id, actorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lote eliminado"})
}

// Sales returns the sale history of a lot, newest first
func (h *LotHandler) Sales(c *gin.Context) {
	id, ok := parseID(c, "lot_id")
	if !ok {
		return
	}
	sales, err := h.saleService.SalesByLot(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": saleResponses(sales)})
}
