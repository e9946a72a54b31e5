package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/sjperalta/lotes-api/internal/services"
)

type CustomerHandler struct {
	customerService CustomerService
	saleService     SaleService
}

func NewCustomerHandler(customerService CustomerService, saleService SaleService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService, saleService: saleService}
}

// @Summary List Customers
// @Tags Customers
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search by name, email or document"
// @Success 200 {object} map[string]interface{}
// @Router /customers [get]
func (h *CustomerHandler) Index(c *gin.Context) {
	query := listQuery(c)
	customers, total, err := h.customerService.ListCustomers(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.CustomerResponse, 0, len(customers))
	for i := range customers {
		responses = append(responses, customers[i].ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"customers": responses, "pagination": pagination(query, total)})
}

func (h *CustomerHandler) Show(c *gin.Context) {
	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}
	customer, err := h.customerService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer.ToResponse()})
}

// @Summary Create Customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body services.CustomerInput true "Customer"
// @Success 201 {object} models.CustomerResponse
// @Failure 409 {object} map[string]string
// @Router /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var input services.CustomerInput
	if err := BindNestedOrFlat(c, "customer", &input); err != nil {
		badRequest(c, err.Error())
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), input, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customer": customer.ToResponse()})
}

type bulkCustomersRequest struct {
	Customers []services.CustomerInput `json:"customers"`
}

func (h *CustomerHandler) BulkCreate(c *gin.Context) {
	var req bulkCustomersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	customers, err := h.customerService.BulkCreateCustomers(c.Request.Context(), req.Customers, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.CustomerResponse, 0, len(customers))
	for i := range customers {
		responses = append(responses, customers[i].ToResponse())
	}
	c.JSON(http.StatusCreated, gin.H{"customers": responses})
}

// Update replaces the customer data; omitted optional fields are cleared
func (h *CustomerHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}
	var input services.CustomerInput
	if err := BindNestedOrFlat(c, "customer", &input); err != nil {
		badRequest(c, err.Error())
		return
	}

	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), id, input, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer.ToResponse()})
}

func (h *CustomerHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}
	if err := h.customerService.DeleteCustomer(c.Request.Context(), id, actorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cliente eliminado"})
}

// Sales lists the sales of a customer
func (h *CustomerHandler) Sales(c *gin.Context) {
	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}
	if _, err := h.customerService.GetCustomer(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	query := &repository.SaleQuery{ListQuery: listQuery(c), CustomerID: id}
	sales, total, err := h.saleService.ListSales(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": saleResponses(sales), "pagination": pagination(query.ListQuery, total)})
}
