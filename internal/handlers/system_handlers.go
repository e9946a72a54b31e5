package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/lotes-api/internal/repository"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// @Summary Health Check
// @Description Checks if the API is running
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "lotes-api",
		"version": "1.0.0",
	})
}

type DashboardHandler struct {
	dashboardService DashboardService
}

func NewDashboardHandler(dashboardService DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// @Summary Dashboard Summary
// @Description Headline counts, latest payments and next installments due
// @Tags Dashboard
// @Produce json
// @Success 200 {object} services.DashboardSummary
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.dashboardService.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type AuditHandler struct {
	auditService AuditService
}

func NewAuditHandler(auditService AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// @Summary List Audit Logs
// @Description Get a paginated list of audit logs
// @Tags Audit
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param entity query string false "Sale, Installment, Lot or Customer"
// @Param entity_id query int false "Entity ID"
// @Success 200 {object} map[string]interface{}
// @Router /audits [get]
func (h *AuditHandler) Index(c *gin.Context) {
	query := &repository.AuditQuery{
		ListQuery: listQuery(c),
		Entity:    c.Query("entity"),
		EntityID:  queryID(c, "entity_id"),
	}
	logs, total, err := h.auditService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audits": logs, "pagination": pagination(query.ListQuery, total)})
}

type JobHandler struct {
	jobService JobService
}

func NewJobHandler(jobSvc JobService) *JobHandler {
	return &JobHandler{jobService: jobSvc}
}

// Status returns the current worker status
// @Summary Get background job status
// @Description Statistics about background jobs (active, completed, failed, queue length, last runs)
// @Tags Jobs
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /jobs/stats [get]
func (h *JobHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobService.GetStatus())
}

// MarkOverdue runs the overdue sweep now and waits for it
func (h *JobHandler) MarkOverdue(c *gin.Context) {
	marked, err := h.jobService.MarkOverdueNow(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked_overdue": marked})
}
