package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/lotes-api/internal/middleware"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/sjperalta/lotes-api/internal/services"
	"github.com/sjperalta/lotes-api/pkg/logger"
)

var badRequestErrors = []error{
	services.ErrValidation,
	services.ErrInvalidAmount,
	services.ErrAmountTooSmall,
	services.ErrAmountBelowPaid,
	services.ErrInitialPaymentExceeded,
	services.ErrInstallmentNotInSale,
	services.ErrPaymentMismatch,
}

var conflictErrors = []error{
	services.ErrInvalidState,
	services.ErrDuplicate,
	services.ErrLotUnavailable,
	services.ErrLotHasSales,
	services.ErrCustomerHasSales,
	services.ErrSaleNotActive,
	services.ErrPlanIncomplete,
	services.ErrScheduleHasPayments,
	services.ErrInstallmentSettled,
	services.ErrInstallmentForgiven,
	services.ErrAlreadyForgiven,
}

// statusFor maps a service error onto an HTTP status
func statusFor(err error) int {
	if errors.Is(err, services.ErrNotFound) {
		return http.StatusNotFound
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err as JSON. Internal errors are logged and hidden from the caller.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		logger.Error("request failed", "error", err, "path", c.FullPath(), "request_id", middleware.GetRequestID(c))
		c.JSON(status, gin.H{"error": "Error interno del servidor"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// parseID reads a numeric path parameter. It writes a 400 and returns false when malformed.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "Identificador inválido: "+name)
		return 0, false
	}
	return uint(id), true
}

// queryID reads an optional numeric query parameter, zero when absent or malformed
func queryID(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{
		UserID:    middleware.GetUserID(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// listQuery reads page, per_page, search_term and sort=field-direction
func listQuery(c *gin.Context) *repository.ListQuery {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")
	if sort := c.Query("sort"); sort != "" {
		parts := strings.Split(sort, "-")
		query.SortBy = parts[0]
		if len(parts) > 1 {
			query.SortDir = parts[1]
		}
	}
	query.Normalize()
	return query
}

func pagination(query *repository.ListQuery, total int64) gin.H {
	return gin.H{
		"page":        query.Page,
		"per_page":    query.PerPage,
		"total":       total,
		"total_pages": query.TotalPages(total),
	}
}
