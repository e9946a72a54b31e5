package handlers

import "github.com/gin-gonic/gin"

// Register mounts every API route on the /api/v1 group
func (h *Handlers) Register(v1 *gin.RouterGroup) {
	v1.GET("/health", h.Health.Index)

	lots := v1.Group("/lots")
	{
		lots.GET("", h.Lot.Index)
		lots.POST("", h.Lot.Create)
		lots.POST("/bulk", h.Lot.BulkCreate)
		lots.GET("/:lot_id", h.Lot.Show)
		lots.PUT("/:lot_id", h.Lot.Update)
		lots.DELETE("/:lot_id", h.Lot.Delete)
		lots.GET("/:lot_id/sales", h.Lot.Sales)
	}

	customers := v1.Group("/customers")
	{
		customers.GET("", h.Customer.Index)
		customers.POST("", h.Customer.Create)
		customers.POST("/bulk", h.Customer.BulkCreate)
		customers.GET("/:customer_id", h.Customer.Show)
		customers.PUT("/:customer_id", h.Customer.Update)
		customers.DELETE("/:customer_id", h.Customer.Delete)
		customers.GET("/:customer_id/sales", h.Customer.Sales)
	}

	sales := v1.Group("/sales")
	{
		sales.GET("", h.Sale.Index)
		sales.POST("", h.Sale.Create)
		sales.GET("/:sale_id", h.Sale.Show)
		sales.PATCH("/:sale_id/terms", h.Sale.UpdateTerms)
		sales.POST("/:sale_id/cancel", h.Sale.Cancel)
		sales.POST("/:sale_id/complete", h.Sale.Complete)
		sales.POST("/:sale_id/suspend", h.Sale.Suspend)
		sales.POST("/:sale_id/resume", h.Sale.Resume)
		sales.POST("/:sale_id/initial_payments", h.Sale.InitialPayment)
		sales.GET("/:sale_id/schedule", h.Sale.Schedule)
		sales.POST("/:sale_id/schedule/regenerate", h.Sale.RegenerateSchedule)
		sales.GET("/:sale_id/plan", h.Sale.Plan)
		sales.GET("/:sale_id/ledger", h.Sale.Ledger)
		sales.POST("/:sale_id/installments/bulk_modify", h.Sale.BulkModify)
	}

	installments := v1.Group("/installments/:installment_id")
	{
		installments.GET("", h.Installment.Show)
		installments.POST("/payments", h.Installment.RegisterPayment)
		installments.POST("/payments/:payment_id/reset", h.Installment.ResetPayment)
		installments.POST("/forgive", h.Installment.Forgive)
		installments.POST("/modify_amount", h.Installment.ModifyAmount)
	}

	v1.GET("/payments", h.Payment.Index)
	v1.GET("/payments/:payment_id", h.Payment.Show)

	v1.GET("/dashboard/summary", h.Dashboard.Summary)
	v1.GET("/audits", h.Audit.Index)

	v1.POST("/jobs/mark_overdue", h.Job.MarkOverdue)
	v1.GET("/jobs/stats", h.Job.Status)
}
