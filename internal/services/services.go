package services

import (
	"github.com/sjperalta/lotes-api/internal/config"
	"github.com/sjperalta/lotes-api/internal/jobs"
	"github.com/sjperalta/lotes-api/internal/metrics"
	"github.com/sjperalta/lotes-api/internal/repository"
)

// Services holds all service instances
type Services struct {
	Lot            *LotService
	Customer       *CustomerService
	Sale           *SaleService
	Schedule       *ScheduleService
	Redistribution *RedistributionService
	Installment    *InstallmentService
	Payment        *PaymentService
	Dashboard      *DashboardService
	Audit          *AuditService
	Job            *JobService
}

// NewServices creates all service instances.
// Every mutation enqueues an async dashboard cache invalidation on the worker.
func NewServices(
	repos *repository.Repositories,
	worker *jobs.Worker,
	m *metrics.Metrics,
	cache DashboardCache,
	policy config.FinancingPolicy,
	cfg *config.Config,
	clock Clock,
) *Services {
	auditSvc := NewAuditService(repos.Audit)
	dashboardSvc := NewDashboardService(repos, cache, cfg.DashboardCacheTTL, clock, m)

	notify := func() {
		worker.EnqueueAsync(JobDashboardInvalidate, dashboardSvc.Invalidate)
	}

	scheduleSvc := NewScheduleService(repos, clock, m, auditSvc, notify)
	redistributionSvc := NewRedistributionService(clock, m, policy)
	paymentSvc := NewPaymentService(repos, auditSvc, clock, m, notify)

	return &Services{
		Lot:            NewLotService(repos, auditSvc, notify),
		Customer:       NewCustomerService(repos, auditSvc, notify),
		Sale:           NewSaleService(repos, scheduleSvc, redistributionSvc, auditSvc, clock, m, policy, notify),
		Schedule:       scheduleSvc,
		Redistribution: redistributionSvc,
		Installment:    NewInstallmentService(repos, redistributionSvc, auditSvc, clock, policy, notify),
		Payment:        paymentSvc,
		Dashboard:      dashboardSvc,
		Audit:          auditSvc,
		Job:            NewJobService(worker, paymentSvc),
	}
}

