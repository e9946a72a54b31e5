package services

import (
	"context"
	"time"

	"github.com/sjperalta/lotes-api/internal/jobs"
)

// Job names as they appear in logs, metrics and worker stats
const (
	JobMarkOverdue         = "mark_overdue"
	JobDashboardInvalidate = "dashboard_invalidate"
)

// JobService registers the recurring jobs and lets operators trigger them
type JobService struct {
	worker   *jobs.Worker
	payments *PaymentService
}

func NewJobService(worker *jobs.Worker, payments *PaymentService) *JobService {
	return &JobService{
		worker:   worker,
		payments: payments,
	}
}

// Start schedules the overdue sweep. The first sweep runs at startup.
func (s *JobService) Start(sweepInterval time.Duration) {
	s.worker.ScheduleEveryImmediate(JobMarkOverdue, sweepInterval, func(ctx context.Context) error {
		_, err := s.payments.MarkOverdueToday(ctx)
		return err
	})
}

// MarkOverdueNow runs the overdue sweep on the caller's goroutine and reports how many installments moved
func (s *JobService) MarkOverdueNow(ctx context.Context) (int64, error) {
	var marked int64
	err := s.worker.RunNow(ctx, JobMarkOverdue, func(ctx context.Context) error {
		n, err := s.payments.MarkOverdueToday(ctx)
		marked = n
		return err
	})
	return marked, err
}

func (s *JobService) GetStatus() jobs.WorkerStats {
	return s.worker.GetStats()
}
