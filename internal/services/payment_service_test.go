package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterPayment_PartialThenPaid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sale := env.createSale(t, 10)
	inst := env.schedule(t, sale.ID)[0]

	paymentDate := day(2024, time.January, 12)
	updated, err := env.svc.Payment.RegisterPayment(ctx, inst.ID, RegisterPaymentInput{
		Amount:        dec("400"),
		PaymentDate:   &paymentDate,
		Method:        models.PaymentMethodCash,
		ReceiptNumber: "R-001",
	}, env.actor)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPartial, updated.Status)
	assert.Equal(t, "400.00", updated.PaidAmount.StringFixed(2))
	require.NotNil(t, updated.ReceiptNumber)
	assert.Equal(t, "R-001", *updated.ReceiptNumber)

	secondDate := day(2024, time.January, 14)
	updated, err = env.svc.Payment.RegisterPayment(ctx, inst.ID, RegisterPaymentInput{
		Amount:        dec("600"),
		PaymentDate:   &secondDate,
		ReceiptNumber: "R-002",
	}, env.actor)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPaid, updated.Status)
	assert.Equal(t, "1000.00", updated.PaidAmount.StringFixed(2))
	assert.Equal(t, "R-002", *updated.ReceiptNumber)
	require.NotNil(t, updated.PaymentMethod)
	assert.Equal(t, models.PaymentMethodTransfer, *updated.PaymentMethod)

	payments, err := env.repos.Payment.FindByInstallment(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	require.NotNil(t, payments[0].RecordedByID)
	assert.Equal(t, uint(7), *payments[0].RecordedByID)

	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.PaymentsRecorded.WithLabelValues(models.PaymentTypeInstallment)))

	ledger, err := env.svc.Sale.Ledger(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "11000.00", ledger.Balance.StringFixed(2))
}

func TestRegisterPayment_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sale := env.createSale(t, 10)
	installments := env.schedule(t, sale.ID)

	_, err := env.svc.Payment.RegisterPayment(ctx, installments[0].ID, RegisterPaymentInput{Amount: dec("-5")}, env.actor)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.Payment.RegisterPayment(ctx, installments[0].ID, RegisterPaymentInput{Amount: dec("5"), Method: "cheque"}, env.actor)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.Payment.Forgive(ctx, installments[1].ID, "", env.actor)
	require.NoError(t, err)
	_, err = env.svc.Payment.RegisterPayment(ctx, installments[1].ID, RegisterPaymentInput{Amount: dec("5")}, env.actor)
	assert.ErrorIs(t, err, ErrInstallmentForgiven)

	_, err = env.svc.Sale.SuspendSale(ctx, sale.ID, "", env.actor)
	require.NoError(t, err)
	_, err = env.svc.Payment.RegisterPayment(ctx, installments[2].ID, RegisterPaymentInput{Amount: dec("5")}, env.actor)
	assert.ErrorIs(t, err, ErrSaleNotActive)
}

func TestRegisterPayment_OverpaymentIsAccepted(t *testing.T) {
	env := newTestEnv(t)
	sale := env.createSale(t, 10)
	inst := env.schedule(t, sale.ID)[0]

	updated, err := env.svc.Payment.RegisterPayment(context.Background(), inst.ID, RegisterPaymentInput{Amount: dec("1200")}, env.actor)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPaid, updated.Status)
	assert.Equal(t, "1200.00", updated.PaidAmount.StringFixed(2))
	assert.True(t, updated.RemainingAmount().IsZero())
}

func TestForgive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sale := env.createSale(t, 10)
	inst := env.schedule(t, sale.ID)[0]

	_, err := env.svc.Payment.RegisterPayment(ctx, inst.ID, RegisterPaymentInput{Amount: dec("300")}, env.actor)
	require.NoError(t, err)

	forgiven, err := env.svc.Payment.Forgive(ctx, inst.ID, "acuerdo comercial", env.actor)
	require.NoError(t, err)
	assert.True(t, forgiven.IsForgiven)
	assert.Equal(t, models.InstallmentStatusForgiven, forgiven.Status)
	assert.Equal(t, "1000.00", forgiven.PaidAmount.StringFixed(2))
	assert.Contains(t, forgiven.Notes, "Cuota condonada: acuerdo comercial")
	require.NotNil(t, forgiven.PaymentDate)

	_, err = env.svc.Payment.Forgive(ctx, inst.ID, "", env.actor)
	assert.ErrorIs(t, err, ErrAlreadyForgiven)

	// 12000 sale - 300 paid - 700 forgiven
	ledger, err := env.svc.Sale.Ledger(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "11000.00", ledger.Balance.StringFixed(2))
}

func TestResetPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sale := env.createSale(t, 10)
	installments := env.schedule(t, sale.ID)
	inst := installments[0]

	receiptDate := day(2024, time.January, 10)
	for _, amount := range []string{"250", "750"} {
		_, err := env.svc.Payment.RegisterPayment(ctx, inst.ID, RegisterPaymentInput{
			Amount:        dec(amount),
			ReceiptNumber: "R-" + amount,
			ReceiptDate:   &receiptDate,
		}, env.actor)
		require.NoError(t, err)
	}
	payments, err := env.repos.Payment.FindByInstallment(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)

	_, err = env.svc.Payment.ResetPayment(ctx, installments[1].ID, payments[0].ID, env.actor)
	assert.ErrorIs(t, err, ErrPaymentMismatch)
	_, err = env.svc.Payment.ResetPayment(ctx, inst.ID, 9999, env.actor)
	assert.ErrorIs(t, err, ErrNotFound)

	reset, err := env.svc.Payment.ResetPayment(ctx, inst.ID, payments[0].ID, env.actor)
	require.NoError(t, err)
	assert.True(t, reset.PaidAmount.IsZero())
	assert.Equal(t, models.InstallmentStatusPending, reset.Status)
	assert.Nil(t, reset.ReceiptNumber)
	assert.Nil(t, reset.ReceiptDate)
	assert.Nil(t, reset.PaymentDate)
	assert.Nil(t, reset.PaymentMethod)

	remaining, err := env.repos.Payment.FindByInstallment(ctx, inst.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	ledger, err := env.svc.Sale.Ledger(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "12000.00", ledger.Balance.StringFixed(2))
}

func TestResetPayment_UndoesForgiveness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sale := env.createSale(t, 10)
	inst := env.schedule(t, sale.ID)[0]

	paid, err := env.svc.Payment.RegisterPayment(ctx, inst.ID, RegisterPaymentInput{Amount: dec("100")}, env.actor)
	require.NoError(t, err)
	_, err = env.svc.Payment.Forgive(ctx, paid.ID, "", env.actor)
	require.NoError(t, err)
	payments, err := env.repos.Payment.FindByInstallment(ctx, inst.ID)
	require.NoError(t, err)

	reset, err := env.svc.Payment.ResetPayment(ctx, inst.ID, payments[0].ID, env.actor)
	require.NoError(t, err)
	assert.False(t, reset.IsForgiven)
	assert.Equal(t, models.InstallmentStatusPending, reset.Status)

	ledger, err := env.svc.Sale.Ledger(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "12000.00", ledger.Balance.StringFixed(2))
}

func TestRegisterInitialPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sale := env.createSale(t, 10)

	payment, err := env.svc.Payment.RegisterInitialPayment(ctx, sale.ID, InitialPaymentInput{Amount: dec("1500")}, env.actor)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentTypeInitial, payment.PaymentType)
	assert.Nil(t, payment.InstallmentID)

	_, err = env.svc.Payment.RegisterInitialPayment(ctx, sale.ID, InitialPaymentInput{Amount: dec("600")}, env.actor)
	assert.ErrorIs(t, err, ErrInitialPaymentExceeded)

	_, err = env.svc.Payment.RegisterInitialPayment(ctx, sale.ID, InitialPaymentInput{Amount: dec("500")}, env.actor)
	require.NoError(t, err)

	detailed, err := env.svc.Sale.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	status := detailed.ComputeInitialPaymentStatus(detailed.Payments)
	assert.True(t, status.IsInitialPaymentComplete)
	assert.Equal(t, "2000.00", status.TotalInitialPayments.StringFixed(2))
}

func TestMarkOverdue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sale := env.createSale(t, 10)
	installments := env.schedule(t, sale.ID)

	// #1 stays partial, #2 becomes overdue, the rest are not due yet
	_, err := env.svc.Payment.RegisterPayment(ctx, installments[0].ID, RegisterPaymentInput{Amount: dec("10")}, env.actor)
	require.NoError(t, err)

	n, err := env.svc.Payment.MarkOverdue(ctx, day(2024, time.February, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	after := env.schedule(t, sale.ID)
	assert.Equal(t, models.InstallmentStatusPartial, after[0].Status)
	assert.Equal(t, models.InstallmentStatusOverdue, after[1].Status)
	assert.Equal(t, models.InstallmentStatusPending, after[2].Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.InstallmentsMarkedOverdue))

	logs, total, err := env.svc.Audit.List(ctx, &repository.AuditQuery{ListQuery: repository.NewListQuery(), Entity: "Installment"})
	require.NoError(t, err)
	assert.NotZero(t, total)
	found := false
	for _, entry := range logs {
		if entry.Action == models.AuditActionOverdueSweep {
			found = true
			assert.Equal(t, uint(0), entry.UserID)
		}
	}
	assert.True(t, found)
}

func TestJobService_MarkOverdueNowRecordsRun(t *testing.T) {
	env := newTestEnv(t)

	n, err := env.svc.Job.MarkOverdueNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	stats := env.svc.Job.GetStatus()
	run, ok := stats.LastRuns[JobMarkOverdue]
	require.True(t, ok)
	assert.Empty(t, run.Error)
}
