package handlers

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/lotes-api/internal/services"
)

// Request bodies carry dates as YYYY-MM-DD strings; they are parsed here before reaching the services.

type createSaleRequest struct {
	LotID             uint            `json:"lot_id"`
	CustomerID        uint            `json:"customer_id"`
	SalePrice         decimal.Decimal `json:"sale_price"`
	InitialPayment    decimal.Decimal `json:"initial_payment"`
	FinancingMonths   int             `json:"financing_months"`
	PaymentDay        int             `json:"payment_day"`
	SaleDate          *dateParam      `json:"sale_date"`
	ScheduleStartDate *dateParam      `json:"schedule_start_date"`
	ContractDate      *dateParam      `json:"contract_date"`
	Notes             string          `json:"notes"`
}

func (r createSaleRequest) input() (services.CreateSaleInput, error) {
	in := services.CreateSaleInput{
		LotID:           r.LotID,
		CustomerID:      r.CustomerID,
		SalePrice:       r.SalePrice,
		InitialPayment:  r.InitialPayment,
		FinancingMonths: r.FinancingMonths,
		PaymentDay:      r.PaymentDay,
		Notes:           r.Notes,
	}
	var err error
	if in.SaleDate, err = parseDateField("sale_date", r.SaleDate); err != nil {
		return in, err
	}
	if in.ScheduleStartDate, err = parseDateField("schedule_start_date", r.ScheduleStartDate); err != nil {
		return in, err
	}
	in.ContractDate, err = parseDateField("contract_date", r.ContractDate)
	return in, err
}

type updateTermsRequest struct {
	SalePrice         *decimal.Decimal `json:"sale_price"`
	InitialPayment    *decimal.Decimal `json:"initial_payment"`
	FinancingMonths   *int             `json:"financing_months"`
	PaymentDay        *int             `json:"payment_day"`
	ScheduleStartDate *dateParam       `json:"schedule_start_date"`
	Notes             string           `json:"notes"`
}

func (r updateTermsRequest) input() (services.UpdateTermsInput, error) {
	in := services.UpdateTermsInput{
		SalePrice:       r.SalePrice,
		InitialPayment:  r.InitialPayment,
		FinancingMonths: r.FinancingMonths,
		PaymentDay:      r.PaymentDay,
		Notes:           r.Notes,
	}
	var err error
	in.ScheduleStartDate, err = parseDateField("schedule_start_date", r.ScheduleStartDate)
	return in, err
}

// paymentRequest is shared by installment payments and initial payments
type paymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   *dateParam      `json:"payment_date"`
	Method        string          `json:"method"`
	ReceiptNumber string          `json:"receipt_number"`
	ReceiptDate   *dateParam      `json:"receipt_date"`
	Notes         string          `json:"notes"`
}

func (r paymentRequest) input() (services.RegisterPaymentInput, error) {
	in := services.RegisterPaymentInput{
		Amount:        r.Amount,
		Method:        r.Method,
		ReceiptNumber: r.ReceiptNumber,
		Notes:         r.Notes,
	}
	var err error
	if in.PaymentDate, err = parseDateField("payment_date", r.PaymentDate); err != nil {
		return in, err
	}
	in.ReceiptDate, err = parseDateField("receipt_date", r.ReceiptDate)
	return in, err
}

type notesRequest struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

func parseDateField(name string, d *dateParam) (*time.Time, error) {
	t, err := d.time()
	if err != nil {
		return nil, fmt.Errorf("%s: formato de fecha inválido, se espera AAAA-MM-DD", name)
	}
	return t, nil
}
