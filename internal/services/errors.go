package services

import (
	"errors"
	"fmt"

	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/sjperalta/lotes-api/internal/statemachine"
)

// Common service errors
var (
	ErrNotFound     = errors.New("registro no encontrado")
	ErrInvalidState = errors.New("transición de estado inválida")
	ErrDuplicate    = errors.New("registro duplicado")
	ErrValidation   = errors.New("datos inválidos")
)

// Sale and lot errors
var (
	ErrLotUnavailable   = errors.New("el lote no está disponible")
	ErrLotHasSales      = errors.New("el lote tiene ventas registradas")
	ErrCustomerHasSales = errors.New("el cliente tiene ventas registradas")
	ErrSaleNotActive    = errors.New("la venta no está activa")
	ErrPlanIncomplete   = errors.New("el plan de pagos no está completo")
)

// Schedule and payment errors
var (
	ErrScheduleHasPayments    = errors.New("el plan de pagos ya tiene pagos registrados")
	ErrInstallmentSettled     = errors.New("la cuota ya está pagada o condonada")
	ErrInstallmentForgiven    = errors.New("la cuota está condonada")
	ErrAlreadyForgiven        = errors.New("la cuota ya fue condonada")
	ErrAmountBelowPaid        = errors.New("el monto no puede ser menor a lo ya pagado")
	ErrAmountTooSmall         = errors.New("el monto es menor al mínimo permitido")
	ErrInvalidAmount          = errors.New("el monto debe ser mayor a cero")
	ErrPaymentMismatch        = errors.New("el pago no pertenece a la cuota")
	ErrInstallmentNotInSale   = errors.New("la cuota no pertenece a la venta")
	ErrInitialPaymentExceeded = errors.New("los pagos de prima exceden la prima pactada")
)

// translateRepoError maps persistence errors onto the service sentinels
func translateRepoError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case repository.IsNotFound(err):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case repository.IsDuplicateKeyError(err, repository.ActiveSalePerLotIndex):
		return fmt.Errorf("%s: %w", what, ErrLotUnavailable)
	case repository.IsDuplicateKeyError(err, ""):
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	case errors.Is(err, statemachine.ErrInvalidTransition):
		return fmt.Errorf("%s: %w: %v", what, ErrInvalidState, err)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
