package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/sjperalta/lotes-api/internal/models"
)

// ErrInvalidTransition is returned when the sale is not in a state that allows the event
var ErrInvalidTransition = errors.New("transición de estado no permitida")

// Sale events
const (
	EventCancel   = "cancel"
	EventComplete = "complete"
	EventSuspend  = "suspend"
	EventResume   = "resume"
)

// SaleFSM wraps a sale with its state machine
type SaleFSM struct {
	sale *models.Sale
	fsm  *fsm.FSM
}

// NewSaleFSM creates a new sale state machine
func NewSaleFSM(sale *models.Sale) *SaleFSM {
	sfsm := &SaleFSM{
		sale: sale,
	}

	sfsm.fsm = fsm.NewFSM(
		sale.Status,
		fsm.Events{
			// active → cancelled (frees the lot)
			{Name: EventCancel, Src: []string{models.SaleStatusActive}, Dst: models.SaleStatusCancelled},

			// active → completed (plan must be fully settled)
			{Name: EventComplete, Src: []string{models.SaleStatusActive}, Dst: models.SaleStatusCompleted},

			// active ⇄ suspended
			{Name: EventSuspend, Src: []string{models.SaleStatusActive}, Dst: models.SaleStatusSuspended},
			{Name: EventResume, Src: []string{models.SaleStatusSuspended}, Dst: models.SaleStatusActive},
		},
		fsm.Callbacks{},
	)

	return sfsm
}

// Cancel transitions the sale to cancelled
func (s *SaleFSM) Cancel(ctx context.Context) error {
	return s.fire(ctx, EventCancel, s.sale.MayCancel())
}

// Complete transitions the sale to completed
func (s *SaleFSM) Complete(ctx context.Context) error {
	return s.fire(ctx, EventComplete, s.sale.MayComplete())
}

// Suspend transitions the sale to suspended
func (s *SaleFSM) Suspend(ctx context.Context) error {
	return s.fire(ctx, EventSuspend, s.sale.MaySuspend())
}

// Resume transitions a suspended sale back to active
func (s *SaleFSM) Resume(ctx context.Context) error {
	return s.fire(ctx, EventResume, s.sale.MayResume())
}

func (s *SaleFSM) fire(ctx context.Context, event string, allowed bool) error {
	if !allowed {
		return fmt.Errorf("%w: %s desde %s", ErrInvalidTransition, event, s.sale.Status)
	}

	if err := s.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("failed to %s sale: %w", event, err)
	}

	s.sale.Status = s.fsm.Current()
	return nil
}

// Current returns the current state
func (s *SaleFSM) Current() string {
	return s.fsm.Current()
}

// Can checks if a transition is possible
func (s *SaleFSM) Can(event string) bool {
	return s.fsm.Can(event)
}
