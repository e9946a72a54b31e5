package services

import (
	"time"

	"github.com/sjperalta/lotes-api/internal/models"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock
func SystemClock() Clock { return systemClock{} }

// FixedClock always returns the same instant
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant
func (c FixedClock) Now() time.Time { return c.At }

func today(c Clock) time.Time {
	return models.DateOnly(c.Now())
}
