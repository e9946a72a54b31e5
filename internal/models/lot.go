package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Lot represents a parcel identified by block and lot number
type Lot struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Block     string          `gorm:"size:50;not null;uniqueIndex:uniq_lots_block_number" json:"block"`
	LotNumber string          `gorm:"size:50;not null;uniqueIndex:uniq_lots_block_number" json:"lot_number"`
	Area      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"area"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Status    string          `gorm:"size:20;default:available;not null;index" json:"status"`
	Notes     string          `gorm:"type:text" json:"notes"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	// Associations
	Sales []Sale `gorm:"foreignKey:LotID" json:"sales,omitempty"`
}

// TableName specifies the table name for Lot
func (Lot) TableName() string {
	return "lots"
}

// Lot status constants
const (
	LotStatusAvailable = "available"
	LotStatusSold      = "sold"
	LotStatusReserved  = "reserved"
	LotStatusSettled   = "settled"
)

// IsAvailable returns true if a new sale can be opened on the lot
func (l *Lot) IsAvailable() bool {
	return l.Status == LotStatusAvailable
}

// Display returns the human label used in notes and audit details
func (l *Lot) Display() string {
	return fmt.Sprintf("Manzana %s, Lote %s", l.Block, l.LotNumber)
}

// PricePerSquareMeter returns price / area, or zero when the area is unknown
func (l *Lot) PricePerSquareMeter() decimal.Decimal {
	if !l.Area.IsPositive() {
		return decimal.Zero
	}
	return l.Price.DivRound(l.Area, 2)
}

// LotResponse is the JSON response format for lots
type LotResponse struct {
	ID                  uint            `json:"id"`
	Block               string          `json:"block"`
	LotNumber           string          `json:"lot_number"`
	Display             string          `json:"display"`
	Area                decimal.Decimal `json:"area"`
	Price               decimal.Decimal `json:"price"`
	PricePerSquareMeter decimal.Decimal `json:"price_per_m2"`
	Status              string          `json:"status"`
	Notes               string          `json:"notes"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ToResponse converts Lot to LotResponse
func (l *Lot) ToResponse() LotResponse {
	return LotResponse{
		ID:                  l.ID,
		Block:               l.Block,
		LotNumber:           l.LotNumber,
		Display:             l.Display(),
		Area:                l.Area,
		Price:               l.Price,
		PricePerSquareMeter: l.PricePerSquareMeter(),
		Status:              l.Status,
		Notes:               l.Notes,
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
}
