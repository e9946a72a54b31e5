package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAmountInWords(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"0", "CERO SOLES CON 00/100"},
		{"1", "UN SOLES CON 00/100"},
		{"21", "VEINTIUN SOLES CON 00/100"},
		{"100", "CIEN SOLES CON 00/100"},
		{"115.05", "CIENTO QUINCE SOLES CON 05/100"},
		{"1500.50", "MIL QUINIENTOS SOLES CON 50/100"},
		{"21000", "VEINTIUN MIL SOLES CON 00/100"},
		{"1055.555", "MIL CINCUENTA Y CINCO SOLES CON 56/100"},
		{"2000000", "DOS MILLONES SOLES CON 00/100"},
		{"1000001", "UN MILLÓN UN SOLES CON 00/100"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, AmountInWords(decimal.RequireFromString(tt.amount)))
		})
	}
}
