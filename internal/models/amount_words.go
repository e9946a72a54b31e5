package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ReceiptCurrency is the currency name printed on receipts
const ReceiptCurrency = "SOLES"

// AmountInWords spells an amount the way it is written on a receipt.
// 1500.50 -> "MIL QUINIENTOS SOLES CON 50/100"
func AmountInWords(amount decimal.Decimal) string {
	amount = amount.Abs().Round(2)
	whole := amount.Truncate(0)
	cents := amount.Sub(whole).Mul(decimal.NewFromInt(100)).IntPart()

	words := spell(whole.IntPart())
	if strings.HasSuffix(words, "UNO") {
		words = strings.TrimSuffix(words, "O")
	}
	return words + " " + ReceiptCurrency + " CON " + twoDigits(cents) + "/100"
}

func twoDigits(n int64) string {
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}

func spell(n int64) string {
	switch {
	case n == 0:
		return "CERO"
	case n < 10:
		return unitWords[n]
	case n < 30:
		return teenWords[n-10]
	case n < 100:
		if n%10 == 0 {
			return tenWords[n/10]
		}
		return tenWords[n/10] + " Y " + unitWords[n%10]
	case n == 100:
		return "CIEN"
	case n < 1000:
		if n%100 == 0 {
			return hundredWords[n/100]
		}
		return hundredWords[n/100] + " " + spell(n%100)
	case n < 1_000_000:
		return group(n/1000, n%1000, "MIL", "MIL")
	case n < 1_000_000_000_000:
		return group(n/1_000_000, n%1_000_000, "UN MILLÓN", "MILLONES")
	}
	return "NÚMERO MUY GRANDE"
}

// group spells count units of a scale followed by the rest
func group(count, rest int64, one, many string) string {
	var head string
	switch {
	case count == 1:
		head = one
	default:
		prefix := spell(count)
		// "VEINTIUNO MIL" is written "VEINTIUN MIL"
		if strings.HasSuffix(prefix, "UNO") {
			prefix = strings.TrimSuffix(prefix, "O")
		}
		head = prefix + " " + many
	}
	if rest == 0 {
		return head
	}
	return head + " " + spell(rest)
}

var unitWords = []string{"", "UNO", "DOS", "TRES", "CUATRO", "CINCO", "SEIS", "SIETE", "OCHO", "NUEVE"}

var teenWords = []string{
	"DIEZ", "ONCE", "DOCE", "TRECE", "CATORCE", "QUINCE", "DIECISÉIS", "DIECISIETE", "DIECIOCHO", "DIECINUEVE",
	"VEINTE", "VEINTIUNO", "VEINTIDÓS", "VEINTITRÉS", "VEINTICUATRO", "VEINTICINCO", "VEINTISÉIS", "VEINTISIETE", "VEINTIOCHO", "VEINTINUEVE",
}

var tenWords = []string{"", "", "VEINTE", "TREINTA", "CUARENTA", "CINCUENTA", "SESENTA", "SETENTA", "OCHENTA", "NOVENTA"}

var hundredWords = []string{
	"", "CIENTO", "DOSCIENTOS", "TRESCIENTOS", "CUATROCIENTOS", "QUINIENTOS",
	"SEISCIENTOS", "SETECIENTOS", "OCHOCIENTOS", "NOVECIENTOS",
}
