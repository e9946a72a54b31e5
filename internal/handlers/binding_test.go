package handlers

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/lotes-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindContext(body string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

func TestBindNestedOrFlat_Payment(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		amount      string
		paymentDate string
		method      string
		expectError bool
	}{
		{
			name:        "nested under payment",
			body:        `{"payment": {"amount": "1500.50", "payment_date": "2024-03-15", "method": "efectivo"}}`,
			amount:      "1500.50",
			paymentDate: "2024-03-15",
			method:      "efectivo",
		},
		{
			name:   "flat with numeric amount",
			body:   `{"amount": 250, "receipt_number": "R-001"}`,
			amount: "250.00",
		},
		{
			name:   "other wrapper falls back to flat fields",
			body:   `{"sale": {"lot_id": 3}, "amount": "80"}`,
			amount: "80.00",
		},
		{
			name:        "bad amount",
			body:        `{"amount": "mil"}`,
			expectError: true,
		},
		{
			name:        "payment key with bad content",
			body:        `{"payment": "1000", "amount": "1000"}`,
			expectError: true,
		},
		{
			name:        "empty body",
			body:        "  ",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req paymentRequest
			err := BindNestedOrFlat(bindContext(tt.body), "payment", &req)

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.amount, req.Amount.StringFixed(2))
			assert.Equal(t, tt.method, req.Method)
			if tt.paymentDate == "" {
				assert.Nil(t, req.PaymentDate)
			} else {
				require.NotNil(t, req.PaymentDate)
				assert.Equal(t, tt.paymentDate, string(*req.PaymentDate))
			}
		})
	}
}

func TestBindNestedOrFlat_LotKeepsBodyReadable(t *testing.T) {
	body := `{"lot": {"block": "A", "lot_number": "12", "area": "180.5", "price": "15000"}}`
	c := bindContext(body)

	var input services.CreateLotInput
	require.NoError(t, BindNestedOrFlat(c, "lot", &input))
	assert.Equal(t, "A", input.Block)
	assert.Equal(t, "12", input.LotNumber)
	assert.Equal(t, "180.5", input.Area.String())
	assert.Equal(t, "15000", input.Price.String())

	rest, err := io.ReadAll(c.Request.Body)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(rest))
}
