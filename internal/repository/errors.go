package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Index names that surface as domain errors
const (
	ActiveSalePerLotIndex = "uniq_sales_active_lot"
	LotBlockNumberIndex   = "uniq_lots_block_number"
)

// sqlite reports the violated columns instead of the index name
var indexColumns = map[string]string{
	ActiveSalePerLotIndex: "sales.lot_id",
	LotBlockNumberIndex:   "lots.block, lots.lot_number",
}

const sqliteUniqueViolation = "UNIQUE constraint failed: "

// IsNotFound reports whether err means the row does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKeyError reports a unique violation on the named index.
// An empty name matches any unique violation.
func IsDuplicateKeyError(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && (constraintName == "" || pgErr.ConstraintName == constraintName)
	}

	msg := err.Error()
	if i := strings.Index(msg, sqliteUniqueViolation); i >= 0 {
		if constraintName == "" {
			return true
		}
		columns, ok := indexColumns[constraintName]
		if !ok {
			return false
		}
		violated := msg[i+len(sqliteUniqueViolation):]
		if j := strings.Index(violated, " ("); j >= 0 {
			violated = violated[:j]
		}
		return violated == columns
	}

	// A translated error has lost the index name
	return constraintName == "" && errors.Is(err, gorm.ErrDuplicatedKey)
}
