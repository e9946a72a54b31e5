package models

// All lists every persisted model in dependency order
func All() []interface{} {
	return []interface{}{
		&Lot{},
		&Customer{},
		&Sale{},
		&Installment{},
		&Payment{},
		&SaleLedgerEntry{},
		&AuditLog{},
	}
}
