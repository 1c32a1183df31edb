package models

// All lists every persisted model. Used to build throwaway SQLite schemas for
// local runs and repository tests; Postgres is migrated with goose.
func All() []any {
	return []any{
		&UsageStat{},
		&BillingInfo{},
		&CheckoutOrder{},
		&AIGeneration{},
		&Client{},
		&Invoice{},
		&InvoiceLineItem{},
	}
}
