package invoices

import (
	"fmt"
	"time"
)

// NumberPrefix returns the per-month prefix, e.g. "INV-202501-".
func NumberPrefix(at time.Time) string {
	return fmt.Sprintf("INV-%04d%02d-", at.Year(), int(at.Month()))
}

// FormatNumber renders the seq-th invoice of the month: INV-YYYYMM-####.
func FormatNumber(at time.Time, seq int) string {
	return fmt.Sprintf("%s%04d", NumberPrefix(at), seq)
}
