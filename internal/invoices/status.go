package invoices

import (
	"fmt"
	"time"

	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
)

// Status is the derived lifecycle state of an invoice. It is computed on
// every read and never stored.
type Status string

const (
	StatusPaid      Status = "PAID"
	StatusScheduled Status = "SCHEDULED"
	StatusOverdue   Status = "OVERDUE"
	StatusPending   Status = "PENDING"
)

// ComputeStatus derives the status at day granularity. Rules apply in order:
// paid, issue date in the future, due date in the past, otherwise pending.
func ComputeStatus(issueDate time.Time, dueDate *time.Time, paid enums.PaymentStatus, today time.Time) Status {
	if paid == enums.PaymentStatusPaid {
		return StatusPaid
	}
	day := civilDay(today)
	if civilDay(issueDate).After(day) {
		return StatusScheduled
	}
	if dueDate != nil && civilDay(*dueDate).Before(day) {
		return StatusOverdue
	}
	return StatusPending
}

// DueText is the human hint shown next to pending and overdue invoices.
func DueText(dueDate *time.Time, status Status, today time.Time) string {
	if dueDate == nil {
		return ""
	}
	if status != StatusPending && status != StatusOverdue {
		return ""
	}
	days := daysBetween(civilDay(today), civilDay(*dueDate))
	switch {
	case days == 0:
		return "Due today"
	case days > 0:
		return fmt.Sprintf("Due in %s", pluralDays(days))
	default:
		return fmt.Sprintf("Overdue by %s", pluralDays(-days))
	}
}

// civilDay drops the clock, keeping the calendar date as seen in t's location.
func civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
