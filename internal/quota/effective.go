// Package quota decides whether a user may consume one more unit of a plan
// allowance, reconciling the usage ledger with the subscription record.
package quota

import (
	"time"

	"github.com/angelmondragon/gigdesk-backend/internal/usage"
	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	"github.com/angelmondragon/gigdesk-backend/pkg/plans"
)

// EffectivePlan is the plan whose limits apply at now. Only an active
// subscription whose period has not ended grants its stored plan; everything
// else, including a missing record, is starter.
func EffectivePlan(sub *models.BillingInfo, now time.Time) enums.PlanID {
	if sub == nil || sub.SubscriptionStatus != enums.SubscriptionStatusActive {
		return enums.PlanIDStarter
	}
	if sub.CurrentPeriodEnd != nil && !sub.CurrentPeriodEnd.After(now) {
		return enums.PlanIDStarter
	}
	if !sub.CurrentPlan.IsValid() {
		return enums.PlanIDStarter
	}
	return sub.CurrentPlan
}

// CanIncrement reports whether the ledger counter for quota is still below the
// effective plan's limit.
func CanIncrement(entry *models.UsageStat, sub *models.BillingInfo, catalog plans.Catalog, quota enums.QuotaType, now time.Time) bool {
	if catalog == nil {
		catalog = plans.Default()
	}
	limit := catalog.Lookup(string(EffectivePlan(sub, now))).Limit(quota)
	return usage.Used(entry, quota) < limit
}
