package usage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/plans"
)

// PlanResolver reports the plan a user is entitled to right now.
type PlanResolver interface {
	EffectivePlan(ctx context.Context, userID uuid.UUID) (enums.PlanID, error)
}

// Counter is one quota's usage against its limit.
type Counter struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// Snapshot is the current month's usage as shown to the user.
type Snapshot struct {
	Month      string       `json:"month"`
	Plan       enums.PlanID `json:"plan"`
	Proposals  Counter      `json:"proposals"`
	Followups  Counter      `json:"followups"`
	TokensUsed int64        `json:"tokens_used"`
}

// MonthUsage is one row of the usage history.
type MonthUsage struct {
	Month         string `json:"month"`
	ProposalsUsed int    `json:"proposals_used"`
	FollowupsUsed int    `json:"followups_used"`
	TokensUsed    int64  `json:"tokens_used"`
}

type ServiceParams struct {
	Repo     Repository
	Plans    PlanResolver
	Catalog  plans.Catalog
	Location *time.Location
	Now      func() time.Time
}

type Service struct {
	repo    Repository
	plans   PlanResolver
	catalog plans.Catalog
	loc     *time.Location
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "usage repo required")
	}
	if params.Plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan resolver required")
	}
	catalog := params.Catalog
	if catalog == nil {
		catalog = plans.Default()
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:    params.Repo,
		plans:   params.Plans,
		catalog: catalog,
		loc:     loc,
		now:     now,
	}, nil
}

// Month is the ledger month for the service clock.
func (s *Service) Month() time.Time {
	return MonthStart(s.now(), s.loc)
}

// Current returns the current month's counters measured against the user's
// effective plan. Display values come from the ledger row itself.
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	plan, err := s.plans.EffectivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	entry, err := s.repo.GetOrCreate(ctx, userID, s.Month())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load usage")
	}
	limits := s.catalog.Lookup(string(plan))
	return &Snapshot{
		Month:      entry.Month.Format("2006-01"),
		Plan:       limits.Plan,
		Proposals:  newCounter(entry.ProposalsUsed, limits.Limit(enums.QuotaTypeProposal)),
		Followups:  newCounter(entry.FollowupsUsed, limits.Limit(enums.QuotaTypeFollowup)),
		TokensUsed: entry.TokensUsed,
	}, nil
}

// History lists past months, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]MonthUsage, error) {
	if limit > 36 {
		limit = 36
	}
	rows, err := s.repo.History(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load usage history")
	}
	out := make([]MonthUsage, 0, len(rows))
	for _, row := range rows {
		out = append(out, toMonthUsage(row))
	}
	return out, nil
}

func toMonthUsage(row models.UsageStat) MonthUsage {
	return MonthUsage{
		Month:         row.Month.Format("2006-01"),
		ProposalsUsed: row.ProposalsUsed,
		FollowupsUsed: row.FollowupsUsed,
		TokensUsed:    row.TokensUsed,
	}
}

func newCounter(used, limit int) Counter {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Counter{Used: used, Limit: limit, Remaining: remaining}
}
