package usage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
)

type stubPlans struct {
	plan enums.PlanID
	err  error
}

func (s stubPlans) EffectivePlan(context.Context, uuid.UUID) (enums.PlanID, error) {
	return s.plan, s.err
}

func TestCurrentReportsLedgerAgainstEffectivePlan(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()
	now := time.Date(2025, time.January, 20, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		_, _, err := repo.IncrementIfBelow(ctx, userID, january, enums.QuotaTypeProposal, 50)
		require.NoError(t, err)
	}

	svc, err := NewService(ServiceParams{
		Repo:  repo,
		Plans: stubPlans{plan: enums.PlanIDStarter},
		Now:   func() time.Time { return now },
	})
	require.NoError(t, err)

	snap, err := svc.Current(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "2025-01", snap.Month)
	assert.Equal(t, enums.PlanIDStarter, snap.Plan)
	assert.Equal(t, Counter{Used: 7, Limit: 5, Remaining: 0}, snap.Proposals)
	assert.Equal(t, Counter{Used: 0, Limit: 5, Remaining: 5}, snap.Followups)
}

func TestCurrentPropagatesPlanErrors(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Repo:  NewRepository(newTestDB(t)),
		Plans: stubPlans{err: pkgerrors.New(pkgerrors.CodeDependency, "cache down")},
	})
	require.NoError(t, err)

	_, err = svc.Current(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestHistoryMapsRows(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()
	require.NoError(t, repo.AddTokens(ctx, userID, january, 50))

	svc, err := NewService(ServiceParams{Repo: repo, Plans: stubPlans{plan: enums.PlanIDPro}})
	require.NoError(t, err)

	rows, err := svc.History(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, MonthUsage{Month: "2025-01", TokensUsed: 50}, rows[0])
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Repo: NewRepository(nil)})
	assert.Error(t, err)
}
