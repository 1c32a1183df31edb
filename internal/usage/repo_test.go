package usage

import (
	"context"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
)

var january = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:usage_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UsageStat{}))
	return db
}

func TestGetOrCreateSeedsZeroRowOnce(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	first, err := repo.GetOrCreate(ctx, userID, january)
	require.NoError(t, err)
	assert.Equal(t, 0, first.ProposalsUsed)
	assert.Equal(t, 0, first.FollowupsUsed)

	_, ok, err := repo.IncrementIfBelow(ctx, userID, january, enums.QuotaTypeProposal, 5)
	require.NoError(t, err)
	require.True(t, ok)

	again, err := repo.GetOrCreate(ctx, userID, january)
	require.NoError(t, err)
	assert.Equal(t, 1, again.ProposalsUsed, "second read must not reset the row")
}

func TestIncrementIfBelowStopsAtLimit(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	for i := 1; i <= 5; i++ {
		entry, ok, err := repo.IncrementIfBelow(ctx, userID, january, enums.QuotaTypeProposal, 5)
		require.NoError(t, err)
		require.True(t, ok, "increment %d should succeed", i)
		assert.Equal(t, i, entry.ProposalsUsed)
	}

	entry, ok, err := repo.IncrementIfBelow(ctx, userID, january, enums.QuotaTypeProposal, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 5, entry.ProposalsUsed)
	assert.Equal(t, 0, entry.FollowupsUsed)

	followup, ok, err := repo.IncrementIfBelow(ctx, userID, january, enums.QuotaTypeFollowup, 5)
	require.NoError(t, err)
	assert.True(t, ok, "followups are counted independently")
	assert.Equal(t, 1, followup.FollowupsUsed)
}

func TestIncrementIfBelowConcurrentCallersStopAtLimit(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "usage.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UsageStat{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	const callers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
		errs    []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.IncrementIfBelow(ctx, userID, january, enums.QuotaTypeFollowup, 5)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if ok {
				granted++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 5, granted)

	entry, err := repo.GetOrCreate(ctx, userID, january)
	require.NoError(t, err)
	assert.Equal(t, 5, entry.FollowupsUsed)
	assert.Equal(t, 0, entry.ProposalsUsed)
}

func TestIncrementIfBelowZeroLimitNeverIncrements(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	entry, ok, err := repo.IncrementIfBelow(context.Background(), uuid.New(), january, enums.QuotaTypeFollowup, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, entry.FollowupsUsed)
}

func TestIncrementIfBelowRejectsCountQuotas(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	_, _, err := repo.IncrementIfBelow(context.Background(), uuid.New(), january, enums.QuotaTypeInvoice, 5)
	assert.ErrorIs(t, err, ErrUnknownQuota)
}

func TestDecrementNeverGoesNegative(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	_, _, err := repo.IncrementIfBelow(ctx, userID, january, enums.QuotaTypeProposal, 5)
	require.NoError(t, err)
	require.NoError(t, repo.Decrement(ctx, userID, january, enums.QuotaTypeProposal))
	require.NoError(t, repo.Decrement(ctx, userID, january, enums.QuotaTypeProposal))

	entry, err := repo.GetOrCreate(ctx, userID, january)
	require.NoError(t, err)
	assert.Equal(t, 0, entry.ProposalsUsed)
}

func TestAddTokensAndResetMonth(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, repo.AddTokens(ctx, userID, january, 120))
	require.NoError(t, repo.AddTokens(ctx, userID, january, 80))
	require.NoError(t, repo.AddTokens(ctx, userID, january, -5))
	for i := 0; i < 3; i++ {
		_, _, err := repo.IncrementIfBelow(ctx, userID, january, enums.QuotaTypeFollowup, 10)
		require.NoError(t, err)
	}

	entry, err := repo.GetOrCreate(ctx, userID, january)
	require.NoError(t, err)
	assert.Equal(t, int64(200), entry.TokensUsed)
	assert.Equal(t, 3, entry.FollowupsUsed)

	require.NoError(t, repo.ResetMonth(ctx, userID, january))
	entry, err = repo.GetOrCreate(ctx, userID, january)
	require.NoError(t, err)
	assert.Equal(t, 0, entry.FollowupsUsed)
	assert.Equal(t, int64(200), entry.TokensUsed, "reset keeps token accounting")
}

func TestHistoryNewestFirst(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	months := []time.Time{january, january.AddDate(0, 1, 0), january.AddDate(0, 2, 0)}
	for _, m := range months {
		_, err := repo.GetOrCreate(ctx, userID, m)
		require.NoError(t, err)
	}
	_, err := repo.GetOrCreate(ctx, uuid.New(), january)
	require.NoError(t, err)

	rows, err := repo.History(ctx, userID, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Month.Equal(months[2]))
	assert.True(t, rows[1].Month.Equal(months[1]))
}

func TestIncrementIsSingleConditionalStatement(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	userID := uuid.New()
	now := time.Date(2025, time.January, 12, 9, 0, 0, 0, time.UTC)
	repo := &repository{db: db, now: func() time.Time { return now }}

	mock.ExpectQuery(regexp.QuoteMeta(
		`UPDATE usage_stats SET proposals_used = proposals_used + 1, updated_at = $1 WHERE user_id = $2 AND month = $3 AND proposals_used < $4 RETURNING user_id, month`,
	)).
		WithArgs(now, sqlmock.AnyArg(), january, 5).
		WillReturnRows(sqlmock.NewRows([]string{
			"user_id", "month", "proposals_used", "followups_used", "tokens_used", "created_at", "updated_at",
		}).AddRow(userID.String(), january, 3, 0, int64(0), now, now))

	entry, ok, err := repo.IncrementIfBelow(context.Background(), userID, january, enums.QuotaTypeProposal, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, entry.ProposalsUsed)
	assert.Equal(t, userID, entry.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMonthStartUsesLocation(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 20:00 UTC on Jan 31 is already Feb 1 in India.
	now := time.Date(2025, time.January, 31, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), MonthStart(now, kolkata))
	assert.Equal(t, january, MonthStart(now, time.UTC))
	assert.Equal(t, january, MonthStart(now, nil))
}
