package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
)

// ErrUnknownQuota is returned for quotas that are not tracked by the ledger.
var ErrUnknownQuota = errors.New("quota is not tracked by the usage ledger")

// Repository persists monthly usage counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetOrCreate(ctx context.Context, userID uuid.UUID, month time.Time) (*models.UsageStat, error)
	IncrementIfBelow(ctx context.Context, userID uuid.UUID, month time.Time, quota enums.QuotaType, limit int) (*models.UsageStat, bool, error)
	Decrement(ctx context.Context, userID uuid.UUID, month time.Time, quota enums.QuotaType) error
	AddTokens(ctx context.Context, userID uuid.UUID, month time.Time, tokens int64) error
	ResetMonth(ctx context.Context, userID uuid.UUID, month time.Time) error
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.UsageStat, error)
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// counterColumns whitelists the columns interpolated into increment statements.
var counterColumns = map[enums.QuotaType]string{
	enums.QuotaTypeProposal: "proposals_used",
	enums.QuotaTypeFollowup: "followups_used",
}

const returningColumns = "user_id, month, proposals_used, followups_used, tokens_used, created_at, updated_at"

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

func (r *repository) GetOrCreate(ctx context.Context, userID uuid.UUID, month time.Time) (*models.UsageStat, error) {
	seed := models.UsageStat{UserID: userID, Month: month}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("seed usage row: %w", err)
	}

	var entry models.UsageStat
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND month = ?", userID, month).
		First(&entry).Error; err != nil {
		return nil, fmt.Errorf("load usage row: %w", err)
	}
	return &entry, nil
}

// IncrementIfBelow adds one to the quota counter only while it is below limit.
// The check and the write are a single statement, so concurrent callers can
// never push the counter past limit. The bool reports whether the increment
// happened; when it did not, the returned entry carries the current counts.
func (r *repository) IncrementIfBelow(ctx context.Context, userID uuid.UUID, month time.Time, quota enums.QuotaType, limit int) (*models.UsageStat, bool, error) {
	col, ok := counterColumns[quota]
	if !ok {
		return nil, false, ErrUnknownQuota
	}

	entry, ok, err := r.conditionalIncrement(ctx, col, userID, month, limit)
	if err != nil || ok {
		return entry, ok, err
	}

	// Either the row does not exist yet or the counter is at its limit.
	current, err := r.GetOrCreate(ctx, userID, month)
	if err != nil {
		return nil, false, err
	}
	if Used(current, quota) >= limit {
		return current, false, nil
	}
	return r.conditionalIncrement(ctx, col, userID, month, limit)
}

func (r *repository) conditionalIncrement(ctx context.Context, col string, userID uuid.UUID, month time.Time, limit int) (*models.UsageStat, bool, error) {
	query := fmt.Sprintf(
		"UPDATE usage_stats SET %[1]s = %[1]s + 1, updated_at = ? WHERE user_id = ? AND month = ? AND %[1]s < ? RETURNING %[2]s",
		col, returningColumns,
	)
	var rows []models.UsageStat
	if err := r.db.WithContext(ctx).Raw(query, r.now().UTC(), userID, month, limit).Scan(&rows).Error; err != nil {
		return nil, false, fmt.Errorf("increment %s: %w", col, err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return &rows[0], true, nil
}

func (r *repository) Decrement(ctx context.Context, userID uuid.UUID, month time.Time, quota enums.QuotaType) error {
	col, ok := counterColumns[quota]
	if !ok {
		return ErrUnknownQuota
	}
	err := r.db.WithContext(ctx).
		Model(&models.UsageStat{}).
		Where("user_id = ? AND month = ? AND "+col+" > 0", userID, month).
		UpdateColumns(map[string]any{
			col:          gorm.Expr(col + " - 1"),
			"updated_at": r.now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("decrement %s: %w", col, err)
	}
	return nil
}

func (r *repository) AddTokens(ctx context.Context, userID uuid.UUID, month time.Time, tokens int64) error {
	if tokens <= 0 {
		return nil
	}
	if _, err := r.GetOrCreate(ctx, userID, month); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).
		Model(&models.UsageStat{}).
		Where("user_id = ? AND month = ?", userID, month).
		UpdateColumns(map[string]any{
			"tokens_used": gorm.Expr("tokens_used + ?", tokens),
			"updated_at":  r.now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("add tokens: %w", err)
	}
	return nil
}

func (r *repository) ResetMonth(ctx context.Context, userID uuid.UUID, month time.Time) error {
	if _, err := r.GetOrCreate(ctx, userID, month); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).
		Model(&models.UsageStat{}).
		Where("user_id = ? AND month = ?", userID, month).
		UpdateColumns(map[string]any{
			"proposals_used": 0,
			"followups_used": 0,
			"updated_at":     r.now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("reset usage: %w", err)
	}
	return nil
}

func (r *repository) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.UsageStat, error) {
	if limit <= 0 {
		limit = 12
	}
	var rows []models.UsageStat
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("month DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list usage history: %w", err)
	}
	return rows, nil
}

// Used returns the ledger counter for quota.
func Used(entry *models.UsageStat, quota enums.QuotaType) int {
	if entry == nil {
		return 0
	}
	switch quota {
	case enums.QuotaTypeProposal:
		return entry.ProposalsUsed
	case enums.QuotaTypeFollowup:
		return entry.FollowupsUsed
	default:
		return 0
	}
}
