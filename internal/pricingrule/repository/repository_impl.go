package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/ringbill/ringbill/internal/pricingrule/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rule *domain.PricingRule) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO pricing_rules (
			id, org_id, code, name, idempotency_key, category, region, postal_prefix, city,
			days_of_week, window_start_min, window_end_min, is_emergency,
			base_price_cents, multiplier, priority, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.OrgID,
		rule.Code,
		rule.Name,
		rule.IdempotencyKey,
		rule.Category,
		rule.Region,
		rule.PostalPrefix,
		rule.City,
		rule.DaysOfWeek,
		rule.WindowStartMin,
		rule.WindowEndMin,
		rule.IsEmergency,
		rule.BasePriceCents,
		rule.Multiplier,
		rule.Priority,
		rule.Active,
		rule.CreatedAt,
		rule.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.PricingRule, error) {
	var rule domain.PricingRule
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&rule).Error
	if err != nil {
		return nil, err
	}
	if rule.ID == 0 {
		return nil, nil
	}
	return &rule, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, orgID snowflake.ID, code string) (*domain.PricingRule, error) {
	var rule domain.PricingRule
	err := db.WithContext(ctx).
		Where("org_id = ? AND code = ?", orgID, code).
		Limit(1).
		Find(&rule).Error
	if err != nil {
		return nil, err
	}
	if rule.ID == 0 {
		return nil, nil
	}
	return &rule, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, key string) (*domain.PricingRule, error) {
	var rule domain.PricingRule
	err := db.WithContext(ctx).
		Where("org_id = ? AND idempotency_key = ?", orgID, key).
		Limit(1).
		Find(&rule).Error
	if err != nil {
		return nil, err
	}
	if rule.ID == 0 {
		return nil, nil
	}
	return &rule, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.PricingRule, error) {
	var rules []domain.PricingRule
	err := db.WithContext(ctx).
		Where("org_id = ? AND active = ?", orgID, true).
		Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.PricingRule, error) {
	var rules []domain.PricingRule
	err := db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("priority DESC, id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repo) ApplyDiff(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, diff map[string]any) (int64, error) {
	if len(diff) == 0 {
		return 0, domain.ErrEmptyUpdate
	}
	values := make(map[string]any, len(diff)+1)
	for k, v := range diff {
		values[k] = v
	}
	values["updated_at"] = time.Now().UTC()

	result := db.WithContext(ctx).
		Model(&domain.PricingRule{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Updates(values)
	return result.RowsAffected, result.Error
}

func (r *repo) Retire(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.PricingRule{}).
		Where("org_id = ? AND id = ? AND active = ?", orgID, id, true).
		Updates(map[string]any{"active": false, "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}
