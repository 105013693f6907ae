package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/ringbill/ringbill/internal/billingsettings/domain"
	"github.com/ringbill/ringbill/pkg/db/option"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.BillingSettings, error) {
	var items []domain.BillingSettings
	err := db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("company_id NULLS FIRST").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindByScope(ctx context.Context, db *gorm.DB, orgID snowflake.ID, companyID *snowflake.ID) (*domain.BillingSettings, error) {
	return r.find(ctx, db, orgID, companyID, false)
}

func (r *repo) FindByScopeForUpdate(ctx context.Context, db *gorm.DB, orgID snowflake.ID, companyID *snowflake.ID) (*domain.BillingSettings, error) {
	return r.find(ctx, db, orgID, companyID, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, orgID snowflake.ID, companyID *snowflake.ID, forUpdate bool) (*domain.BillingSettings, error) {
	query := db.WithContext(ctx).Where("org_id = ?", orgID)
	if companyID == nil {
		query = query.Where("company_id IS NULL")
	} else {
		query = query.Where("company_id = ?", *companyID)
	}
	if forUpdate {
		query = option.LockForUpdate(query)
	}

	var s domain.BillingSettings
	err := query.Limit(1).Find(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, s *domain.BillingSettings) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO billing_settings (
			id, org_id, company_id, min_duration_seconds, base_price_cents,
			surge_multiplier, exclusive_multiplier, surge_start_minute, surge_end_minute,
			auto_bill_enabled, dispute_window_hours, min_price_cents, max_price_cents,
			timezone, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.OrgID,
		s.CompanyID,
		s.MinDurationSeconds,
		s.BasePriceCents,
		s.SurgeMultiplier,
		s.ExclusiveMultiplier,
		s.SurgeStartMinute,
		s.SurgeEndMinute,
		s.AutoBillEnabled,
		s.DisputeWindowHours,
		s.MinPriceCents,
		s.MaxPriceCents,
		s.Timezone,
		s.CreatedAt,
		s.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, s *domain.BillingSettings) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billing_settings SET
			min_duration_seconds = ?, base_price_cents = ?,
			surge_multiplier = ?, exclusive_multiplier = ?,
			surge_start_minute = ?, surge_end_minute = ?,
			auto_bill_enabled = ?, dispute_window_hours = ?,
			min_price_cents = ?, max_price_cents = ?,
			timezone = ?, updated_at = ?
		 WHERE id = ? AND org_id = ?`,
		s.MinDurationSeconds,
		s.BasePriceCents,
		s.SurgeMultiplier,
		s.ExclusiveMultiplier,
		s.SurgeStartMinute,
		s.SurgeEndMinute,
		s.AutoBillEnabled,
		s.DisputeWindowHours,
		s.MinPriceCents,
		s.MaxPriceCents,
		s.Timezone,
		s.UpdatedAt,
		s.ID,
		s.OrgID,
	).Error
}
