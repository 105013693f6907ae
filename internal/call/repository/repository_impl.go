package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/ringbill/ringbill/internal/call/domain"
	"github.com/ringbill/ringbill/pkg/db/option"
	"github.com/ringbill/ringbill/pkg/db/pagination"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.CallRecord, error) {
	return r.find(ctx, db, orgID, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.CallRecord, error) {
	return r.find(ctx, db, orgID, id, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, forUpdate bool) (*domain.CallRecord, error) {
	query := db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id)
	if forUpdate {
		query = option.LockForUpdate(query)
	}

	var call domain.CallRecord
	err := query.Limit(1).Find(&call).Error
	if err != nil {
		return nil, err
	}
	if call.ID == 0 {
		return nil, nil
	}
	return &call, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]domain.CallRecord, error) {
	query := db.WithContext(ctx).
		Model(&domain.CallRecord{}).
		Where("org_id = ?", orgID)

	if filter.Status != nil {
		query = query.Where("billing_status = ?", *filter.Status)
	}
	if filter.CompanyID != nil {
		query = query.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.Qualified != nil {
		query = query.Where("is_qualified = ?", *filter.Qualified)
	}

	query = option.ApplyPagination(page).Apply(query)
	query = query.Order("started_at DESC, id DESC")

	var calls []domain.CallRecord
	if err := query.Find(&calls).Error; err != nil {
		return nil, err
	}
	return calls, nil
}

func (r *repo) ListSweepCandidateIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, limit int) ([]snowflake.ID, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.CallRecord{}).
		Where("org_id = ? AND billing_status = ? AND (is_qualified = ? OR evaluated_at IS NULL)",
			orgID, domain.BillingStatusPending, true).
		Order("started_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) SetQualified(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, qualified bool, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.CallRecord{}).
		Where("org_id = ? AND id = ? AND billing_status = ?", orgID, id, domain.BillingStatusPending).
		Updates(map[string]any{
			"is_qualified": qualified,
			"evaluated_at": at,
			"updated_at":   at,
		}).Error
}

func (r *repo) TransitionToBilled(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, priceCents int64, ruleID *snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.CallRecord{}).
		Where("org_id = ? AND id = ? AND billing_status = ?", orgID, id, domain.BillingStatusPending).
		Updates(map[string]any{
			"is_qualified":        true,
			"evaluated_at":        at,
			"billing_status":      domain.BillingStatusBilled,
			"billing_price_cents": priceCents,
			"rule_id":             ruleID,
			"billed_at":           at,
			"updated_at":          at,
		})
	return result.RowsAffected, result.Error
}

func (r *repo) UpdateBilledPrice(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, priceCents int64, ruleID *snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.CallRecord{}).
		Where("org_id = ? AND id = ? AND billing_status = ?", orgID, id, domain.BillingStatusBilled).
		Updates(map[string]any{
			"billing_price_cents": priceCents,
			"rule_id":             ruleID,
			"updated_at":          at,
		})
	return result.RowsAffected, result.Error
}

func (r *repo) TransitionStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, from, to domain.BillingStatus, at time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.CallRecord{}).
		Where("org_id = ? AND id = ? AND billing_status = ?", orgID, id, from).
		Updates(map[string]any{
			"billing_status": to,
			"updated_at":     at,
		})
	return result.RowsAffected, result.Error
}
