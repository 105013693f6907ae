package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/ringbill/ringbill/internal/dispute/domain"
	"github.com/ringbill/ringbill/pkg/db/option"
	"github.com/ringbill/ringbill/pkg/db/pagination"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, d *domain.Dispute) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO call_disputes
		 (id, org_id, company_id, call_id, reference, idempotency_key, dispute_type, description, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.OrgID,
		d.CompanyID,
		d.CallID,
		d.Reference,
		d.IdempotencyKey,
		d.DisputeType,
		d.Description,
		d.Status,
		d.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Dispute, error) {
	return r.find(ctx, db, orgID, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Dispute, error) {
	return r.find(ctx, db, orgID, id, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, forUpdate bool) (*domain.Dispute, error) {
	query := db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id)
	if forUpdate {
		query = option.LockForUpdate(query)
	}

	var dispute domain.Dispute
	if err := query.Limit(1).Find(&dispute).Error; err != nil {
		return nil, err
	}
	if dispute.ID == 0 {
		return nil, nil
	}
	return &dispute, nil
}

func (r *repo) FindOpenByCallID(ctx context.Context, db *gorm.DB, orgID, callID snowflake.ID) (*domain.Dispute, error) {
	var dispute domain.Dispute
	err := option.LockForUpdate(db.WithContext(ctx)).
		Where("org_id = ? AND call_id = ? AND status = ?", orgID, callID, domain.StatusOpen).
		Limit(1).
		Find(&dispute).Error
	if err != nil {
		return nil, err
	}
	if dispute.ID == 0 {
		return nil, nil
	}
	return &dispute, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, key string) (*domain.Dispute, error) {
	var dispute domain.Dispute
	err := db.WithContext(ctx).
		Where("org_id = ? AND idempotency_key = ?", orgID, key).
		Limit(1).
		Find(&dispute).Error
	if err != nil {
		return nil, err
	}
	if dispute.ID == 0 {
		return nil, nil
	}
	return &dispute, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]domain.Dispute, error) {
	query := db.WithContext(ctx).
		Model(&domain.Dispute{}).
		Where("org_id = ?", orgID)

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CompanyID != nil {
		query = query.Where("company_id = ?", *filter.CompanyID)
	}

	query = option.ApplyPagination(page).Apply(query)
	query = query.Order("created_at DESC, id DESC")

	var disputes []domain.Dispute
	if err := query.Find(&disputes).Error; err != nil {
		return nil, err
	}
	return disputes, nil
}

func (r *repo) MarkResolved(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, resolution domain.Resolution, refundCents *int64, notes string, resolvedBy snowflake.ID, at time.Time) (int64, error) {
	var notesValue *string
	if notes != "" {
		notesValue = &notes
	}
	result := db.WithContext(ctx).
		Model(&domain.Dispute{}).
		Where("org_id = ? AND id = ? AND status = ?", orgID, id, domain.StatusOpen).
		Updates(map[string]any{
			"status":              domain.StatusResolved,
			"resolution":          resolution,
			"refund_amount_cents": refundCents,
			"resolution_notes":    notesValue,
			"resolved_by":         resolvedBy,
			"resolved_at":         at,
		})
	return result.RowsAffected, result.Error
}
