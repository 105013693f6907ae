package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ringbill/ringbill/internal/billingdashboard/domain"
	calldomain "github.com/ringbill/ringbill/internal/call/domain"
	disputedomain "github.com/ringbill/ringbill/internal/dispute/domain"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("billingdashboard.service"),
	}
}

type callAggregate struct {
	TotalCalls        int64
	QualifiedCalls    int64
	BilledCalls       int64
	BilledAmountCents int64
	DisputedCalls     int64
	RefundedCalls     int64
}

type disputeAggregate struct {
	OpenDisputes        int64
	RefundedAmountCents int64
}

func (s *Service) Summary(ctx context.Context, orgID snowflake.ID, filter domain.SummaryFilter) (*domain.Summary, error) {
	var calls callAggregate
	query := s.db.WithContext(ctx).
		Model(&calldomain.CallRecord{}).
		Select(`COUNT(*) AS total_calls,
			COALESCE(SUM(CASE WHEN is_qualified THEN 1 ELSE 0 END), 0) AS qualified_calls,
			COALESCE(SUM(CASE WHEN billed_at IS NOT NULL THEN 1 ELSE 0 END), 0) AS billed_calls,
			COALESCE(SUM(CASE WHEN billed_at IS NOT NULL THEN billing_price_cents ELSE 0 END), 0) AS billed_amount_cents,
			COALESCE(SUM(CASE WHEN billing_status = ? THEN 1 ELSE 0 END), 0) AS disputed_calls,
			COALESCE(SUM(CASE WHEN billing_status = ? THEN 1 ELSE 0 END), 0) AS refunded_calls`,
			calldomain.BillingStatusDisputed, calldomain.BillingStatusRefunded).
		Where("org_id = ?", orgID)
	query = applyScope(query, "started_at", filter)
	if err := query.Scan(&calls).Error; err != nil {
		return nil, err
	}

	var disputes disputeAggregate
	query = s.db.WithContext(ctx).
		Model(&disputedomain.Dispute{}).
		Select(`COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS open_disputes,
			COALESCE(SUM(CASE WHEN refund_amount_cents IS NOT NULL THEN refund_amount_cents ELSE 0 END), 0) AS refunded_amount_cents`,
			disputedomain.StatusOpen).
		Where("org_id = ?", orgID)
	query = applyScope(query, "created_at", filter)
	if err := query.Scan(&disputes).Error; err != nil {
		return nil, err
	}

	summary := &domain.Summary{
		TotalCalls:          calls.TotalCalls,
		QualifiedCalls:      calls.QualifiedCalls,
		BilledCalls:         calls.BilledCalls,
		BilledAmountCents:   calls.BilledAmountCents,
		DisputedCalls:       calls.DisputedCalls,
		OpenDisputes:        disputes.OpenDisputes,
		RefundedCalls:       calls.RefundedCalls,
		RefundedAmountCents: disputes.RefundedAmountCents,
	}
	if summary.BilledCalls > 0 {
		summary.AverageBilledCents = summary.BilledAmountCents / summary.BilledCalls
	}
	return summary, nil
}

func applyScope(query *gorm.DB, timeColumn string, filter domain.SummaryFilter) *gorm.DB {
	if filter.CompanyID != nil {
		query = query.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.From != nil {
		query = query.Where(timeColumn+" >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where(timeColumn+" < ?", *filter.To)
	}
	return query
}
