// Package domain defines the billing summary surface used by dashboards.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// SummaryFilter scopes the aggregation. From/To bound started_at; a nil
// bound is open-ended.
type SummaryFilter struct {
	CompanyID *snowflake.ID
	From      *time.Time
	To        *time.Time
}

// Summary is the aggregate view over calls and disputes.
type Summary struct {
	TotalCalls          int64 `json:"total_calls"`
	QualifiedCalls      int64 `json:"qualified_calls"`
	BilledCalls         int64 `json:"billed_calls"`
	BilledAmountCents   int64 `json:"billed_amount_cents"`
	DisputedCalls       int64 `json:"disputed_calls"`
	OpenDisputes        int64 `json:"open_disputes"`
	RefundedCalls       int64 `json:"refunded_calls"`
	RefundedAmountCents int64 `json:"refunded_amount_cents"`
	AverageBilledCents  int64 `json:"average_billed_cents"`
}

type Service interface {
	Summary(ctx context.Context, orgID snowflake.ID, filter SummaryFilter) (*Summary, error)
}
