package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/ringbill/ringbill/pkg/db/pagination"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*CallRecord, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*CallRecord, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]CallRecord, error)
	// ListSweepCandidateIDs feeds the auto-bill sweep: pending calls that
	// already qualified, plus pending calls never evaluated (evaluated_at is
	// null). Evaluated-unqualified calls are skipped until re-evaluated
	// explicitly.
	ListSweepCandidateIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, limit int) ([]snowflake.ID, error)
	// SetQualified records the qualification decision and stamps
	// evaluated_at, without advancing billing status.
	SetQualified(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, qualified bool, at time.Time) error
	// TransitionToBilled performs the guarded pending -> billed update. It
	// only touches rows still in pending and reports rows affected, so two
	// concurrent billing attempts cannot both succeed.
	TransitionToBilled(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, priceCents int64, ruleID *snowflake.ID, at time.Time) (int64, error)
	// UpdateBilledPrice rewrites price and rule on a call still in billed
	// state, preserving billed_at. Used by forced reprocessing.
	UpdateBilledPrice(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, priceCents int64, ruleID *snowflake.ID, at time.Time) (int64, error)
	// TransitionStatus moves between post-billing states under the dispute
	// lifecycle (billed <-> disputed, disputed -> refunded).
	TransitionStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, from, to BillingStatus, at time.Time) (int64, error)
}
