package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/ringbill/ringbill/pkg/db/pagination"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, d *Dispute) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Dispute, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Dispute, error)
	// FindOpenByCallID locks any open dispute row for the call; the lookup
	// runs inside the create transaction to keep the one-open-dispute
	// invariant race-free.
	FindOpenByCallID(ctx context.Context, db *gorm.DB, orgID, callID snowflake.ID) (*Dispute, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, key string) (*Dispute, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]Dispute, error)
	// MarkResolved flips an open dispute to resolved and reports rows
	// affected; zero means it was already resolved.
	MarkResolved(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, resolution Resolution, refundCents *int64, notes string, resolvedBy snowflake.ID, at time.Time) (int64, error)
}
