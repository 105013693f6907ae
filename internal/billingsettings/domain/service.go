package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// List returns the org-level row plus any company overrides.
	List(ctx context.Context, orgID snowflake.ID) ([]BillingSettings, error)
	// Resolve returns the effective settings for a company, falling back to
	// the org-level row when no company override exists.
	Resolve(ctx context.Context, orgID snowflake.ID, companyID *snowflake.ID) (*BillingSettings, error)
	// Upsert merges the request onto the current row inside a transaction,
	// creating the row when absent. Last write wins.
	Upsert(ctx context.Context, orgID snowflake.ID, req UpsertRequest) (*BillingSettings, error)
}
