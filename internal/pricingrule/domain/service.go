package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	List(ctx context.Context, orgID snowflake.ID) ([]PricingRule, error)
	// ListActive returns the active rules for evaluation by the rating engine.
	ListActive(ctx context.Context, orgID snowflake.ID) ([]PricingRule, error)
	Create(ctx context.Context, orgID snowflake.ID, req CreateRequest) (*PricingRule, error)
	// Update applies a partial field diff validated against the allow-list.
	Update(ctx context.Context, orgID, ruleID snowflake.ID, fields map[string]any) (*PricingRule, error)
	// Delete retires a rule. Rules are never hard-deleted; retired rules stop
	// matching but keep their history.
	Delete(ctx context.Context, orgID, ruleID snowflake.ID) error
}
