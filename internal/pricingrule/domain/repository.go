package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rule *PricingRule) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*PricingRule, error)
	FindByCode(ctx context.Context, db *gorm.DB, orgID snowflake.ID, code string) (*PricingRule, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, key string) (*PricingRule, error)
	ListActive(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]PricingRule, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]PricingRule, error)
	ApplyDiff(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, diff map[string]any) (int64, error)
	Retire(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error)
}
