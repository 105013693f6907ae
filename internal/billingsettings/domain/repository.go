package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	ListByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]BillingSettings, error)
	FindByScope(ctx context.Context, db *gorm.DB, orgID snowflake.ID, companyID *snowflake.ID) (*BillingSettings, error)
	FindByScopeForUpdate(ctx context.Context, db *gorm.DB, orgID snowflake.ID, companyID *snowflake.ID) (*BillingSettings, error)
	Insert(ctx context.Context, db *gorm.DB, s *BillingSettings) error
	Update(ctx context.Context, db *gorm.DB, s *BillingSettings) error
}
