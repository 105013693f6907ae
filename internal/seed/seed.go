// Package seed bootstraps a default organization and API key for local
// development. Production deployments leave bootstrap.ensure_default_org off
// and provision tenants out of band.
package seed

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apikeydomain "github.com/ringbill/ringbill/internal/apikey/domain"
)

const defaultOrgName = "Default Organization"

// EnsureDefaultOrg creates one organization and an all-scopes API key when no
// organization exists yet. The plaintext key is logged once; only its hash is
// stored.
func EnsureDefaultOrg(ctx context.Context, db *gorm.DB, genID *snowflake.Node, log *zap.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Table("organizations").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	key, err := apikeydomain.GenerateKey()
	if err != nil {
		return err
	}

	orgID := genID.Generate()
	now := time.Now().UTC()

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO organizations (id, name, created_at) VALUES (?, ?, ?)`,
			orgID, defaultOrgName, now,
		).Error; err != nil {
			return err
		}
		return tx.Exec(
			`INSERT INTO api_keys (id, org_id, name, key_hash, scopes, is_active, created_at)
			 VALUES (?, ?, ?, ?, ?, true, ?)`,
			genID.Generate(),
			orgID,
			"bootstrap",
			apikeydomain.HashAPIKey(key),
			scopesLiteral(),
			now,
		).Error
	})
	if err != nil {
		return err
	}

	log.Info("default organization created",
		zap.String("org_id", orgID.String()),
		zap.String("api_key", key),
	)
	return nil
}

func scopesLiteral() string {
	return "{" + apikeydomain.ScopeBillingRead + "," + apikeydomain.ScopeBillingWrite + "," + apikeydomain.ScopeDisputeResolve + "}"
}
