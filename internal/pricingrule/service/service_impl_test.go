package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ringbill/ringbill/internal/clock"
	"github.com/ringbill/ringbill/internal/pricingrule/domain"
)

const testSchema = `
CREATE TABLE pricing_rules (
    id               INTEGER PRIMARY KEY,
    org_id           INTEGER NOT NULL,
    code             TEXT NOT NULL,
    name             TEXT NOT NULL,
    idempotency_key  TEXT,
    category         TEXT,
    region           TEXT,
    postal_prefix    TEXT,
    city             TEXT,
    days_of_week     TEXT,
    window_start_min INTEGER,
    window_end_min   INTEGER,
    is_emergency     BOOLEAN,
    base_price_cents INTEGER NOT NULL,
    multiplier       REAL NOT NULL,
    priority         INTEGER NOT NULL,
    active           BOOLEAN NOT NULL,
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME NOT NULL,
    UNIQUE (org_id, code)
);
CREATE UNIQUE INDEX idx_pricing_rules_idempotency ON pricing_rules (org_id, idempotency_key)
    WHERE idempotency_key IS NOT NULL;
`

const testOrgID = snowflake.ID(100)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec(testSchema).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.Fixed{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	})
}

func TestCreateRuleSlugsCode(t *testing.T) {
	svc := newTestService(t)

	rule, err := svc.Create(context.Background(), testOrgID, domain.CreateRequest{
		Name:           "Emergency Plumbing / After Hours",
		BasePriceCents: 5000,
		Priority:       10,
	})
	require.NoError(t, err)

	assert.Equal(t, "emergency-plumbing-after-hours", rule.Code)
	assert.True(t, rule.Active)
	// Zero multiplier defaults to 1.0 rather than zeroing every price.
	assert.Equal(t, 1.0, rule.Multiplier)
}

func TestCreateRuleRejectsDuplicateCode(t *testing.T) {
	svc := newTestService(t)
	req := domain.CreateRequest{Name: "Weekend Rate", BasePriceCents: 3000}

	_, err := svc.Create(context.Background(), testOrgID, req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), testOrgID, req)
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestCreateRuleIdempotencyKey(t *testing.T) {
	svc := newTestService(t)

	req := domain.CreateRequest{
		Name:           "Weekend Rate",
		BasePriceCents: 3000,
		IdempotencyKey: "retry-91ab",
	}
	first, err := svc.Create(context.Background(), testOrgID, req)
	require.NoError(t, err)

	// The retry returns the original rule, even when the body drifted.
	req.BasePriceCents = 9999
	second, err := svc.Create(context.Background(), testOrgID, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(3000), second.BasePriceCents)

	// Without a key the duplicate code is still rejected.
	_, err = svc.Create(context.Background(), testOrgID, domain.CreateRequest{
		Name:           "Weekend Rate",
		BasePriceCents: 3000,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestCreateRuleValidation(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{"blank name", domain.CreateRequest{Name: "   "}, domain.ErrInvalidRuleName},
		{"negative price", domain.CreateRequest{Name: "x", BasePriceCents: -1}, domain.ErrInvalidPrice},
		{"negative multiplier", domain.CreateRequest{Name: "x", Multiplier: -1}, domain.ErrInvalidMultiplier},
		{"half-open window", domain.CreateRequest{Name: "x", WindowStartMin: iptr(60)}, domain.ErrInvalidWindow},
		{"day out of range", domain.CreateRequest{Name: "x", DaysOfWeek: []int64{8}}, domain.ErrInvalidDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), testOrgID, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdateRuleAppliesDiff(t *testing.T) {
	svc := newTestService(t)

	rule, err := svc.Create(context.Background(), testOrgID, domain.CreateRequest{
		Name:           "Weekend Rate",
		BasePriceCents: 3000,
		Priority:       5,
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), testOrgID, rule.ID, map[string]any{
		"base_price_cents": 3500,
		"priority":         8,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3500), updated.BasePriceCents)
	assert.Equal(t, 8, updated.Priority)
	// The code never changes after creation.
	assert.Equal(t, rule.Code, updated.Code)
}

func TestUpdateMissingRule(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Update(context.Background(), testOrgID, 999, map[string]any{"priority": 1})
	assert.ErrorIs(t, err, domain.ErrRuleNotFound)
}

func TestDeleteRetiresRule(t *testing.T) {
	svc := newTestService(t)

	rule, err := svc.Create(context.Background(), testOrgID, domain.CreateRequest{
		Name:           "Weekend Rate",
		BasePriceCents: 3000,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), testOrgID, rule.ID))

	active, err := svc.ListActive(context.Background(), testOrgID)
	require.NoError(t, err)
	assert.Empty(t, active)

	// The rule keeps its history and stays listable.
	all, err := svc.List(context.Background(), testOrgID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Active)

	// Retiring twice reports not found rather than silently succeeding.
	assert.ErrorIs(t, svc.Delete(context.Background(), testOrgID, rule.ID), domain.ErrRuleNotFound)
}

func iptr(v int) *int { return &v }
