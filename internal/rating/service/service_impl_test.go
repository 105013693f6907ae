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

	settingsdomain "github.com/ringbill/ringbill/internal/billingsettings/domain"
	calldomain "github.com/ringbill/ringbill/internal/call/domain"
	"github.com/ringbill/ringbill/internal/clock"
	"github.com/ringbill/ringbill/internal/events"
	ruledomain "github.com/ringbill/ringbill/internal/pricingrule/domain"
	ratingdomain "github.com/ringbill/ringbill/internal/rating/domain"
)

type stubSettingsService struct {
	settings settingsdomain.BillingSettings
	err      error
}

func (s stubSettingsService) List(context.Context, snowflake.ID) ([]settingsdomain.BillingSettings, error) {
	return []settingsdomain.BillingSettings{s.settings}, nil
}

func (s stubSettingsService) Resolve(context.Context, snowflake.ID, *snowflake.ID) (*settingsdomain.BillingSettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	settings := s.settings
	return &settings, nil
}

func (s stubSettingsService) Upsert(context.Context, snowflake.ID, settingsdomain.UpsertRequest) (*settingsdomain.BillingSettings, error) {
	settings := s.settings
	return &settings, nil
}

type stubRuleService struct {
	rules []ruledomain.PricingRule
}

func (s stubRuleService) List(context.Context, snowflake.ID) ([]ruledomain.PricingRule, error) {
	return s.rules, nil
}

func (s stubRuleService) ListActive(context.Context, snowflake.ID) ([]ruledomain.PricingRule, error) {
	return s.rules, nil
}

func (s stubRuleService) Create(context.Context, snowflake.ID, ruledomain.CreateRequest) (*ruledomain.PricingRule, error) {
	return nil, nil
}

func (s stubRuleService) Update(context.Context, snowflake.ID, snowflake.ID, map[string]any) (*ruledomain.PricingRule, error) {
	return nil, nil
}

func (s stubRuleService) Delete(context.Context, snowflake.ID, snowflake.ID) error {
	return nil
}

const testSchema = `
CREATE TABLE call_records (
    id                  INTEGER PRIMARY KEY,
    org_id              INTEGER NOT NULL,
    company_id          INTEGER,
    caller_number       TEXT NOT NULL DEFAULT '',
    duration_seconds    INTEGER NOT NULL DEFAULT 0,
    outcome             TEXT NOT NULL DEFAULT '',
    category            TEXT NOT NULL DEFAULT '',
    region              TEXT NOT NULL DEFAULT '',
    postal_code         TEXT NOT NULL DEFAULT '',
    city                TEXT NOT NULL DEFAULT '',
    is_emergency        BOOLEAN NOT NULL DEFAULT false,
    is_exclusive        BOOLEAN NOT NULL DEFAULT false,
    started_at          DATETIME NOT NULL,
    is_qualified        BOOLEAN NOT NULL DEFAULT false,
    evaluated_at        DATETIME,
    billing_status      TEXT NOT NULL DEFAULT 'pending',
    billing_price_cents INTEGER NOT NULL DEFAULT 0,
    rule_id             INTEGER,
    billed_at           DATETIME,
    created_at          DATETIME NOT NULL,
    updated_at          DATETIME NOT NULL
);
CREATE TABLE billing_events (
    id          INTEGER PRIMARY KEY,
    org_id      INTEGER NOT NULL,
    event_type  TEXT NOT NULL,
    payload     TEXT NOT NULL DEFAULT '{}',
    dedupe_key  TEXT,
    published   BOOLEAN NOT NULL DEFAULT false,
    created_at  DATETIME NOT NULL,
    UNIQUE (org_id, dedupe_key)
);
`

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec(testSchema).Error)
	return db
}

func newRatingService(t *testing.T, db *gorm.DB, now time.Time, settings settingsdomain.BillingSettings, rules []ruledomain.PricingRule) ratingdomain.Service {
	t.Helper()
	return NewService(ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       clock.Fixed{T: now},
		SettingsSvc: stubSettingsService{settings: settings},
		RuleSvc:     stubRuleService{rules: rules},
		Outbox:      events.NewOutbox(db, newTestNode(t)),
	})
}

func newTestNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func insertCall(t *testing.T, db *gorm.DB, call calldomain.CallRecord) {
	t.Helper()
	require.NoError(t, db.Create(&call).Error)
}

func TestProcessCallBillsOnce(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	orgID := snowflake.ID(100)
	callID := snowflake.ID(200)

	insertCall(t, db, calldomain.CallRecord{
		ID:              callID,
		OrgID:           orgID,
		DurationSeconds: 180,
		Outcome:         calldomain.OutcomeConnected,
		StartedAt:       now.Add(-time.Hour),
		BillingStatus:   calldomain.BillingStatusPending,
		CreatedAt:       now.Add(-time.Hour),
		UpdatedAt:       now.Add(-time.Hour),
	})

	settings := baseSettings()
	svc := newRatingService(t, db, now, settings, nil)

	first, err := svc.ProcessCall(context.Background(), orgID, callID, ratingdomain.TriggerManual, false)
	require.NoError(t, err)
	assert.True(t, first.Qualified)
	assert.Equal(t, calldomain.BillingStatusBilled, first.Status)
	assert.Equal(t, int64(2500), first.PriceCents)
	assert.False(t, first.AlreadyProcessed)

	second, err := svc.ProcessCall(context.Background(), orgID, callID, ratingdomain.TriggerManual, false)
	require.NoError(t, err)
	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, first.PriceCents, second.PriceCents)
	require.NotNil(t, second.BilledAt)
	assert.Equal(t, first.BilledAt.Unix(), second.BilledAt.Unix())

	// Exactly one billing event regardless of how often the call is processed.
	var eventCount int64
	require.NoError(t, db.Table("billing_events").Where("event_type = ?", events.EventCallBilled).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)
}

func TestProcessCallUnqualifiedStaysPending(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	orgID := snowflake.ID(100)
	callID := snowflake.ID(201)

	insertCall(t, db, calldomain.CallRecord{
		ID:              callID,
		OrgID:           orgID,
		DurationSeconds: 60, // below the 90s minimum
		Outcome:         calldomain.OutcomeConnected,
		StartedAt:       now.Add(-time.Hour),
		BillingStatus:   calldomain.BillingStatusPending,
		CreatedAt:       now.Add(-time.Hour),
		UpdatedAt:       now.Add(-time.Hour),
	})

	svc := newRatingService(t, db, now, baseSettings(), nil)

	result, err := svc.ProcessCall(context.Background(), orgID, callID, ratingdomain.TriggerManual, false)
	require.NoError(t, err)
	assert.False(t, result.Qualified)
	assert.Equal(t, calldomain.BillingStatusPending, result.Status)
	assert.Zero(t, result.PriceCents)

	var call calldomain.CallRecord
	require.NoError(t, db.First(&call, "id = ?", callID).Error)
	assert.Equal(t, calldomain.BillingStatusPending, call.BillingStatus)
	assert.False(t, call.IsQualified)
}

func TestProcessCallAutoTriggerRespectsManualBilling(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	orgID := snowflake.ID(100)
	callID := snowflake.ID(202)

	insertCall(t, db, calldomain.CallRecord{
		ID:              callID,
		OrgID:           orgID,
		DurationSeconds: 240,
		Outcome:         calldomain.OutcomeConnected,
		StartedAt:       now.Add(-time.Hour),
		BillingStatus:   calldomain.BillingStatusPending,
		CreatedAt:       now.Add(-time.Hour),
		UpdatedAt:       now.Add(-time.Hour),
	})

	settings := baseSettings() // AutoBillEnabled is false
	svc := newRatingService(t, db, now, settings, nil)

	result, err := svc.ProcessCall(context.Background(), orgID, callID, ratingdomain.TriggerAuto, false)
	require.NoError(t, err)
	assert.True(t, result.Qualified)
	assert.Equal(t, calldomain.BillingStatusPending, result.Status)
	assert.Equal(t, int64(2500), result.PriceCents)

	var call calldomain.CallRecord
	require.NoError(t, db.First(&call, "id = ?", callID).Error)
	assert.True(t, call.IsQualified)
	assert.Equal(t, calldomain.BillingStatusPending, call.BillingStatus)
}

func TestProcessCallUsesMatchingRule(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	orgID := snowflake.ID(100)
	callID := snowflake.ID(203)

	insertCall(t, db, calldomain.CallRecord{
		ID:              callID,
		OrgID:           orgID,
		Category:        "plumbing",
		DurationSeconds: 240,
		Outcome:         calldomain.OutcomeConnected,
		StartedAt:       now.Add(-time.Hour),
		BillingStatus:   calldomain.BillingStatusPending,
		CreatedAt:       now.Add(-time.Hour),
		UpdatedAt:       now.Add(-time.Hour),
	})

	rules := []ruledomain.PricingRule{
		{ID: 7, Active: true, Category: strptr("plumbing"), BasePriceCents: 4000, Multiplier: 1.5, Priority: 10},
	}
	svc := newRatingService(t, db, now, baseSettings(), rules)

	result, err := svc.ProcessCall(context.Background(), orgID, callID, ratingdomain.TriggerManual, false)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), result.PriceCents)
	require.NotNil(t, result.RuleID)
	assert.Equal(t, snowflake.ID(7), *result.RuleID)
}

func TestProcessCallMissingCall(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	svc := newRatingService(t, db, now, baseSettings(), nil)

	_, err := svc.ProcessCall(context.Background(), 100, 999, ratingdomain.TriggerManual, false)
	assert.ErrorIs(t, err, ratingdomain.ErrCallNotFound)
}

func TestProcessCallForceRebills(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	orgID := snowflake.ID(100)
	callID := snowflake.ID(204)

	insertCall(t, db, calldomain.CallRecord{
		ID:              callID,
		OrgID:           orgID,
		DurationSeconds: 240,
		Outcome:         calldomain.OutcomeConnected,
		StartedAt:       now.Add(-time.Hour),
		BillingStatus:   calldomain.BillingStatusPending,
		CreatedAt:       now.Add(-time.Hour),
		UpdatedAt:       now.Add(-time.Hour),
	})

	svc := newRatingService(t, db, now, baseSettings(), nil)
	first, err := svc.ProcessCall(context.Background(), orgID, callID, ratingdomain.TriggerManual, false)
	require.NoError(t, err)
	require.Equal(t, int64(2500), first.PriceCents)

	// Settings changed; a forced pass picks up the new price but keeps the
	// original billed_at.
	updated := baseSettings()
	updated.BasePriceCents = 3000
	svc = newRatingService(t, db, now.Add(time.Hour), updated, nil)

	result, err := svc.ProcessCall(context.Background(), orgID, callID, ratingdomain.TriggerManual, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), result.PriceCents)
	require.NotNil(t, result.BilledAt)
	assert.Equal(t, first.BilledAt.Unix(), result.BilledAt.Unix())
}

func TestProcessCallForceKeepsBilledWhenUnqualified(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	orgID := snowflake.ID(100)
	callID := snowflake.ID(205)

	insertCall(t, db, calldomain.CallRecord{
		ID:              callID,
		OrgID:           orgID,
		DurationSeconds: 120,
		Outcome:         calldomain.OutcomeConnected,
		StartedAt:       now.Add(-time.Hour),
		BillingStatus:   calldomain.BillingStatusPending,
		CreatedAt:       now.Add(-time.Hour),
		UpdatedAt:       now.Add(-time.Hour),
	})

	svc := newRatingService(t, db, now, baseSettings(), nil)
	first, err := svc.ProcessCall(context.Background(), orgID, callID, ratingdomain.TriggerManual, false)
	require.NoError(t, err)
	require.Equal(t, calldomain.BillingStatusBilled, first.Status)

	// The minimum duration was raised past this call after it was billed. A
	// forced pass reports the stored billed decision instead of pretending
	// the call went back to pending.
	updated := baseSettings()
	updated.MinDurationSeconds = 300
	svc = newRatingService(t, db, now.Add(time.Hour), updated, nil)

	result, err := svc.ProcessCall(context.Background(), orgID, callID, ratingdomain.TriggerManual, true)
	require.NoError(t, err)
	assert.True(t, result.AlreadyProcessed)
	assert.Equal(t, calldomain.BillingStatusBilled, result.Status)
	assert.Equal(t, first.PriceCents, result.PriceCents)

	var call calldomain.CallRecord
	require.NoError(t, db.First(&call, "id = ?", callID).Error)
	assert.Equal(t, calldomain.BillingStatusBilled, call.BillingStatus)
	assert.True(t, call.IsQualified)
}
