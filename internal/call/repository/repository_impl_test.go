package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ringbill/ringbill/internal/call/domain"
)

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
`

const testOrgID = snowflake.ID(100)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec(testSchema).Error)
	return db
}

func insertCall(t *testing.T, db *gorm.DB, call domain.CallRecord) {
	t.Helper()
	if call.StartedAt.IsZero() {
		call.StartedAt = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	}
	call.CreatedAt = call.StartedAt
	call.UpdatedAt = call.StartedAt
	require.NoError(t, db.Create(&call).Error)
}

func TestListSweepCandidateIDs(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	evaluated := time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC)

	// Qualified and waiting to be billed.
	insertCall(t, db, domain.CallRecord{
		ID: 1, OrgID: testOrgID,
		BillingStatus: domain.BillingStatusPending,
		IsQualified:   true,
		EvaluatedAt:   &evaluated,
	})
	// Never evaluated; inline processing missed it.
	insertCall(t, db, domain.CallRecord{
		ID: 2, OrgID: testOrgID,
		BillingStatus: domain.BillingStatusPending,
	})
	// Evaluated and found unqualified; not a candidate.
	insertCall(t, db, domain.CallRecord{
		ID: 3, OrgID: testOrgID,
		BillingStatus: domain.BillingStatusPending,
		EvaluatedAt:   &evaluated,
	})
	// Already billed.
	insertCall(t, db, domain.CallRecord{
		ID: 4, OrgID: testOrgID,
		BillingStatus: domain.BillingStatusBilled,
		IsQualified:   true,
		EvaluatedAt:   &evaluated,
	})
	// Another tenant's call.
	insertCall(t, db, domain.CallRecord{
		ID: 5, OrgID: 999,
		BillingStatus: domain.BillingStatusPending,
	})

	ids, err := repo.ListSweepCandidateIDs(context.Background(), db, testOrgID, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []snowflake.ID{1, 2}, ids)
}

func TestSetQualifiedStampsEvaluation(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	insertCall(t, db, domain.CallRecord{
		ID: 1, OrgID: testOrgID,
		BillingStatus: domain.BillingStatusPending,
	})

	require.NoError(t, repo.SetQualified(context.Background(), db, testOrgID, 1, false, now))

	var call domain.CallRecord
	require.NoError(t, db.First(&call, "id = ?", 1).Error)
	assert.False(t, call.IsQualified)
	require.NotNil(t, call.EvaluatedAt)
	assert.Equal(t, now.Unix(), call.EvaluatedAt.Unix())

	// Once recorded as unqualified the call drops out of the sweep.
	ids, err := repo.ListSweepCandidateIDs(context.Background(), db, testOrgID, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
