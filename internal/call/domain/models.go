// Package domain defines the call record as seen by the billing engine.
//
// Call records are produced by the external call-logging pipeline. This
// engine owns only the billing-derived fields: is_qualified, billing_status,
// billing_price_cents, rule_id and billed_at.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type BillingStatus string

const (
	BillingStatusPending  BillingStatus = "pending"
	BillingStatusBilled   BillingStatus = "billed"
	BillingStatusDisputed BillingStatus = "disputed"
	BillingStatusRefunded BillingStatus = "refunded"
)

// Call outcomes reported by the telephony provider. Only connected calls can
// qualify for billing.
const (
	OutcomeConnected = "connected"
	OutcomeBusy      = "busy"
	OutcomeFailed    = "failed"
	OutcomeNoAnswer  = "no_answer"
	OutcomeVoicemail = "voicemail"
)

type CallRecord struct {
	ID                snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID  `gorm:"not null;index" json:"org_id"`
	CompanyID         *snowflake.ID `gorm:"index" json:"company_id,omitempty"`
	CallerNumber      string        `gorm:"type:text;not null" json:"caller_number"`
	DurationSeconds   int           `gorm:"not null" json:"duration_seconds"`
	Outcome           string        `gorm:"type:text;not null" json:"outcome"`
	Category          string        `gorm:"type:text;not null" json:"category"`
	Region            string        `gorm:"type:text;not null" json:"region"`
	PostalCode        string        `gorm:"type:text;not null" json:"postal_code"`
	City              string        `gorm:"type:text;not null" json:"city"`
	IsEmergency       bool          `gorm:"not null" json:"is_emergency"`
	IsExclusive       bool          `gorm:"not null" json:"is_exclusive"`
	StartedAt         time.Time     `gorm:"not null" json:"started_at"`
	IsQualified       bool          `gorm:"not null" json:"is_qualified"`
	EvaluatedAt       *time.Time    `json:"evaluated_at,omitempty"`
	BillingStatus     BillingStatus `gorm:"type:text;not null" json:"billing_status"`
	BillingPriceCents int64         `gorm:"not null" json:"billing_price_cents"`
	RuleID            *snowflake.ID `json:"rule_id,omitempty"`
	BilledAt          *time.Time    `json:"billed_at,omitempty"`
	CreatedAt         time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"not null" json:"updated_at"`
}

func (CallRecord) TableName() string { return "call_records" }

// Connected reports whether the call actually reached someone.
func (c CallRecord) Connected() bool {
	return c.Outcome == OutcomeConnected
}

// ListFilter narrows call listings.
type ListFilter struct {
	Status    *BillingStatus
	CompanyID *snowflake.ID
	Qualified *bool
}

var ErrCallNotFound = errors.New("call_not_found")
