// Package domain defines the dispute lifecycle for billed calls.
//
// A dispute moves open -> resolved, one way. Resolution is one of approved
// (full refund), rejected (charge stands) or partial_refund. At most one
// open dispute may exist per call.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

type Resolution string

const (
	ResolutionApproved      Resolution = "approved"
	ResolutionRejected      Resolution = "rejected"
	ResolutionPartialRefund Resolution = "partial_refund"
)

func (r Resolution) Valid() bool {
	switch r {
	case ResolutionApproved, ResolutionRejected, ResolutionPartialRefund:
		return true
	default:
		return false
	}
}

type Dispute struct {
	ID                snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID  `gorm:"not null;index" json:"org_id"`
	CompanyID         *snowflake.ID `gorm:"index" json:"company_id,omitempty"`
	CallID            snowflake.ID  `gorm:"not null;index" json:"call_id"`
	Reference         string        `gorm:"type:text;not null;uniqueIndex" json:"reference"`
	IdempotencyKey    *string       `gorm:"type:text" json:"-"`
	DisputeType       string        `gorm:"type:text;not null" json:"dispute_type"`
	Description       string        `gorm:"type:text;not null" json:"description"`
	Status            Status        `gorm:"type:text;not null" json:"status"`
	Resolution        *Resolution   `gorm:"type:text" json:"resolution,omitempty"`
	RefundAmountCents *int64        `json:"refund_amount_cents,omitempty"`
	ResolutionNotes   *string       `gorm:"type:text" json:"resolution_notes,omitempty"`
	ResolvedBy        *snowflake.ID `json:"resolved_by,omitempty"`
	CreatedAt         time.Time     `gorm:"not null" json:"created_at"`
	ResolvedAt        *time.Time    `json:"resolved_at,omitempty"`
}

func (Dispute) TableName() string { return "call_disputes" }

// CreateRequest opens a dispute against a billed call. IdempotencyKey, when
// set, makes retries of the same request return the originally opened dispute.
type CreateRequest struct {
	CallID         snowflake.ID
	CompanyID      *snowflake.ID
	DisputeType    string
	Description    string
	IdempotencyKey string
}

// ResolveRequest closes an open dispute.
type ResolveRequest struct {
	Resolution        Resolution
	RefundAmountCents *int64
	Notes             string
	ResolvedBy        snowflake.ID
}

// ListFilter narrows dispute listings.
type ListFilter struct {
	Status    *Status
	CompanyID *snowflake.ID
}

var (
	ErrDisputeNotFound        = errors.New("dispute_not_found")
	ErrMissingDisputeType     = errors.New("missing_dispute_type")
	ErrCallNotBilled          = errors.New("call_not_billed")
	ErrDisputeWindowClosed    = errors.New("dispute_window_closed")
	ErrDisputeAlreadyOpen     = errors.New("dispute_already_open")
	ErrDisputeAlreadyResolved = errors.New("dispute_already_resolved")
	ErrInvalidResolution      = errors.New("invalid_resolution")
	ErrInvalidRefundAmount    = errors.New("invalid_refund_amount")
)
