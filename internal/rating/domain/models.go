// Package domain defines the call rating contract: qualification, rule
// matching, pricing and the billing decision.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	calldomain "github.com/ringbill/ringbill/internal/call/domain"
)

// Trigger identifies who asked for a call to be processed.
type Trigger string

const (
	// TriggerAuto is the inline/webhook path. Billing only proceeds when the
	// tenant has auto_bill_enabled.
	TriggerAuto Trigger = "auto"
	// TriggerManual is the explicit admin action. It bills qualified calls
	// regardless of the auto-bill flag.
	TriggerManual Trigger = "manual"
)

// CallAttributes are the pricing-relevant attributes of a call. The preview
// endpoint feeds hypothetical attributes through the same code path as real
// billing.
type CallAttributes struct {
	CompanyID       *snowflake.ID `json:"company_id,omitempty"`
	DurationSeconds int           `json:"duration_seconds"`
	Outcome         string        `json:"outcome"`
	Category        string        `json:"category"`
	Region          string        `json:"region"`
	PostalCode      string        `json:"postal_code"`
	City            string        `json:"city"`
	IsEmergency     bool          `json:"is_emergency"`
	IsExclusive     bool          `json:"is_exclusive"`
	StartedAt       time.Time     `json:"started_at"`
}

// AttributesFromCall projects a stored call record onto the pricing inputs.
func AttributesFromCall(call calldomain.CallRecord) CallAttributes {
	return CallAttributes{
		CompanyID:       call.CompanyID,
		DurationSeconds: call.DurationSeconds,
		Outcome:         call.Outcome,
		Category:        call.Category,
		Region:          call.Region,
		PostalCode:      call.PostalCode,
		City:            call.City,
		IsEmergency:     call.IsEmergency,
		IsExclusive:     call.IsExclusive,
		StartedAt:       call.StartedAt,
	}
}

// ProcessResult is the outcome of a billing pass over one call.
type ProcessResult struct {
	CallID           snowflake.ID             `json:"call_id"`
	Qualified        bool                     `json:"qualified"`
	Status           calldomain.BillingStatus `json:"status"`
	PriceCents       int64                    `json:"price_cents"`
	RuleID           *snowflake.ID            `json:"rule_id,omitempty"`
	BilledAt         *time.Time               `json:"billed_at,omitempty"`
	AlreadyProcessed bool                     `json:"already_processed"`
}

// Quote is a pure price preview; nothing is persisted.
type Quote struct {
	Qualified  bool          `json:"qualified"`
	PriceCents int64         `json:"price_cents"`
	RuleID     *snowflake.ID `json:"rule_id,omitempty"`
	RuleCode   string        `json:"rule_code,omitempty"`
}

type Service interface {
	// ProcessCall runs qualification and pricing for one call and persists
	// the decision. Safe to re-invoke: calls past pending return their
	// stored result untouched unless force is set.
	ProcessCall(ctx context.Context, orgID, callID snowflake.ID, trigger Trigger, force bool) (*ProcessResult, error)
	// PreviewPrice computes a quote for hypothetical call attributes.
	PreviewPrice(ctx context.Context, orgID snowflake.ID, attrs CallAttributes) (*Quote, error)
}

var (
	ErrCallNotFound = errors.New("call_not_found")
	ErrInvalidCall  = errors.New("invalid_call_attributes")
)
