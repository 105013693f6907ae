// Package events defines billing event types and the transactional outbox.
package events

// Billing event types picked up by the external notification sender.
const (
	EventCallBilled      = "call.billed"
	EventDisputeOpened   = "dispute.opened"
	EventDisputeResolved = "dispute.resolved"
)

// CallBilledPayload captures the minimal data for a billed-call event.
type CallBilledPayload struct {
	CallID     string `json:"call_id"`
	OrgID      string `json:"org_id"`
	PriceCents int64  `json:"price_cents"`
	RuleID     string `json:"rule_id,omitempty"`
}

func (p CallBilledPayload) ToMap() map[string]any {
	payload := map[string]any{
		"call_id":     p.CallID,
		"org_id":      p.OrgID,
		"price_cents": p.PriceCents,
	}
	if p.RuleID != "" {
		payload["rule_id"] = p.RuleID
	}
	return payload
}

// DisputePayload captures the minimal data for dispute lifecycle events.
type DisputePayload struct {
	DisputeID         string `json:"dispute_id"`
	Reference         string `json:"reference"`
	CallID            string `json:"call_id"`
	Resolution        string `json:"resolution,omitempty"`
	RefundAmountCents int64  `json:"refund_amount_cents,omitempty"`
}

func (p DisputePayload) ToMap() map[string]any {
	payload := map[string]any{
		"dispute_id": p.DisputeID,
		"reference":  p.Reference,
		"call_id":    p.CallID,
	}
	if p.Resolution != "" {
		payload["resolution"] = p.Resolution
	}
	if p.RefundAmountCents > 0 {
		payload["refund_amount_cents"] = p.RefundAmountCents
	}
	return payload
}
