// Package domain defines tenant pricing rules and their update contract.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

// PricingRule prices calls that match its predicates. Nil predicate fields
// are wildcards. Rules are unordered in storage; evaluation orders them by
// priority (higher wins), ties broken by lowest ID (earliest created).
type PricingRule struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID  `gorm:"not null;index" json:"org_id"`
	Code           string        `gorm:"type:text;not null" json:"code"`
	Name           string        `gorm:"type:text;not null" json:"name"`
	IdempotencyKey *string       `gorm:"type:text" json:"-"`
	Category       *string       `gorm:"type:text" json:"category,omitempty"`
	Region         *string       `gorm:"type:text" json:"region,omitempty"`
	PostalPrefix   *string       `gorm:"type:text" json:"postal_prefix,omitempty"`
	City           *string       `gorm:"type:text" json:"city,omitempty"`
	DaysOfWeek     pq.Int64Array `gorm:"type:integer[]" json:"days_of_week,omitempty"`
	WindowStartMin *int          `json:"window_start_min,omitempty"`
	WindowEndMin   *int          `json:"window_end_min,omitempty"`
	IsEmergency    *bool         `json:"is_emergency,omitempty"`
	BasePriceCents int64         `gorm:"not null" json:"base_price_cents"`
	Multiplier     float64       `gorm:"not null" json:"multiplier"`
	Priority       int           `gorm:"not null" json:"priority"`
	Active         bool          `gorm:"not null" json:"active"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updated_at"`
}

func (PricingRule) TableName() string { return "pricing_rules" }

// CreateRequest carries the fields for a new rule. IdempotencyKey comes from
// the request header, not the body; retries with the same key return the
// originally created rule.
type CreateRequest struct {
	Name           string        `json:"name"`
	IdempotencyKey string        `json:"-"`
	Category       *string       `json:"category,omitempty"`
	Region         *string       `json:"region,omitempty"`
	PostalPrefix   *string       `json:"postal_prefix,omitempty"`
	City           *string       `json:"city,omitempty"`
	DaysOfWeek     []int64       `json:"days_of_week,omitempty"`
	WindowStartMin *int          `json:"window_start_min,omitempty"`
	WindowEndMin   *int          `json:"window_end_min,omitempty"`
	IsEmergency    *bool         `json:"is_emergency,omitempty"`
	BasePriceCents int64         `json:"base_price_cents"`
	Multiplier     float64       `json:"multiplier"`
	Priority       int           `json:"priority"`
}

var (
	ErrRuleNotFound      = errors.New("pricing_rule_not_found")
	ErrInvalidRuleName   = errors.New("invalid_rule_name")
	ErrInvalidPrice      = errors.New("invalid_base_price")
	ErrInvalidMultiplier = errors.New("invalid_multiplier")
	ErrInvalidWindow     = errors.New("invalid_time_window")
	ErrInvalidDays       = errors.New("invalid_days_of_week")
	ErrInvalidField      = errors.New("invalid_update_field")
	ErrEmptyUpdate       = errors.New("empty_update")
	ErrDuplicateCode     = errors.New("duplicate_rule_code")
)
