// Package domain defines per-tenant billing configuration.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// BillingSettings is the billing configuration for an org, optionally
// overridden per company. One active row per (org, company) pair.
type BillingSettings struct {
	ID                  snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID               snowflake.ID  `gorm:"not null;index" json:"org_id"`
	CompanyID           *snowflake.ID `gorm:"index" json:"company_id,omitempty"`
	MinDurationSeconds  int           `gorm:"not null" json:"min_duration_seconds"`
	BasePriceCents      int64         `gorm:"not null" json:"base_price_cents"`
	SurgeMultiplier     float64       `gorm:"not null" json:"surge_multiplier"`
	ExclusiveMultiplier float64       `gorm:"not null" json:"exclusive_multiplier"`
	SurgeStartMinute    *int          `json:"surge_start_minute,omitempty"`
	SurgeEndMinute      *int          `json:"surge_end_minute,omitempty"`
	AutoBillEnabled     bool          `gorm:"not null" json:"auto_bill_enabled"`
	DisputeWindowHours  int           `gorm:"not null" json:"dispute_window_hours"`
	MinPriceCents       int64         `gorm:"not null" json:"min_price_cents"`
	MaxPriceCents       int64         `gorm:"not null" json:"max_price_cents"`
	Timezone            string        `gorm:"type:text;not null" json:"timezone"`
	CreatedAt           time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time     `gorm:"not null" json:"updated_at"`
}

func (BillingSettings) TableName() string { return "billing_settings" }

// UpsertRequest carries the fields to merge onto the existing settings row.
// Nil fields keep their current value.
type UpsertRequest struct {
	CompanyID           *snowflake.ID `json:"company_id,omitempty"`
	MinDurationSeconds  *int          `json:"min_duration_seconds,omitempty"`
	BasePriceCents      *int64        `json:"base_price_cents,omitempty"`
	SurgeMultiplier     *float64      `json:"surge_multiplier,omitempty"`
	ExclusiveMultiplier *float64      `json:"exclusive_multiplier,omitempty"`
	SurgeStartMinute    *int          `json:"surge_start_minute,omitempty"`
	SurgeEndMinute      *int          `json:"surge_end_minute,omitempty"`
	AutoBillEnabled     *bool         `json:"auto_bill_enabled,omitempty"`
	DisputeWindowHours  *int          `json:"dispute_window_hours,omitempty"`
	MinPriceCents       *int64        `json:"min_price_cents,omitempty"`
	MaxPriceCents       *int64        `json:"max_price_cents,omitempty"`
	Timezone            *string       `json:"timezone,omitempty"`
}

var (
	ErrSettingsNotFound   = errors.New("billing_settings_not_found")
	ErrInvalidPriceBounds = errors.New("invalid_price_bounds")
	ErrInvalidMultiplier  = errors.New("invalid_multiplier")
	ErrInvalidDuration    = errors.New("invalid_min_duration")
	ErrInvalidWindow      = errors.New("invalid_dispute_window")
	ErrInvalidTimezone    = errors.New("invalid_timezone")
	ErrInvalidSurgeWindow = errors.New("invalid_surge_window")
)

// Location resolves the configured timezone, falling back to UTC.
func (s BillingSettings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SurgeActive reports whether the given instant falls inside the configured
// surge window, boundaries inclusive, in the settings timezone. Windows may
// wrap past midnight.
func (s BillingSettings) SurgeActive(at time.Time) bool {
	if s.SurgeStartMinute == nil || s.SurgeEndMinute == nil {
		return false
	}
	local := at.In(s.Location())
	minute := local.Hour()*60 + local.Minute()
	start, end := *s.SurgeStartMinute, *s.SurgeEndMinute
	if start <= end {
		return minute >= start && minute <= end
	}
	return minute >= start || minute <= end
}
