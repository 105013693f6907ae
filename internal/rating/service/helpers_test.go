package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	settingsdomain "github.com/ringbill/ringbill/internal/billingsettings/domain"
	ruledomain "github.com/ringbill/ringbill/internal/pricingrule/domain"
	ratingdomain "github.com/ringbill/ringbill/internal/rating/domain"
)

func baseSettings() settingsdomain.BillingSettings {
	return settingsdomain.BillingSettings{
		MinDurationSeconds:  90,
		BasePriceCents:      2500,
		SurgeMultiplier:     1.5,
		ExclusiveMultiplier: 2.0,
		DisputeWindowHours:  72,
		Timezone:            "UTC",
	}
}

func TestIsQualified(t *testing.T) {
	settings := baseSettings()

	tests := []struct {
		name     string
		duration int
		outcome  string
		want     bool
	}{
		{"one second below minimum", 89, "connected", false},
		{"exactly minimum", 90, "connected", true},
		{"above minimum", 300, "connected", true},
		{"long but not connected", 600, "voicemail", false},
		{"busy never qualifies", 600, "busy", false},
		{"no outcome reported", 120, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := ratingdomain.CallAttributes{
				DurationSeconds: tt.duration,
				Outcome:         tt.outcome,
			}
			assert.Equal(t, tt.want, isQualified(attrs, settings))
		})
	}
}

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }
func boolptr(b bool) *bool    { return &b }

func TestMatchRulePriority(t *testing.T) {
	attrs := ratingdomain.CallAttributes{
		Category:  "plumbing",
		Region:    "north",
		StartedAt: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	}

	rules := []ruledomain.PricingRule{
		{ID: 1, Priority: 5, Active: true, Category: strptr("plumbing")},
		{ID: 2, Priority: 10, Active: true, Category: strptr("plumbing")},
		{ID: 3, Priority: 10, Active: true},
	}

	best := matchRule(attrs, rules, time.UTC)
	require.NotNil(t, best)
	// Priority 10 beats 5; the tie between rules 2 and 3 goes to the lower ID.
	assert.Equal(t, int64(2), int64(best.ID))
}

func TestMatchRulePredicates(t *testing.T) {
	monday10am := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) // Monday
	attrs := ratingdomain.CallAttributes{
		Category:    "Roofing",
		Region:      "south",
		PostalCode:  "90210",
		City:        "Springfield",
		IsEmergency: false,
		StartedAt:   monday10am,
	}

	tests := []struct {
		name  string
		rule  ruledomain.PricingRule
		match bool
	}{
		{"wildcard rule", ruledomain.PricingRule{Active: true}, true},
		{"category case-insensitive", ruledomain.PricingRule{Active: true, Category: strptr("roofing")}, true},
		{"category mismatch", ruledomain.PricingRule{Active: true, Category: strptr("plumbing")}, false},
		{"postal prefix match", ruledomain.PricingRule{Active: true, PostalPrefix: strptr("902")}, true},
		{"postal prefix mismatch", ruledomain.PricingRule{Active: true, PostalPrefix: strptr("100")}, false},
		{"emergency required", ruledomain.PricingRule{Active: true, IsEmergency: boolptr(true)}, false},
		{"non-emergency required", ruledomain.PricingRule{Active: true, IsEmergency: boolptr(false)}, true},
		{"inside time window", ruledomain.PricingRule{Active: true, WindowStartMin: intptr(540), WindowEndMin: intptr(720)}, true},
		{"window end inclusive", ruledomain.PricingRule{Active: true, WindowStartMin: intptr(540), WindowEndMin: intptr(600)}, true},
		{"outside time window", ruledomain.PricingRule{Active: true, WindowStartMin: intptr(660), WindowEndMin: intptr(720)}, false},
		{"midnight wrap covers morning", ruledomain.PricingRule{Active: true, WindowStartMin: intptr(1320), WindowEndMin: intptr(660)}, true},
		{"matching weekday", ruledomain.PricingRule{Active: true, DaysOfWeek: []int64{1}}, true},
		{"wrong weekday", ruledomain.PricingRule{Active: true, DaysOfWeek: []int64{0, 6}}, false},
		{"retired rule never matches", ruledomain.PricingRule{Active: false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchRule(attrs, []ruledomain.PricingRule{tt.rule}, time.UTC)
			assert.Equal(t, tt.match, got != nil)
		})
	}
}

func TestCalculatePrice(t *testing.T) {
	quiet := time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)
	surge := time.Date(2026, 3, 4, 18, 30, 0, 0, time.UTC)

	settings := baseSettings()
	settings.SurgeStartMinute = intptr(17 * 60)
	settings.SurgeEndMinute = intptr(21 * 60)

	t.Run("base price without rule", func(t *testing.T) {
		attrs := ratingdomain.CallAttributes{StartedAt: quiet}
		assert.Equal(t, int64(2500), calculatePrice(attrs, nil, settings))
	})

	t.Run("surge multiplier applies inside window", func(t *testing.T) {
		attrs := ratingdomain.CallAttributes{StartedAt: surge}
		assert.Equal(t, int64(3750), calculatePrice(attrs, nil, settings))
	})

	t.Run("rule price replaces base", func(t *testing.T) {
		rule := &ruledomain.PricingRule{BasePriceCents: 4000, Multiplier: 1.25}
		attrs := ratingdomain.CallAttributes{StartedAt: quiet}
		assert.Equal(t, int64(5000), calculatePrice(attrs, rule, settings))
	})

	t.Run("exclusive multiplier stacks with surge", func(t *testing.T) {
		attrs := ratingdomain.CallAttributes{StartedAt: surge, IsExclusive: true}
		// 2500 * 1.5 * 2.0
		assert.Equal(t, int64(7500), calculatePrice(attrs, nil, settings))
	})

	t.Run("half cents round up", func(t *testing.T) {
		rule := &ruledomain.PricingRule{BasePriceCents: 333, Multiplier: 1.5}
		attrs := ratingdomain.CallAttributes{StartedAt: quiet}
		// 499.5 rounds to 500
		assert.Equal(t, int64(500), calculatePrice(attrs, rule, settings))
	})

	t.Run("clamped to max", func(t *testing.T) {
		capped := settings
		capped.MaxPriceCents = 3000
		attrs := ratingdomain.CallAttributes{StartedAt: surge}
		assert.Equal(t, int64(3000), calculatePrice(attrs, nil, capped))
	})

	t.Run("raised to min", func(t *testing.T) {
		floored := settings
		floored.MinPriceCents = 1000
		rule := &ruledomain.PricingRule{BasePriceCents: 100, Multiplier: 1.0}
		attrs := ratingdomain.CallAttributes{StartedAt: quiet}
		assert.Equal(t, int64(1000), calculatePrice(attrs, rule, floored))
	})

	t.Run("zero max means uncapped", func(t *testing.T) {
		rule := &ruledomain.PricingRule{BasePriceCents: 1_000_000, Multiplier: 3.0}
		attrs := ratingdomain.CallAttributes{StartedAt: quiet}
		assert.Equal(t, int64(3_000_000), calculatePrice(attrs, rule, settings))
	})
}

func TestClampPriceNeverNegative(t *testing.T) {
	assert.Equal(t, int64(0), clampPrice(-50, 0, 0))
}
