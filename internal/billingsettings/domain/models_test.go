package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func minute(m int) *int { return &m }

func TestSurgeActive(t *testing.T) {
	evening := BillingSettings{
		SurgeStartMinute: minute(17 * 60),
		SurgeEndMinute:   minute(21 * 60),
		Timezone:         "UTC",
	}

	tests := []struct {
		name     string
		settings BillingSettings
		at       time.Time
		want     bool
	}{
		{"no window configured", BillingSettings{Timezone: "UTC"}, time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC), false},
		{"inside window", evening, time.Date(2026, 3, 4, 18, 30, 0, 0, time.UTC), true},
		{"start boundary inclusive", evening, time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC), true},
		{"end boundary inclusive", evening, time.Date(2026, 3, 4, 21, 0, 0, 0, time.UTC), true},
		{"just before start", evening, time.Date(2026, 3, 4, 16, 59, 0, 0, time.UTC), false},
		{"just after end", evening, time.Date(2026, 3, 4, 21, 1, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.settings.SurgeActive(tt.at))
		})
	}
}

func TestSurgeActiveMidnightWrap(t *testing.T) {
	overnight := BillingSettings{
		SurgeStartMinute: minute(22 * 60),
		SurgeEndMinute:   minute(6 * 60),
		Timezone:         "UTC",
	}

	assert.True(t, overnight.SurgeActive(time.Date(2026, 3, 4, 23, 0, 0, 0, time.UTC)))
	assert.True(t, overnight.SurgeActive(time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)))
	assert.False(t, overnight.SurgeActive(time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)))
}

func TestSurgeActiveUsesTenantTimezone(t *testing.T) {
	berlin := BillingSettings{
		SurgeStartMinute: minute(17 * 60),
		SurgeEndMinute:   minute(21 * 60),
		Timezone:         "Europe/Berlin",
	}

	// 17:30 UTC in March is 18:30 in Berlin: inside the window.
	assert.True(t, berlin.SurgeActive(time.Date(2026, 3, 4, 17, 30, 0, 0, time.UTC)))
	// 21:30 UTC is 22:30 in Berlin: outside.
	assert.False(t, berlin.SurgeActive(time.Date(2026, 3, 4, 21, 30, 0, 0, time.UTC)))
}

func TestLocationFallsBackToUTC(t *testing.T) {
	s := BillingSettings{Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, s.Location())
}
