package service

import (
	"math"
	"strings"
	"time"

	settingsdomain "github.com/ringbill/ringbill/internal/billingsettings/domain"
	ruledomain "github.com/ringbill/ringbill/internal/pricingrule/domain"
	ratingdomain "github.com/ringbill/ringbill/internal/rating/domain"
)

// isQualified decides whether a call is billable at all: the call must have
// connected and lasted at least the configured minimum, boundary inclusive.
func isQualified(attrs ratingdomain.CallAttributes, settings settingsdomain.BillingSettings) bool {
	if attrs.Outcome != "" && !isConnectedOutcome(attrs.Outcome) {
		return false
	}
	return attrs.DurationSeconds >= settings.MinDurationSeconds
}

func isConnectedOutcome(outcome string) bool {
	return strings.EqualFold(strings.TrimSpace(outcome), "connected")
}

// matchRule selects the best rule for the call: filter on predicates, take
// the highest priority, break ties on the lowest rule ID (earliest created).
// Returns nil when no rule matches.
func matchRule(attrs ratingdomain.CallAttributes, rules []ruledomain.PricingRule, loc *time.Location) *ruledomain.PricingRule {
	var best *ruledomain.PricingRule
	for i := range rules {
		rule := &rules[i]
		if !rule.Active || !ruleMatches(attrs, rule, loc) {
			continue
		}
		if best == nil || rule.Priority > best.Priority ||
			(rule.Priority == best.Priority && rule.ID < best.ID) {
			best = rule
		}
	}
	return best
}

func ruleMatches(attrs ratingdomain.CallAttributes, rule *ruledomain.PricingRule, loc *time.Location) bool {
	if rule.Category != nil && !strings.EqualFold(*rule.Category, attrs.Category) {
		return false
	}
	if rule.Region != nil && !strings.EqualFold(*rule.Region, attrs.Region) {
		return false
	}
	if rule.PostalPrefix != nil && !strings.HasPrefix(strings.ToUpper(attrs.PostalCode), strings.ToUpper(*rule.PostalPrefix)) {
		return false
	}
	if rule.City != nil && !strings.EqualFold(*rule.City, attrs.City) {
		return false
	}
	if rule.IsEmergency != nil && *rule.IsEmergency != attrs.IsEmergency {
		return false
	}

	local := attrs.StartedAt.In(loc)

	if len(rule.DaysOfWeek) > 0 {
		day := int64(local.Weekday())
		found := false
		for _, d := range rule.DaysOfWeek {
			if d == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if rule.WindowStartMin != nil && rule.WindowEndMin != nil {
		minute := local.Hour()*60 + local.Minute()
		start, end := *rule.WindowStartMin, *rule.WindowEndMin
		if start <= end {
			if minute < start || minute > end {
				return false
			}
		} else if minute < start && minute > end {
			return false
		}
	}

	return true
}

// calculatePrice applies base x rule multiplier x surge x exclusive, then
// clamps to the tenant's price bounds. Pure: shared by billing and preview.
func calculatePrice(attrs ratingdomain.CallAttributes, rule *ruledomain.PricingRule, settings settingsdomain.BillingSettings) int64 {
	base := settings.BasePriceCents
	multiplier := 1.0
	if rule != nil {
		base = rule.BasePriceCents
		multiplier = rule.Multiplier
	}

	raw := float64(base) * multiplier
	if settings.SurgeActive(attrs.StartedAt) {
		raw *= settings.SurgeMultiplier
	}
	if attrs.IsExclusive {
		raw *= settings.ExclusiveMultiplier
	}

	price := roundCents(raw)
	return clampPrice(price, settings.MinPriceCents, settings.MaxPriceCents)
}

func clampPrice(price, min, max int64) int64 {
	if price < 0 {
		price = 0
	}
	if max > 0 && price > max {
		price = max
	}
	if price < min {
		price = min
	}
	return price
}

func roundCents(raw float64) int64 {
	return int64(math.Floor(raw + 0.5))
}
