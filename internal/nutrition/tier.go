package nutrition

import (
	"fmt"
	"strings"
)

// WeekTier is the whole-week intensity classification.
type WeekTier string

const (
	TierPeak     WeekTier = "peak"
	TierBuild    WeekTier = "build"
	TierBase     WeekTier = "base"
	TierRecovery WeekTier = "recovery"
)

// DayCounts is the day-type multiset of a week.
type DayCounts struct {
	High     int
	Training int
	Rest     int
}

// CountDays tallies a sequence of day types.
func CountDays(days []DayType) DayCounts {
	var c DayCounts
	for _, d := range days {
		switch d {
		case DayHigh:
			c.High++
		case DayTraining:
			c.Training++
		case DayRest:
			c.Rest++
		}
	}
	return c
}

var tierRules = map[WeekTier]func(DayCounts) bool{
	TierPeak:     func(c DayCounts) bool { return c.High >= 3 },
	TierBuild:    func(c DayCounts) bool { return c.High >= 1 && c.High <= 2 },
	TierBase:     func(c DayCounts) bool { return c.High == 0 && c.Training >= 3 },
	TierRecovery: func(c DayCounts) bool { return c.Rest >= 4 },
}

// DefaultTierOrder is the rule priority used when none is configured.
var DefaultTierOrder = []WeekTier{TierPeak, TierBuild, TierBase, TierRecovery}

// TierPolicy evaluates tier rules in a fixed order; the first match wins.
type TierPolicy struct {
	order []WeekTier
}

// NewTierPolicy builds a policy from tier names. An empty list yields the
// default order. Unknown or repeated names are rejected.
func NewTierPolicy(names []string) (TierPolicy, error) {
	if len(names) == 0 {
		return DefaultTierPolicy(), nil
	}
	seen := make(map[WeekTier]bool, len(names))
	order := make([]WeekTier, 0, len(names))
	for _, n := range names {
		t := WeekTier(strings.ToLower(strings.TrimSpace(n)))
		if _, ok := tierRules[t]; !ok {
			return TierPolicy{}, fmt.Errorf("unknown week tier %q", n)
		}
		if seen[t] {
			return TierPolicy{}, fmt.Errorf("week tier %q listed twice", n)
		}
		seen[t] = true
		order = append(order, t)
	}
	return TierPolicy{order: order}, nil
}

// DefaultTierPolicy returns the peak, build, base, recovery order.
func DefaultTierPolicy() TierPolicy {
	return TierPolicy{order: DefaultTierOrder}
}

// Order returns the evaluation order.
func (p TierPolicy) Order() []WeekTier {
	if len(p.order) == 0 {
		return DefaultTierOrder
	}
	return p.order
}

// Classify returns the first matching tier. matched is false when no rule
// applied and build was used.
func (p TierPolicy) Classify(c DayCounts) (tier WeekTier, matched bool) {
	for _, t := range p.Order() {
		if tierRules[t](c) {
			return t, true
		}
	}
	return TierBuild, false
}
