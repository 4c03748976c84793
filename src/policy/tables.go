package policy

import (
	"homestay/src/types"
)

// RefundRule describes one cancellation tier: cancel earlier than
// FullRefundHours before check-in for a full refund, earlier than
// PartialRefundHours for PartialPercent, otherwise nothing.
type RefundRule struct {
	FullRefundHours    float64
	PartialRefundHours float64
	PartialPercent     float64
}

// FeeTier is one step of the reschedule fee ladder. WithinHours is the
// upper bound on hours-until-checkin for the tier to apply.
type FeeTier struct {
	WithinHours float64
	Percent     float64
}

// Tables is the read-only policy lookup injected into the lifecycle engine
// and the preview endpoints, so both sides compute from the same data.
type Tables struct {
	Cancellation map[types.CancellationTier]RefundRule
	// Enhanced holds the more favorable rules applied when the guest's
	// membership carries the enhanced-refund benefit.
	Enhanced map[types.CancellationTier]RefundRule

	// RescheduleTiers must be ordered by ascending WithinHours.
	RescheduleTiers []FeeTier

	FreeReschedule map[types.LoyaltyTier]bool
	EnhancedRefund map[types.LoyaltyTier]bool
}

func DefaultTables() Tables {
	return Tables{
		Cancellation: map[types.CancellationTier]RefundRule{
			types.POLICY_FLEXIBLE:     {FullRefundHours: 24, PartialRefundHours: 0, PartialPercent: 50},
			types.POLICY_MODERATE:     {FullRefundHours: 120, PartialRefundHours: 48, PartialPercent: 50},
			types.POLICY_STRICT:       {FullRefundHours: 336, PartialRefundHours: 168, PartialPercent: 50},
			types.POLICY_SUPER_STRICT: {FullRefundHours: 720, PartialRefundHours: 336, PartialPercent: 50},
		},
		Enhanced: map[types.CancellationTier]RefundRule{
			types.POLICY_FLEXIBLE:     {FullRefundHours: 12, PartialRefundHours: 0, PartialPercent: 75},
			types.POLICY_MODERATE:     {FullRefundHours: 96, PartialRefundHours: 24, PartialPercent: 75},
			types.POLICY_STRICT:       {FullRefundHours: 312, PartialRefundHours: 144, PartialPercent: 75},
			types.POLICY_SUPER_STRICT: {FullRefundHours: 696, PartialRefundHours: 312, PartialPercent: 75},
		},
		RescheduleTiers: []FeeTier{
			{WithinHours: 48, Percent: 10},
			{WithinHours: 168, Percent: 5},
		},
		FreeReschedule: map[types.LoyaltyTier]bool{
			types.LOYALTY_GOLD:     true,
			types.LOYALTY_PLATINUM: true,
			types.LOYALTY_DIAMOND:  true,
		},
		EnhancedRefund: map[types.LoyaltyTier]bool{
			types.LOYALTY_PLATINUM: true,
			types.LOYALTY_DIAMOND:  true,
		},
	}
}

// Membership is the read-only guest loyalty context consumed by the
// calculators. The engine never mutates it.
type Membership struct {
	Status types.MembershipStatus
	Tier   types.LoyaltyTier
}

func (m Membership) active() bool {
	return m.Status == types.MEMBERSHIP_ACTIVE
}

// HasFreeReschedule reports whether the membership waives reschedule fees.
func (t Tables) HasFreeReschedule(m Membership) bool {
	return m.active() && t.FreeReschedule[m.Tier]
}

// HasEnhancedRefund reports whether the membership gets the enhanced
// cancellation rules.
func (t Tables) HasEnhancedRefund(m Membership) bool {
	return m.active() && t.EnhancedRefund[m.Tier]
}

// RefundPercent computes the cancellation refund percentage for a policy
// tier at the given hours before check-in. Unknown tiers refund nothing.
func (t Tables) RefundPercent(tier types.CancellationTier, enhanced bool, hoursUntilCheckIn float64) float64 {
	rules := t.Cancellation
	if enhanced {
		rules = t.Enhanced
	}
	rule, ok := rules[tier]
	if !ok {
		return 0
	}
	if hoursUntilCheckIn >= rule.FullRefundHours {
		return 100
	}
	if hoursUntilCheckIn >= rule.PartialRefundHours {
		return rule.PartialPercent
	}
	return 0
}

// RescheduleFee computes the fee charged against the original total price
// for moving a stay, and whether the membership waived it entirely.
func (t Tables) RescheduleFee(m Membership, hoursUntilCheckIn float64, originalTotal float64) (fee float64, waived bool) {
	if t.HasFreeReschedule(m) {
		return 0, true
	}
	for _, tier := range t.RescheduleTiers {
		if hoursUntilCheckIn < tier.WithinHours {
			return originalTotal * tier.Percent / 100, false
		}
	}
	return 0, false
}
