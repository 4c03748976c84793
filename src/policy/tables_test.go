package policy

import (
	"testing"

	"homestay/src/types"

	"github.com/stretchr/testify/assert"
)

func TestRefundPercent(t *testing.T) {
	tables := DefaultTables()

	t.Run("full refund well before check-in", func(t *testing.T) {
		assert.Equal(t, 100.0, tables.RefundPercent(types.POLICY_FLEXIBLE, false, 48))
		assert.Equal(t, 100.0, tables.RefundPercent(types.POLICY_MODERATE, false, 120))
		assert.Equal(t, 100.0, tables.RefundPercent(types.POLICY_STRICT, false, 400))
		assert.Equal(t, 100.0, tables.RefundPercent(types.POLICY_SUPER_STRICT, false, 800))
	})

	t.Run("partial refund between cutoffs", func(t *testing.T) {
		assert.Equal(t, 50.0, tables.RefundPercent(types.POLICY_FLEXIBLE, false, 12))
		assert.Equal(t, 50.0, tables.RefundPercent(types.POLICY_MODERATE, false, 72))
		assert.Equal(t, 50.0, tables.RefundPercent(types.POLICY_STRICT, false, 200))
	})

	t.Run("no refund inside partial cutoff", func(t *testing.T) {
		assert.Equal(t, 0.0, tables.RefundPercent(types.POLICY_MODERATE, false, 24))
		assert.Equal(t, 0.0, tables.RefundPercent(types.POLICY_STRICT, false, 100))
		assert.Equal(t, 0.0, tables.RefundPercent(types.POLICY_SUPER_STRICT, false, 48))
	})

	t.Run("enhanced rules are never less favorable", func(t *testing.T) {
		for _, tier := range []types.CancellationTier{
			types.POLICY_FLEXIBLE,
			types.POLICY_MODERATE,
			types.POLICY_STRICT,
			types.POLICY_SUPER_STRICT,
		} {
			for _, hours := range []float64{0, 12, 36, 100, 200, 400, 800} {
				base := tables.RefundPercent(tier, false, hours)
				enhanced := tables.RefundPercent(tier, true, hours)
				assert.GreaterOrEqualf(t, enhanced, base, "tier=%s hours=%v", tier, hours)
			}
		}
	})

	t.Run("unknown tier refunds nothing", func(t *testing.T) {
		assert.Equal(t, 0.0, tables.RefundPercent(types.CancellationTier("bogus"), false, 1000))
	})
}

func TestRescheduleFee(t *testing.T) {
	tables := DefaultTables()
	noMembership := Membership{Status: types.MEMBERSHIP_INACTIVE, Tier: types.LOYALTY_BRONZE}

	t.Run("10 percent inside 48 hours", func(t *testing.T) {
		fee, waived := tables.RescheduleFee(noMembership, 36, 3_530_000)
		assert.False(t, waived)
		assert.InDelta(t, 353_000, fee, 0.01)
	})

	t.Run("5 percent inside 7 days", func(t *testing.T) {
		fee, waived := tables.RescheduleFee(noMembership, 100, 3_530_000)
		assert.False(t, waived)
		assert.InDelta(t, 176_500, fee, 0.01)
	})

	t.Run("free beyond 7 days", func(t *testing.T) {
		fee, waived := tables.RescheduleFee(noMembership, 240, 3_530_000)
		assert.False(t, waived)
		assert.Zero(t, fee)
	})

	t.Run("waived for active gold and above regardless of hours", func(t *testing.T) {
		for _, tier := range []types.LoyaltyTier{types.LOYALTY_GOLD, types.LOYALTY_PLATINUM, types.LOYALTY_DIAMOND} {
			for _, hours := range []float64{1, 36, 100, 240} {
				fee, waived := tables.RescheduleFee(Membership{Status: types.MEMBERSHIP_ACTIVE, Tier: tier}, hours, 3_530_000)
				assert.Truef(t, waived, "tier=%s hours=%v", tier, hours)
				assert.Zerof(t, fee, "tier=%s hours=%v", tier, hours)
			}
		}
	})

	t.Run("not waived when membership lapsed", func(t *testing.T) {
		fee, waived := tables.RescheduleFee(Membership{Status: types.MEMBERSHIP_INACTIVE, Tier: types.LOYALTY_DIAMOND}, 36, 1_000_000)
		assert.False(t, waived)
		assert.InDelta(t, 100_000, fee, 0.01)
	})

	t.Run("silver pays the fee", func(t *testing.T) {
		fee, waived := tables.RescheduleFee(Membership{Status: types.MEMBERSHIP_ACTIVE, Tier: types.LOYALTY_SILVER}, 36, 1_000_000)
		assert.False(t, waived)
		assert.InDelta(t, 100_000, fee, 0.01)
	})
}
