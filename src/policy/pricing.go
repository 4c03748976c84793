package policy

import "time"

// ServiceFeeRate is applied over the nightly subtotal plus additional
// services on every recompute.
const ServiceFeeRate = 0.10

// StaySnapshot carries the money fields of the current booking record that
// a recompute derives from.
type StaySnapshot struct {
	CheckIn                 time.Time
	CheckOut                time.Time
	Nights                  int
	BasePrice               float64
	CleaningFee             float64
	AdditionalServicesTotal float64
	TotalPrice              float64
}

// Quote is the result of repricing a stay over a new date range, before any
// reschedule fee is applied.
type Quote struct {
	OldNights          int
	NewNights          int
	NightlyRate        float64
	NewSubtotal        float64
	NewServiceFee      float64
	NewTotalBeforeFees float64
	PriceDifference    float64
	IsUpgrade          bool
	IsDowngrade        bool
}

// Nights returns the stay length in whole days of [checkIn, checkOut).
func Nights(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn).Hours() / 24)
}

// Recalculate reprices the stay over [newCheckIn, newCheckOut). The nightly
// rate is derived from the current record (basePrice / nights) rather than
// stored, which keeps repriced records compatible with existing ones at the
// cost of rounding drift across repeated reschedules.
func Recalculate(current StaySnapshot, newCheckIn, newCheckOut time.Time) Quote {
	oldNights := current.Nights
	if oldNights == 0 {
		oldNights = Nights(current.CheckIn, current.CheckOut)
	}
	newNights := Nights(newCheckIn, newCheckOut)

	nightlyRate := 0.0
	if oldNights > 0 {
		nightlyRate = current.BasePrice / float64(oldNights)
	}
	newSubtotal := nightlyRate * float64(newNights)
	newServiceFee := (newSubtotal + current.AdditionalServicesTotal) * ServiceFeeRate
	newTotalBeforeFees := newSubtotal + current.CleaningFee + newServiceFee + current.AdditionalServicesTotal
	priceDifference := newTotalBeforeFees - current.TotalPrice

	return Quote{
		OldNights:          oldNights,
		NewNights:          newNights,
		NightlyRate:        nightlyRate,
		NewSubtotal:        newSubtotal,
		NewServiceFee:      newServiceFee,
		NewTotalBeforeFees: newTotalBeforeFees,
		PriceDifference:    priceDifference,
		IsUpgrade:          priceDifference > 0,
		IsDowngrade:        priceDifference < 0,
	}
}

// SettlementAmounts splits a quote plus reschedule fee into what the guest
// owes and what is refunded. Both values are always populated; in the common
// case only one of them is non-zero.
func SettlementAmounts(q Quote, rescheduleFee float64) (amountToPay float64, refundAmount float64) {
	if q.IsUpgrade {
		return q.PriceDifference + rescheduleFee, 0
	}
	if q.IsDowngrade {
		refund := -q.PriceDifference - rescheduleFee
		if refund < 0 {
			refund = 0
		}
		return rescheduleFee, refund
	}
	return rescheduleFee, 0
}
