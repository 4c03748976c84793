package common

import (
	"testing"
	"time"

	"homestay/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type LifecycleSuite struct {
	suite.Suite
}

func (s *LifecycleSuite) TestHostTransitions() {
	assert.True(s.T(), CanTransition(types.ROLE_HOST, types.BOOKING_PENDING, types.BOOKING_CANCELLED))
	assert.True(s.T(), CanTransition(types.ROLE_HOST, types.BOOKING_CONFIRMED, types.BOOKING_CANCELLED))

	// hosts may never confirm their own bookings
	assert.False(s.T(), CanTransition(types.ROLE_HOST, types.BOOKING_PENDING, types.BOOKING_CONFIRMED))
	assert.False(s.T(), CanTransition(types.ROLE_HOST, types.BOOKING_CANCELLED, types.BOOKING_CONFIRMED))
	assert.False(s.T(), CanTransition(types.ROLE_HOST, types.BOOKING_CONFIRMED, types.BOOKING_COMPLETED))
}

func (s *LifecycleSuite) TestAdminTransitions() {
	assert.True(s.T(), CanTransition(types.ROLE_ADMIN, types.BOOKING_PENDING, types.BOOKING_CONFIRMED))
	assert.True(s.T(), CanTransition(types.ROLE_ADMIN, types.BOOKING_PENDING, types.BOOKING_CANCELLED))
	assert.True(s.T(), CanTransition(types.ROLE_ADMIN, types.BOOKING_CONFIRMED, types.BOOKING_PENDING))
	assert.True(s.T(), CanTransition(types.ROLE_ADMIN, types.BOOKING_CONFIRMED, types.BOOKING_CANCELLED))
	assert.True(s.T(), CanTransition(types.ROLE_ADMIN, types.BOOKING_CONFIRMED, types.BOOKING_COMPLETED))
	assert.True(s.T(), CanTransition(types.ROLE_ADMIN, types.BOOKING_CANCELLED, types.BOOKING_PENDING))
	assert.True(s.T(), CanTransition(types.ROLE_ADMIN, types.BOOKING_CANCELLED, types.BOOKING_CONFIRMED))
}

func (s *LifecycleSuite) TestCompletedIsTerminal() {
	for _, role := range []types.Role{types.ROLE_GUEST, types.ROLE_HOST, types.ROLE_ADMIN} {
		for _, target := range []types.BookingStatus{
			types.BOOKING_PENDING,
			types.BOOKING_CONFIRMED,
			types.BOOKING_CANCELLED,
		} {
			assert.False(s.T(), CanTransition(role, types.BOOKING_COMPLETED, target),
				"role %s should not move a completed booking to %s", role, target)
		}
	}
}

func (s *LifecycleSuite) TestGuestsHaveNoDirectTransitions() {
	statuses := []types.BookingStatus{
		types.BOOKING_PENDING,
		types.BOOKING_CONFIRMED,
		types.BOOKING_CANCELLED,
		types.BOOKING_COMPLETED,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			assert.False(s.T(), CanTransition(types.ROLE_GUEST, from, to))
		}
	}
}

func (s *LifecycleSuite) TestConfirmSideEffects() {
	now := time.Now().UTC()
	actor := types.Actor{ID: 7, Role: types.ROLE_ADMIN}

	updates := statusSideEffects(types.BOOKING_CONFIRMED, actor, now)
	assert.Equal(s.T(), types.BOOKING_CONFIRMED, updates["status"])
	assert.Equal(s.T(), now, updates["confirmed_at"])
	assert.Nil(s.T(), updates["cancelled_at"])
	assert.Nil(s.T(), updates["cancelled_by"])
	assert.Nil(s.T(), updates["cancellation_reason"])
	assert.NotContains(s.T(), updates, "completed_at")
}

func (s *LifecycleSuite) TestCancelSideEffects() {
	now := time.Now().UTC()
	actor := types.Actor{ID: 9, Role: types.ROLE_HOST}

	updates := statusSideEffects(types.BOOKING_CANCELLED, actor, now)
	assert.Equal(s.T(), now, updates["cancelled_at"])
	assert.Equal(s.T(), uint(9), updates["cancelled_by"])
	assert.Nil(s.T(), updates["confirmed_at"])
	assert.Nil(s.T(), updates["completed_at"])
}

func (s *LifecycleSuite) TestRevertToPendingClearsLifecycleColumns() {
	now := time.Now().UTC()
	actor := types.Actor{ID: 1, Role: types.ROLE_ADMIN}

	updates := statusSideEffects(types.BOOKING_PENDING, actor, now)
	assert.Nil(s.T(), updates["confirmed_at"])
	assert.Nil(s.T(), updates["cancelled_at"])
	assert.Nil(s.T(), updates["completed_at"])
	assert.Nil(s.T(), updates["cancelled_by"])
	assert.Nil(s.T(), updates["cancellation_reason"])
}

func (s *LifecycleSuite) TestPaymentSideEffects() {
	now := time.Now().UTC()
	actor := types.Actor{ID: 3, Role: types.ROLE_ADMIN}
	notes := "chuyển khoản ngân hàng"

	updates := paymentSideEffects(types.PAYMENT_COMPLETED, actor, &notes, now)
	assert.Equal(s.T(), types.PAYMENT_COMPLETED, updates["payment_status"])
	assert.Equal(s.T(), now, updates["payment_confirmed_at"])
	assert.Equal(s.T(), uint(3), updates["payment_confirmed_by"])
	assert.Equal(s.T(), notes, updates["payment_notes"])

	updates = paymentSideEffects(types.PAYMENT_PENDING, actor, nil, now)
	assert.Nil(s.T(), updates["payment_confirmed_at"])
	assert.Nil(s.T(), updates["payment_confirmed_by"])
	assert.NotContains(s.T(), updates, "payment_notes")
}

func (s *LifecycleSuite) TestStatusLabels() {
	assert.Equal(s.T(), "Chờ xác nhận", StatusLabel(types.BOOKING_PENDING))
	assert.Equal(s.T(), "Đã xác nhận", StatusLabel(types.BOOKING_CONFIRMED))
	assert.Equal(s.T(), "Đã hủy", StatusLabel(types.BOOKING_CANCELLED))
	assert.Equal(s.T(), "Hoàn thành", StatusLabel(types.BOOKING_COMPLETED))
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func TestKindOf(t *testing.T) {
	err := opErr(KindForbidden, "no")
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
}
