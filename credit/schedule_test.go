package credit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/credit"
)

func TestStandardSchedule_FrontStub(t *testing.T) {
	t.Parallel()

	effective, maturity := date(2025, 3, 21), date(2030, 3, 20)
	s, err := credit.StandardSchedule(effective, maturity, 3, calendar.WeekendsOnly, false)
	require.NoError(t, err)

	require.Len(t, s.CouponStart, 20)
	require.Len(t, s.CouponEnd, 20)
	require.Len(t, s.CouponPayment, 20)
	assert.Equal(t, effective, s.CouponStart[0])
	assert.Equal(t, date(2025, 6, 20), s.CouponEnd[0])
	// 2025-09-20 is a Saturday.
	assert.Equal(t, date(2025, 9, 22), s.CouponEnd[1])
	assert.Equal(t, maturity, s.CouponEnd[19])
	assert.Equal(t, maturity, s.CouponPayment[19])
	for i := 1; i < 20; i++ {
		assert.Equal(t, s.CouponEnd[i-1], s.CouponStart[i])
		assert.Equal(t, s.CouponEnd[i], s.CouponPayment[i])
	}

	assert.Equal(t, []time.Time{effective}, s.ProtectionStart)
	assert.Equal(t, []time.Time{maturity}, s.ProtectionEnd)
}

func TestStandardSchedule_PayFront(t *testing.T) {
	t.Parallel()

	s, err := credit.StandardSchedule(date(2025, 3, 21), date(2026, 3, 20), 3, calendar.WeekendsOnly, true)
	require.NoError(t, err)
	require.Len(t, s.CouponPayment, 4)
	assert.Equal(t, date(2025, 3, 21), s.CouponPayment[0])
	assert.Equal(t, date(2025, 9, 22), s.CouponPayment[2])
}

func TestStandardSchedule_Errors(t *testing.T) {
	t.Parallel()

	_, err := credit.StandardSchedule(date(2025, 3, 21), date(2025, 3, 21), 3, calendar.WeekendsOnly, false)
	require.ErrorIs(t, err, credit.ErrInvalidSchedule)

	_, err = credit.StandardSchedule(date(2025, 3, 21), date(2026, 3, 21), 0, calendar.WeekendsOnly, false)
	require.ErrorIs(t, err, credit.ErrInvalidSchedule)
}

func TestIMMMaturity(t *testing.T) {
	t.Parallel()

	m, err := credit.IMMMaturity(date(2025, 1, 15), "5Y")
	require.NoError(t, err)
	assert.Equal(t, date(2030, 3, 20), m)

	m, err = credit.IMMMaturity(date(2025, 3, 20), "1Y")
	require.NoError(t, err)
	assert.Equal(t, date(2026, 6, 20), m)

	_, err = credit.IMMMaturity(date(2025, 3, 20), "1W")
	require.Error(t, err)
}
