package stream_test

import (
	"testing"

	"github.com/warp/stream-engine/stream"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func amt(v int64) stream.Amount {
	return stream.NewAmount(v)
}

// linear returns the canonical example schedule: deposit 1000, rate 1/s,
// start 0, end 1000, cliff configurable.
func linear(cliff uint64) (start, c, end uint64, rate, deposit stream.Amount) {
	return 0, cliff, 1000, amt(1), amt(1000)
}

// =============================================================================
// ACCRUAL CALCULATOR TESTS
// =============================================================================

func TestAccrued_ZeroAtStart(t *testing.T) {
	start, cliff, end, rate, deposit := linear(0)
	got := stream.AccruedAmount(start, cliff, end, rate, deposit, 0)
	if !got.IsZero() {
		t.Errorf("expected 0 accrued at t=0, got %s", got)
	}
}

func TestAccrued_LinearMidway(t *testing.T) {
	start, cliff, end, rate, deposit := linear(0)
	got := stream.AccruedAmount(start, cliff, end, rate, deposit, 300)
	if !got.Equal(amt(300)) {
		t.Errorf("expected 300 accrued at t=300, got %s", got)
	}
}

func TestAccrued_CappedAtDeposit(t *testing.T) {
	// GIVEN: A stream fully elapsed long ago
	// WHEN: Querying far past end_time
	// THEN: Accrual is capped at the deposit, never beyond
	start, cliff, end, rate, deposit := linear(0)
	got := stream.AccruedAmount(start, cliff, end, rate, deposit, 1500)
	if !got.Equal(deposit) {
		t.Errorf("expected accrual capped at %s, got %s", deposit, got)
	}
}

func TestAccrued_BeforeStart_SaturatesToZero(t *testing.T) {
	// now < start must yield elapsed 0, never a negative duration
	got := stream.AccruedAmount(100, 100, 1100, amt(1), amt(1000), 50)
	if !got.IsZero() {
		t.Errorf("expected 0 accrued before start, got %s", got)
	}
}

func TestAccrued_CliffGatesVisibility(t *testing.T) {
	// GIVEN: cliff at t=500 on a schedule started at t=0
	// WHEN: Querying one second before and exactly at the cliff
	// THEN: 0 before the cliff; the full backlog (from start, not cliff) at it
	start, cliff, end, rate, deposit := linear(500)

	before := stream.AccruedAmount(start, cliff, end, rate, deposit, 499)
	if !before.IsZero() {
		t.Errorf("expected 0 before cliff, got %s", before)
	}

	at := stream.AccruedAmount(start, cliff, end, rate, deposit, 500)
	if !at.Equal(amt(500)) {
		t.Errorf("expected 500 at cliff (time basis is start), got %s", at)
	}
}

func TestAccrued_OverflowCapsAtDeposit(t *testing.T) {
	// GIVEN: A rate so large that elapsed*rate leaves the 128-bit range
	// WHEN: Computing accrual
	// THEN: The overflow is read as "unbounded" and capped at the deposit
	hugeRate := stream.MustParseAmount("170141183460469231731687303715884105727")
	deposit := stream.MustParseAmount("170141183460469231731687303715884105727")
	got := stream.AccruedAmount(0, 0, 10, hugeRate, deposit, 5)
	if !got.Equal(deposit) {
		t.Errorf("expected overflow to cap at deposit, got %s", got)
	}
}

func TestAccrued_NeverNegative_NeverAboveDeposit(t *testing.T) {
	start, cliff, end, rate, deposit := linear(250)
	for _, now := range []uint64{0, 1, 249, 250, 251, 500, 999, 1000, 1001, 1 << 40} {
		got := stream.AccruedAmount(start, cliff, end, rate, deposit, now)
		if got.IsNegative() {
			t.Errorf("accrued(%d) = %s is negative", now, got)
		}
		if got.GreaterThan(deposit) {
			t.Errorf("accrued(%d) = %s exceeds deposit", now, got)
		}
	}
}

// =============================================================================
// PER-STATUS ACCRUAL SOURCE
// =============================================================================

func TestAccruedForStream_PausedKeepsAccruing(t *testing.T) {
	s := &stream.Stream{
		DepositAmount: amt(1000),
		RatePerSecond: amt(1),
		StartTime:     0,
		CliffTime:     0,
		EndTime:       1000,
		Status:        stream.StatusPaused,
	}
	got := stream.AccruedForStream(s, 400)
	if !got.Equal(amt(400)) {
		t.Errorf("paused stream must keep accruing by time: expected 400, got %s", got)
	}
}

func TestAccruedForStream_CompletedIsDeterministic(t *testing.T) {
	s := &stream.Stream{
		DepositAmount:   amt(1000),
		RatePerSecond:   amt(1),
		StartTime:       0,
		CliffTime:       0,
		EndTime:         1000,
		WithdrawnAmount: amt(1000),
		Status:          stream.StatusCompleted,
	}
	for _, now := range []uint64{0, 1000, 99999} {
		if got := stream.AccruedForStream(s, now); !got.Equal(amt(1000)) {
			t.Errorf("completed stream accrual at %d: expected deposit, got %s", now, got)
		}
	}
}

func TestAccruedForStream_CancelledIsFrozen(t *testing.T) {
	at := uint64(300)
	s := &stream.Stream{
		DepositAmount: amt(1000),
		RatePerSecond: amt(1),
		StartTime:     0,
		CliffTime:     0,
		EndTime:       1000,
		Status:        stream.StatusCancelled,
		CancelledAt:   &at,
	}
	for _, now := range []uint64{300, 301, 1000, 99999} {
		if got := stream.AccruedForStream(s, now); !got.Equal(amt(300)) {
			t.Errorf("cancelled stream accrual at %d: expected frozen 300, got %s", now, got)
		}
	}
}
