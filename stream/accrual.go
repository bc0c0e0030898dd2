package stream

// =============================================================================
// ACCRUAL CALCULATOR - Pure time-based accrual
// =============================================================================

// AccruedAmount returns how much of the deposit the recipient has earned at
// the given time. It is state-agnostic: status handling (frozen values for
// Completed/Cancelled streams) lives in AccruedForStream.
//
// Rules, in precedence order:
//   - before the cliff, nothing is visible (the cliff gates visibility only;
//     the time basis is start, not cliff)
//   - elapsed = now - start, saturating at zero
//   - raw = elapsed * rate with checked multiplication; overflow means the
//     true value is far beyond any representable deposit, so cap
//   - result = min(raw, deposit)
//
// end is part of the schedule but needs no explicit clamp here: validation
// guarantees deposit >= rate * (end - start), so the deposit cap already
// bounds accrual past end.
func AccruedAmount(start, cliff, end uint64, rate, deposit Amount, now uint64) Amount {
	if now < cliff {
		return Amount{}
	}
	var elapsed uint64
	if now > start {
		elapsed = now - start
	}
	raw, ok := rate.CheckedMulSeconds(elapsed)
	if !ok {
		return deposit
	}
	return raw.Min(deposit)
}

// AccruedForStream applies the per-status accrual source:
//
//	Active, Paused -> time-based accrual at now (pausing blocks withdrawals,
//	                  not the accrual clock)
//	Completed      -> the full deposit, timestamp-independent
//	Cancelled      -> frozen at the cancellation timestamp
func AccruedForStream(s *Stream, now uint64) Amount {
	switch s.Status {
	case StatusCompleted:
		return s.DepositAmount
	case StatusCancelled:
		at := now
		if s.CancelledAt != nil {
			at = *s.CancelledAt
		}
		return AccruedAmount(s.StartTime, s.CliffTime, s.EndTime, s.RatePerSecond, s.DepositAmount, at)
	default:
		return AccruedAmount(s.StartTime, s.CliffTime, s.EndTime, s.RatePerSecond, s.DepositAmount, now)
	}
}
