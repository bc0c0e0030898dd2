package stream

// ValidateParams checks creation parameters for internal consistency.
// It is a pure precondition gate: no storage writes, no fund movement, so a
// rejected creation has zero observable effect.
//
// Checks run in a fixed order: positive amounts, time bounds, total
// streamable coverage, then sender != recipient. The coverage check uses
// checked multiplication; overflow there is its own failure kind
// (ErrStreamableOverflow), never reported as an insufficient deposit.
func ValidateParams(sender AccountID, p CreateParams) error {
	if !p.DepositAmount.IsPositive() {
		return ErrNonPositiveDeposit
	}
	if !p.RatePerSecond.IsPositive() {
		return ErrNonPositiveRate
	}
	if p.StartTime >= p.EndTime {
		return ErrInvalidTimeRange
	}
	if p.CliffTime < p.StartTime || p.CliffTime > p.EndTime {
		return ErrCliffOutOfRange
	}
	total, ok := p.RatePerSecond.CheckedMulSeconds(p.EndTime - p.StartTime)
	if !ok {
		return ErrStreamableOverflow
	}
	if p.DepositAmount.LessThan(total) {
		return ErrInsufficientDeposit
	}
	if sender == p.Recipient {
		return ErrSameSenderRecipient
	}
	return nil
}
