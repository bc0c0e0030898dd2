/*
Package stream provides the core token-streaming engine.

PURPOSE:
  This package contains the domain types and algorithms for continuous
  payment streams: a sender escrows a deposit once and the recipient earns
  the right to withdraw it linearly over time, optionally gated by a cliff.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A 128-bit signed integer quantity with checked arithmetic
  - Stream: One funded vesting schedule with its lifecycle status
  - Config: Global settings (streaming asset + admin principal)
  - Event: Informational record of a lifecycle transition

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so amounts never lose precision
  2. Checked arithmetic: Leaving the signed 128-bit range is detected,
     never silently wrapped
  3. Type Safety: Strong typing for account, asset and stream identifiers
  4. In-place mutation: Streams are mutated by lifecycle operations and
     retained forever; Completed and Cancelled are terminal

SEE ALSO:
  - accrual.go: Pure accrual calculator
  - validate.go: Creation parameter validation
  - engine.go: Lifecycle state machine
  - store.go: Collaborator interfaces (storage, transfer, auth, clock)
*/
package stream

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// AccountID identifies a principal that can hold funds (sender, recipient,
// admin, escrow).
type AccountID string

// AssetID identifies the fungible asset all streams are denominated in.
type AssetID string

// StreamID is a densely-allocated sequence number, starting at 0.
type StreamID uint64

// =============================================================================
// AMOUNT - 128-bit signed integer quantity with checked arithmetic
// =============================================================================

// maxAmount is the largest value representable in a signed 128-bit integer
// (2^127 - 1). Amounts are used only in their non-negative range; any result
// above this bound is an overflow.
var maxAmount = decimal.RequireFromString("170141183460469231731687303715884105727")

// Amount is a quantity of the streaming asset. The zero value is 0.
type Amount struct {
	Value decimal.Decimal
}

func NewAmount(v int64) Amount {
	return Amount{Value: decimal.NewFromInt(v)}
}

// ParseAmount parses a base-10 integer string into an Amount, rejecting
// fractional values and values outside the signed 128-bit range.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.IsInteger() {
		return Amount{}, fmt.Errorf("invalid amount %q: must be an integer", s)
	}
	if d.Abs().GreaterThan(maxAmount) {
		return Amount{}, ErrAmountOutOfRange
	}
	return Amount{Value: d}, nil
}

// MustParseAmount is ParseAmount for literals in tests and fixtures.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Add(b Amount) Amount { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) IsZero() bool        { return a.Value.IsZero() }
func (a Amount) IsPositive() bool    { return a.Value.IsPositive() }
func (a Amount) IsNegative() bool    { return a.Value.IsNegative() }

func (a Amount) Equal(b Amount) bool       { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

// CheckedMulSeconds multiplies the amount by a number of seconds. The second
// return value is false when the product leaves the signed 128-bit range;
// the product itself is exact either way.
func (a Amount) CheckedMulSeconds(seconds uint64) (Amount, bool) {
	product := a.Value.Mul(decimal.NewFromBigInt(new(big.Int).SetUint64(seconds), 0))
	if product.Abs().GreaterThan(maxAmount) {
		return Amount{}, false
	}
	return Amount{Value: product}, true
}

// CheckedAdd adds two amounts, reporting overflow of the signed 128-bit range.
func (a Amount) CheckedAdd(b Amount) (Amount, bool) {
	sum := a.Value.Add(b.Value)
	if sum.Abs().GreaterThan(maxAmount) {
		return Amount{}, false
	}
	return Amount{Value: sum}, true
}

func (a Amount) String() string { return a.Value.String() }

// Amounts travel as JSON strings: 128-bit values do not fit in a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Value.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// =============================================================================
// CONFIG - Global engine configuration, created exactly once
// =============================================================================

// Config holds the streaming asset and the administrative principal.
// It is immutable except for admin rotation via Engine.SetAdmin.
type Config struct {
	Token AssetID   `json:"token"`
	Admin AccountID `json:"admin"`
}

// =============================================================================
// STREAM - One funded vesting schedule
// =============================================================================

type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Stream is one sender-funded, recipient-targeted vesting schedule.
//
// Invariants maintained by the engine for every persisted stream:
//   - DepositAmount > 0, RatePerSecond > 0
//   - StartTime < EndTime, StartTime <= CliffTime <= EndTime
//   - DepositAmount >= RatePerSecond * (EndTime - StartTime)
//   - 0 <= WithdrawnAmount <= DepositAmount, monotonically non-decreasing
//   - CancelledAt is set if and only if Status == StatusCancelled
//   - Sender != Recipient
type Stream struct {
	ID              StreamID  `json:"id"`
	Sender          AccountID `json:"sender"`
	Recipient       AccountID `json:"recipient"`
	DepositAmount   Amount    `json:"deposit_amount"`
	RatePerSecond   Amount    `json:"rate_per_second"`
	StartTime       uint64    `json:"start_time"`
	CliffTime       uint64    `json:"cliff_time"`
	EndTime         uint64    `json:"end_time"`
	WithdrawnAmount Amount    `json:"withdrawn_amount"`
	Status          Status    `json:"status"`
	CancelledAt     *uint64   `json:"cancelled_at,omitempty"`
}

// Clone returns a deep copy so stores can hand out records without aliasing.
func (s *Stream) Clone() *Stream {
	c := *s
	if s.CancelledAt != nil {
		at := *s.CancelledAt
		c.CancelledAt = &at
	}
	return &c
}

// CreateParams are the caller-supplied parameters of a single stream.
// The sender is carried separately: one sender funds a whole batch.
type CreateParams struct {
	Recipient     AccountID `json:"recipient"`
	DepositAmount Amount    `json:"deposit_amount"`
	RatePerSecond Amount    `json:"rate_per_second"`
	StartTime     uint64    `json:"start_time"`
	CliffTime     uint64    `json:"cliff_time"`
	EndTime       uint64    `json:"end_time"`
}

// =============================================================================
// EVENTS - Informational lifecycle notifications (not correctness-bearing)
// =============================================================================

type EventType string

const (
	EventCreated      EventType = "created"
	EventPaused       EventType = "paused"
	EventResumed      EventType = "resumed"
	EventCancelled    EventType = "cancelled"
	EventWithdrew     EventType = "withdrew"
	EventAdminUpdated EventType = "admin_updated"
)

// Event records one lifecycle transition. Amount carries the deposit for
// created, the refund for cancelled and the payout for withdrew.
type Event struct {
	Type     EventType `json:"type"`
	StreamID StreamID  `json:"stream_id"`
	Amount   Amount    `json:"amount"`
	At       uint64    `json:"at"`
	OldAdmin AccountID `json:"old_admin,omitempty"`
	NewAdmin AccountID `json:"new_admin,omitempty"`
}
