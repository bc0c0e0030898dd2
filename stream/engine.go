/*
engine.go - Lifecycle state machine for payment streams

PURPOSE:
  Every public operation enters through the Engine: it checks authorization,
  loads the record, asks the accrual calculator for the current value,
  applies the transition, persists, and only then triggers any external
  transfer.

STATES:
  Active    initial; entered at creation and at resume
  Paused    entered by pause; blocks withdraw, not accrual
  Completed terminal; entered only via full withdrawal from Active
  Cancelled terminal; entered via cancellation, accrual frozen at that moment

ORDERING RULES:
  - create:          validate -> escrow transfer -> allocate id + persist.
    A failed creation (validation or transfer) never advances the counter.
  - cancel/withdraw: persist -> transfer. If the transfer implementation
    calls back into the engine it observes the updated record, not stale
    pre-transfer state. This is the sole reentrancy defense.

AUTHORIZATION:
  create requires the sender; pause/resume/cancel require the sender, with
  separate *AsAdmin entry points gated on the configured admin; withdraw
  requires the recipient only, with no administrative override.

ATOMICITY:
  The host serializes operations; each one runs to completion against a
  consistent snapshot, so the engine does no locking of its own. Every
  failure aborts the whole operation with no partial effect.

SEE ALSO:
  - accrual.go: AccruedAmount / AccruedForStream
  - validate.go: ValidateParams
  - store.go: Collaborator interfaces
*/
package stream

import (
	"context"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine orchestrates stream lifecycle transitions. All fields except Clock
// and Events are required.
type Engine struct {
	Store  Store
	Bank   Transferor
	Auth   Authorizer
	Clock  Clock
	Events Publisher

	// Escrow is the account that holds deposited funds between creation
	// and withdrawal/refund.
	Escrow AccountID
}

// NewEngine wires an engine with default clock and a discarding publisher.
func NewEngine(store Store, bank Transferor, auth Authorizer, escrow AccountID) *Engine {
	return &Engine{
		Store:  store,
		Bank:   bank,
		Auth:   auth,
		Clock:  SystemClock(),
		Events: NopPublisher(),
		Escrow: escrow,
	}
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Init records the streaming asset and admin principal. It must run exactly
// once; the identifier counter starts at 0.
func (e *Engine) Init(ctx context.Context, token AssetID, admin AccountID) error {
	_, ok, err := e.Store.GetConfig(ctx)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	if err := e.Store.PutConfig(ctx, Config{Token: token, Admin: admin}); err != nil {
		return err
	}
	return e.Store.SetNextStreamID(ctx, 0)
}

// Config returns the global configuration. Read-only, no authorization.
func (e *Engine) Config(ctx context.Context) (Config, error) {
	cfg, ok, err := e.Store.GetConfig(ctx)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Config{}, ErrNotInitialized
	}
	return cfg, nil
}

// SetAdmin rotates the administrative principal. Only the current admin may
// call it; the token is never changed.
func (e *Engine) SetAdmin(ctx context.Context, newAdmin AccountID) error {
	cfg, err := e.Config(ctx)
	if err != nil {
		return err
	}
	oldAdmin := cfg.Admin
	if err := e.Auth.Require(ctx, oldAdmin); err != nil {
		return err
	}
	cfg.Admin = newAdmin
	if err := e.Store.PutConfig(ctx, cfg); err != nil {
		return err
	}
	e.Events.Publish(ctx, Event{
		Type:     EventAdminUpdated,
		At:       e.Clock.Now(),
		OldAdmin: oldAdmin,
		NewAdmin: newAdmin,
	})
	return nil
}

// =============================================================================
// CREATION
// =============================================================================

// CreateStream escrows the deposit and registers a new Active stream,
// returning its identifier.
//
// Order matters: validation first (a rejected creation has zero observable
// effect), then the escrow transfer, and only after the transfer succeeded
// is the identifier allocated and the record persisted.
func (e *Engine) CreateStream(ctx context.Context, sender AccountID, p CreateParams) (StreamID, error) {
	cfg, err := e.Config(ctx)
	if err != nil {
		return 0, err
	}
	if err := e.Auth.Require(ctx, sender); err != nil {
		return 0, err
	}
	if err := ValidateParams(sender, p); err != nil {
		return 0, err
	}
	if err := e.Bank.Transfer(ctx, cfg.Token, sender, e.Escrow, p.DepositAmount); err != nil {
		return 0, err
	}
	return e.persistNewStream(ctx, sender, p)
}

// CreateStreams registers a batch of streams under one authorization and one
// aggregate escrow transfer. The batch is all-or-nothing: any validation
// failure (or overflow summing the deposits) aborts with zero effect.
func (e *Engine) CreateStreams(ctx context.Context, sender AccountID, batch []CreateParams) ([]StreamID, error) {
	cfg, err := e.Config(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.Auth.Require(ctx, sender); err != nil {
		return nil, err
	}

	// First pass: validate every element and aggregate the total deposit.
	var total Amount
	for _, p := range batch {
		if err := ValidateParams(sender, p); err != nil {
			return nil, err
		}
		sum, ok := total.CheckedAdd(p.DepositAmount)
		if !ok {
			return nil, ErrBatchDepositOverflow
		}
		total = sum
	}

	if total.IsPositive() {
		if err := e.Bank.Transfer(ctx, cfg.Token, sender, e.Escrow, total); err != nil {
			return nil, err
		}
	}

	// Second pass: allocate identifiers and persist.
	ids := make([]StreamID, 0, len(batch))
	for _, p := range batch {
		id, err := e.persistNewStream(ctx, sender, p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (e *Engine) persistNewStream(ctx context.Context, sender AccountID, p CreateParams) (StreamID, error) {
	id, err := e.Store.NextStreamID(ctx)
	if err != nil {
		return 0, err
	}
	if err := e.Store.SetNextStreamID(ctx, id+1); err != nil {
		return 0, err
	}

	s := &Stream{
		ID:            id,
		Sender:        sender,
		Recipient:     p.Recipient,
		DepositAmount: p.DepositAmount,
		RatePerSecond: p.RatePerSecond,
		StartTime:     p.StartTime,
		CliffTime:     p.CliffTime,
		EndTime:       p.EndTime,
		Status:        StatusActive,
	}
	if err := e.Store.PutStream(ctx, s); err != nil {
		return 0, err
	}

	e.Events.Publish(ctx, Event{
		Type:     EventCreated,
		StreamID: id,
		Amount:   p.DepositAmount,
		At:       e.Clock.Now(),
	})
	return id, nil
}

// =============================================================================
// PAUSE / RESUME
// =============================================================================

// PauseStream halts withdrawals on an Active stream. Accrual keeps advancing;
// only the withdraw operation is blocked.
func (e *Engine) PauseStream(ctx context.Context, id StreamID) error {
	return e.pause(ctx, id, e.requireSender)
}

// PauseStreamAsAdmin is the admin-gated entry point; otherwise identical.
func (e *Engine) PauseStreamAsAdmin(ctx context.Context, id StreamID) error {
	return e.pause(ctx, id, e.requireAdmin)
}

func (e *Engine) pause(ctx context.Context, id StreamID, authorize func(context.Context, *Stream) error) error {
	s, err := e.Store.GetStream(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(ctx, s); err != nil {
		return err
	}
	if s.Status != StatusActive {
		return &InvalidStateError{Op: "pause", ID: id, Status: s.Status}
	}
	s.Status = StatusPaused
	if err := e.Store.PutStream(ctx, s); err != nil {
		return err
	}
	e.Events.Publish(ctx, Event{Type: EventPaused, StreamID: id, At: e.Clock.Now()})
	return nil
}

// ResumeStream reactivates a Paused stream.
func (e *Engine) ResumeStream(ctx context.Context, id StreamID) error {
	return e.resume(ctx, id, e.requireSender)
}

// ResumeStreamAsAdmin is the admin-gated entry point; otherwise identical.
func (e *Engine) ResumeStreamAsAdmin(ctx context.Context, id StreamID) error {
	return e.resume(ctx, id, e.requireAdmin)
}

func (e *Engine) resume(ctx context.Context, id StreamID, authorize func(context.Context, *Stream) error) error {
	s, err := e.Store.GetStream(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(ctx, s); err != nil {
		return err
	}
	if s.Status != StatusPaused {
		return &InvalidStateError{Op: "resume", ID: id, Status: s.Status}
	}
	s.Status = StatusActive
	if err := e.Store.PutStream(ctx, s); err != nil {
		return err
	}
	e.Events.Publish(ctx, Event{Type: EventResumed, StreamID: id, At: e.Clock.Now()})
	return nil
}

// =============================================================================
// CANCEL
// =============================================================================

// CancelStream terminates an Active or Paused stream. The unstreamed portion
// (deposit minus accrual at the cancellation moment) is refunded to the
// sender; the accrued-but-unwithdrawn portion stays escrowed for the
// recipient to claim via Withdraw. Accrual is frozen at cancelled_at.
func (e *Engine) CancelStream(ctx context.Context, id StreamID) error {
	return e.cancel(ctx, id, e.requireSender)
}

// CancelStreamAsAdmin is the admin-gated entry point; otherwise identical.
func (e *Engine) CancelStreamAsAdmin(ctx context.Context, id StreamID) error {
	return e.cancel(ctx, id, e.requireAdmin)
}

func (e *Engine) cancel(ctx context.Context, id StreamID, authorize func(context.Context, *Stream) error) error {
	cfg, err := e.Config(ctx)
	if err != nil {
		return err
	}
	s, err := e.Store.GetStream(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(ctx, s); err != nil {
		return err
	}
	if s.Status != StatusActive && s.Status != StatusPaused {
		return &InvalidStateError{Op: "cancel", ID: id, Status: s.Status}
	}

	now := e.Clock.Now()
	accrued := AccruedAmount(s.StartTime, s.CliffTime, s.EndTime, s.RatePerSecond, s.DepositAmount, now)
	refund := s.DepositAmount.Sub(accrued)

	// Persist the terminal state before the refund leaves the escrow.
	s.Status = StatusCancelled
	s.CancelledAt = &now
	if err := e.Store.PutStream(ctx, s); err != nil {
		return err
	}

	if refund.IsPositive() {
		if err := e.Bank.Transfer(ctx, cfg.Token, e.Escrow, s.Sender, refund); err != nil {
			return err
		}
	}

	e.Events.Publish(ctx, Event{Type: EventCancelled, StreamID: id, Amount: refund, At: now})
	return nil
}

// =============================================================================
// WITHDRAW
// =============================================================================

// Withdraw pays the recipient everything accrued but not yet withdrawn and
// returns the amount transferred. Allowed from Active and Cancelled streams;
// Paused and Completed are invalid states.
//
// A zero withdrawable is not an error: the call returns 0 with no state
// mutation, no transfer and no event, so callers can poll freely.
//
// Full withdrawal from an Active stream transitions it to Completed. A
// Cancelled stream drained of its frozen accrual stays Cancelled: terminal
// identity is preserved even when the math looks "done".
func (e *Engine) Withdraw(ctx context.Context, id StreamID) (Amount, error) {
	cfg, err := e.Config(ctx)
	if err != nil {
		return Amount{}, err
	}
	s, err := e.Store.GetStream(ctx, id)
	if err != nil {
		return Amount{}, err
	}
	if err := e.Auth.Require(ctx, s.Recipient); err != nil {
		return Amount{}, err
	}
	if s.Status == StatusCompleted || s.Status == StatusPaused {
		return Amount{}, &InvalidStateError{Op: "withdraw", ID: id, Status: s.Status}
	}

	now := e.Clock.Now()
	accrued := AccruedForStream(s, now)
	withdrawable := accrued.Sub(s.WithdrawnAmount)
	if withdrawable.IsZero() {
		return Amount{}, nil
	}

	// Persist before the payout leaves the escrow.
	s.WithdrawnAmount = s.WithdrawnAmount.Add(withdrawable)
	if s.WithdrawnAmount.Equal(s.DepositAmount) && s.Status == StatusActive {
		s.Status = StatusCompleted
	}
	if err := e.Store.PutStream(ctx, s); err != nil {
		return Amount{}, err
	}

	if err := e.Bank.Transfer(ctx, cfg.Token, e.Escrow, s.Recipient, withdrawable); err != nil {
		return Amount{}, err
	}

	e.Events.Publish(ctx, Event{Type: EventWithdrew, StreamID: id, Amount: withdrawable, At: now})
	return withdrawable, nil
}

// =============================================================================
// READ-ONLY QUERIES
// =============================================================================

// CalculateAccrued returns the total accrued amount for a stream at the
// current time. No authorization: this is public information.
func (e *Engine) CalculateAccrued(ctx context.Context, id StreamID) (Amount, error) {
	s, err := e.Store.GetStream(ctx, id)
	if err != nil {
		return Amount{}, err
	}
	return AccruedForStream(s, e.Clock.Now()), nil
}

// GetStream returns the complete stored state of a stream.
func (e *Engine) GetStream(ctx context.Context, id StreamID) (*Stream, error) {
	return e.Store.GetStream(ctx, id)
}

// =============================================================================
// AUTHORIZATION TARGETS
// =============================================================================

func (e *Engine) requireSender(ctx context.Context, s *Stream) error {
	return e.Auth.Require(ctx, s.Sender)
}

func (e *Engine) requireAdmin(ctx context.Context, _ *Stream) error {
	cfg, err := e.Config(ctx)
	if err != nil {
		return err
	}
	return e.Auth.Require(ctx, cfg.Admin)
}
