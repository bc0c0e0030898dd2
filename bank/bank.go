/*
Package bank provides an in-process fungible-asset ledger.

PURPOSE:
  Implements the engine's funds-transfer collaborator (stream.Transferor)
  so the server runs as a single binary and conservation is testable end to
  end. Balances move atomically: a transfer either debits and credits both
  accounts or fails with no effect.

JOURNAL:
  Every successful movement appends an immutable Entry with a unique ID.
  Entries are never updated or deleted; the journal is the audit trail for
  how any balance got to its current value.

LIMITS:
  This is deliberately not a real settlement system: no persistence, no
  holds, no multi-asset exchange. A production deployment would put a real
  token ledger behind the same one-method interface.
*/
package bank

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/stream-engine/stream"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInsufficientFunds is returned when a transfer would overdraw the
	// source account. Accounts never go negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNonPositiveTransfer is returned for zero or negative movements.
	ErrNonPositiveTransfer = errors.New("transfer amount must be positive")
)

// InsufficientFundsError reports the shortfall on a rejected transfer.
type InsufficientFundsError struct {
	Asset     stream.AssetID
	Account   stream.AccountID
	Available stream.Amount
	Requested stream.Amount
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: account %s has %s, requested %s",
		e.Account, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// =============================================================================
// BANK
// =============================================================================

// Entry is one committed balance movement. From is empty for mints.
type Entry struct {
	ID     string
	Asset  stream.AssetID
	From   stream.AccountID
	To     stream.AccountID
	Amount stream.Amount
	At     time.Time
}

// Bank holds per-asset account balances and an append-only journal.
type Bank struct {
	mu       sync.RWMutex
	balances map[stream.AssetID]map[stream.AccountID]stream.Amount
	journal  []Entry
}

func New() *Bank {
	return &Bank{
		balances: make(map[stream.AssetID]map[stream.AccountID]stream.Amount),
	}
}

// Mint credits newly issued funds to an account. Dev/test funding only.
func (b *Bank) Mint(_ context.Context, asset stream.AssetID, to stream.AccountID, amount stream.Amount) error {
	if !amount.IsPositive() {
		return ErrNonPositiveTransfer
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(asset, to, amount)
	b.journal = append(b.journal, Entry{
		ID:     uuid.NewString(),
		Asset:  asset,
		To:     to,
		Amount: amount,
		At:     time.Now().UTC(),
	})
	return nil
}

// Transfer moves funds between accounts, atomically. Implements
// stream.Transferor.
func (b *Bank) Transfer(_ context.Context, asset stream.AssetID, from, to stream.AccountID, amount stream.Amount) error {
	if !amount.IsPositive() {
		return ErrNonPositiveTransfer
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	available := b.balances[asset][from]
	if available.LessThan(amount) {
		return &InsufficientFundsError{Asset: asset, Account: from, Available: available, Requested: amount}
	}

	b.balances[asset][from] = available.Sub(amount)
	b.credit(asset, to, amount)
	b.journal = append(b.journal, Entry{
		ID:     uuid.NewString(),
		Asset:  asset,
		From:   from,
		To:     to,
		Amount: amount,
		At:     time.Now().UTC(),
	})
	return nil
}

func (b *Bank) credit(asset stream.AssetID, to stream.AccountID, amount stream.Amount) {
	accounts, ok := b.balances[asset]
	if !ok {
		accounts = make(map[stream.AccountID]stream.Amount)
		b.balances[asset] = accounts
	}
	accounts[to] = accounts[to].Add(amount)
}

// Balance returns the current balance of an account (0 for unknown accounts).
func (b *Bank) Balance(_ context.Context, asset stream.AssetID, account stream.AccountID) stream.Amount {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[asset][account]
}

// TotalSupply returns the sum of all balances in an asset. Transfers never
// change it; only Mint does.
func (b *Bank) TotalSupply(_ context.Context, asset stream.AssetID) stream.Amount {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total stream.Amount
	for _, balance := range b.balances[asset] {
		total = total.Add(balance)
	}
	return total
}

// Entries returns a copy of the journal, oldest first.
func (b *Bank) Entries(_ context.Context) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry, len(b.journal))
	copy(out, b.journal)
	return out
}
