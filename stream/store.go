/*
store.go - Collaborator interfaces consumed by the engine

PURPOSE:
  Defines the capabilities the engine depends on but never implements:
  durable record storage, fund transfers, authorization, time, and event
  publication. Each is a small interface so implementations can be swapped
  (in-memory for tests, SQLite or bbolt for durability, a real bank or a
  test ledger for transfers).

IMPLEMENTATIONS:
  Store:      stream/store (memory), store/sqlite, store/bolt
  Transferor: bank.Bank
  Authorizer: api.HeaderAuthorizer (HTTP), test fakes
  Publisher:  api.Hub (websocket feed), NopPublisher

SEE ALSO:
  - engine.go: The only consumer of these interfaces
*/
package stream

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Keyed durable storage for streams, config and the id counter
// =============================================================================

// Store persists the engine's records. Implementations must return
// ErrStreamNotFound from GetStream for unknown identifiers and must not
// alias returned records with their internal state.
type Store interface {
	// GetConfig returns the singleton config; ok is false before Init.
	GetConfig(ctx context.Context) (cfg Config, ok bool, err error)

	// PutConfig creates or replaces the singleton config.
	PutConfig(ctx context.Context, cfg Config) error

	// GetStream loads one stream by identifier.
	GetStream(ctx context.Context, id StreamID) (*Stream, error)

	// PutStream creates or replaces one stream record.
	PutStream(ctx context.Context, s *Stream) error

	// NextStreamID returns the next identifier to allocate (0 initially).
	NextStreamID(ctx context.Context) (StreamID, error)

	// SetNextStreamID advances the allocator. The engine calls this only
	// after the whole creation (including the escrow transfer) can no
	// longer fail, so a failed creation never consumes an identifier.
	SetNextStreamID(ctx context.Context, id StreamID) error
}

// =============================================================================
// TRANSFEROR - External fund movement
// =============================================================================

// Transferor moves value between accounts. A transfer either completes or
// returns an error, which aborts the whole operation. The engine always
// persists its own state before invoking an outgoing transfer, so a
// re-entrant callback would observe post-transition state.
type Transferor interface {
	Transfer(ctx context.Context, asset AssetID, from, to AccountID, amount Amount) error
}

// =============================================================================
// AUTHORIZER - Opaque proof of control over a principal
// =============================================================================

// Authorizer answers "can the caller act as this principal". Failure aborts
// the operation before any state is written.
type Authorizer interface {
	Require(ctx context.Context, principal AccountID) error
}

// =============================================================================
// CLOCK
// =============================================================================

// Clock supplies the current time as a unix timestamp in seconds.
type Clock interface {
	Now() uint64
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() uint64

func (f ClockFunc) Now() uint64 { return f() }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock {
	return ClockFunc(func() uint64 { return uint64(time.Now().Unix()) })
}

// =============================================================================
// PUBLISHER - Informational event sink
// =============================================================================

// Publisher receives one Event per committed state transition. Events are
// informational only; publication failures are not correctness-bearing and
// implementations should not block the caller.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, ev Event)

func (f PublisherFunc) Publish(ctx context.Context, ev Event) { f(ctx, ev) }

// NopPublisher discards all events.
func NopPublisher() Publisher {
	return PublisherFunc(func(context.Context, Event) {})
}
