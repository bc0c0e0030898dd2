package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stream-engine/store/sqlite"
	"github.com/warp/stream-engine/stream"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "streams.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestConfig_AbsentBeforeInit(t *testing.T) {
	st := newStore(t)

	_, ok, err := st.GetConfig(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConfig_RoundTripAndUpdate(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutConfig(ctx, stream.Config{Token: "FLUX", Admin: "admin"}))

	cfg, ok, err := st.GetConfig(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stream.AssetID("FLUX"), cfg.Token)
	assert.Equal(t, stream.AccountID("admin"), cfg.Admin)

	// Singleton row: a second put replaces, never duplicates.
	require.NoError(t, st.PutConfig(ctx, stream.Config{Token: "FLUX", Admin: "root2"}))
	cfg, ok, err = st.GetConfig(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stream.AccountID("root2"), cfg.Admin)
}

func TestCounter_ZeroByDefault(t *testing.T) {
	st := newStore(t)

	id, err := st.NextStreamID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stream.StreamID(0), id)
}

func TestCounter_SetAndGet(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetNextStreamID(ctx, 7))
	id, err := st.NextStreamID(ctx)
	require.NoError(t, err)
	assert.Equal(t, stream.StreamID(7), id)

	require.NoError(t, st.SetNextStreamID(ctx, 8))
	id, err = st.NextStreamID(ctx)
	require.NoError(t, err)
	assert.Equal(t, stream.StreamID(8), id)
}

func TestStream_NotFound(t *testing.T) {
	st := newStore(t)

	_, err := st.GetStream(context.Background(), 42)
	assert.ErrorIs(t, err, stream.ErrStreamNotFound)
}

func TestStream_RoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	rec := &stream.Stream{
		ID:              3,
		Sender:          "alice",
		Recipient:       "bob",
		DepositAmount:   stream.NewAmount(1000),
		RatePerSecond:   stream.NewAmount(1),
		StartTime:       100,
		CliffTime:       150,
		EndTime:         1100,
		WithdrawnAmount: stream.NewAmount(0),
		Status:          stream.StatusActive,
	}
	require.NoError(t, st.PutStream(ctx, rec))

	got, err := st.GetStream(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Sender, got.Sender)
	assert.Equal(t, rec.Recipient, got.Recipient)
	assert.True(t, got.DepositAmount.Equal(rec.DepositAmount))
	assert.True(t, got.RatePerSecond.Equal(rec.RatePerSecond))
	assert.Equal(t, rec.StartTime, got.StartTime)
	assert.Equal(t, rec.CliffTime, got.CliffTime)
	assert.Equal(t, rec.EndTime, got.EndTime)
	assert.True(t, got.WithdrawnAmount.IsZero())
	assert.Equal(t, stream.StatusActive, got.Status)
	assert.Nil(t, got.CancelledAt)
}

func TestStream_UpdateMutableColumns(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	rec := &stream.Stream{
		ID:              0,
		Sender:          "alice",
		Recipient:       "bob",
		DepositAmount:   stream.NewAmount(1000),
		RatePerSecond:   stream.NewAmount(1),
		EndTime:         1000,
		WithdrawnAmount: stream.NewAmount(0),
		Status:          stream.StatusActive,
	}
	require.NoError(t, st.PutStream(ctx, rec))

	at := uint64(300)
	rec.WithdrawnAmount = stream.NewAmount(300)
	rec.Status = stream.StatusCancelled
	rec.CancelledAt = &at
	require.NoError(t, st.PutStream(ctx, rec))

	got, err := st.GetStream(ctx, 0)
	require.NoError(t, err)
	assert.True(t, got.WithdrawnAmount.Equal(stream.NewAmount(300)))
	assert.Equal(t, stream.StatusCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)
	assert.Equal(t, uint64(300), *got.CancelledAt)
}

func TestStream_AmountsBeyondInt64Survive(t *testing.T) {
	// Amounts are TEXT columns; a value past the int64 range must come back
	// exactly.
	st := newStore(t)
	ctx := context.Background()

	huge := stream.MustParseAmount("170141183460469231731687303715884105727")
	rec := &stream.Stream{
		ID:              1,
		Sender:          "alice",
		Recipient:       "bob",
		DepositAmount:   huge,
		RatePerSecond:   huge,
		EndTime:         1,
		WithdrawnAmount: stream.NewAmount(0),
		Status:          stream.StatusActive,
	}
	require.NoError(t, st.PutStream(ctx, rec))

	got, err := st.GetStream(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.DepositAmount.Equal(huge))
	assert.True(t, got.RatePerSecond.Equal(huge))
}
