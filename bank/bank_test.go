package bank_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stream-engine/bank"
	"github.com/warp/stream-engine/stream"
)

const asset = stream.AssetID("FLUX")

func amt(v int64) stream.Amount { return stream.NewAmount(v) }

func TestMint_CreditsAccount(t *testing.T) {
	b := bank.New()
	ctx := context.Background()

	require.NoError(t, b.Mint(ctx, asset, "alice", amt(500)))

	assert.True(t, b.Balance(ctx, asset, "alice").Equal(amt(500)))
	assert.True(t, b.TotalSupply(ctx, asset).Equal(amt(500)))
}

func TestMint_RejectsNonPositive(t *testing.T) {
	b := bank.New()
	ctx := context.Background()

	assert.ErrorIs(t, b.Mint(ctx, asset, "alice", amt(0)), bank.ErrNonPositiveTransfer)
	assert.ErrorIs(t, b.Mint(ctx, asset, "alice", amt(-1)), bank.ErrNonPositiveTransfer)
	assert.True(t, b.Balance(ctx, asset, "alice").IsZero())
}

func TestTransfer_MovesFunds(t *testing.T) {
	b := bank.New()
	ctx := context.Background()
	require.NoError(t, b.Mint(ctx, asset, "alice", amt(500)))

	require.NoError(t, b.Transfer(ctx, asset, "alice", "bob", amt(200)))

	assert.True(t, b.Balance(ctx, asset, "alice").Equal(amt(300)))
	assert.True(t, b.Balance(ctx, asset, "bob").Equal(amt(200)))
	assert.True(t, b.TotalSupply(ctx, asset).Equal(amt(500)), "transfers must not change supply")
}

func TestTransfer_RejectsOverdraw(t *testing.T) {
	b := bank.New()
	ctx := context.Background()
	require.NoError(t, b.Mint(ctx, asset, "alice", amt(100)))

	err := b.Transfer(ctx, asset, "alice", "bob", amt(101))
	require.ErrorIs(t, err, bank.ErrInsufficientFunds)

	var ife *bank.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, stream.AccountID("alice"), ife.Account)
	assert.True(t, ife.Available.Equal(amt(100)))
	assert.True(t, ife.Requested.Equal(amt(101)))

	// No effect on either side.
	assert.True(t, b.Balance(ctx, asset, "alice").Equal(amt(100)))
	assert.True(t, b.Balance(ctx, asset, "bob").IsZero())
}

func TestTransfer_UnknownAccountIsEmpty(t *testing.T) {
	b := bank.New()
	ctx := context.Background()

	err := b.Transfer(ctx, asset, "ghost", "bob", amt(1))
	assert.ErrorIs(t, err, bank.ErrInsufficientFunds)
}

func TestTransfer_RejectsNonPositive(t *testing.T) {
	b := bank.New()
	ctx := context.Background()
	require.NoError(t, b.Mint(ctx, asset, "alice", amt(100)))

	assert.ErrorIs(t, b.Transfer(ctx, asset, "alice", "bob", amt(0)), bank.ErrNonPositiveTransfer)
}

func TestJournal_RecordsEveryMovement(t *testing.T) {
	b := bank.New()
	ctx := context.Background()

	require.NoError(t, b.Mint(ctx, asset, "alice", amt(500)))
	require.NoError(t, b.Transfer(ctx, asset, "alice", "bob", amt(200)))
	assert.Error(t, b.Transfer(ctx, asset, "alice", "bob", amt(9999)))

	entries := b.Entries(ctx)
	require.Len(t, entries, 2, "failed transfers must not be journalled")

	mint := entries[0]
	assert.NotEmpty(t, mint.ID)
	assert.Empty(t, mint.From, "mints have no source account")
	assert.Equal(t, stream.AccountID("alice"), mint.To)
	assert.True(t, mint.Amount.Equal(amt(500)))

	xfer := entries[1]
	assert.Equal(t, stream.AccountID("alice"), xfer.From)
	assert.Equal(t, stream.AccountID("bob"), xfer.To)
	assert.True(t, xfer.Amount.Equal(amt(200)))
	assert.NotEqual(t, mint.ID, xfer.ID)
}

func TestAssets_AreIsolated(t *testing.T) {
	b := bank.New()
	ctx := context.Background()

	require.NoError(t, b.Mint(ctx, "FLUX", "alice", amt(500)))
	require.NoError(t, b.Mint(ctx, "GOLD", "alice", amt(7)))

	assert.True(t, b.Balance(ctx, "FLUX", "alice").Equal(amt(500)))
	assert.True(t, b.Balance(ctx, "GOLD", "alice").Equal(amt(7)))
	assert.ErrorIs(t, b.Transfer(ctx, "GOLD", "alice", "bob", amt(8)), bank.ErrInsufficientFunds)
}

func TestInsufficientFundsError_Message(t *testing.T) {
	err := &bank.InsufficientFundsError{
		Asset:     asset,
		Account:   "alice",
		Available: amt(100),
		Requested: amt(101),
	}
	assert.Contains(t, err.Error(), "alice")
	assert.Contains(t, err.Error(), "100")
	assert.Contains(t, err.Error(), "101")
	assert.True(t, errors.Is(err, bank.ErrInsufficientFunds))
}
