package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) (context.Context, *Vault) {
	t.Helper()

	ctx := context.Background()

	vault, err := NewVault(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, vault.Close())
	})

	require.NoError(t, vault.Init(ctx))

	return ctx, vault
}

func TestVault_StakingFlow(t *testing.T) {
	ctx, vault := newTestVault(t)

	// Given: a registered player with a deposit
	require.NoError(t, vault.RegisterUser(ctx, "alice"))
	require.NoError(t, vault.Deposit(ctx, "alice", 1000))

	// When: the player stages part of the balance for wagering
	require.NoError(t, vault.PushToPool(ctx, "alice", 300))

	// Then: balances reflect the staging
	balance, err := vault.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(700), balance)

	staged, err := vault.PoolBalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(300), staged)

	pool, err := vault.PoolBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), pool)

	// When: a game commits the stake and later pays it back out
	require.NoError(t, vault.MoveStagedToPool(ctx, "alice", 300))

	staged, err = vault.PoolBalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, staged)

	require.NoError(t, vault.MovePoolToPlayer(ctx, "alice", 300))

	balance, err = vault.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), balance)
}

func TestVault_Rejections(t *testing.T) {
	ctx, vault := newTestVault(t)

	require.NoError(t, vault.RegisterUser(ctx, "alice"))
	require.NoError(t, vault.Deposit(ctx, "alice", 100))

	t.Run("Staging more than the balance fails", func(t *testing.T) {
		assert.ErrorIs(t, vault.PushToPool(ctx, "alice", 200), ErrInsufficientFunds)
	})

	t.Run("Committing more than staged fails", func(t *testing.T) {
		require.NoError(t, vault.PushToPool(ctx, "alice", 50))
		assert.ErrorIs(t, vault.MoveStagedToPool(ctx, "alice", 60), ErrInsufficientFunds)
	})

	t.Run("Paying out more than the pool holds fails", func(t *testing.T) {
		assert.ErrorIs(t, vault.MovePoolToPlayer(ctx, "alice", 1000), ErrInsufficientFunds)
	})

	t.Run("Unknown players are rejected", func(t *testing.T) {
		assert.ErrorIs(t, vault.Deposit(ctx, "nobody", 1), ErrUnknownPlayer)

		_, err := vault.PoolBalanceOf(ctx, "nobody")
		assert.ErrorIs(t, err, ErrUnknownPlayer)
	})
}

func TestVault_SettlerWhitelist(t *testing.T) {
	ctx, vault := newTestVault(t)

	// Given: no settlers whitelisted
	authorized, err := vault.IsAuthorizedSettler(ctx, "gomoku-core")
	require.NoError(t, err)
	assert.False(t, authorized)

	// When: the core identity is whitelisted
	require.NoError(t, vault.AddSettler(ctx, "gomoku-core"))

	// Then: the check passes for it and nobody else
	authorized, err = vault.IsAuthorizedSettler(ctx, "gomoku-core")
	require.NoError(t, err)
	assert.True(t, authorized)

	authorized, err = vault.IsAuthorizedSettler(ctx, "mallory")
	require.NoError(t, err)
	assert.False(t, authorized)
}
