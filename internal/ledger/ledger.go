package ledger

import (
	"context"
	"errors"
)

var (
	ErrUnknownPlayer     = errors.New("player is not registered")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Service is the narrow contract the core consumes from the external user
// vault. Personal balances, the shared pool and the settler whitelist are
// owned entirely by the vault; the core only directs movements through it.
type Service interface {
	// IsAuthorizedSettler reports whether the caller identity is whitelisted
	// for pool-affecting operations. A false answer for the core's own
	// identity is a deployment error, not a per-action condition.
	IsAuthorizedSettler(ctx context.Context, caller string) (bool, error)

	// PoolBalanceOf returns the contribution a player has staged and not yet
	// committed to a game.
	PoolBalanceOf(ctx context.Context, player string) (uint64, error)

	// MoveStagedToPool commits part of a player's staged contribution to the
	// shared pot. Fails with ErrInsufficientFunds when the staged amount is
	// short.
	MoveStagedToPool(ctx context.Context, player string, amount uint64) error

	// MovePoolToPlayer pays out from the shared pot to a player's personal
	// balance.
	MovePoolToPlayer(ctx context.Context, player string, amount uint64) error
}
