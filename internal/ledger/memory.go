package ledger

import (
	"context"
	"sync"
)

type memoryAccount struct {
	balance uint64
	staged  uint64
}

// Memory is an in-memory Service used by unit tests. It mirrors the Vault
// semantics exactly, including the shared pot balance.
type Memory struct {
	mu       sync.Mutex
	accounts map[string]*memoryAccount
	settlers map[string]bool
	pool     uint64
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]*memoryAccount),
		settlers: make(map[string]bool),
	}
}

func (that *Memory) RegisterUser(_ context.Context, player string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.accounts[player]; !ok {
		that.accounts[player] = &memoryAccount{}
	}

	return nil
}

func (that *Memory) Deposit(_ context.Context, player string, amount uint64) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	account, ok := that.accounts[player]
	if !ok {
		return ErrUnknownPlayer
	}

	account.balance += amount

	return nil
}

func (that *Memory) PushToPool(_ context.Context, player string, amount uint64) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	account, ok := that.accounts[player]
	if !ok {
		return ErrUnknownPlayer
	}

	if account.balance < amount {
		return ErrInsufficientFunds
	}

	account.balance -= amount
	account.staged += amount
	that.pool += amount

	return nil
}

func (that *Memory) BalanceOf(_ context.Context, player string) (uint64, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	account, ok := that.accounts[player]
	if !ok {
		return 0, ErrUnknownPlayer
	}

	return account.balance, nil
}

func (that *Memory) PoolBalance(_ context.Context) (uint64, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.pool, nil
}

func (that *Memory) AddSettler(_ context.Context, settler string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.settlers[settler] = true

	return nil
}

func (that *Memory) IsAuthorizedSettler(_ context.Context, caller string) (bool, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.settlers[caller], nil
}

func (that *Memory) PoolBalanceOf(_ context.Context, player string) (uint64, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	account, ok := that.accounts[player]
	if !ok {
		return 0, ErrUnknownPlayer
	}

	return account.staged, nil
}

func (that *Memory) MoveStagedToPool(_ context.Context, player string, amount uint64) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	account, ok := that.accounts[player]
	if !ok {
		return ErrUnknownPlayer
	}

	if account.staged < amount {
		return ErrInsufficientFunds
	}

	account.staged -= amount

	return nil
}

func (that *Memory) MovePoolToPlayer(_ context.Context, player string, amount uint64) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	account, ok := that.accounts[player]
	if !ok {
		return ErrUnknownPlayer
	}

	if that.pool < amount {
		return ErrInsufficientFunds
	}

	that.pool -= amount
	account.balance += amount

	return nil
}
