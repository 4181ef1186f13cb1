package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// import the SQLite driver to register it with the database/sql package.
	_ "github.com/mattn/go-sqlite3"
)

// Vault is the reference Service implementation: a SQLite-backed user vault
// holding personal balances, staged pool contributions, the shared pot and
// the settler whitelist.
type Vault struct {
	conn *sql.DB
}

func NewVault(path string) (*Vault, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &Vault{conn: conn}, nil
}

func (that *Vault) Init(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS vault_users (
			address TEXT PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0,
			staged  INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS vault_settlers (address TEXT PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS vault_pool (
			id      INTEGER PRIMARY KEY CHECK (id = 1),
			balance INTEGER NOT NULL
		)`,
		`INSERT OR IGNORE INTO vault_pool (id, balance) VALUES (1, 0)`,
	}

	for _, query := range queries {
		if _, err := that.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("can't create table: %w", err)
		}
	}

	return nil
}

func (that *Vault) Close() error {
	if err := that.conn.Close(); err != nil {
		return fmt.Errorf("can't close database: %w", err)
	}

	return nil
}

// RegisterUser creates an empty account. Registering twice is a no-op.
func (that *Vault) RegisterUser(ctx context.Context, player string) error {
	query := `INSERT OR IGNORE INTO vault_users (address) VALUES (?)`

	if _, err := that.conn.ExecContext(ctx, query, player); err != nil {
		return fmt.Errorf("can't register user: %w", err)
	}

	return nil
}

// Deposit credits a player's personal balance.
func (that *Vault) Deposit(ctx context.Context, player string, amount uint64) error {
	query := `UPDATE vault_users SET balance = balance + ? WHERE address = ?`

	result, err := that.conn.ExecContext(ctx, query, int64(amount), player)
	if err != nil {
		return fmt.Errorf("can't deposit: %w", err)
	}

	return requireOneRow(result, ErrUnknownPlayer)
}

// PushToPool stages part of a player's personal balance for wagering. The
// funds move into the shared pot but stay attributed to the player until a
// game commits them.
func (that *Vault) PushToPool(ctx context.Context, player string, amount uint64) error {
	return that.inTx(ctx, func(tx *sql.Tx) error {
		var balance int64

		query := `SELECT balance FROM vault_users WHERE address = ?`
		err := tx.QueryRowContext(ctx, query, player).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnknownPlayer
		}
		if err != nil {
			return fmt.Errorf("can't read balance: %w", err)
		}

		if balance < int64(amount) {
			return ErrInsufficientFunds
		}

		query = `UPDATE vault_users SET balance = balance - ?, staged = staged + ? WHERE address = ?`
		if _, err = tx.ExecContext(ctx, query, int64(amount), int64(amount), player); err != nil {
			return fmt.Errorf("can't stage funds: %w", err)
		}

		query = `UPDATE vault_pool SET balance = balance + ? WHERE id = 1`
		if _, err = tx.ExecContext(ctx, query, int64(amount)); err != nil {
			return fmt.Errorf("can't credit pool: %w", err)
		}

		return nil
	})
}

// BalanceOf returns a player's personal balance.
func (that *Vault) BalanceOf(ctx context.Context, player string) (uint64, error) {
	var balance int64

	query := `SELECT balance FROM vault_users WHERE address = ?`
	err := that.conn.QueryRowContext(ctx, query, player).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUnknownPlayer
	}
	if err != nil {
		return 0, fmt.Errorf("can't read balance: %w", err)
	}

	return uint64(balance), nil
}

// PoolBalance returns the total funds held by the shared pot.
func (that *Vault) PoolBalance(ctx context.Context) (uint64, error) {
	var balance int64

	query := `SELECT balance FROM vault_pool WHERE id = 1`
	if err := that.conn.QueryRowContext(ctx, query).Scan(&balance); err != nil {
		return 0, fmt.Errorf("can't read pool balance: %w", err)
	}

	return uint64(balance), nil
}

// AddSettler whitelists an identity for pool-affecting operations.
func (that *Vault) AddSettler(ctx context.Context, settler string) error {
	query := `INSERT OR IGNORE INTO vault_settlers (address) VALUES (?)`

	if _, err := that.conn.ExecContext(ctx, query, settler); err != nil {
		return fmt.Errorf("can't add settler: %w", err)
	}

	return nil
}

func (that *Vault) IsAuthorizedSettler(ctx context.Context, caller string) (bool, error) {
	var address string

	query := `SELECT address FROM vault_settlers WHERE address = ?`
	err := that.conn.QueryRowContext(ctx, query, caller).Scan(&address)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("can't check settler: %w", err)
	}

	return true, nil
}

func (that *Vault) PoolBalanceOf(ctx context.Context, player string) (uint64, error) {
	var staged int64

	query := `SELECT staged FROM vault_users WHERE address = ?`
	err := that.conn.QueryRowContext(ctx, query, player).Scan(&staged)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUnknownPlayer
	}
	if err != nil {
		return 0, fmt.Errorf("can't read staged balance: %w", err)
	}

	return uint64(staged), nil
}

func (that *Vault) MoveStagedToPool(ctx context.Context, player string, amount uint64) error {
	return that.inTx(ctx, func(tx *sql.Tx) error {
		var staged int64

		query := `SELECT staged FROM vault_users WHERE address = ?`
		err := tx.QueryRowContext(ctx, query, player).Scan(&staged)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnknownPlayer
		}
		if err != nil {
			return fmt.Errorf("can't read staged balance: %w", err)
		}

		if staged < int64(amount) {
			return ErrInsufficientFunds
		}

		query = `UPDATE vault_users SET staged = staged - ? WHERE address = ?`
		if _, err = tx.ExecContext(ctx, query, int64(amount), player); err != nil {
			return fmt.Errorf("can't commit staged funds: %w", err)
		}

		return nil
	})
}

func (that *Vault) MovePoolToPlayer(ctx context.Context, player string, amount uint64) error {
	return that.inTx(ctx, func(tx *sql.Tx) error {
		var pool int64

		query := `SELECT balance FROM vault_pool WHERE id = 1`
		if err := tx.QueryRowContext(ctx, query).Scan(&pool); err != nil {
			return fmt.Errorf("can't read pool balance: %w", err)
		}

		if pool < int64(amount) {
			return ErrInsufficientFunds
		}

		query = `UPDATE vault_pool SET balance = balance - ? WHERE id = 1`
		if _, err := tx.ExecContext(ctx, query, int64(amount)); err != nil {
			return fmt.Errorf("can't debit pool: %w", err)
		}

		query = `UPDATE vault_users SET balance = balance + ? WHERE address = ?`
		result, err := tx.ExecContext(ctx, query, int64(amount), player)
		if err != nil {
			return fmt.Errorf("can't credit player: %w", err)
		}

		return requireOneRow(result, ErrUnknownPlayer)
	})
}

func (that *Vault) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := that.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %w: %w", rbErr, err)
		}

		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("can't commit transaction: %w", err)
	}

	return nil
}

func requireOneRow(result sql.Result, missing error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't read affected rows: %w", err)
	}

	if affected == 0 {
		return missing
	}

	return nil
}
