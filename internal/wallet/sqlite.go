package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps balances in a SQLite table. Accounts are created on
// first use with the configured opening balance.
type SQLiteStore struct {
	db             *sql.DB
	initialBalance int64
}

// OpenSQLite opens (or creates) the wallet database at path.
func OpenSQLite(path string, initialBalance int64) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open wallet db: %w", err)
	}
	// one writer at a time; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, initialBalance: initialBalance}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS wallets (
			user_id INTEGER PRIMARY KEY,
			balance INTEGER NOT NULL CHECK (balance >= 0)
		)
	`)
	if err != nil {
		return fmt.Errorf("create wallet table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ensure(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO wallets (user_id, balance) VALUES (?, ?)",
		userID, s.initialBalance)
	if err != nil {
		return fmt.Errorf("create wallet for %d: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) Balance(ctx context.Context, userID int64) (int64, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return 0, err
	}
	var balance int64
	err := s.db.QueryRowContext(ctx, "SELECT balance FROM wallets WHERE user_id = ?", userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("read balance for %d: %w", userID, err)
	}
	return balance, nil
}

// Debit subtracts amount if and only if the balance covers it. The guard
// and the update are a single statement, so concurrent debits can never
// overdraw an account.
func (s *SQLiteStore) Debit(ctx context.Context, userID int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if err := s.ensure(ctx, userID); err != nil {
		return 0, err
	}
	var balance int64
	err := s.db.QueryRowContext(ctx,
		"UPDATE wallets SET balance = balance - ? WHERE user_id = ? AND balance >= ? RETURNING balance",
		amount, userID, amount).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("debit %d from %d: %w", amount, userID, err)
	}
	return balance, nil
}

func (s *SQLiteStore) Credit(ctx context.Context, userID int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if err := s.ensure(ctx, userID); err != nil {
		return 0, err
	}
	var balance int64
	err := s.db.QueryRowContext(ctx,
		"UPDATE wallets SET balance = balance + ? WHERE user_id = ? RETURNING balance",
		amount, userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("credit %d to %d: %w", amount, userID, err)
	}
	return balance, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
