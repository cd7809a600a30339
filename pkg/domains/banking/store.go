package banking

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Store holds the mocked banking data: account balances and policy
// guidelines, both in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and seeds, when empty) the banking database. Use
// ":memory:" for an ephemeral store.
func OpenStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open banking db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS accounts (
	user_id      TEXT NOT NULL,
	account_type TEXT NOT NULL,
	balance      REAL NOT NULL,
	PRIMARY KEY (user_id, account_type)
);
CREATE TABLE IF NOT EXISTS guidelines (
	topic   TEXT PRIMARY KEY,
	content TEXT NOT NULL
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate banking db: %w", err)
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return fmt.Errorf("inspect banking db: %w", err)
	}
	if n > 0 {
		return nil
	}
	return s.seed()
}

func (s *Store) seed() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	accounts := []struct {
		userID, accountType string
		balance             float64
	}{
		{"user123", "savings", 1500.50},
		{"user123", "checking", 250.00},
		{"user456", "savings", 3000.00},
		{"user456", "checking", 500.00},
	}
	for _, a := range accounts {
		if _, err := tx.Exec(
			`INSERT INTO accounts (user_id, account_type, balance) VALUES (?, ?, ?)`,
			a.userID, a.accountType, a.balance,
		); err != nil {
			return fmt.Errorf("seed accounts: %w", err)
		}
	}

	guidelines := map[string]string{
		"KYC":        "Know Your Customer (KYC) is a standard banking process that verifies the identity of clients before opening accounts or processing transactions.",
		"LoanPolicy": "Bank offers personal loans at 12% interest with flexible tenure between 12 and 60 months.",
	}
	for topic, content := range guidelines {
		if _, err := tx.Exec(
			`INSERT INTO guidelines (topic, content) VALUES (?, ?)`,
			topic, content,
		); err != nil {
			return fmt.Errorf("seed guidelines: %w", err)
		}
	}

	return tx.Commit()
}

// Balances returns account-type to balance for a user, sorted-key iteration
// left to the caller. An unknown user returns an empty map, not an error.
func (s *Store) Balances(ctx context.Context, userID string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_type, balance FROM accounts WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[string]float64)
	for rows.Next() {
		var accountType string
		var balance float64
		if err := rows.Scan(&accountType, &balance); err != nil {
			return nil, fmt.Errorf("scan balance row: %w", err)
		}
		balances[accountType] = balance
	}
	return balances, rows.Err()
}

// Guideline looks up policy content whose topic appears in the query,
// case-insensitively. Returns ("", nil) when no topic matches.
func (s *Store) Guideline(ctx context.Context, query string) (string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT topic, content FROM guidelines`)
	if err != nil {
		return "", fmt.Errorf("query guidelines: %w", err)
	}
	defer rows.Close()

	lowered := strings.ToLower(query)
	type entry struct{ topic, content string }
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.topic, &e.content); err != nil {
			return "", fmt.Errorf("scan guideline row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	// Deterministic match order regardless of table iteration. Spaces are
	// stripped so "loan policy" still hits the LoanPolicy topic.
	sort.Slice(entries, func(i, j int) bool { return entries[i].topic < entries[j].topic })
	squashed := strings.ReplaceAll(lowered, " ", "")
	for _, e := range entries {
		if strings.Contains(squashed, strings.ToLower(e.topic)) {
			return e.content, nil
		}
	}
	return "", nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
