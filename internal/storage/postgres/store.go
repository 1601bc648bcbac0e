// Package postgres implements interfaces.Store on PostgreSQL: the tlog
// audit table and the accounts snapshot table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cardbank/ledger/internal/interfaces"
	"github.com/cardbank/ledger/internal/models"
)

// Store owns a database handle. The log worker is its only caller, so no
// additional locking is layered on top of database/sql's pooling.
type Store struct {
	db *sql.DB
}

var _ interfaces.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates both tables if they do not exist yet.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tlog (
			time    TIMESTAMPTZ NOT NULL,
			type    TEXT NOT NULL,
			account TEXT,
			info    TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("create tlog table: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL DEFAULT '',
			username      TEXT NOT NULL DEFAULT '',
			salt          BYTEA,
			password_hash BYTEA,
			cash          BIGINT NOT NULL DEFAULT 0,
			properties    TEXT NOT NULL DEFAULT '[]',
			is_banker     BOOLEAN NOT NULL DEFAULT FALSE
		)
	`)
	if err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	return nil
}

func (s *Store) AppendEntry(ctx context.Context, entry models.LedgerEntry) error {
	account := sql.NullString{String: entry.Account, Valid: entry.Account != ""}
	info := sql.NullString{String: entry.Info, Valid: entry.Info != ""}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tlog (time, type, account, info) VALUES ($1, $2, $3, $4)`,
		entry.Time, entry.Type, account, info,
	)
	return err
}

func (s *Store) EntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT time, type, account, info FROM tlog WHERE account = $1 ORDER BY time`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			entry   models.LedgerEntry
			account sql.NullString
			info    sql.NullString
		)
		if err := rows.Scan(&entry.Time, &entry.Type, &account, &info); err != nil {
			return nil, err
		}
		entry.Account = account.String
		entry.Info = info.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) PurgeEntries(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tlog`)
	return err
}

func (s *Store) UpsertAccount(ctx context.Context, rec models.AccountRecord) error {
	props, err := json.Marshal(rec.Properties)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, username, salt, password_hash, cash, properties, is_banker)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			username = EXCLUDED.username,
			salt = EXCLUDED.salt,
			password_hash = EXCLUDED.password_hash,
			cash = EXCLUDED.cash,
			properties = EXCLUDED.properties,
			is_banker = EXCLUDED.is_banker
	`, rec.ID, rec.Name, rec.Username, rec.Salt, rec.PasswordHash, rec.Cash, string(props), rec.IsBanker)
	return err
}

func (s *Store) UpdateCash(ctx context.Context, id string, cash int64) error {
	return s.updateOne(ctx, `UPDATE accounts SET cash = $2 WHERE id = $1`, id, cash)
}

func (s *Store) UpdateProperties(ctx context.Context, id string, properties []string) error {
	props, err := json.Marshal(properties)
	if err != nil {
		return err
	}
	return s.updateOne(ctx, `UPDATE accounts SET properties = $2 WHERE id = $1`, id, string(props))
}

func (s *Store) SetCredentials(ctx context.Context, id string, salt, hash []byte) error {
	return s.updateOne(ctx, `UPDATE accounts SET salt = $2, password_hash = $3 WHERE id = $1`, id, salt, hash)
}

func (s *Store) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return interfaces.ErrNoRecord
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return err
}

func (s *Store) AllAccounts(ctx context.Context) ([]models.AccountRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, username, salt, password_hash, cash, properties, is_banker
		FROM accounts ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.AccountRecord
	for rows.Next() {
		var (
			rec      models.AccountRecord
			propsRaw string
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Username, &rec.Salt,
			&rec.PasswordHash, &rec.Cash, &propsRaw, &rec.IsBanker); err != nil {
			return nil, err
		}
		if propsRaw != "" {
			if err := json.Unmarshal([]byte(propsRaw), &rec.Properties); err != nil {
				return nil, fmt.Errorf("decode properties for %s: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) PurgeAccounts(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM accounts`)
	return err
}

func (s *Store) Close() error { return s.db.Close() }
