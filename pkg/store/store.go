// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store persists the GitHub token, answered AI queries and chat
// messages in a single sqlite database.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	_ "modernc.org/sqlite"
)

// ErrNoToken is returned when no GitHub token has been saved
var ErrNoToken = errors.Base("no github token saved")

const schema = `
	CREATE TABLE IF NOT EXISTS github_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		token TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		query TEXT NOT NULL,
		response TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_queries_created_at ON queries(created_at DESC);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		author TEXT NOT NULL,
		display_name TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);
`

// 💾 Store is a sqlite backed store
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// 🏭 Open opens or creates the database at path
func Open(ctx context.Context, path string) (*Store, error) {
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("opening store")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Errorf("opening store: %w", err)
	}
	// sqlite allows one writer; a single connection keeps writes ordered
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, errors.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Errorf("initializing schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// 🔒 WithTx runs fn in a transaction, committing when it returns nil
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, errors.Errorf("rolling back: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Errorf("committing transaction: %w", err)
	}
	return nil
}

// 🔑 SetGitHubToken replaces any saved token with token
func (s *Store) SetGitHubToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("token is empty")
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM github_tokens`); err != nil {
			return errors.Errorf("clearing tokens: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO github_tokens (token, created_at) VALUES (?, ?)`, token, s.now().UnixNano()); err != nil {
			return errors.Errorf("saving token: %w", err)
		}
		return nil
	})
}

// GitHubToken returns the saved token or ErrNoToken
func (s *Store) GitHubToken(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `SELECT token FROM github_tokens ORDER BY id DESC LIMIT 1`).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", errors.Errorf("reading token: %w", err)
	}
	return token, nil
}
