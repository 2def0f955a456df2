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

package store

import (
	"context"
	"database/sql"
	"time"

	"gitlab.com/tozd/go/errors"
)

// 💬 Message is one chat message
type Message struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	DisplayName string    `json:"display_name"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// InsertMessage saves m. A zero CreatedAt is set to now.
func (s *Store) InsertMessage(ctx context.Context, m *Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, author, display_name, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Author, m.DisplayName, m.Text, m.CreatedAt.UnixNano())
	if err != nil {
		return errors.Errorf("inserting message: %w", err)
	}
	return nil
}

// ListMessages returns the latest limit messages in ascending creation
// order. A limit of zero returns every message.
func (s *Store) ListMessages(ctx context.Context, limit int) ([]Message, error) {
	query := `SELECT id, author, display_name, text, created_at FROM messages ORDER BY created_at ASC, seq ASC`
	args := []any{}
	if limit > 0 {
		query = `SELECT id, author, display_name, text, created_at FROM (
			SELECT seq, id, author, display_name, text, created_at FROM messages ORDER BY created_at DESC, seq DESC LIMIT ?
		) ORDER BY created_at ASC, seq ASC`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Errorf("listing messages: %w", err)
	}
	return scanMessages(rows)
}

// MessagesAfter returns messages created strictly after t, ascending
func (s *Store) MessagesAfter(ctx context.Context, t time.Time) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, author, display_name, text, created_at FROM messages WHERE created_at > ? ORDER BY created_at ASC, seq ASC`,
		t.UnixNano())
	if err != nil {
		return nil, errors.Errorf("listing messages: %w", err)
	}
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		var created int64
		if err := rows.Scan(&m.ID, &m.Author, &m.DisplayName, &m.Text, &created); err != nil {
			return nil, errors.Errorf("scanning message: %w", err)
		}
		m.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("listing messages: %w", err)
	}
	return out, nil
}
