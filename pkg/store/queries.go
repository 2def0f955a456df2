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
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🤖 Query is one answered AI request
type Query struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordQuery saves an answered query
func (s *Store) RecordQuery(ctx context.Context, kind, query, response string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queries (kind, query, response, created_at) VALUES (?, ?, ?, ?)`,
		kind, query, response, s.now().UnixNano())
	if err != nil {
		return errors.Errorf("recording query: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("kind", kind).Msg("query recorded")
	return nil
}

// RecentQueries returns up to limit queries, newest first
func (s *Store) RecentQueries(ctx context.Context, limit int) ([]Query, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, query, response, created_at FROM queries ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Errorf("listing queries: %w", err)
	}
	defer rows.Close()

	var out []Query
	for rows.Next() {
		var q Query
		var created int64
		if err := rows.Scan(&q.ID, &q.Kind, &q.Query, &q.Response, &created); err != nil {
			return nil, errors.Errorf("scanning query: %w", err)
		}
		q.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("listing queries: %w", err)
	}
	return out, nil
}
