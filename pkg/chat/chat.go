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

// Package chat is the community room: persisted messages plus realtime
// delivery to in-process subscribers.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/viksit/pkg/store"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrEmptyMessage is returned for messages that are blank after trimming
	ErrEmptyMessage = errors.Base("message is empty")
	// ErrTooLong is returned for messages over MaxLength runes
	ErrTooLong = errors.Base("message is too long")
	// ErrNoAuthor is returned when a message has no author
	ErrNoAuthor = errors.Base("message has no author")
)

const (
	// MaxLength caps a message in runes
	MaxLength = 4000
	// subscriberBuffer is how many messages a slow subscriber may lag
	subscriberBuffer = 32
)

// 💾 MessageStore persists messages
type MessageStore interface {
	InsertMessage(ctx context.Context, m *store.Message) error
	ListMessages(ctx context.Context, limit int) ([]store.Message, error)
	MessagesAfter(ctx context.Context, t time.Time) ([]store.Message, error)
}

// 💬 Room is one chat room
type Room struct {
	store MessageStore
	now   func() time.Time

	mu     sync.Mutex
	subs   map[int]chan store.Message
	nextID int
}

// NewRoom creates a room persisting to s
func NewRoom(s MessageStore) *Room {
	return &Room{
		store: s,
		now:   time.Now,
		subs:  map[int]chan store.Message{},
	}
}

// DisplayName is the part of author before the @
func DisplayName(author string) string {
	name, _, _ := strings.Cut(author, "@")
	if name == "" {
		return author
	}
	return name
}

// 📨 Post stores a message and delivers it to every subscriber
func (r *Room) Post(ctx context.Context, author, text string) (*store.Message, error) {
	author = strings.TrimSpace(author)
	text = strings.TrimSpace(text)
	if author == "" {
		return nil, ErrNoAuthor
	}
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxLength {
		return nil, errors.Errorf("%w: %d runes, max %d", ErrTooLong, utf8.RuneCountInString(text), MaxLength)
	}

	m := &store.Message{
		ID:          uuid.NewString(),
		Author:      author,
		DisplayName: DisplayName(author),
		Text:        text,
		CreatedAt:   r.now().UTC(),
	}
	if err := r.store.InsertMessage(ctx, m); err != nil {
		return nil, errors.Errorf("posting message: %w", err)
	}

	r.broadcast(ctx, *m)
	return m, nil
}

// History returns the latest limit messages, oldest first
func (r *Room) History(ctx context.Context, limit int) ([]store.Message, error) {
	msgs, err := r.store.ListMessages(ctx, limit)
	if err != nil {
		return nil, errors.Errorf("reading history: %w", err)
	}
	return msgs, nil
}

// Since returns messages created after t, oldest first
func (r *Room) Since(ctx context.Context, t time.Time) ([]store.Message, error) {
	msgs, err := r.store.MessagesAfter(ctx, t)
	if err != nil {
		return nil, errors.Errorf("reading messages: %w", err)
	}
	return msgs, nil
}

// 📡 Subscribe delivers every message posted from now on. The channel is
// closed when ctx ends or the returned cancel func is called. A subscriber
// that falls subscriberBuffer messages behind misses messages rather than
// holding up Post.
func (r *Room) Subscribe(ctx context.Context) (<-chan store.Message, func()) {
	ch := make(chan store.Message, subscriberBuffer)

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = ch
	r.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			close(ch)
			close(done)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ch, cancel
}

// Subscribers returns the number of live subscriptions
func (r *Room) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *Room) broadcast(ctx context.Context, m store.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, ch := range r.subs {
		select {
		case ch <- m:
		default:
			zerolog.Ctx(ctx).Warn().Int("subscriber", id).Str("message", m.ID).Msg("subscriber is behind, dropping message")
		}
	}
}
