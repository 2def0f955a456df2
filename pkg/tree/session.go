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

package tree

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrNoSelection is returned by Session operations that need a committed tree
var ErrNoSelection = errors.Base("no repository selected")

// Mode decides how much of a newly selected tree is loaded up front
type Mode int

const (
	// ModeLazy loads only the root listing
	ModeLazy Mode = iota
	// ModeEager walks the whole repository before committing
	ModeEager
)

func (m Mode) String() string {
	if m == ModeEager {
		return "eager"
	}
	return "lazy"
}

// ParseMode maps "lazy" and "eager" to a Mode. An empty string is lazy.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lazy":
		return ModeLazy, nil
	case "eager":
		return ModeEager, nil
	default:
		return ModeLazy, errors.Errorf("invalid mode %q: must be lazy or eager", s)
	}
}

// 🎯 Session owns the currently selected tree. Every Select starts a new
// generation: the walk of the previous generation is cancelled and whatever
// it still produces is discarded instead of landing in the new tree.
type Session struct {
	materializer *Materializer

	mu         sync.Mutex
	generation uint64
	committed  uint64
	current    *Tree
	cancel     context.CancelFunc
}

// NewSession creates a session with nothing selected
func NewSession(m *Materializer) *Session {
	return &Session{materializer: m}
}

// Current returns the committed tree, or nil when nothing has been selected
func (s *Session) Current() *Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Generation returns the generation of the latest selection
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// 🔀 Select replaces the current tree with one for owner/repo and returns it
// with the generation it was selected under. The new tree is committed only
// if no later Select started in the meantime; otherwise ErrSuperseded is
// returned and the later selection wins. If the root fetch fails the
// previously committed tree stays current.
//
// In ModeEager a *WalkError may be returned alongside a committed tree
// whose failed directories are left unexpanded.
func (s *Session) Select(ctx context.Context, owner, repo string, mode Mode) (*Tree, uint64, error) {
	walkCtx, gen, cancel := s.begin(ctx)
	defer s.finish(gen, cancel)

	logger := zerolog.Ctx(ctx).With().Uint64("generation", gen).Str("repository", owner+"/"+repo).Logger()

	current := func() bool { return s.isCurrent(gen) }

	t, err := s.materializer.Build(walkCtx, owner, repo)
	if err != nil {
		if !current() {
			return nil, gen, errors.Errorf("selecting %s/%s: %w", owner, repo, ErrSuperseded)
		}
		s.keep(gen)
		return nil, gen, errors.Errorf("selecting %s/%s: %w", owner, repo, err)
	}

	var walkErr error
	if mode == ModeEager {
		walkErr = s.materializer.expandAll(walkCtx, t, current)
		var we *WalkError
		if walkErr != nil && !errors.As(walkErr, &we) {
			if !current() {
				return nil, gen, errors.Errorf("selecting %s/%s: %w", owner, repo, ErrSuperseded)
			}
			s.keep(gen)
			return nil, gen, walkErr
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		logger.Debug().Msg("discarding superseded selection")
		return nil, gen, errors.Errorf("selecting %s/%s: %w", owner, repo, ErrSuperseded)
	}
	s.current = t
	s.committed = gen

	logger.Debug().Str("mode", mode.String()).Int("nodes", t.Len()).Msg("selection committed")

	return t, gen, walkErr
}

// ➕ Expand expands path in the committed tree and returns that tree with
// its generation. The result is discarded with ErrSuperseded if a new
// selection starts while the fetch runs.
func (s *Session) Expand(ctx context.Context, path string) (*Tree, uint64, error) {
	t, gen, err := s.Snapshot()
	if err != nil {
		return nil, 0, err
	}
	if err := s.materializer.expand(ctx, t, path, func() bool { return s.isCurrent(gen) }); err != nil {
		return nil, gen, err
	}
	return t, gen, nil
}

// 🌳 ExpandAll walks the committed tree like Materializer.ExpandAll, stopping
// as soon as a new selection starts. A *WalkError comes back with the tree.
func (s *Session) ExpandAll(ctx context.Context) (*Tree, uint64, error) {
	t, gen, err := s.Snapshot()
	if err != nil {
		return nil, 0, err
	}
	return t, gen, s.materializer.expandAll(ctx, t, func() bool { return s.isCurrent(gen) })
}

func (s *Session) begin(ctx context.Context) (context.Context, uint64, context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.generation++

	walkCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return walkCtx, s.generation, cancel
}

// finish releases the walk context of generation gen once its Select returns
func (s *Session) finish(gen uint64, cancel context.CancelFunc) {
	s.mu.Lock()
	if s.generation == gen {
		s.cancel = nil
	}
	s.mu.Unlock()
	cancel()
}

// InFlight reports whether a selection is still walking
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// keep leaves the previously committed tree in place for generation gen
// after its own selection failed
func (s *Session) keep(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.committed = gen
	}
}

// Snapshot returns the committed tree with the generation it is valid under,
// or ErrNoSelection
func (s *Session) Snapshot() (*Tree, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, 0, ErrNoSelection
	}
	return s.current, s.committed, nil
}

func (s *Session) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == gen
}
