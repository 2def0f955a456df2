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
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/viksit/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// ErrSuperseded is returned when a newer selection replaced the tree an
// operation was working on. Its results were discarded.
var ErrSuperseded = errors.Base("superseded by a newer selection")

// 👀 Observer is told about every directory expansion attempt
type Observer interface {
	DirectoryExpanded(ctx context.Context, t *Tree, path string, children int)
	DirectoryFailed(ctx context.Context, t *Tree, path string, err error)
}

// 📝 FailedDirectory is one directory a walk could not expand
type FailedDirectory struct {
	Path string
	Err  error
}

// ⚠️ WalkError aggregates the fetch failures of one ExpandAll walk
type WalkError struct {
	Failed []FailedDirectory
}

func (e *WalkError) Error() string {
	paths := e.Paths()
	for i, p := range paths {
		if p == RootPath {
			paths[i] = "/"
		}
	}
	return fmt.Sprintf("%d directories failed to expand: %s", len(e.Failed), strings.Join(paths, ", "))
}

func (e *WalkError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

// Paths returns the failed directory paths in walk order
func (e *WalkError) Paths() []string {
	paths := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		paths = append(paths, f.Path)
	}
	return paths
}

// 🏗️ Materializer turns per-directory listings into trees
type Materializer struct {
	lister   remote.Lister
	observer Observer
	skip     []string
}

// Option configures a Materializer
type Option func(*Materializer)

// WithObserver reports every expansion to o
func WithObserver(o Observer) Option {
	return func(m *Materializer) {
		m.observer = o
	}
}

// WithSkip keeps directories matching any of the doublestar patterns
// unexpanded during ExpandAll. ExpandNode ignores it.
func WithSkip(patterns ...string) Option {
	return func(m *Materializer) {
		m.skip = append(m.skip, patterns...)
	}
}

// NewMaterializer creates a materializer reading from lister
func NewMaterializer(lister remote.Lister, opts ...Option) *Materializer {
	m := &Materializer{lister: lister}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// 📂 FetchRootListing fetches the direct children of the repository root
func (m *Materializer) FetchRootListing(ctx context.Context, owner, repo string) ([]remote.Entry, error) {
	return m.FetchDirectoryListing(ctx, owner, repo, RootPath)
}

// 📂 FetchDirectoryListing fetches the direct children of path. Upstream
// failures are always returned as *remote.FetchError.
func (m *Materializer) FetchDirectoryListing(ctx context.Context, owner, repo, path string) ([]remote.Entry, error) {
	if err := remote.ValidateIdentifiers(owner, repo); err != nil {
		return nil, err
	}

	entries, err := m.lister.List(ctx, owner, repo, path)
	if err != nil {
		var fe *remote.FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &remote.FetchError{Op: "listing", Path: path, Err: err}
	}

	return entries, nil
}

// 🌱 Build fetches the root listing of owner/repo and returns a fresh tree
// whose root is already expanded. Nothing is built when the fetch fails.
func (m *Materializer) Build(ctx context.Context, owner, repo string) (*Tree, error) {
	zerolog.Ctx(ctx).Debug().Str("owner", owner).Str("repo", repo).Msg("building tree")

	entries, err := m.FetchRootListing(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	t := New(owner, repo)
	if _, err := t.attach(RootPath, entries); err != nil {
		return nil, errors.Errorf("attaching root listing: %w", err)
	}
	m.expanded(ctx, t, RootPath)

	return t, nil
}

// ➕ ExpandNode fetches the listing of the directory at path and attaches it.
// A directory that is already expanded is left as is without a fetch. On
// failure the node stays unexpanded and the *remote.FetchError is returned.
func (m *Materializer) ExpandNode(ctx context.Context, t *Tree, path string) error {
	return m.expand(ctx, t, path, nil)
}

// 🌳 ExpandAll expands every reachable directory depth-first, one fetch at a
// time. A directory that fails is left unexpanded and the walk moves on to
// its siblings; the failures are returned together as a *WalkError.
func (m *Materializer) ExpandAll(ctx context.Context, t *Tree) error {
	return m.expandAll(ctx, t, nil)
}

func (m *Materializer) expand(ctx context.Context, t *Tree, path string, current func() bool) error {
	n, err := t.Locate(path)
	if err != nil {
		return err
	}
	if !n.IsDir() {
		return errors.Errorf("%w: %q", ErrNotDirectory, path)
	}
	if t.Expanded(n) {
		return nil
	}

	entries, err := m.FetchDirectoryListing(ctx, t.owner, t.repo, path)
	if err != nil {
		if m.observer != nil {
			m.observer.DirectoryFailed(ctx, t, path, err)
		}
		return err
	}

	if current != nil && !current() {
		return errors.Errorf("expanding %q: %w", path, ErrSuperseded)
	}

	attached, err := t.attach(path, entries)
	if err != nil {
		return err
	}
	if attached {
		m.expanded(ctx, t, path)
	}

	return nil
}

func (m *Materializer) expandAll(ctx context.Context, t *Tree, current func() bool) error {
	logger := zerolog.Ctx(ctx)
	walkErr := &WalkError{}

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if !t.Expanded(n) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := m.expand(ctx, t, n.Path, current); err != nil {
				if errors.Is(err, ErrSuperseded) {
					return err
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Debug().Err(err).Str("path", n.Path).Msg("directory failed to expand, continuing")
				walkErr.Failed = append(walkErr.Failed, FailedDirectory{Path: n.Path, Err: err})
				return nil
			}
		}

		for _, c := range t.Children(n) {
			if !c.IsDir() || m.skipped(ctx, c.Path) {
				continue
			}
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(t.Root()); err != nil {
		return errors.Errorf("walking %s/%s: %w", t.owner, t.repo, err)
	}

	if len(walkErr.Failed) > 0 {
		return walkErr
	}
	return nil
}

func (m *Materializer) skipped(ctx context.Context, path string) bool {
	for _, pattern := range m.skip {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Str("pattern", pattern).Str("path", path).Err(err).Msg("error matching pattern")
			continue
		}
		if matched {
			zerolog.Ctx(ctx).Debug().Str("path", path).Str("pattern", pattern).Msg("directory skipped by pattern")
			return true
		}
	}
	return false
}

func (m *Materializer) expanded(ctx context.Context, t *Tree, path string) {
	if m.observer == nil {
		return
	}
	n, err := t.Locate(path)
	if err != nil {
		return
	}
	m.observer.DirectoryExpanded(ctx, t, path, len(t.Children(n)))
}
