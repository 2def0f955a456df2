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

// Package tree materializes a repository's directory listings into one
// navigable, incrementally loadable tree.
//
// Nodes live in a flat index keyed by path; each directory holds the paths
// of its children. Expanding a directory mutates only that node, so a *Node
// handed out earlier stays valid for the lifetime of the tree.
package tree

import (
	"sync"

	"github.com/walteh/viksit/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrNotFound is returned when no node has the requested path
	ErrNotFound = errors.Base("node not found")
	// ErrNotDirectory is returned when a file is asked to expand
	ErrNotDirectory = errors.Base("node is not a directory")
)

// RootPath is the path of the synthetic root node
const RootPath = ""

// 📄 Node is one file or directory of a materialized tree
type Node struct {
	Name        string
	Path        string
	Type        remote.EntryType
	Size        int64
	DownloadURL string
	URL         string

	// children is nil until the first successful expansion
	children []string
	expanded bool
}

// IsDir reports whether the node is a directory
func (n *Node) IsDir() bool {
	return n.Type == remote.EntryTypeDir
}

func newNode(e remote.Entry) *Node {
	n := &Node{
		Name: e.Name,
		Path: e.Path,
		Type: e.Type,
	}
	if e.IsDir() {
		n.URL = e.URL
	} else {
		n.Size = e.Size
		n.DownloadURL = e.DownloadURL
	}
	return n
}

// 🌳 Tree is the materialized structure of one repository
type Tree struct {
	owner string
	repo  string

	mu    sync.RWMutex
	root  *Node
	nodes map[string]*Node
}

// New creates a tree holding only the synthetic root of owner/repo
func New(owner, repo string) *Tree {
	root := &Node{
		Name: repo,
		Path: RootPath,
		Type: remote.EntryTypeDir,
	}
	return &Tree{
		owner: owner,
		repo:  repo,
		root:  root,
		nodes: map[string]*Node{RootPath: root},
	}
}

// Owner returns the account the repository belongs to
func (t *Tree) Owner() string { return t.owner }

// Repo returns the repository name
func (t *Tree) Repo() string { return t.repo }

// Root returns the synthetic root node
func (t *Tree) Root() *Node { return t.root }

// Len returns the number of nodes, root included
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// 🔍 Locate returns the node whose path equals path exactly
func (t *Tree) Locate(path string) (*Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[path]
	if !ok {
		return nil, errors.Errorf("%w: %q", ErrNotFound, path)
	}
	return n, nil
}

// Expanded reports whether n has had its children fetched
func (t *Tree) Expanded(n *Node) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return n.expanded
}

// Children returns the children of n in listing order. It returns nil for
// files and for directories that have not been expanded.
func (t *Tree) Children(n *Node) []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.childrenLocked(n)
}

func (t *Tree) childrenLocked(n *Node) []*Node {
	if !n.expanded {
		return nil
	}
	out := make([]*Node, 0, len(n.children))
	for _, p := range n.children {
		out = append(out, t.nodes[p])
	}
	return out
}

// 🚶 Walk visits every node in depth-first pre-order, siblings in listing
// order. Returning an error from fn stops the walk.
func (t *Tree) Walk(fn func(n *Node, depth int) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.walkLocked(t.root, 0, fn)
}

func (t *Tree) walkLocked(n *Node, depth int, fn func(n *Node, depth int) error) error {
	if err := fn(n, depth); err != nil {
		return err
	}
	for _, c := range t.childrenLocked(n) {
		if err := t.walkLocked(c, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Unexpanded returns the paths of directories still waiting for a fetch,
// in depth-first order
func (t *Tree) Unexpanded() []string {
	var paths []string
	_ = t.Walk(func(n *Node, _ int) error {
		if n.IsDir() && !n.expanded {
			paths = append(paths, n.Path)
		}
		return nil
	})
	return paths
}

// attach stores entries as the children of the directory at path. It is a
// no-op when the directory is already expanded. Entries whose path is
// already in the tree are dropped.
func (t *Tree) attach(path string, entries []remote.Entry) (attached bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[path]
	if !ok {
		return false, errors.Errorf("%w: %q", ErrNotFound, path)
	}
	if !n.IsDir() {
		return false, errors.Errorf("%w: %q", ErrNotDirectory, path)
	}
	if n.expanded {
		return false, nil
	}

	children := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, dup := t.nodes[e.Path]; dup {
			continue
		}
		t.nodes[e.Path] = newNode(e)
		children = append(children, e.Path)
	}

	n.children = children
	n.expanded = true
	return true, nil
}
