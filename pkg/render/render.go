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

// Package render turns a materialized tree into text and JSON views.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"
	"github.com/walteh/viksit/pkg/remote"
	"github.com/walteh/viksit/pkg/tree"
	"gitlab.com/tozd/go/errors"
)

const (
	branchMid  = "├── "
	branchLast = "└── "
	pipeIndent = "│   "
	spaceIdent = "    "
	notLoaded  = "[not loaded]"
)

// FormatSize renders a byte count the way file browsers do: B below 1 KB,
// then KB, MB and GB with one decimal.
func FormatSize(size int64) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%d B", size)
	case size < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	case size < 1024*1024*1024:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	default:
		return fmt.Sprintf("%.1f GB", float64(size)/(1024*1024*1024))
	}
}

// 🎛️ Options controls Text output
type Options struct {
	// Ignore hides nodes whose path matches any doublestar pattern
	Ignore []string
	// MaxDepth stops descending below this depth; zero means unlimited
	MaxDepth int
	// HideSizes drops the size column of files
	HideSizes bool
}

func (o Options) ignored(path string) bool {
	for _, pattern := range o.Ignore {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// 🖨️ Text writes t as a box-drawing tree
func Text(w io.Writer, t *tree.Tree, opts Options) error {
	for _, pattern := range opts.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	root := t.Root()
	if _, err := fmt.Fprintln(w, color.New(color.Bold, color.FgCyan).Sprint(t.Owner()+"/"+t.Repo())); err != nil {
		return errors.Errorf("writing tree: %w", err)
	}
	if !t.Expanded(root) {
		_, err := fmt.Fprintln(w, color.New(color.Faint).Sprint(notLoaded))
		return err
	}
	return writeChildren(w, t, root, "", 1, opts)
}

func writeChildren(w io.Writer, t *tree.Tree, n *tree.Node, prefix string, depth int, opts Options) error {
	if opts.MaxDepth > 0 && depth > opts.MaxDepth {
		return nil
	}

	children := make([]*tree.Node, 0)
	for _, c := range t.Children(n) {
		if !opts.ignored(c.Path) {
			children = append(children, c)
		}
	}

	for i, c := range children {
		last := i == len(children)-1
		branch, next := branchMid, pipeIndent
		if last {
			branch, next = branchLast, spaceIdent
		}

		if _, err := fmt.Fprintln(w, prefix+branch+label(t, c, opts)); err != nil {
			return errors.Errorf("writing tree: %w", err)
		}

		if c.IsDir() && t.Expanded(c) {
			if err := writeChildren(w, t, c, prefix+next, depth+1, opts); err != nil {
				return err
			}
		}
	}
	return nil
}

func label(t *tree.Tree, n *tree.Node, opts Options) string {
	if n.IsDir() {
		out := color.New(color.Bold, color.FgBlue).Sprint(n.Name + "/")
		if !t.Expanded(n) {
			out += " " + color.New(color.Faint).Sprint(notLoaded)
		}
		return out
	}
	if n.Type != remote.EntryTypeFile {
		return n.Name + " " + color.New(color.Faint).Sprint("("+string(n.Type)+")")
	}
	if opts.HideSizes {
		return n.Name
	}
	return n.Name + " " + color.New(color.Faint).Sprint("("+FormatSize(n.Size)+")")
}

// 🧬 HierarchyNode is the JSON shape handed to visualization layers.
// Directories always carry a children field, null until expanded; files
// never do.
type HierarchyNode struct {
	Name        string
	Path        string
	Type        string
	Size        int64
	DownloadURL string
	URL         string
	Children    []*HierarchyNode
	Expanded    bool
}

type hierarchyBase struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	Size        int64  `json:"size,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	URL         string `json:"url,omitempty"`
}

func (h *HierarchyNode) MarshalJSON() ([]byte, error) {
	base := hierarchyBase{
		Name:        h.Name,
		Path:        h.Path,
		Type:        h.Type,
		Size:        h.Size,
		DownloadURL: h.DownloadURL,
		URL:         h.URL,
	}
	if h.Type != string(remote.EntryTypeDir) {
		return json.Marshal(base)
	}

	var children []*HierarchyNode
	if h.Expanded {
		children = h.Children
		if children == nil {
			children = []*HierarchyNode{}
		}
	}
	return json.Marshal(struct {
		hierarchyBase
		Children []*HierarchyNode `json:"children"`
	}{base, children})
}

// Hierarchy snapshots t starting at its root
func Hierarchy(t *tree.Tree) *HierarchyNode {
	return hierarchyOf(t, t.Root())
}

func hierarchyOf(t *tree.Tree, n *tree.Node) *HierarchyNode {
	h := &HierarchyNode{
		Name:        n.Name,
		Path:        n.Path,
		Type:        string(n.Type),
		Size:        n.Size,
		DownloadURL: n.DownloadURL,
		URL:         n.URL,
	}
	if !n.IsDir() || !t.Expanded(n) {
		return h
	}
	h.Expanded = true
	h.Children = make([]*HierarchyNode, 0)
	for _, c := range t.Children(n) {
		h.Children = append(h.Children, hierarchyOf(t, c))
	}
	return h
}

// 📊 Summary counts what a tree currently holds. The root is not counted.
type Summary struct {
	Files       int   `json:"files"`
	Directories int   `json:"directories"`
	Other       int   `json:"other"`
	Bytes       int64 `json:"bytes"`
	Unexpanded  int   `json:"unexpanded"`
}

func (s Summary) String() string {
	parts := []string{
		fmt.Sprintf("%d directories", s.Directories),
		fmt.Sprintf("%d files", s.Files),
	}
	if s.Other > 0 {
		parts = append(parts, fmt.Sprintf("%d other", s.Other))
	}
	parts = append(parts, FormatSize(s.Bytes))
	if s.Unexpanded > 0 {
		parts = append(parts, fmt.Sprintf("%d not loaded", s.Unexpanded))
	}
	return strings.Join(parts, ", ")
}

// Stats summarizes t
func Stats(t *tree.Tree) Summary {
	s := Summary{Unexpanded: len(t.Unexpanded())}
	_ = t.Walk(func(n *tree.Node, depth int) error {
		switch {
		case depth == 0:
		case n.IsDir():
			s.Directories++
		case n.Type == remote.EntryTypeFile:
			s.Files++
			s.Bytes += n.Size
		default:
			s.Other++
		}
		return nil
	})
	return s
}
