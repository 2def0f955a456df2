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

package server

import (
	"net/http"

	"github.com/walteh/viksit/pkg/render"
	"github.com/walteh/viksit/pkg/tree"
	"gitlab.com/tozd/go/errors"
)

// treeResponse is the visualization payload. Failed lists directories an
// eager walk could not expand; the rest of the tree is still usable.
type treeResponse struct {
	Owner      string                `json:"owner"`
	Repo       string                `json:"repo"`
	Generation uint64                `json:"generation"`
	Tree       *render.HierarchyNode `json:"tree"`
	Stats      render.Summary        `json:"stats"`
	Failed     []failedDirectory     `json:"failed,omitempty"`
}

type failedDirectory struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func newTreeResponse(t *tree.Tree, generation uint64, walkErr *tree.WalkError) treeResponse {
	resp := treeResponse{
		Owner:      t.Owner(),
		Repo:       t.Repo(),
		Generation: generation,
		Tree:       render.Hierarchy(t),
		Stats:      render.Stats(t),
	}
	if walkErr != nil {
		for _, f := range walkErr.Failed {
			resp.Failed = append(resp.Failed, failedDirectory{Path: f.Path, Error: f.Err.Error()})
		}
	}
	return resp
}

// handleSelect makes owner/repo the session's repository
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if s.opts.Materializer == nil {
		fail(w, r, errors.Errorf("%w: tree", errUnavailable))
		return
	}

	mode := s.opts.DefaultMode
	if raw := r.URL.Query().Get("mode"); raw != "" {
		var err error
		mode, err = tree.ParseMode(raw)
		if err != nil {
			fail(w, r, errors.Errorf("%w: %s", errBadRequest, err.Error()))
			return
		}
	}

	sess := s.session(r.URL.Query().Get("session"))
	t, gen, err := sess.Select(r.Context(), r.PathValue("owner"), r.PathValue("repo"), mode)

	var walkErr *tree.WalkError
	if err != nil && !(t != nil && errors.As(err, &walkErr)) {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTreeResponse(t, gen, walkErr))
}

// handleExpand loads one directory of the session's current tree
func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	if s.opts.Materializer == nil {
		fail(w, r, errors.Errorf("%w: tree", errUnavailable))
		return
	}

	sess := s.session(r.URL.Query().Get("session"))
	t, gen, err := sess.Expand(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTreeResponse(t, gen, nil))
}

func (s *Server) handleCurrentTree(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r.URL.Query().Get("session"))
	t, gen, err := sess.Snapshot()
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTreeResponse(t, gen, nil))
}
