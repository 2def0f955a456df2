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
	"strings"

	"github.com/walteh/viksit/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

type repositorySummary struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

type listingResponse struct {
	Structure []remote.Entry `json:"structure"`
}

func (s *Server) handleRepositories(w http.ResponseWriter, r *http.Request) {
	if s.opts.Repositories == nil {
		fail(w, r, errors.Errorf("%w: repositories", errUnavailable))
		return
	}

	repos, err := s.opts.Repositories.ListRepositories(r.Context(), r.PathValue("user"))
	if err != nil {
		fail(w, r, err)
		return
	}

	out := make([]repositorySummary, 0, len(repos))
	for _, repo := range repos {
		out = append(out, repositorySummary{Name: repo.Name, ID: repo.ID})
	}
	writeJSON(w, http.StatusOK, map[string]any{"repos": out})
}

// handleRepoStructure lists one directory. The same body is served under
// /api/listing so this server can act as a listing backend for another.
func (s *Server) handleRepoStructure(w http.ResponseWriter, r *http.Request) {
	s.listing(w, r, r.PathValue("user"), r.PathValue("repo"))
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	s.listing(w, r, r.PathValue("owner"), r.PathValue("repo"))
}

func (s *Server) listing(w http.ResponseWriter, r *http.Request, owner, repo string) {
	if s.opts.Materializer == nil {
		fail(w, r, errors.Errorf("%w: listing", errUnavailable))
		return
	}

	path := strings.Trim(r.URL.Query().Get("path"), "/")
	entries, err := s.opts.Materializer.FetchDirectoryListing(r.Context(), owner, repo, path)
	if err != nil {
		fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []remote.Entry{}
	}
	writeJSON(w, http.StatusOK, listingResponse{Structure: entries})
}

func (s *Server) handleRepoInfo(w http.ResponseWriter, r *http.Request) {
	if s.opts.Repositories == nil {
		fail(w, r, errors.Errorf("%w: repositories", errUnavailable))
		return
	}

	info, err := s.opts.Repositories.Repository(r.Context(), r.PathValue("user"), r.PathValue("repo"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleFile proxies a file's raw bytes from its download locator
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if s.opts.Source == nil {
		fail(w, r, errors.Errorf("%w: content", errUnavailable))
		return
	}

	locator := r.URL.Query().Get("url")
	if locator == "" {
		fail(w, r, errors.Errorf("%w: url is required", errBadRequest))
		return
	}
	if _, err := remote.ParseLocator(locator); err != nil {
		fail(w, r, err)
		return
	}

	content, err := s.opts.Source.FetchContent(r.Context(), locator)
	if err != nil {
		fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}
