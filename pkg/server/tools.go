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
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/walteh/viksit/pkg/assist"
	"github.com/walteh/viksit/pkg/execute"
	"github.com/walteh/viksit/pkg/remote"
	"github.com/walteh/viksit/pkg/translate"
	"gitlab.com/tozd/go/errors"
)

type answerResponse struct {
	Response string `json:"response"`
}

type repositoryQuery struct {
	Username string   `json:"username"`
	RepoName string   `json:"repo_name"`
	Query    string   `json:"query"`
	Paths    []string `json:"paths,omitempty"`
}

type codeQuery struct {
	FileURL string `json:"file_url"`
	Code    string `json:"code"`
	Query   string `json:"query"`
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source_language_code"`
	Target string `json:"target_language_code"`
}

type speechRequest struct {
	Text    string `json:"text"`
	Target  string `json:"target_language_code"`
	Speaker string `json:"speaker"`
}

// details describes owner/repo, falling back to the bare names when
// metadata cannot be fetched
func (s *Server) details(ctx context.Context, owner, repo string) (assist.RepositoryDetails, error) {
	d := assist.RepositoryDetails{Owner: owner, Name: repo}
	if s.opts.Repositories == nil || owner == "" || repo == "" {
		return d, nil
	}
	info, err := s.opts.Repositories.Repository(ctx, owner, repo)
	if err != nil {
		return d, err
	}
	d.Description = info.Description
	d.Language = info.Language
	return d, nil
}

func (s *Server) handleQueryRepository(w http.ResponseWriter, r *http.Request) {
	if s.opts.Assist == nil {
		fail(w, r, errors.Errorf("%w: assistant", errUnavailable))
		return
	}

	var req repositoryQuery
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.Username == "" || req.RepoName == "" || strings.TrimSpace(req.Query) == "" {
		fail(w, r, errors.Errorf("%w: username, repository name and query are required", assist.ErrMissingInput))
		return
	}

	details, err := s.details(r.Context(), req.Username, req.RepoName)
	if err != nil {
		fail(w, r, err)
		return
	}

	answer, err := s.opts.Assist.QueryRepository(r.Context(), details, req.Query)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Response: answer})
}

// handleQueryCode answers a question about code sent inline or fetched from
// file_url
func (s *Server) handleQueryCode(w http.ResponseWriter, r *http.Request) {
	if s.opts.Assist == nil {
		fail(w, r, errors.Errorf("%w: assistant", errUnavailable))
		return
	}

	var req codeQuery
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" || (req.Code == "" && req.FileURL == "") {
		fail(w, r, errors.Errorf("%w: file url and query are required", assist.ErrMissingInput))
		return
	}

	code := req.Code
	if code == "" {
		if s.opts.Source == nil {
			fail(w, r, errors.Errorf("%w: content", errUnavailable))
			return
		}
		if _, err := remote.ParseLocator(req.FileURL); err != nil {
			fail(w, r, err)
			return
		}
		content, err := s.opts.Source.FetchContent(r.Context(), req.FileURL)
		if err != nil {
			fail(w, r, err)
			return
		}
		code = string(content)
	}

	answer, err := s.opts.Assist.QueryCode(r.Context(), code, req.Query)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Response: answer})
}

// handleGenerateDocumentation documents a repository from the paths given,
// or from its root listing when none are
func (s *Server) handleGenerateDocumentation(w http.ResponseWriter, r *http.Request) {
	if s.opts.Assist == nil {
		fail(w, r, errors.Errorf("%w: assistant", errUnavailable))
		return
	}

	var req repositoryQuery
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.Username == "" || req.RepoName == "" {
		fail(w, r, errors.Errorf("%w: username and repository name are required", assist.ErrMissingInput))
		return
	}

	paths := req.Paths
	if len(paths) == 0 && s.opts.Materializer != nil {
		entries, err := s.opts.Materializer.FetchRootListing(r.Context(), req.Username, req.RepoName)
		if err != nil {
			fail(w, r, err)
			return
		}
		for _, e := range entries {
			paths = append(paths, e.Path)
		}
	}

	details, err := s.details(r.Context(), req.Username, req.RepoName)
	if err != nil {
		fail(w, r, err)
		return
	}

	doc, err := s.opts.Assist.GenerateDocumentation(r.Context(), details, paths)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"documentation": doc})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if s.opts.Execute == nil {
		fail(w, r, errors.Errorf("%w: code execution", errUnavailable))
		return
	}

	var req execute.Request
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	result, err := s.opts.Execute.Execute(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if s.opts.Translate == nil {
		fail(w, r, errors.Errorf("%w: translation", errUnavailable))
		return
	}

	var req translateRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	out, err := s.opts.Translate.Translate(r.Context(), req.Text, req.Source, req.Target)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTextToSpeech(w http.ResponseWriter, r *http.Request) {
	if s.opts.Translate == nil {
		fail(w, r, errors.Errorf("%w: speech", errUnavailable))
		return
	}

	var req speechRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	audio, err := s.opts.Translate.Speak(r.Context(), req.Text, req.Target, req.Speaker)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"audio": base64.StdEncoding.EncodeToString(audio)})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"execute":   execute.Languages,
		"translate": translate.Supported,
	})
}
