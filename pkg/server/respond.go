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
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/walteh/viksit/pkg/assist"
	"github.com/walteh/viksit/pkg/chat"
	"github.com/walteh/viksit/pkg/execute"
	"github.com/walteh/viksit/pkg/remote"
	"github.com/walteh/viksit/pkg/translate"
	"github.com/walteh/viksit/pkg/tree"
	"gitlab.com/tozd/go/errors"
)

const maxBodyBytes = 1 << 20

var (
	errUnavailable = errors.Base("service not configured")
	errBadRequest  = errors.Base("bad request")
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// fail logs err and answers with the status it maps to
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	event := zerolog.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = zerolog.Ctx(r.Context()).Error()
	}
	event.Err(err).Int("status", status).Msg("request failed")
	writeError(w, status, err.Error())
}

// statusFor maps domain errors onto HTTP statuses. Upstream statuses pass
// through so a missing repository stays a 404.
func statusFor(err error) int {
	var fetchErr *remote.FetchError
	var walkErr *tree.WalkError
	var assistErr *assist.APIError
	var executeErr *execute.APIError
	var translateErr *translate.APIError
	switch {
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errBadRequest),
		errors.Is(err, remote.ErrInvalidIdentifier),
		errors.Is(err, remote.ErrInvalidLocator),
		errors.Is(err, tree.ErrNotDirectory),
		errors.Is(err, assist.ErrMissingInput),
		errors.Is(err, execute.ErrMissingInput),
		errors.Is(err, execute.ErrUnknownLanguage),
		errors.Is(err, translate.ErrMissingInput),
		errors.Is(err, translate.ErrUnsupportedLanguage),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrTooLong),
		errors.Is(err, chat.ErrNoAuthor):
		return http.StatusBadRequest
	case errors.Is(err, tree.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tree.ErrNoSelection), errors.Is(err, tree.ErrSuperseded):
		return http.StatusConflict
	case errors.As(err, &walkErr),
		errors.As(err, &assistErr),
		errors.As(err, &executeErr),
		errors.As(err, &translateErr):
		return http.StatusBadGateway
	case errors.As(err, &fetchErr):
		if fetchErr.StatusCode >= 400 && fetchErr.StatusCode < 600 {
			return fetchErr.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v, rejecting unknown fields
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Errorf("%w: decoding body: %s", errBadRequest, err.Error())
	}
	return nil
}
