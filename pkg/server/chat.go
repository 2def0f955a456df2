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
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/viksit/pkg/store"
	"gitlab.com/tozd/go/errors"
)

const defaultHistory = 50

type postRequest struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

type messagesResponse struct {
	Messages []store.Message `json:"messages"`
}

// handleChatHistory returns the latest messages, or those after the
// RFC 3339 timestamp in ?after=
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.Room == nil {
		fail(w, r, errors.Errorf("%w: chat", errUnavailable))
		return
	}

	q := r.URL.Query()
	var (
		msgs []store.Message
		err  error
	)
	if after := q.Get("after"); after != "" {
		t, perr := time.Parse(time.RFC3339Nano, after)
		if perr != nil {
			fail(w, r, errors.Errorf("%w: after: %s", errBadRequest, perr.Error()))
			return
		}
		msgs, err = s.opts.Room.Since(r.Context(), t)
	} else {
		limit := defaultHistory
		if raw := q.Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				fail(w, r, errors.Errorf("%w: limit must be a positive integer", errBadRequest))
				return
			}
		}
		msgs, err = s.opts.Room.History(r.Context(), limit)
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	writeJSON(w, http.StatusOK, messagesResponse{Messages: msgs})
}

func (s *Server) handleChatPost(w http.ResponseWriter, r *http.Request) {
	if s.opts.Room == nil {
		fail(w, r, errors.Errorf("%w: chat", errUnavailable))
		return
	}

	var req postRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	m, err := s.opts.Room.Post(r.Context(), req.Author, req.Text)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// 📡 handleChatStream pushes new messages as server-sent events until the
// client goes away
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if s.opts.Room == nil {
		fail(w, r, errors.Errorf("%w: chat", errUnavailable))
		return
	}
	rc := http.NewResponseController(w)

	msgs, cancel := s.opts.Room.Subscribe(r.Context())
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("stream cannot flush")
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			data, err := json.Marshal(m)
			if err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("encoding chat message")
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: message\ndata: %s\n\n", m.ID, data); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}
