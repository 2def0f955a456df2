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
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/viksit/pkg/store"
)

func TestChatMessages(t *testing.T) {
	room := newTestRoom(t)
	s, _ := newTestServer(t, func(o *Options) { o.Room = room })

	rec := do(t, s, http.MethodPost, "/api/chat/messages", `{"author":"asha@example.com","text":"  hello  "}`)
	require.Equal(t, http.StatusCreated, rec.Code, "post should succeed: %s", rec.Body.String())
	first := decodeBody[store.Message](t, rec)
	assert.Equal(t, "hello", first.Text, "text should be trimmed")
	assert.Equal(t, "asha", first.DisplayName, "display name is the part before @")
	assert.NotEmpty(t, first.ID, "an id should be assigned")

	time.Sleep(2 * time.Millisecond)
	rec = do(t, s, http.MethodPost, "/api/chat/messages", `{"author":"ravi","text":"hi asha"}`)
	require.Equal(t, http.StatusCreated, rec.Code, "second post should succeed")

	rec = do(t, s, http.MethodGet, "/api/chat/messages", "")
	require.Equal(t, http.StatusOK, rec.Code, "history should be served")
	history := decodeBody[messagesResponse](t, rec)
	require.Len(t, history.Messages, 2, "both messages should be listed")
	assert.Equal(t, "hello", history.Messages[0].Text, "history is oldest first")

	rec = do(t, s, http.MethodGet, "/api/chat/messages?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code, "limited history should be served")
	assert.Equal(t, "hi asha", decodeBody[messagesResponse](t, rec).Messages[0].Text, "limit keeps the latest")

	after := url.QueryEscape(first.CreatedAt.Format(time.RFC3339Nano))
	rec = do(t, s, http.MethodGet, "/api/chat/messages?after="+after, "")
	require.Equal(t, http.StatusOK, rec.Code, "messages after should be served")
	since := decodeBody[messagesResponse](t, rec)
	require.Len(t, since.Messages, 1, "only the later message should be returned")
	assert.Equal(t, "ravi", since.Messages[0].Author, "later message author")
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{name: "empty_text", method: http.MethodPost, target: "/api/chat/messages", body: `{"author":"asha","text":"   "}`, status: http.StatusBadRequest},
		{name: "no_author", method: http.MethodPost, target: "/api/chat/messages", body: `{"text":"hi"}`, status: http.StatusBadRequest},
		{name: "too_long", method: http.MethodPost, target: "/api/chat/messages", body: `{"author":"asha","text":"` + strings.Repeat("x", 4001) + `"}`, status: http.StatusBadRequest},
		{name: "bad_limit", method: http.MethodGet, target: "/api/chat/messages?limit=-2", status: http.StatusBadRequest},
		{name: "bad_after", method: http.MethodGet, target: "/api/chat/messages?after=yesterday", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, func(o *Options) { o.Room = newTestRoom(t) })
			rec := do(t, s, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, "unexpected status: %s", rec.Body.String())
		})
	}
}

func TestChatStream(t *testing.T) {
	for _, encoding := range []string{"identity", "gzip", "gzip, deflate, br"} {
		t.Run(strings.NewReplacer(", ", "_").Replace(encoding), func(t *testing.T) {
			room := newTestRoom(t)
			s, _ := newTestServer(t, func(o *Options) { o.Room = room })

			srv := httptest.NewServer(s.Handler())
			t.Cleanup(srv.Close)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/chat/stream", nil)
			require.NoError(t, err, "request should build")
			req.Header.Set("Accept-Encoding", encoding)

			resp, err := srv.Client().Do(req)
			require.NoError(t, err, "stream headers should arrive before any event")
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode, "stream should be accepted")
			assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"), "content type should be an event stream")
			assert.Empty(t, resp.Header.Get("Content-Encoding"), "event stream should not be compressed")
			assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"), "stream should keep cors headers")
			assert.NotEmpty(t, resp.Header.Get(requestIDHeader), "stream should keep the request id")

			require.Eventually(t, func() bool { return room.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond, "stream should subscribe")

			_, err = room.Post(ctx, "asha", "live")
			require.NoError(t, err, "post should succeed")

			scanner := bufio.NewScanner(resp.Body)
			var data string
			for scanner.Scan() {
				if line, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
					data = line
					break
				}
			}
			require.NotEmpty(t, data, "an event should arrive")
			assert.Contains(t, data, `"text":"live"`, "event should carry the message")

			cancel()
			require.Eventually(t, func() bool { return room.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond, "subscription should end with the request")
		})
	}
}
