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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/viksit/pkg/chat"
	"github.com/walteh/viksit/pkg/remote"
	"github.com/walteh/viksit/pkg/remote/github"
	"github.com/walteh/viksit/pkg/store"
	"github.com/walteh/viksit/pkg/tree"
)

// fakeSource serves listings for acme/widget keyed by directory path
type fakeSource struct {
	mu       sync.Mutex
	listings map[string][]remote.Entry
	failures map[string]error
	content  map[string]string

	gates   map[string]chan struct{}
	started map[string]chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		listings: map[string][]remote.Entry{
			"": {
				{Name: "src", Path: "src", Type: remote.EntryTypeDir},
				{Name: "docs", Path: "docs", Type: remote.EntryTypeDir},
				{Name: "README.md", Path: "README.md", Type: remote.EntryTypeFile, Size: 120, DownloadURL: "https://raw.example/README.md"},
			},
			"src": {
				{Name: "index.js", Path: "src/index.js", Type: remote.EntryTypeFile, Size: 2048, DownloadURL: "https://raw.example/src/index.js"},
			},
			"docs": {},
		},
		failures: map[string]error{},
		content: map[string]string{
			"https://raw.example/README.md": "# widget\n",
		},
		gates:   map[string]chan struct{}{},
		started: map[string]chan struct{}{},
	}
}

// gate blocks listings of path until release is called. started closes once
// a listing of path has begun.
func (f *fakeSource) gate(path string) (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	st := make(chan struct{})
	f.gates[path] = g
	f.started[path] = st
	var once sync.Once
	return st, func() { once.Do(func() { close(g) }) }
}

func (f *fakeSource) List(_ context.Context, owner, repo, path string) ([]remote.Entry, error) {
	f.mu.Lock()
	gate, started := f.gates[path], f.started[path]
	delete(f.gates, path)
	delete(f.started, path)
	f.mu.Unlock()
	if gate != nil {
		close(started)
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if owner != "acme" || repo != "widget" {
		return nil, &remote.FetchError{Op: "listing", Path: path, StatusCode: http.StatusNotFound}
	}
	if err, ok := f.failures[path]; ok {
		return nil, err
	}
	entries, ok := f.listings[path]
	if !ok {
		return nil, &remote.FetchError{Op: "listing", Path: path, StatusCode: http.StatusNotFound}
	}
	return entries, nil
}

func (f *fakeSource) FetchContent(_ context.Context, locator string) ([]byte, error) {
	body, ok := f.content[locator]
	if !ok {
		return nil, &remote.FetchError{Op: "content", Path: locator, StatusCode: http.StatusNotFound}
	}
	return []byte(body), nil
}

type fakeRepositories struct {
	repos []github.Repository
	info  *github.Info
	err   error
}

func (f *fakeRepositories) ListRepositories(_ context.Context, user string) ([]github.Repository, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.repos, nil
}

func (f *fakeRepositories) Repository(_ context.Context, owner, repo string) (*github.Info, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func newTestServer(t *testing.T, mutate func(*Options)) (*Server, *fakeSource) {
	t.Helper()
	src := newFakeSource()
	opts := Options{
		Address:      "127.0.0.1:0",
		Source:       src,
		Materializer: tree.NewMaterializer(src),
		Repositories: &fakeRepositories{
			repos: []github.Repository{{ID: 1, Name: "widget"}, {ID: 2, Name: "gadget"}},
			info:  &github.Info{Name: "widget", Owner: "acme", Description: "a widget", Language: "Go", Stars: 3},
		},
		Logger: zerolog.New(zerolog.NewTestWriter(t)),
	}
	if mutate != nil {
		mutate(&opts)
	}
	return New(opts), src
}

func newTestRoom(t *testing.T) *chat.Room {
	t.Helper()
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "viksit.db"))
	require.NoError(t, err, "opening store should succeed")
	t.Cleanup(func() { _ = st.Close() })
	return chat.NewRoom(st)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "response should be json: %s", rec.Body.String())
	return out
}

func TestRepositories(t *testing.T) {
	t.Run("lists_names_and_ids", func(t *testing.T) {
		s, _ := newTestServer(t, nil)
		rec := do(t, s, http.MethodGet, "/api/repositories/acme/", "")

		require.Equal(t, http.StatusOK, rec.Code, "listing should succeed")
		assert.JSONEq(t, `{"repos":[{"name":"widget","id":1},{"name":"gadget","id":2}]}`, rec.Body.String(), "body should carry names and ids")
	})

	t.Run("upstream_status_passes_through", func(t *testing.T) {
		s, _ := newTestServer(t, func(o *Options) {
			o.Repositories = &fakeRepositories{err: &remote.FetchError{Op: "repositories", Path: "ghost", StatusCode: http.StatusNotFound}}
		})
		rec := do(t, s, http.MethodGet, "/api/repositories/ghost", "")

		assert.Equal(t, http.StatusNotFound, rec.Code, "upstream 404 should be kept")
		body := decodeBody[errorResponse](t, rec)
		assert.Contains(t, body.Error, "status 404", "error should describe the upstream failure")
	})

	t.Run("unconfigured", func(t *testing.T) {
		s, _ := newTestServer(t, func(o *Options) { o.Repositories = nil })
		rec := do(t, s, http.MethodGet, "/api/repositories/acme/", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "missing collaborator should be 503")
	})
}

func TestRepoInfo(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/api/repo-info/acme/widget/", "")

	require.Equal(t, http.StatusOK, rec.Code, "info should succeed")
	info := decodeBody[github.Info](t, rec)
	assert.Equal(t, "a widget", info.Description, "description should be returned")
	assert.Equal(t, 3, info.Stars, "stars should be returned")
}

func TestRepoStructure(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		status    int
		wantPaths []string
	}{
		{name: "root", target: "/api/repo-structure/acme/widget/", status: http.StatusOK, wantPaths: []string{"src", "docs", "README.md"}},
		{name: "subdirectory", target: "/api/repo-structure/acme/widget/?path=src", status: http.StatusOK, wantPaths: []string{"src/index.js"}},
		{name: "listing_alias", target: "/api/listing/acme/widget?path=src/", status: http.StatusOK, wantPaths: []string{"src/index.js"}},
		{name: "empty_directory", target: "/api/listing/acme/widget?path=docs", status: http.StatusOK, wantPaths: []string{}},
		{name: "missing_path", target: "/api/listing/acme/widget?path=nope", status: http.StatusNotFound},
		{name: "missing_repository", target: "/api/repo-structure/acme/ghost", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, nil)
			rec := do(t, s, http.MethodGet, tt.target, "")

			require.Equal(t, tt.status, rec.Code, "unexpected status: %s", rec.Body.String())
			if tt.wantPaths == nil {
				return
			}
			body := decodeBody[listingResponse](t, rec)
			paths := make([]string, 0, len(body.Structure))
			for _, e := range body.Structure {
				paths = append(paths, e.Path)
			}
			assert.Equal(t, tt.wantPaths, paths, "structure should list the directory in upstream order")
		})
	}
}

func TestFile(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/file?url=https://raw.example/README.md", "")
	require.Equal(t, http.StatusOK, rec.Code, "content should be served")
	assert.Equal(t, "# widget\n", rec.Body.String(), "raw bytes should be returned")

	rec = do(t, s, http.MethodGet, "/api/file", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "url is required")

	rec = do(t, s, http.MethodGet, "/api/file?url=https://raw.example/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "missing content should be 404")

	for _, locator := range []string{"file:///etc/passwd", "gopher://example.com/x", "/relative"} {
		rec = do(t, s, http.MethodGet, "/api/file?url="+url.QueryEscape(locator), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "locator %q should be rejected", locator)
	}
}

func TestFileDoesNotForwardGitHubToken(t *testing.T) {
	var mu sync.Mutex
	received := map[string]string{}
	record := func(host string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			received[host] = r.Header.Get("Authorization")
			mu.Unlock()
			_, _ = io.WriteString(w, "payload")
		})
	}
	api := httptest.NewServer(record("api"))
	t.Cleanup(api.Close)
	foreign := httptest.NewServer(record("foreign"))
	t.Cleanup(foreign.Close)

	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	provider, err := github.New(ctx, remote.Options{BaseURL: api.URL, Token: "ghp_SECRET"})
	require.NoError(t, err, "creating provider should succeed")

	s, _ := newTestServer(t, func(o *Options) {
		o.Source = provider
		o.Materializer = tree.NewMaterializer(provider)
	})

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL + "/api/file?url=" + url.QueryEscape(foreign.URL+"/x"))
	require.NoError(t, err, "request should succeed")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "reading body should succeed")
	_ = resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode, "content should be proxied: %s", string(body))
	assert.Equal(t, "payload", string(body))

	mu.Lock()
	defer mu.Unlock()
	auth, ok := received["foreign"]
	require.True(t, ok, "foreign host should have been called")
	assert.Empty(t, auth, "foreign host must not receive the github token")
}

func TestCompression(t *testing.T) {
	repos := make([]github.Repository, 0, 200)
	for i := range 200 {
		repos = append(repos, github.Repository{ID: int64(i), Name: fmt.Sprintf("repository-%03d", i)})
	}
	s, _ := newTestServer(t, func(o *Options) {
		o.Repositories = &fakeRepositories{repos: repos}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/repositories/acme", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "listing should succeed")
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"), "large json bodies should be compressed")

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err, "body should be gzip")
	var body struct {
		Repos []repositorySummary `json:"repos"`
	}
	require.NoError(t, json.NewDecoder(zr).Decode(&body), "decompressed body should be json")
	assert.Len(t, body.Repos, 200, "every repository should be listed")
}

func TestMiddleware(t *testing.T) {
	s, _ := newTestServer(t, nil)

	t.Run("preflight", func(t *testing.T) {
		rec := do(t, s, http.MethodOptions, "/api/tree", "")
		assert.Equal(t, http.StatusNoContent, rec.Code, "preflight should be answered directly")
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"), "cors header should be set")
	})

	t.Run("request_id", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/languages", "")
		assert.NotEmpty(t, rec.Header().Get(requestIDHeader), "a request id should be assigned")

		req := httptest.NewRequest(http.MethodGet, "/api/languages", nil)
		req.Header.Set(requestIDHeader, "abc-123")
		rec = httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader), "caller id should be kept")
	})

	t.Run("recovery", func(t *testing.T) {
		h := recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code, "panic should become a 500")
		assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String(), "body should be a json error")
	})

	t.Run("unknown_route", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code, "unknown routes should 404")
	})
}

func TestRun(t *testing.T) {
	s, _ := newTestServer(t, nil)

	ctx, cancel := context.WithCancel(zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background()))
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	cancel()
	require.NoError(t, <-errc, "run should shut down cleanly when ctx ends")
}
