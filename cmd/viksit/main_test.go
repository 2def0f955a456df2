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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/viksit/pkg/remote"
	"github.com/walteh/viksit/pkg/server"
	"github.com/walteh/viksit/pkg/tree"
)

// mapLister serves acme/widget from memory
type mapLister map[string][]remote.Entry

func (m mapLister) List(_ context.Context, owner, repo, path string) ([]remote.Entry, error) {
	entries, ok := m[path]
	if !ok || owner != "acme" || repo != "widget" {
		return nil, &remote.FetchError{Op: "listing", Path: path, StatusCode: http.StatusNotFound}
	}
	return entries, nil
}

func (m mapLister) FetchContent(context.Context, string) ([]byte, error) {
	return []byte("package main\n"), nil
}

// startBackend starts a viksit server as the listing backend and writes a config
// pointing the CLI at it
func startBackend(t *testing.T) string {
	t.Helper()
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })
	t.Setenv("GITHUB_TOKEN", "")

	lister := mapLister{
		"": {
			{Name: "cmd", Path: "cmd", Type: remote.EntryTypeDir},
			{Name: "go.mod", Path: "go.mod", Type: remote.EntryTypeFile, Size: 42},
		},
		"cmd": {
			{Name: "main.go", Path: "cmd/main.go", Type: remote.EntryTypeFile, Size: 1536},
		},
	}
	backend := server.New(server.Options{
		Source:       lister,
		Materializer: tree.NewMaterializer(lister),
		Logger:       zerolog.New(zerolog.NewTestWriter(t)),
	})
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := fmt.Sprintf("listing:\n  source: backend\n  backend_url: %s/api\nstore:\n  path: %s\n", srv.URL, filepath.Join(dir, "viksit.db"))
	path := filepath.Join(dir, "viksit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644), "writing config should succeed")
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configFile, debug = "", false

	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTreeCommand(t *testing.T) {
	cfg := startBackend(t)

	t.Run("eager_text", func(t *testing.T) {
		out, err := run(t, "--config", cfg, "tree", "acme/widget")
		require.NoError(t, err, "tree should succeed")

		expected := "acme/widget\n" +
			"├── cmd/\n" +
			"│   └── main.go (1.5 KB)\n" +
			"└── go.mod (42 B)\n" +
			"\n" +
			"1 directories, 2 files, 1.5 KB\n"
		assert.Equal(t, expected, out, "the whole tree should be printed")
	})

	t.Run("lazy_json", func(t *testing.T) {
		out, err := run(t, "--config", cfg, "tree", "acme/widget", "--lazy", "--json")
		require.NoError(t, err, "tree should succeed")

		var root struct {
			Name     string `json:"name"`
			Children []struct {
				Path     string            `json:"path"`
				Children []json.RawMessage `json:"children"`
			} `json:"children"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &root), "output should be json: %s", out)
		require.Len(t, root.Children, 2, "root children should be listed")
		assert.Nil(t, root.Children[0].Children, "cmd should not be loaded in lazy mode")
	})

	t.Run("lazy_with_expand", func(t *testing.T) {
		out, err := run(t, "--config", cfg, "tree", "acme/widget", "--lazy", "--expand", "cmd", "--no-sizes")
		require.NoError(t, err, "tree should succeed")
		assert.Contains(t, out, "main.go\n", "expanded directory should be printed without sizes")
	})

	t.Run("missing_repository", func(t *testing.T) {
		_, err := run(t, "--config", cfg, "tree", "acme/ghost")
		require.Error(t, err, "unknown repositories should fail")
		var fetchErr *remote.FetchError
		require.ErrorAs(t, err, &fetchErr, "error should be a fetch error")
		assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode, "backend status should be kept")
	})

	t.Run("bad_argument", func(t *testing.T) {
		_, err := run(t, "--config", cfg, "tree", "widget")
		assert.ErrorIs(t, err, remote.ErrInvalidIdentifier, "owner/repo is required")
	})
}

func TestTokenAndChatCommands(t *testing.T) {
	cfg := startBackend(t)

	_, err := run(t, "--config", cfg, "token", "set", "ghp_example")
	require.NoError(t, err, "saving a token should succeed")

	_, err = run(t, "--config", cfg, "chat", "post", "--author", "asha@example.com", "hello", "everyone")
	require.NoError(t, err, "posting should succeed")

	out, err := run(t, "--config", cfg, "chat", "history")
	require.NoError(t, err, "history should succeed")
	assert.Contains(t, out, "asha: hello everyone", "message should be listed with its display name")

	_, err = run(t, "--config", cfg, "chat", "post", "--author", "asha", "   ")
	assert.Error(t, err, "empty messages should be rejected")
}

func TestUnconfiguredTools(t *testing.T) {
	cfg := startBackend(t)
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("SARVAM_API_KEY", "")

	_, err := run(t, "--config", cfg, "ask", "repo", "acme/widget", "what", "is", "this")
	assert.ErrorContains(t, err, "not configured", "assistant needs a key")

	_, err = run(t, "--config", cfg, "translate", "hello", "--to", "hi-IN")
	assert.ErrorContains(t, err, "not configured", "translation needs a key")
}
