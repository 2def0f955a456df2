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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "full_yaml",
			file: "viksit.yaml",
			config: `
github:
  token: ghp_test
  per_page: 50
listing:
  source: backend
  backend_url: http://localhost:8000/api
  timeout: 30s
  eager: true
  skip:
    - node_modules/**
    - "**/vendor"
assist:
  model: mixtral-8x7b-32768
store:
  path: /tmp/viksit.db
server:
  addr: ":9000"
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "ghp_test", cfg.GitHub.Token, "token should match")
				assert.Equal(t, 50, cfg.GitHub.PerPage, "per page should match")
				assert.Equal(t, SourceBackend, cfg.Listing.Source, "source should match")
				assert.Equal(t, 30*time.Second, cfg.Listing.Timeout.Duration, "timeout should match")
				assert.True(t, cfg.Listing.Eager, "eager should be set")
				assert.Equal(t, []string{"node_modules/**", "**/vendor"}, cfg.Listing.Skip, "skip patterns should match")
				assert.Equal(t, "mixtral-8x7b-32768", cfg.Assist.Model, "model should match")
				assert.Equal(t, DefaultAssistURL, cfg.Assist.BaseURL, "assist url should default")
				assert.Equal(t, "/tmp/viksit.db", cfg.Store.Path, "store path should match")
				assert.Equal(t, ":9000", cfg.Server.Address, "address should match")
			},
		},
		{
			name:   "empty_yaml_uses_defaults",
			file:   "viksit.yml",
			config: "{}\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, SourceGitHub, cfg.Listing.Source, "source should default")
				assert.Equal(t, DefaultTimeout, cfg.Listing.Timeout.Duration, "timeout should default")
				assert.Equal(t, DefaultPerPage, cfg.GitHub.PerPage, "per page should default")
				assert.Equal(t, DefaultStorePath, cfg.Store.Path, "store path should default")
				assert.Equal(t, DefaultServerAddress, cfg.Server.Address, "address should default")
			},
		},
		{
			name: "json",
			file: "viksit.json",
			config: `{
  "listing": {"timeout": "5s", "skip": ["docs/**"]},
  "execute": {"client_id": "id", "client_secret": "secret"}
}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5*time.Second, cfg.Listing.Timeout.Duration, "timeout should match")
				assert.Equal(t, []string{"docs/**"}, cfg.Listing.Skip, "skip should match")
				assert.Equal(t, "id", cfg.Execute.ClientID, "client id should match")
				assert.Equal(t, DefaultExecuteURL, cfg.Execute.BaseURL, "execute url should default")
			},
		},
		{
			name: "toml",
			file: "viksit.toml",
			config: `
[github]
base_url = "https://ghe.example.com/api/v3/"

[listing]
timeout = "1m"
eager = true

[translate]
api_key = "sarvam"
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://ghe.example.com/api/v3/", cfg.GitHub.BaseURL, "base url should match")
				assert.Equal(t, time.Minute, cfg.Listing.Timeout.Duration, "timeout should match")
				assert.True(t, cfg.Listing.Eager, "eager should match")
				assert.Equal(t, "sarvam", cfg.Translate.APIKey, "api key should match")
			},
		},
		{
			name: "hcl",
			file: "viksit.hcl",
			config: `
listing {
  source      = "backend"
  backend_url = "https://viksit.example.com/api"
  timeout     = "20s"
  skip        = [".git/**"]
}

store {
  path = "data.db"
}
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, SourceBackend, cfg.Listing.Source, "source should match")
				assert.Equal(t, "https://viksit.example.com/api", cfg.Listing.BackendURL, "backend url should match")
				assert.Equal(t, 20*time.Second, cfg.Listing.Timeout.Duration, "timeout should match")
				assert.Equal(t, []string{".git/**"}, cfg.Listing.Skip, "skip should match")
				assert.Equal(t, "data.db", cfg.Store.Path, "store path should match")
			},
		},
		{
			name:        "backend_without_url",
			file:        "viksit.yaml",
			config:      "listing:\n  source: backend\n",
			wantErr:     true,
			errContains: "listing.backend_url is required",
		},
		{
			name:        "unknown_source",
			file:        "viksit.yaml",
			config:      "listing:\n  source: gitlab\n",
			wantErr:     true,
			errContains: "listing.source must be",
		},
		{
			name:        "bad_timeout",
			file:        "viksit.yaml",
			config:      "listing:\n  timeout: soon\n",
			wantErr:     true,
			errContains: "parsing duration",
		},
		{
			name:        "bad_skip_pattern",
			file:        "viksit.yaml",
			config:      "listing:\n  skip: [\"[oops\"]\n",
			wantErr:     true,
			errContains: "invalid pattern",
		},
		{
			name:        "per_page_too_large",
			file:        "viksit.json",
			config:      `{"github": {"per_page": 500}}`,
			wantErr:     true,
			errContains: "github.per_page",
		},
		{
			name:        "non_http_url",
			file:        "viksit.json",
			config:      `{"assist": {"base_url": "ftp://example.com"}}`,
			wantErr:     true,
			errContains: "assist.base_url must be an http or https url",
		},
		{
			name:        "unknown_extension",
			file:        "viksit.ini",
			config:      "x=1",
			wantErr:     true,
			errContains: "no parser found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zerolog.New(zerolog.TestWriter{T: t})
			ctx := logger.WithContext(context.Background())

			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.config), 0o644), "writing config should succeed")

			cfg, err := Load(ctx, path)
			if tt.wantErr {
				require.Error(t, err, "Load should fail")
				assert.Contains(t, err.Error(), tt.errContains, "error should mention the problem")
				return
			}

			require.NoError(t, err, "Load should succeed")
			tt.check(t, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err, "Load should fail")
	assert.ErrorIs(t, err, os.ErrNotExist, "error should wrap the missing file")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"GITHUB_TOKEN":          "from-env",
		"GROQ_API_KEY":          " groq ",
		"JDOODLE_CLIENT_ID":     "jd-id",
		"JDOODLE_CLIENT_SECRET": "jd-secret",
		"SARVAM_API_KEY":        "sarvam",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := &Config{GitHub: GitHubConfig{Token: "from-file"}}
	cfg.ApplyEnv(lookup)

	assert.Equal(t, "from-file", cfg.GitHub.Token, "file values win over the environment")
	assert.Equal(t, "groq", cfg.Assist.APIKey, "values should be trimmed")
	assert.Equal(t, "jd-id", cfg.Execute.ClientID, "client id should be filled")
	assert.Equal(t, "jd-secret", cfg.Execute.ClientSecret, "client secret should be filled")
	assert.Equal(t, "sarvam", cfg.Translate.APIKey, "translate key should be filled")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, SourceGitHub, cfg.Listing.Source, "source should default")
	assert.Equal(t, DefaultTimeout, cfg.Listing.Timeout.Duration, "timeout should default")
	assert.Equal(t, "listing=github timeout=15s eager=false store=viksit.db", cfg.String(), "string should summarize")
}
