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
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

const (
	SourceGitHub  = "github"
	SourceBackend = "backend"

	DefaultPerPage       = 100
	DefaultTimeout       = 15 * time.Second
	DefaultAssistURL     = "https://api.groq.com/openai/v1"
	DefaultAssistModel   = "llama3-8b-8192"
	DefaultExecuteURL    = "https://api.jdoodle.com"
	DefaultTranslateURL  = "https://api.sarvam.ai"
	DefaultStorePath     = "viksit.db"
	DefaultServerAddress = "127.0.0.1:8000"
)

// ⏱️ Duration is a time.Duration written as "15s" in config files
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Errorf("parsing duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// 🐙 GitHubConfig configures the GitHub API client
type GitHubConfig struct {
	Token   string `json:"token,omitempty" yaml:"token,omitempty" toml:"token"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url"`
	PerPage int    `json:"per_page,omitempty" yaml:"per_page,omitempty" toml:"per_page"`
}

// 📂 ListingConfig configures where directory listings come from
type ListingConfig struct {
	Source     string   `json:"source,omitempty" yaml:"source,omitempty" toml:"source"`
	BackendURL string   `json:"backend_url,omitempty" yaml:"backend_url,omitempty" toml:"backend_url"`
	Timeout    Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout"`
	Eager      bool     `json:"eager,omitempty" yaml:"eager,omitempty" toml:"eager"`
	Skip       []string `json:"skip,omitempty" yaml:"skip,omitempty" toml:"skip"`
}

// 🤖 AssistConfig configures the chat completions endpoint
type AssistConfig struct {
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty" toml:"api_key"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty" toml:"model"`
}

// ▶️ ExecuteConfig configures the code execution sandbox
type ExecuteConfig struct {
	BaseURL      string `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url"`
	ClientID     string `json:"client_id,omitempty" yaml:"client_id,omitempty" toml:"client_id"`
	ClientSecret string `json:"client_secret,omitempty" yaml:"client_secret,omitempty" toml:"client_secret"`
}

// 🌐 TranslateConfig configures translation and speech
type TranslateConfig struct {
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty" toml:"api_key"`
}

// 💾 StoreConfig locates the sqlite database
type StoreConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty" toml:"path"`
}

// 🛰️ ServerConfig configures the HTTP API
type ServerConfig struct {
	Address string `json:"addr,omitempty" yaml:"addr,omitempty" toml:"addr"`
}

// 📚 Config represents the complete configuration
type Config struct {
	GitHub    GitHubConfig    `json:"github" yaml:"github" toml:"github"`
	Listing   ListingConfig   `json:"listing" yaml:"listing" toml:"listing"`
	Assist    AssistConfig    `json:"assist" yaml:"assist" toml:"assist"`
	Execute   ExecuteConfig   `json:"execute" yaml:"execute" toml:"execute"`
	Translate TranslateConfig `json:"translate" yaml:"translate" toml:"translate"`
	Store     StoreConfig     `json:"store" yaml:"store" toml:"store"`
	Server    ServerConfig    `json:"server" yaml:"server" toml:"server"`
}

// Default returns a validated config with every default filled in
func Default() *Config {
	cfg := &Config{}
	_ = cfg.Validate()
	return cfg
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🔑 ApplyEnv fills empty secrets from the environment. lookup is
// os.LookupEnv outside tests.
func (cfg *Config) ApplyEnv(lookup func(string) (string, bool)) {
	fill := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	fill(&cfg.GitHub.Token, "GITHUB_TOKEN")
	fill(&cfg.Assist.APIKey, "GROQ_API_KEY")
	fill(&cfg.Execute.ClientID, "JDOODLE_CLIENT_ID")
	fill(&cfg.Execute.ClientSecret, "JDOODLE_CLIENT_SECRET")
	fill(&cfg.Translate.APIKey, "SARVAM_API_KEY")
}

// 🔍 Validate fills defaults and rejects values nothing could use
func (cfg *Config) Validate() error {
	if cfg.GitHub.PerPage == 0 {
		cfg.GitHub.PerPage = DefaultPerPage
	}
	if cfg.GitHub.PerPage < 0 || cfg.GitHub.PerPage > 100 {
		return errors.Errorf("github.per_page must be between 1 and 100, got %d", cfg.GitHub.PerPage)
	}
	if err := validURL("github.base_url", cfg.GitHub.BaseURL, true); err != nil {
		return err
	}

	switch cfg.Listing.Source {
	case "":
		cfg.Listing.Source = SourceGitHub
	case SourceGitHub:
	case SourceBackend:
		if cfg.Listing.BackendURL == "" {
			return errors.Errorf("listing.backend_url is required when listing.source is %q", SourceBackend)
		}
	default:
		return errors.Errorf("listing.source must be %q or %q, got %q", SourceGitHub, SourceBackend, cfg.Listing.Source)
	}
	if err := validURL("listing.backend_url", cfg.Listing.BackendURL, true); err != nil {
		return err
	}
	if cfg.Listing.Timeout.Duration == 0 {
		cfg.Listing.Timeout.Duration = DefaultTimeout
	}
	if cfg.Listing.Timeout.Duration < 0 {
		return errors.Errorf("listing.timeout must be positive, got %s", cfg.Listing.Timeout)
	}
	for _, pattern := range cfg.Listing.Skip {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("listing.skip: invalid pattern %q", pattern)
		}
	}

	defaults := []struct {
		name string
		dst  *string
		def  string
	}{
		{"assist.base_url", &cfg.Assist.BaseURL, DefaultAssistURL},
		{"execute.base_url", &cfg.Execute.BaseURL, DefaultExecuteURL},
		{"translate.base_url", &cfg.Translate.BaseURL, DefaultTranslateURL},
	}
	for _, d := range defaults {
		if *d.dst == "" {
			*d.dst = d.def
		}
		if err := validURL(d.name, *d.dst, false); err != nil {
			return err
		}
	}
	if cfg.Assist.Model == "" {
		cfg.Assist.Model = DefaultAssistModel
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = DefaultServerAddress
	}

	return nil
}

func validURL(name, raw string, optional bool) error {
	if raw == "" && optional {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Errorf("%s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("%s must be an http or https url, got %q", name, raw)
	}
	return nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	source := cfg.Listing.Source
	if source == SourceBackend {
		source += " " + cfg.Listing.BackendURL
	}
	return fmt.Sprintf("listing=%s timeout=%s eager=%t store=%s", source, cfg.Listing.Timeout, cfg.Listing.Eager, cfg.Store.Path)
}
