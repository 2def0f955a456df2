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

// Package opts carries the shared state of the viksit commands and builds
// their clients on first use.
package opts

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/viksit/pkg/assist"
	"github.com/walteh/viksit/pkg/chat"
	"github.com/walteh/viksit/pkg/config"
	"github.com/walteh/viksit/pkg/execute"
	"github.com/walteh/viksit/pkg/log"
	"github.com/walteh/viksit/pkg/remote"
	"github.com/walteh/viksit/pkg/remote/github"
	"github.com/walteh/viksit/pkg/store"
	"github.com/walteh/viksit/pkg/translate"
	"github.com/walteh/viksit/pkg/tree"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2"

	_ "github.com/walteh/viksit/pkg/remote/backend"
)

// ErrNotConfigured is returned when a client's credentials are missing
var ErrNotConfigured = errors.Base("not configured")

// RootOpts contains shared dependencies for all commands
type RootOpts struct {
	Config     *config.Config
	UserLogger *log.UserLogger
	Console    *log.Logger

	storeOnce sync.Once
	store     *store.Store
	storeErr  error
}

// Store opens the sqlite store once
func (o *RootOpts) Store(ctx context.Context) (*store.Store, error) {
	o.storeOnce.Do(func() {
		o.store, o.storeErr = store.Open(ctx, o.Config.Store.Path)
	})
	return o.store, o.storeErr
}

// Close releases the store if it was opened
func (o *RootOpts) Close() error {
	if o.store == nil {
		return nil
	}
	return o.store.Close()
}

// 🔑 GitHubToken prefers the configured token and falls back to the one
// saved with `viksit token set`
func (o *RootOpts) GitHubToken(ctx context.Context) string {
	if o.Config.GitHub.Token != "" {
		return o.Config.GitHub.Token
	}
	s, err := o.Store(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("store unavailable, continuing without saved token")
		return ""
	}
	token, err := s.GitHubToken(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNoToken) {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("reading saved github token")
		}
		return ""
	}
	return token
}

func (o *RootOpts) httpClient(ctx context.Context, token string) *http.Client {
	var client *http.Client
	if token != "" {
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	} else {
		client = &http.Client{}
	}
	client.Timeout = o.Config.Listing.Timeout.Duration
	return client
}

// 🔌 Source creates the listing source named by listing.source
func (o *RootOpts) Source(ctx context.Context) (remote.Source, error) {
	name := o.Config.Listing.Source
	ropts := remote.Options{PerPage: o.Config.GitHub.PerPage}

	switch name {
	case config.SourceBackend:
		ropts.BaseURL = o.Config.Listing.BackendURL
		ropts.HTTPClient = o.httpClient(ctx, "")
	default:
		ropts.BaseURL = o.Config.GitHub.BaseURL
		ropts.Token = o.GitHubToken(ctx)
		ropts.HTTPClient = o.httpClient(ctx, ropts.Token)
	}

	src, err := remote.New(ctx, name, ropts)
	if err != nil {
		return nil, errors.Errorf("creating %s source: %w", name, err)
	}
	return src, nil
}

// 🐙 GitHub creates a GitHub client for account and repository metadata,
// whatever source serves listings
func (o *RootOpts) GitHub(ctx context.Context) (*github.Provider, error) {
	token := o.GitHubToken(ctx)
	p, err := github.New(ctx, remote.Options{
		BaseURL:    o.Config.GitHub.BaseURL,
		Token:      token,
		PerPage:    o.Config.GitHub.PerPage,
		HTTPClient: o.httpClient(ctx, token),
	})
	if err != nil {
		return nil, errors.Errorf("creating github client: %w", err)
	}
	return p, nil
}

// 🌳 Materializer builds trees over lister, reporting each directory to the
// console logger
func (o *RootOpts) Materializer(lister remote.Lister, extraSkip ...string) *tree.Materializer {
	skip := append(append([]string{}, o.Config.Listing.Skip...), extraSkip...)
	return tree.NewMaterializer(lister,
		tree.WithObserver(o.Console),
		tree.WithSkip(skip...),
	)
}

// DefaultMode is the walk mode used when a caller does not pick one
func (o *RootOpts) DefaultMode() tree.Mode {
	if o.Config.Listing.Eager {
		return tree.ModeEager
	}
	return tree.ModeLazy
}

// 🤖 Assist creates the assistant client, recording answers in the store
func (o *RootOpts) Assist(ctx context.Context) (*assist.Client, error) {
	if o.Config.Assist.APIKey == "" {
		return nil, errors.Errorf("assistant %w: set assist.api_key or GROQ_API_KEY", ErrNotConfigured)
	}
	var rec assist.Recorder
	if s, err := o.Store(ctx); err == nil {
		rec = s
	} else {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("store unavailable, answers will not be recorded")
	}
	return assist.New(assist.Options{
		BaseURL:  o.Config.Assist.BaseURL,
		APIKey:   o.Config.Assist.APIKey,
		Model:    o.Config.Assist.Model,
		Recorder: rec,
	})
}

// Execute creates the code execution client
func (o *RootOpts) Execute() (*execute.Client, error) {
	if o.Config.Execute.ClientID == "" || o.Config.Execute.ClientSecret == "" {
		return nil, errors.Errorf("code execution %w: set JDOODLE_CLIENT_ID and JDOODLE_CLIENT_SECRET", ErrNotConfigured)
	}
	return execute.New(execute.Options{
		BaseURL:      o.Config.Execute.BaseURL,
		ClientID:     o.Config.Execute.ClientID,
		ClientSecret: o.Config.Execute.ClientSecret,
	})
}

// Translate creates the translation client
func (o *RootOpts) Translate() (*translate.Client, error) {
	if o.Config.Translate.APIKey == "" {
		return nil, errors.Errorf("translation %w: set translate.api_key or SARVAM_API_KEY", ErrNotConfigured)
	}
	return translate.New(translate.Options{
		BaseURL: o.Config.Translate.BaseURL,
		APIKey:  o.Config.Translate.APIKey,
	})
}

// Room opens the community chat room over the store
func (o *RootOpts) Room(ctx context.Context) (*chat.Room, error) {
	s, err := o.Store(ctx)
	if err != nil {
		return nil, errors.Errorf("opening chat: %w", err)
	}
	return chat.NewRoom(s), nil
}
