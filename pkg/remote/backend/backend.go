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

// Package backend reads directory listings from a listing service that
// exposes GET /listing/{owner}/{repo}?path={subpath}.
package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/viksit/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

const defaultTimeout = 15 * time.Second

func init() {
	remote.Register("backend", func(ctx context.Context, opts remote.Options) (remote.Source, error) {
		return New(opts)
	})
}

// 🎯 Client talks to a listing service
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// listingResponse is the envelope the listing service answers with
type listingResponse struct {
	Structure []remote.Entry `json:"structure"`
}

// 🏭 New creates a listing service client
func New(opts remote.Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("backend base url is required")
	}

	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, errors.Errorf("parsing base url: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
	}, nil
}

// ListingURL builds the listing URL for a directory of owner/repo
func (c *Client) ListingURL(owner, repo, path string) string {
	u := *c.baseURL
	u.Path = u.Path + "/listing/" + owner + "/" + repo
	u.RawPath = ""
	if path != "" {
		q := u.Query()
		q.Set("path", path)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// 📂 List returns the direct children of path
func (c *Client) List(ctx context.Context, owner, repo, path string) ([]remote.Entry, error) {
	logger := zerolog.Ctx(ctx)

	if err := remote.ValidateIdentifiers(owner, repo); err != nil {
		return nil, err
	}

	target := c.ListingURL(owner, repo, path)
	logger.Debug().Str("url", target).Msg("fetching listing")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &remote.FetchError{Op: "listing", Path: path, Err: errors.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &remote.FetchError{Op: "listing", Path: path, Err: errors.Errorf("making request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused; the body is not relied upon
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &remote.FetchError{Op: "listing", Path: path, StatusCode: resp.StatusCode}
	}

	var body listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &remote.FetchError{Op: "listing", Path: path, StatusCode: resp.StatusCode, Err: errors.Errorf("decoding response: %w", err)}
	}

	if body.Structure == nil {
		return []remote.Entry{}, nil
	}
	return body.Structure, nil
}

// 📥 FetchContent downloads raw file bytes from a download locator
func (c *Client) FetchContent(ctx context.Context, locator string) ([]byte, error) {
	if locator == "" {
		return nil, &remote.FetchError{Op: "content", Err: errors.New("empty download url")}
	}
	return remote.Download(ctx, c.httpClient, locator, nil)
}
