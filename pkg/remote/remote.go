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

// Package remote defines the listing sources a repository tree is
// materialized from, and the entries they return.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📁 EntryType is the variant tag of a listing entry
type EntryType string

const (
	EntryTypeDir  EntryType = "dir"
	EntryTypeFile EntryType = "file"
)

// ❌ ErrInvalidIdentifier is returned when an owner or repository name is empty
var ErrInvalidIdentifier = errors.Base("invalid repository identifier")

// ❌ ErrInvalidLocator is returned for content locators that are not absolute http(s) URLs
var ErrInvalidLocator = errors.Base("invalid content locator")

// 📄 Entry describes one direct child of a directory listing
type Entry struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Type        EntryType `json:"type"`
	Size        int64     `json:"size,omitempty"`
	DownloadURL string    `json:"download_url,omitempty"` // files only
	URL         string    `json:"url,omitempty"`          // directories only
}

// IsDir reports whether the entry can have children. Anything the upstream
// reports other than "dir" (symlinks, submodules) is terminal.
func (e Entry) IsDir() bool {
	return e.Type == EntryTypeDir
}

// 🔌 Lister fetches the direct children of one directory of a repository.
// An empty path means the repository root.
type Lister interface {
	List(ctx context.Context, owner, repo, path string) ([]Entry, error)
}

// 📥 ContentFetcher fetches raw file bytes from a download locator
type ContentFetcher interface {
	FetchContent(ctx context.Context, locator string) ([]byte, error)
}

// 🔌 Source is a Lister that can also fetch file contents
type Source interface {
	Lister
	ContentFetcher
}

// ⚠️ FetchError reports an upstream call that did not complete successfully,
// either because the request failed or because the status was not 2xx.
type FetchError struct {
	Op         string // listing, content, ...
	Path       string // directory path or locator
	StatusCode int    // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fetching %s", e.Op)
	if e.Path != "" {
		fmt.Fprintf(&b, " %q", e.Path)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ValidateIdentifiers checks that owner and repo are usable in a request path
func ValidateIdentifiers(owner, repo string) error {
	if strings.TrimSpace(owner) == "" {
		return errors.Errorf("%w: empty owner", ErrInvalidIdentifier)
	}
	if strings.TrimSpace(repo) == "" {
		return errors.Errorf("%w: empty repository name", ErrInvalidIdentifier)
	}
	return nil
}

// 🔗 ParseLocator checks that a content locator is an absolute http or https URL
func ParseLocator(locator string) (*url.URL, error) {
	if locator == "" {
		return nil, errors.Errorf("%w: empty url", ErrInvalidLocator)
	}
	u, err := url.Parse(locator)
	if err != nil {
		return nil, errors.Errorf("%w: %s", ErrInvalidLocator, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("%w: unsupported scheme %q", ErrInvalidLocator, u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.Errorf("%w: missing host", ErrInvalidLocator)
	}
	return u, nil
}

// 🔍 ParseRepository splits "owner/repo" into its parts
func ParseRepository(name string) (owner, repo string, err error) {
	if name == "" {
		return "", "", errors.Errorf("%w: empty repository name", ErrInvalidIdentifier)
	}

	parts := strings.Split(name, "/")
	if len(parts) != 2 {
		return "", "", errors.Errorf("%w: invalid repository name: %s", ErrInvalidIdentifier, name)
	}

	owner = strings.TrimSpace(parts[0])
	repo = strings.TrimSpace(parts[1])
	if err := ValidateIdentifiers(owner, repo); err != nil {
		return "", "", errors.Errorf("invalid repository name: %s: %w", name, err)
	}

	return owner, repo, nil
}

// 🏭 Factory creates a source from its settings
type Factory func(ctx context.Context, opts Options) (Source, error)

// ⚙️ Options are the settings shared by all sources
type Options struct {
	BaseURL    string
	Token      string
	PerPage    int
	HTTPClient *http.Client
}

var registry = map[string]Factory{}

// 📝 Register registers a source factory
func Register(name string, factory Factory) {
	registry[name] = factory
}

// 🎯 New creates the source registered under name
func New(ctx context.Context, name string, opts Options) (Source, error) {
	factory, ok := registry[name]
	if !ok {
		options := make([]string, 0, len(registry))
		for k := range registry {
			options = append(options, k)
		}
		sort.Strings(options)
		return nil, errors.Errorf("source %s not found, options: %s", name, strings.Join(options, ", "))
	}
	return factory(ctx, opts)
}

// 📥 Download fetches a URL and returns its body, failing with a FetchError
// on transport errors and non-2xx statuses.
func Download(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, error) {
	zerolog.Ctx(ctx).Debug().Str("url", url).Msg("downloading content")

	if client == nil {
		client = http.DefaultClient
	}

	if _, err := ParseLocator(url); err != nil {
		return nil, &FetchError{Op: "content", Path: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Op: "content", Path: url, Err: errors.Errorf("creating request: %w", err)}
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{Op: "content", Path: url, Err: errors.Errorf("making request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Op: "content", Path: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Op: "content", Path: url, StatusCode: resp.StatusCode, Err: errors.Errorf("reading body: %w", err)}
	}

	return data, nil
}
