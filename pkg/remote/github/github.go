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

package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"github.com/walteh/viksit/pkg/remote"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2"
)

const (
	defaultPerPage = 100
	defaultTimeout = 15 * time.Second
)

func init() {
	remote.Register("github", func(ctx context.Context, opts remote.Options) (remote.Source, error) {
		return New(ctx, opts)
	})
}

// GitHubClient defines the GitHub API operations we need
type GitHubClient interface {
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
	ListByUser(ctx context.Context, user string, opts *github.RepositoryListByUserOptions) ([]*github.Repository, *github.Response, error)
	Get(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error)
}

// githubClientWrapper wraps the GitHub client to implement our interface
type githubClientWrapper struct {
	client *github.Client
}

func (w *githubClientWrapper) GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
	return w.client.Repositories.GetContents(ctx, owner, repo, path, opts)
}

func (w *githubClientWrapper) ListByUser(ctx context.Context, user string, opts *github.RepositoryListByUserOptions) ([]*github.Repository, *github.Response, error) {
	return w.client.Repositories.ListByUser(ctx, user, opts)
}

func (w *githubClientWrapper) Get(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error) {
	return w.client.Repositories.Get(ctx, owner, repo)
}

// rawContentHost serves download_url locators for repository files
const rawContentHost = "raw.githubusercontent.com"

// 🎯 Provider lists repository contents through the GitHub REST API
type Provider struct {
	client     GitHubClient
	httpClient *http.Client // downloads, never carries credentials itself
	perPage    int
	ref        string

	token      string
	tokenHosts map[string]bool
}

// 🏭 New creates a GitHub provider. An empty token gives unauthenticated
// access with GitHub's lower rate limits. opts.HTTPClient talks to the API;
// file content is downloaded with a separate client that sends the token
// only to the API host and raw.githubusercontent.com.
func New(ctx context.Context, opts remote.Options) (*Provider, error) {
	apiClient := opts.HTTPClient
	if apiClient == nil {
		if opts.Token != "" {
			ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
			apiClient = oauth2.NewClient(ctx, ts)
		} else {
			apiClient = &http.Client{}
		}
		apiClient.Timeout = defaultTimeout
	}

	client := github.NewClient(apiClient)
	if opts.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, errors.Errorf("parsing base url: %w", err)
		}
		client.BaseURL = base
	}

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	timeout := apiClient.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	p := NewWithClient(&githubClientWrapper{client: client}, &http.Client{Timeout: timeout}, perPage)
	if opts.Token != "" {
		p.token = opts.Token
		p.tokenHosts = map[string]bool{
			strings.ToLower(client.BaseURL.Host): true,
			rawContentHost:                       true,
		}
	}
	return p, nil
}

// NewWithClient creates a provider around an existing client. httpClient
// is used for content downloads to arbitrary hosts, so it must not inject
// credentials of its own.
func NewWithClient(client GitHubClient, httpClient *http.Client, perPage int) *Provider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Provider{
		client:     client,
		httpClient: httpClient,
		perPage:    perPage,
	}
}

// WithRef returns a copy of the provider that lists contents at ref
func (p *Provider) WithRef(ref string) *Provider {
	cp := *p
	cp.ref = ref
	return &cp
}

// 📂 List returns the direct children of path, in the order GitHub returns them
func (p *Provider) List(ctx context.Context, owner, repo, path string) ([]remote.Entry, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("owner", owner).Str("repo", repo).Str("path", path).Msg("listing contents")

	if err := remote.ValidateIdentifiers(owner, repo); err != nil {
		return nil, err
	}

	var opts *github.RepositoryContentGetOptions
	if p.ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: p.ref}
	}

	file, dir, resp, err := p.client.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, fetchError("listing", path, resp, err)
	}

	// a path naming a file comes back as a single object
	if file != nil {
		return []remote.Entry{toEntry(file)}, nil
	}

	entries := make([]remote.Entry, 0, len(dir))
	for _, c := range dir {
		entries = append(entries, toEntry(c))
	}

	return entries, nil
}

// 📥 FetchContent downloads a file's raw bytes from its download URL
func (p *Provider) FetchContent(ctx context.Context, locator string) ([]byte, error) {
	u, err := remote.ParseLocator(locator)
	if err != nil {
		return nil, &remote.FetchError{Op: "content", Path: locator, Err: err}
	}

	var header http.Header
	if p.token != "" && p.tokenHosts[strings.ToLower(u.Host)] {
		header = http.Header{"Authorization": []string{"Bearer " + p.token}}
	}
	return remote.Download(ctx, p.httpClient, locator, header)
}

// 📦 Repository is the summary of one repository of an account
type Repository struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name,omitempty"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
}

// 📚 ListRepositories returns every public repository of user, following pagination
func (p *Provider) ListRepositories(ctx context.Context, user string) ([]Repository, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("user", user).Msg("listing repositories")

	if strings.TrimSpace(user) == "" {
		return nil, errors.Errorf("%w: empty user", remote.ErrInvalidIdentifier)
	}

	opts := &github.RepositoryListByUserOptions{
		ListOptions: github.ListOptions{PerPage: p.perPage},
	}

	var repos []Repository
	for {
		page, resp, err := p.client.ListByUser(ctx, user, opts)
		if err != nil {
			return nil, fetchError("repositories", user, resp, err)
		}

		for _, r := range page {
			repos = append(repos, Repository{
				ID:          r.GetID(),
				Name:        r.GetName(),
				FullName:    r.GetFullName(),
				Description: r.GetDescription(),
				Language:    r.GetLanguage(),
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return repos, nil
}

// ℹ️ Info is the detail view of a repository
type Info struct {
	Name        string    `json:"name"`
	Owner       string    `json:"owner"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	Watchers    int       `json:"watchers"`
	HTMLURL     string    `json:"html_url"`
	Homepage    string    `json:"homepage,omitempty"`
	License     string    `json:"license,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// 🔍 Repository returns the details of owner/repo
func (p *Provider) Repository(ctx context.Context, owner, repo string) (*Info, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("owner", owner).Str("repo", repo).Msg("getting repository")

	if err := remote.ValidateIdentifiers(owner, repo); err != nil {
		return nil, err
	}

	r, resp, err := p.client.Get(ctx, owner, repo)
	if err != nil {
		return nil, fetchError("repository", owner+"/"+repo, resp, err)
	}

	return &Info{
		Name:        r.GetName(),
		Owner:       r.GetOwner().GetLogin(),
		Description: r.GetDescription(),
		Language:    r.GetLanguage(),
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		Watchers:    r.GetWatchersCount(),
		HTMLURL:     r.GetHTMLURL(),
		Homepage:    r.GetHomepage(),
		License:     r.GetLicense().GetName(),
		CreatedAt:   r.GetCreatedAt().Time,
		UpdatedAt:   r.GetUpdatedAt().Time,
	}, nil
}

func toEntry(c *github.RepositoryContent) remote.Entry {
	e := remote.Entry{
		Name: c.GetName(),
		Path: c.GetPath(),
		Type: remote.EntryType(c.GetType()),
		Size: int64(c.GetSize()),
	}
	if e.IsDir() {
		e.URL = c.GetURL()
		e.Size = 0
	} else {
		e.DownloadURL = c.GetDownloadURL()
	}
	return e
}

func fetchError(op, path string, resp *github.Response, err error) error {
	fe := &remote.FetchError{Op: op, Path: path, Err: err}
	if resp != nil && resp.Response != nil {
		fe.StatusCode = resp.StatusCode
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		fe.Err = errors.Errorf("rate limit exceeded: %w", err)
	}
	return fe
}
