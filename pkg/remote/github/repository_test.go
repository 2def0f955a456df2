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
	"net/http/httptest"
	"testing"

	"github.com/google/go-github/v60/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/viksit/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

type mockGitHubClient struct {
	mock.Mock
}

func (m *mockGitHubClient) GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
	args := m.Called(ctx, owner, repo, path, opts)
	file, _ := args.Get(0).(*github.RepositoryContent)
	dir, _ := args.Get(1).([]*github.RepositoryContent)
	resp, _ := args.Get(2).(*github.Response)
	return file, dir, resp, args.Error(3)
}

func (m *mockGitHubClient) ListByUser(ctx context.Context, user string, opts *github.RepositoryListByUserOptions) ([]*github.Repository, *github.Response, error) {
	args := m.Called(ctx, user, opts)
	repos, _ := args.Get(0).([]*github.Repository)
	resp, _ := args.Get(1).(*github.Response)
	return repos, resp, args.Error(2)
}

func (m *mockGitHubClient) Get(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error) {
	args := m.Called(ctx, owner, repo)
	r, _ := args.Get(0).(*github.Repository)
	resp, _ := args.Get(1).(*github.Response)
	return r, resp, args.Error(2)
}

func TestProviderWithMockClient(t *testing.T) {
	t.Run("test_ref_is_forwarded", func(t *testing.T) {
		client := &mockGitHubClient{}
		client.On("GetContents", mock.Anything, "walteh", "viksit", "pkg", &github.RepositoryContentGetOptions{Ref: "v1.0.0"}).
			Return(nil, []*github.RepositoryContent{
				{Name: github.String("tree"), Path: github.String("pkg/tree"), Type: github.String("dir"), URL: github.String("u")},
				{Name: github.String("doc.go"), Path: github.String("pkg/doc.go"), Type: github.String("file"), Size: github.Int(9), DownloadURL: github.String("d")},
			}, &github.Response{}, nil)

		p := NewWithClient(client, nil, 10).WithRef("v1.0.0")
		entries, err := p.List(context.Background(), "walteh", "viksit", "pkg")
		require.NoError(t, err, "List should succeed")
		require.Len(t, entries, 2)
		assert.True(t, entries[0].IsDir(), "first entry should be a directory")
		assert.Equal(t, "u", entries[0].URL)
		assert.Empty(t, entries[0].DownloadURL, "directories carry no download url")
		assert.Equal(t, int64(9), entries[1].Size)
		assert.Empty(t, entries[1].URL, "files carry no directory url")
		client.AssertExpectations(t)
	})

	t.Run("test_symlink_is_terminal", func(t *testing.T) {
		client := &mockGitHubClient{}
		client.On("GetContents", mock.Anything, "walteh", "viksit", "", (*github.RepositoryContentGetOptions)(nil)).
			Return(nil, []*github.RepositoryContent{
				{Name: github.String("link"), Path: github.String("link"), Type: github.String("symlink")},
			}, &github.Response{}, nil)

		entries, err := NewWithClient(client, nil, 10).List(context.Background(), "walteh", "viksit", "")
		require.NoError(t, err, "List should succeed")
		require.Len(t, entries, 1)
		assert.False(t, entries[0].IsDir(), "symlinks should not be expandable")
	})

	t.Run("test_rate_limit", func(t *testing.T) {
		client := &mockGitHubClient{}
		httpResp := &http.Response{
			StatusCode: http.StatusForbidden,
			Request:    httptest.NewRequest(http.MethodGet, "https://api.github.com/repos/walteh/viksit/contents/", nil),
		}
		client.On("GetContents", mock.Anything, "walteh", "viksit", "", mock.Anything).
			Return(nil, nil, &github.Response{Response: httpResp}, &github.RateLimitError{Response: httpResp, Message: "API rate limit exceeded"})

		_, err := NewWithClient(client, nil, 10).List(context.Background(), "walteh", "viksit", "")
		require.Error(t, err, "List should fail")

		var fe *remote.FetchError
		require.True(t, errors.As(err, &fe), "error should be a FetchError")
		assert.Equal(t, http.StatusForbidden, fe.StatusCode)
		assert.Contains(t, err.Error(), "rate limit exceeded")
	})
}
