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

package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/viksit/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

func TestList(t *testing.T) {
	var gotPaths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPaths = append(gotPaths, r.URL.Path+"?"+r.URL.RawQuery)
		switch r.URL.Query().Get("path") {
		case "":
			fmt.Fprint(w, `{"structure":[
				{"name":"src","path":"src","type":"dir","url":"u"},
				{"name":"README.md","path":"README.md","type":"file","size":120,"download_url":"d"}
			]}`)
		case "src":
			fmt.Fprint(w, `{"structure":[]}`)
		case "empty":
			fmt.Fprint(w, `{}`)
		case "broken":
			fmt.Fprint(w, `{"structure":`)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	t.Cleanup(srv.Close)

	ctx := zerolog.New(zerolog.TestWriter{T: t}).WithContext(context.Background())
	c, err := New(remote.Options{BaseURL: srv.URL + "/"})
	require.NoError(t, err, "creating client should succeed")

	tests := []struct {
		name       string
		path       string
		wantLen    int
		wantStatus int
		wantErr    bool
	}{
		{name: "root", path: "", wantLen: 2},
		{name: "empty_directory", path: "src", wantLen: 0},
		{name: "missing_structure_field", path: "empty", wantLen: 0},
		{name: "non_success_status", path: "nope", wantErr: true, wantStatus: http.StatusBadGateway},
		{name: "invalid_json", path: "broken", wantErr: true, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := c.List(ctx, "octo", "hello", tt.path)
			if tt.wantErr {
				require.Error(t, err, "List should fail")
				var fe *remote.FetchError
				require.True(t, errors.As(err, &fe), "error should be a FetchError")
				assert.Equal(t, tt.wantStatus, fe.StatusCode, "status should match")
				return
			}

			require.NoError(t, err, "List should succeed")
			assert.NotNil(t, entries, "entries should never be nil on success")
			assert.Len(t, entries, tt.wantLen, "entry count should match")
		})
	}

	assert.Equal(t, "/listing/octo/hello?", gotPaths[0], "root listing should have no path query")
	assert.Equal(t, "/listing/octo/hello?path=src", gotPaths[1], "subdirectory should be passed as query")
}

func TestListingURL(t *testing.T) {
	c, err := New(remote.Options{BaseURL: "http://example.com/api"})
	require.NoError(t, err, "creating client should succeed")

	assert.Equal(t, "http://example.com/api/listing/octo/hello", c.ListingURL("octo", "hello", ""))
	assert.Equal(t, "http://example.com/api/listing/octo/hello?path=a%2Fb+c", c.ListingURL("octo", "hello", "a/b c"))
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(remote.Options{})
	require.Error(t, err, "missing base url should fail")
	assert.Contains(t, err.Error(), "base url is required")
}

func TestListRejectsEmptyIdentifiers(t *testing.T) {
	c, err := New(remote.Options{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err, "creating client should succeed")

	_, err = c.List(context.Background(), "octo", "", "")
	assert.ErrorIs(t, err, remote.ErrInvalidIdentifier)
}
