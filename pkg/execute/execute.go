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

// Package execute runs source code in a remote JDoodle compatible sandbox.
package execute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrMissingInput is returned before any request when the script or
	// language is empty
	ErrMissingInput = errors.Base("missing input")
	// ErrUnknownLanguage is returned when no language matches a file
	ErrUnknownLanguage = errors.Base("unknown language")
)

// 🗣️ Language is one language the sandbox understands
type Language struct {
	ID           string   `json:"value"`
	Label        string   `json:"label"`
	VersionIndex string   `json:"version"`
	Extensions   []string `json:"extensions"`
}

// Languages lists the languages offered to users, in display order
var Languages = []Language{
	{ID: "python3", Label: "Python 3", VersionIndex: "3", Extensions: []string{".py"}},
	{ID: "java", Label: "Java", VersionIndex: "3", Extensions: []string{".java"}},
	{ID: "cpp", Label: "C++", VersionIndex: "5", Extensions: []string{".cpp", ".cc", ".cxx"}},
	{ID: "c", Label: "C", VersionIndex: "4", Extensions: []string{".c"}},
	{ID: "nodejs", Label: "JavaScript", VersionIndex: "3", Extensions: []string{".js", ".mjs"}},
	{ID: "go", Label: "Go", VersionIndex: "3", Extensions: []string{".go"}},
	{ID: "rust", Label: "Rust", VersionIndex: "0", Extensions: []string{".rs"}},
	{ID: "php", Label: "PHP", VersionIndex: "3", Extensions: []string{".php"}},
	{ID: "ruby", Label: "Ruby", VersionIndex: "3", Extensions: []string{".rb"}},
	{ID: "csharp", Label: "C#", VersionIndex: "3", Extensions: []string{".cs"}},
}

// LanguageForFile picks the language of name from its extension
func LanguageForFile(name string) (Language, error) {
	ext := strings.ToLower(path.Ext(name))
	for _, l := range Languages {
		for _, e := range l.Extensions {
			if e == ext {
				return l, nil
			}
		}
	}
	return Language{}, errors.Errorf("%w: no language for %q", ErrUnknownLanguage, name)
}

// LookupLanguage finds a language by id
func LookupLanguage(id string) (Language, bool) {
	for _, l := range Languages {
		if l.ID == id {
			return l, true
		}
	}
	return Language{}, false
}

// ▶️ Request is one program run
type Request struct {
	Script       string `json:"script"`
	Language     string `json:"language"`
	VersionIndex string `json:"versionIndex"`
	Stdin        string `json:"stdin"`
	CompileOnly  bool   `json:"compileOnly"`
}

// 📤 Result is what the sandbox reports back
type Result struct {
	Output     string `json:"output"`
	StatusCode int    `json:"statusCode"`
	Memory     string `json:"memory,omitempty"`
	CPUTime    string `json:"cpuTime,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ⚠️ APIError is a non-2xx answer from the sandbox
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("execution failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("execution failed: status %d: %s", e.StatusCode, e.Message)
}

// Options configures a Client
type Options struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

// 🏃 Client runs programs
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// New creates a client. Credentials are required.
func New(opts Options) (*Client, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, errors.Errorf("%w: client id and secret", ErrMissingInput)
	}
	if opts.BaseURL == "" {
		return nil, errors.Errorf("%w: base url", ErrMissingInput)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:      strings.TrimSuffix(opts.BaseURL, "/"),
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		httpClient:   httpClient,
	}, nil
}

type executeBody struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	Request
}

// 🚀 Execute runs req. An empty version index uses the language's default.
func (c *Client) Execute(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Script) == "" || req.Language == "" {
		return nil, errors.Errorf("%w: script and language are required", ErrMissingInput)
	}
	if req.VersionIndex == "" {
		req.VersionIndex = "0"
		if l, ok := LookupLanguage(req.Language); ok {
			req.VersionIndex = l.VersionIndex
		}
	}

	body, err := json.Marshal(executeBody{ClientID: c.clientID, ClientSecret: c.clientSecret, Request: req})
	if err != nil {
		return nil, errors.Errorf("encoding execute request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/execute", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Errorf("creating execute request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	zerolog.Ctx(ctx).Debug().Str("language", req.Language).Str("version", req.VersionIndex).Msg("executing code")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Errorf("executing code: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Errorf("reading execute response: %w", err)
	}

	var result Result
	decodeErr := json.Unmarshal(data, &result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: result.Error}
	}
	if decodeErr != nil {
		return nil, errors.Errorf("decoding execute response: %w", decodeErr)
	}
	return &result, nil
}
