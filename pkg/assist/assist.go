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

// Package assist answers questions about repositories and code through an
// OpenAI compatible chat completions endpoint.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrMissingInput is returned before any request when a required field is empty
	ErrMissingInput = errors.Base("missing input")
	// ErrNoAnswer is returned when the completion has no choices
	ErrNoAnswer = errors.Base("completion returned no answer")
)

const (
	KindRepository    = "repository"
	KindCode          = "code"
	KindDocumentation = "documentation"
)

// 📝 Recorder keeps answered queries
type Recorder interface {
	RecordQuery(ctx context.Context, kind, query, response string) error
}

// ⚠️ APIError is a non-2xx answer from the completions endpoint
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("completion failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("completion failed: status %d: %s", e.StatusCode, e.Message)
}

// Options configures a Client
type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Recorder   Recorder
}

// 🤖 Client talks to the completions endpoint
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	recorder   Recorder
}

// New creates a client. The API key is required.
func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.Errorf("%w: api key", ErrMissingInput)
	}
	if opts.BaseURL == "" {
		return nil, errors.Errorf("%w: base url", ErrMissingInput)
	}
	if opts.Model == "" {
		return nil, errors.Errorf("%w: model", ErrMissingInput)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		model:      opts.Model,
		httpClient: httpClient,
		recorder:   opts.Recorder,
	}, nil
}

// 📦 RepositoryDetails is what the assistant is told about a repository
type RepositoryDetails struct {
	Name        string
	Owner       string
	Description string
	Language    string
}

// QueryRepository answers query about a repository
func (c *Client) QueryRepository(ctx context.Context, details RepositoryDetails, query string) (string, error) {
	if details.Name == "" || details.Owner == "" || strings.TrimSpace(query) == "" {
		return "", errors.Errorf("%w: username, repository name and query are required", ErrMissingInput)
	}
	prompt, err := renderPrompt(repositoryPrompt, repositoryData(details, query))
	if err != nil {
		return "", err
	}
	return c.answer(ctx, KindRepository, query, prompt)
}

// QueryCode answers query about a piece of code
func (c *Client) QueryCode(ctx context.Context, code, query string) (string, error) {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(query) == "" {
		return "", errors.Errorf("%w: code and query are required", ErrMissingInput)
	}
	prompt, err := renderPrompt(codePrompt, map[string]string{
		"Code":  code,
		"Query": query,
	})
	if err != nil {
		return "", err
	}
	return c.answer(ctx, KindCode, query, prompt)
}

// GenerateDocumentation drafts documentation for a repository given the
// paths of its files
func (c *Client) GenerateDocumentation(ctx context.Context, details RepositoryDetails, paths []string) (string, error) {
	if details.Name == "" || details.Owner == "" || len(paths) == 0 {
		return "", errors.Errorf("%w: repository and at least one path are required", ErrMissingInput)
	}
	data := repositoryData(details, "")
	data["Paths"] = strings.Join(paths, "\n")
	prompt, err := renderPrompt(documentationPrompt, data)
	if err != nil {
		return "", err
	}
	return c.answer(ctx, KindDocumentation, "document "+details.Owner+"/"+details.Name, prompt)
}

func repositoryData(d RepositoryDetails, query string) map[string]string {
	orDefault := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	return map[string]string{
		"Name":        d.Name,
		"Owner":       d.Owner,
		"Description": orDefault(d.Description, "No description available"),
		"Language":    orDefault(d.Language, "Unknown"),
		"Query":       query,
	}
}

func (c *Client) answer(ctx context.Context, kind, query, prompt string) (string, error) {
	response, err := c.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if c.recorder != nil {
		if err := c.recorder.RecordQuery(ctx, kind, query, response); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("kind", kind).Msg("failed to record query")
		}
	}
	return response, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// 💬 Complete sends prompt as a single user message and returns the reply
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", errors.Errorf("encoding completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Errorf("creating completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	zerolog.Ctx(ctx).Debug().Str("model", c.model).Int("prompt_bytes", len(prompt)).Msg("requesting completion")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Errorf("requesting completion: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Errorf("reading completion: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er errorResponse
		_ = json.Unmarshal(data, &er)
		return "", &APIError{StatusCode: resp.StatusCode, Message: er.Error.Message}
	}

	var cr completionResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return "", errors.Errorf("decoding completion: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", ErrNoAnswer
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
