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

// Package translate translates chat text between Indian languages and
// turns text into speech through a Sarvam compatible API.
package translate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/text/language"
)

var (
	// ErrMissingInput is returned before any request when text is empty
	ErrMissingInput = errors.Base("missing input")
	// ErrUnsupportedLanguage is returned for codes outside Supported
	ErrUnsupportedLanguage = errors.Base("unsupported language")
)

// AutoDetect lets the service detect the source language
const AutoDetect = "auto"

// DefaultSpeaker is the voice used when none is given
const DefaultSpeaker = "meera"

// 🌐 Language is one supported target language
type Language struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Native string `json:"native"`
}

// Supported lists the languages offered for translation and speech
var Supported = []Language{
	{Code: "hi-IN", Name: "Hindi", Native: "हिंदी"},
	{Code: "bn-IN", Name: "Bengali", Native: "বাংলা"},
	{Code: "gu-IN", Name: "Gujarati", Native: "ગુજરાતી"},
	{Code: "kn-IN", Name: "Kannada", Native: "ಕನ್ನಡ"},
	{Code: "ml-IN", Name: "Malayalam", Native: "മലയാളം"},
	{Code: "mr-IN", Name: "Marathi", Native: "मराठी"},
	{Code: "ne-IN", Name: "Nepali", Native: "नेपाली"},
	{Code: "or-IN", Name: "Odia", Native: "ଓଡ଼ିଆ"},
	{Code: "pa-IN", Name: "Punjabi", Native: "ਪੰਜਾਬੀ"},
	{Code: "sa-IN", Name: "Sanskrit", Native: "संस्कृत"},
	{Code: "ta-IN", Name: "Tamil", Native: "தமிழ்"},
	{Code: "te-IN", Name: "Telugu", Native: "తెలుగు"},
	{Code: "ur-IN", Name: "Urdu", Native: "اردو"},
	{Code: "en-IN", Name: "English", Native: "English"},
}

// 🔤 NormalizeCode parses code as a BCP 47 tag and returns its canonical
// form if it is one of Supported
func NormalizeCode(code string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return "", errors.Errorf("%w: %q: %s", ErrUnsupportedLanguage, code, err.Error())
	}
	canonical := tag.String()
	for _, l := range Supported {
		if l.Code == canonical {
			return canonical, nil
		}
	}
	return "", errors.Errorf("%w: %q", ErrUnsupportedLanguage, code)
}

// ⚠️ APIError is a non-2xx answer from the service
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("translation service failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("translation service failed: status %d: %s", e.StatusCode, e.Message)
}

// Options configures a Client
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// 🗣️ Client talks to the translation service
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a client. The API key is required.
func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.Errorf("%w: api key", ErrMissingInput)
	}
	if opts.BaseURL == "" {
		return nil, errors.Errorf("%w: base url", ErrMissingInput)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: httpClient,
	}, nil
}

// 📝 Translation is a translated text
type Translation struct {
	Text           string `json:"translated_text"`
	SourceLanguage string `json:"source_language_code"`
	TargetLanguage string `json:"target_language_code"`
}

type translateBody struct {
	Input  string `json:"input"`
	Source string `json:"source_language_code"`
	Target string `json:"target_language_code"`
}

// Translate translates text into target. An empty source is auto detected.
func (c *Client) Translate(ctx context.Context, text, source, target string) (*Translation, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Errorf("%w: text is required", ErrMissingInput)
	}
	target, err := NormalizeCode(target)
	if err != nil {
		return nil, err
	}
	if source == "" || source == AutoDetect {
		source = AutoDetect
	} else if source, err = NormalizeCode(source); err != nil {
		return nil, err
	}

	var out Translation
	if err := c.post(ctx, "/translate", translateBody{Input: text, Source: source, Target: target}, &out); err != nil {
		return nil, err
	}
	out.TargetLanguage = target
	return &out, nil
}

type speechBody struct {
	Inputs  []string `json:"inputs"`
	Target  string   `json:"target_language_code"`
	Speaker string   `json:"speaker"`
}

type speechResponse struct {
	Audios []string `json:"audios"`
}

// 🔊 Speak synthesizes text in target and returns the decoded audio
func (c *Client) Speak(ctx context.Context, text, target, speaker string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Errorf("%w: text is required", ErrMissingInput)
	}
	target, err := NormalizeCode(target)
	if err != nil {
		return nil, err
	}
	if speaker == "" {
		speaker = DefaultSpeaker
	}

	var out speechResponse
	if err := c.post(ctx, "/text-to-speech", speechBody{Inputs: []string{text}, Target: target, Speaker: speaker}, &out); err != nil {
		return nil, err
	}
	if len(out.Audios) == 0 {
		return nil, errors.New("speech response carried no audio")
	}
	audio, err := base64.StdEncoding.DecodeString(out.Audios[0])
	if err != nil {
		return nil, errors.Errorf("decoding audio: %w", err)
	}
	return audio, nil
}

func (c *Client) post(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Errorf("encoding %s request: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Errorf("creating %s request: %w", endpoint, err)
	}
	req.Header.Set("api-subscription-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	zerolog.Ctx(ctx).Debug().Str("endpoint", endpoint).Msg("calling translation service")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Errorf("calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Errorf("reading %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er struct {
			Message string `json:"message"`
			Error   struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(data, &er)
		msg := er.Message
		if msg == "" {
			msg = er.Error.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}
