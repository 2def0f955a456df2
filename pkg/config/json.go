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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🔧 JSONParser reads .json configs. Unknown keys are errors.
type JSONParser struct{}

func init() {
	Register(&JSONParser{})
}

func (p *JSONParser) CanParse(filename string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimSpace(filename)), ".json")
}

// 📝 Parse decodes a single JSON object. An empty file is an empty config.
func (p *JSONParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	if len(bytes.TrimSpace(data)) == 0 {
		return &cfg, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing JSON%s: %w", jsonPosition(data, err), err)
	}
	if dec.More() {
		line, col := lineColumn(data, dec.InputOffset())
		return nil, errors.Errorf("parsing JSON at %d:%d: unexpected data after the config object", line, col)
	}
	return &cfg, nil
}

// jsonPosition renders " at line:col" for errors that carry an offset
func jsonPosition(data []byte, err error) string {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return ""
	}
	line, col := lineColumn(data, offset)
	return fmt.Sprintf(" at %d:%d", line, col)
}

func lineColumn(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	before := data[:offset]
	line = bytes.Count(before, []byte("\n")) + 1
	col = int(offset) - bytes.LastIndexByte(before, '\n')
	return line, col
}
