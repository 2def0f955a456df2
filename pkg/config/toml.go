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
	"context"
	"strings"

	"github.com/BurntSushi/toml"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&TOMLParser{})
}

// 🔧 TOMLParser implements the Parser interface for TOML files
type TOMLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *TOMLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".toml")
}

// 📝 Parse parses the config from TOML, rejecting keys it does not know
func (p *TOMLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, errors.Errorf("parsing TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, errors.Errorf("parsing TOML: unknown keys %s", strings.Join(keys, ", "))
	}
	return &cfg, nil
}
