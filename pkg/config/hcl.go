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
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

type hclConfig struct {
	GitHub *struct {
		Token   string `hcl:"token,optional"`
		BaseURL string `hcl:"base_url,optional"`
		PerPage int    `hcl:"per_page,optional"`
	} `hcl:"github,block"`
	Listing *struct {
		Source     string   `hcl:"source,optional"`
		BackendURL string   `hcl:"backend_url,optional"`
		Timeout    string   `hcl:"timeout,optional"`
		Eager      bool     `hcl:"eager,optional"`
		Skip       []string `hcl:"skip,optional"`
	} `hcl:"listing,block"`
	Assist *struct {
		BaseURL string `hcl:"base_url,optional"`
		APIKey  string `hcl:"api_key,optional"`
		Model   string `hcl:"model,optional"`
	} `hcl:"assist,block"`
	Execute *struct {
		BaseURL      string `hcl:"base_url,optional"`
		ClientID     string `hcl:"client_id,optional"`
		ClientSecret string `hcl:"client_secret,optional"`
	} `hcl:"execute,block"`
	Translate *struct {
		BaseURL string `hcl:"base_url,optional"`
		APIKey  string `hcl:"api_key,optional"`
	} `hcl:"translate,block"`
	Store *struct {
		Path string `hcl:"path,optional"`
	} `hcl:"store,block"`
	Server *struct {
		Address string `hcl:"addr,optional"`
	} `hcl:"server,block"`
}

// 📝 Parse parses the config from HCL. Environment variables are exposed
// as env.NAME so secrets can stay out of the file.
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "viksit.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObject(),
		},
	}

	var raw hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &raw)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := &Config{}
	if g := raw.GitHub; g != nil {
		cfg.GitHub = GitHubConfig{Token: g.Token, BaseURL: g.BaseURL, PerPage: g.PerPage}
	}
	if l := raw.Listing; l != nil {
		cfg.Listing = ListingConfig{Source: l.Source, BackendURL: l.BackendURL, Eager: l.Eager, Skip: l.Skip}
		if l.Timeout != "" {
			if err := cfg.Listing.Timeout.UnmarshalText([]byte(l.Timeout)); err != nil {
				return nil, errors.Errorf("decoding HCL: listing.timeout: %w", err)
			}
		}
	}
	if a := raw.Assist; a != nil {
		cfg.Assist = AssistConfig{BaseURL: a.BaseURL, APIKey: a.APIKey, Model: a.Model}
	}
	if e := raw.Execute; e != nil {
		cfg.Execute = ExecuteConfig{BaseURL: e.BaseURL, ClientID: e.ClientID, ClientSecret: e.ClientSecret}
	}
	if t := raw.Translate; t != nil {
		cfg.Translate = TranslateConfig{BaseURL: t.BaseURL, APIKey: t.APIKey}
	}
	if s := raw.Store; s != nil {
		cfg.Store.Path = s.Path
	}
	if s := raw.Server; s != nil {
		cfg.Server.Address = s.Address
	}

	return cfg, nil
}

func envObject() cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vars)
}
