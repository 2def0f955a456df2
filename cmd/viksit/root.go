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

package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/viksit/cmd/viksit/opts"
	"github.com/walteh/viksit/pkg/config"
	"github.com/walteh/viksit/pkg/log"
	"gitlab.com/tozd/go/errors"
)

var (
	// Flags
	configFile string
	debug      bool
)

// rootOpts fills the shared opts once flags are parsed
type rootOpts struct {
	*opts.RootOpts
}

func newRootOpts() *rootOpts {
	return &rootOpts{RootOpts: &opts.RootOpts{}}
}

// setup configures logging and loads the config. An empty --config uses the
// defaults plus the environment.
func (o *rootOpts) setup(ctx context.Context) (context.Context, error) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zlog := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).Level(level).With().Timestamp().Logger()
	ctx = zlog.WithContext(ctx)

	console := log.New(os.Stderr, level)
	ctx = log.NewContext(ctx, console)

	cfg := config.Default()
	if configFile != "" {
		var err error
		cfg, err = config.Load(ctx, configFile)
		if err != nil {
			return ctx, errors.Errorf("loading config: %w", err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)

	zlog.Debug().Str("config", cfg.String()).Msg("configuration loaded")

	o.Config = cfg
	o.Console = console
	o.UserLogger = log.NewUserLogger(ctx)
	return ctx, nil
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (.json, .yaml, .toml or .hcl)")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}
