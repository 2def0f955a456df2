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

package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/viksit/cmd/viksit/opts"
	"github.com/walteh/viksit/pkg/server"
	"gitlab.com/tozd/go/errors"
)

// NewServeCmd creates the serve command
func NewServeCmd(o *opts.RootOpts) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Serve exposes repository listings, trees, the assistant, code execution,
translation and chat over HTTP. Tools whose credentials are missing answer
503 instead of keeping the server from starting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := zerolog.Ctx(ctx)

			if addr == "" {
				addr = o.Config.Server.Address
			}

			src, err := o.Source(ctx)
			if err != nil {
				return err
			}
			gh, err := o.GitHub(ctx)
			if err != nil {
				return err
			}
			room, err := o.Room(ctx)
			if err != nil {
				return err
			}

			sopts := server.Options{
				Address:      addr,
				Source:       src,
				Repositories: gh,
				Materializer: o.Materializer(src),
				DefaultMode:  o.DefaultMode(),
				Room:         room,
				Logger:       *logger,
			}

			if c, err := o.Assist(ctx); err == nil {
				sopts.Assist = c
			} else {
				logger.Warn().Err(err).Msg("assistant disabled")
			}
			if c, err := o.Execute(); err == nil {
				sopts.Execute = c
			} else {
				logger.Warn().Err(err).Msg("code execution disabled")
			}
			if c, err := o.Translate(); err == nil {
				sopts.Translate = c
			} else {
				logger.Warn().Err(err).Msg("translation disabled")
			}

			if err := server.New(sopts).Run(ctx); err != nil {
				return errors.Errorf("serving: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, defaults to server.addr")
	return cmd
}
