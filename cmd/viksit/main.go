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
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/walteh/viksit/cmd/viksit/commands"
	"github.com/walteh/viksit/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.NewUserLogger(ctx).LogResult(false, "Command failed", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := newRootOpts()

	rootCmd := &cobra.Command{
		Use:   "viksit",
		Short: "Explore GitHub repositories as trees and ask questions about them",
		Long: `viksit walks a repository's directory listings into one navigable tree,
renders it, and puts an assistant, a code runner, translation and a
community chat next to it. Everything is also served as a JSON API by
"viksit serve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := o.setup(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return o.Close()
		},
	}

	addRootFlags(rootCmd)

	rootCmd.AddCommand(
		commands.NewTreeCmd(o.RootOpts),
		commands.NewReposCmd(o.RootOpts),
		commands.NewInfoCmd(o.RootOpts),
		commands.NewCatCmd(o.RootOpts),
		commands.NewTokenCmd(o.RootOpts),
		commands.NewAskCmd(o.RootOpts),
		commands.NewExecCmd(o.RootOpts),
		commands.NewChatCmd(o.RootOpts),
		commands.NewTranslateCmd(o.RootOpts),
		commands.NewServeCmd(o.RootOpts),
	)

	return rootCmd
}
