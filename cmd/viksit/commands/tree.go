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

// Package commands holds the viksit subcommands.
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/walteh/viksit/cmd/viksit/opts"
	"github.com/walteh/viksit/pkg/log"
	"github.com/walteh/viksit/pkg/remote"
	"github.com/walteh/viksit/pkg/render"
	"github.com/walteh/viksit/pkg/tree"
	"gitlab.com/tozd/go/errors"
)

// NewTreeCmd creates the tree command
func NewTreeCmd(o *opts.RootOpts) *cobra.Command {
	var (
		lazy      bool
		asJSON    bool
		ignore    []string
		skip      []string
		expand    []string
		depth     int
		hideSizes bool
	)

	cmd := &cobra.Command{
		Use:   "tree OWNER/REPO",
		Short: "Print a repository's directory tree",
		Long: `Tree lists the repository root and, unless --lazy is given, walks every
directory one at a time until the whole tree is loaded. Directories that
fail to load are reported and left unexpanded; the rest of the tree is
still printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			owner, repo, err := remote.ParseRepository(args[0])
			if err != nil {
				return err
			}

			src, err := o.Source(ctx)
			if err != nil {
				return err
			}

			mode := tree.ModeEager
			if lazy {
				mode = tree.ModeLazy
			}

			m := o.Materializer(src, skip...)
			sess := tree.NewSession(m)

			o.Console.StartWalk(ctx, log.WalkOperation{Owner: owner, Repo: repo, Mode: mode.String()})
			t, _, walkErr := sess.Select(ctx, owner, repo, mode)

			var we *tree.WalkError
			if walkErr != nil && !errors.As(walkErr, &we) {
				o.Console.EndWalk(ctx)
				return walkErr
			}

			for _, path := range expand {
				if _, _, err := sess.Expand(ctx, path); err != nil {
					o.Console.EndWalk(ctx)
					return errors.Errorf("expanding %s: %w", path, err)
				}
			}
			expanded, failed := o.Console.EndWalk(ctx)
			o.Console.LogNewline()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(render.Hierarchy(t)); err != nil {
					return errors.Errorf("encoding tree: %w", err)
				}
			} else {
				if err := render.Text(cmd.OutOrStdout(), t, render.Options{Ignore: ignore, MaxDepth: depth, HideSizes: hideSizes}); err != nil {
					return errors.Errorf("rendering tree: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), render.Stats(t))
			}

			if we != nil {
				o.Console.Warningf("%d of %d directories failed to load", failed, expanded+failed)
				return we
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&lazy, "lazy", false, "only list the root; combine with --expand to load chosen directories")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tree as a JSON hierarchy")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "glob of paths to hide from the output")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "glob of directories not to walk")
	cmd.Flags().StringSliceVar(&expand, "expand", nil, "directory to load after the walk")
	cmd.Flags().IntVar(&depth, "depth", 0, "maximum depth to print, 0 for all")
	cmd.Flags().BoolVar(&hideSizes, "no-sizes", false, "do not print file sizes")

	return cmd
}
