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
	"strings"

	"github.com/spf13/cobra"
	"github.com/walteh/viksit/cmd/viksit/opts"
	"github.com/walteh/viksit/pkg/log"
	"github.com/walteh/viksit/pkg/store"
	"gitlab.com/tozd/go/errors"
)

// NewTokenCmd creates the token command
func NewTokenCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the saved GitHub token",
		Long: `The saved token is used for GitHub calls whenever github.token and
GITHUB_TOKEN are both unset.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set TOKEN",
		Short: "Save a GitHub token, replacing any saved before",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := o.Store(ctx)
			if err != nil {
				return err
			}
			if err := s.SetGitHubToken(ctx, strings.TrimSpace(args[0])); err != nil {
				return err
			}
			o.UserLogger.LogChange(log.Change{Type: log.ChangeSaved, Subject: "GitHub token", Description: o.Config.Store.Path})
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report where the GitHub token comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if o.Config.GitHub.Token != "" {
				o.UserLogger.LogResult(true, "Using the configured GitHub token", nil)
				return nil
			}
			s, err := o.Store(ctx)
			if err != nil {
				return err
			}
			_, err = s.GitHubToken(ctx)
			switch {
			case errors.Is(err, store.ErrNoToken):
				o.UserLogger.LogResult(false, "No GitHub token, requests are unauthenticated", nil)
			case err != nil:
				return err
			default:
				o.UserLogger.LogResult(true, "Using the saved GitHub token", nil)
			}
			return nil
		},
	})

	return cmd
}
