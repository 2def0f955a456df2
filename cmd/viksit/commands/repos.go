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
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/viksit/cmd/viksit/opts"
	"github.com/walteh/viksit/pkg/remote"
	"github.com/walteh/viksit/pkg/render"
	"gitlab.com/tozd/go/errors"
)

// NewReposCmd creates the repos command
func NewReposCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "repos USER",
		Short: "List a user's public repositories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			gh, err := o.GitHub(ctx)
			if err != nil {
				return err
			}
			repos, err := gh.ListRepositories(ctx, args[0])
			if err != nil {
				return err
			}

			data := pterm.TableData{{"Name", "Language", "Description"}}
			for _, r := range repos {
				data = append(data, []string{r.Name, r.Language, r.Description})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(cmd.OutOrStdout()).Render(); err != nil {
				return errors.Errorf("rendering table: %w", err)
			}
			o.UserLogger.LogResult(true, fmt.Sprintf("%d repositories for %s", len(repos), args[0]), nil)
			return nil
		},
	}
}

// NewInfoCmd creates the info command
func NewInfoCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "info OWNER/REPO",
		Short: "Show a repository's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			owner, repo, err := remote.ParseRepository(args[0])
			if err != nil {
				return err
			}
			gh, err := o.GitHub(ctx)
			if err != nil {
				return err
			}
			info, err := gh.Repository(ctx, owner, repo)
			if err != nil {
				return err
			}

			data := pterm.TableData{
				{"Name", info.Owner + "/" + info.Name},
				{"Description", info.Description},
				{"Language", info.Language},
				{"Stars", strconv.Itoa(info.Stars)},
				{"Forks", strconv.Itoa(info.Forks)},
				{"Watchers", strconv.Itoa(info.Watchers)},
				{"License", info.License},
				{"Homepage", info.Homepage},
				{"URL", info.HTMLURL},
				{"Created", info.CreatedAt.Format("2006-01-02")},
				{"Updated", info.UpdatedAt.Format("2006-01-02")},
			}
			if err := pterm.DefaultTable.WithData(data).WithWriter(cmd.OutOrStdout()).Render(); err != nil {
				return errors.Errorf("rendering table: %w", err)
			}
			return nil
		},
	}
}

// NewCatCmd creates the cat command
func NewCatCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "cat DOWNLOAD_URL",
		Short: "Print a file's raw contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			src, err := o.Source(ctx)
			if err != nil {
				return err
			}
			content, err := src.FetchContent(ctx, args[0])
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(content); err != nil {
				return errors.Errorf("writing content: %w", err)
			}
			zerolog.Ctx(ctx).Debug().Str("url", args[0]).Str("size", render.FormatSize(int64(len(content)))).Msg("fetched content")
			return nil
		},
	}
}
