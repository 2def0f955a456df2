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
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/viksit/cmd/viksit/opts"
	"github.com/walteh/viksit/pkg/assist"
	"github.com/walteh/viksit/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// NewAskCmd creates the ask command
func NewAskCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask the assistant about a repository or a piece of code",
	}

	cmd.AddCommand(
		newAskRepoCmd(o),
		newAskCodeCmd(o),
		newAskDocsCmd(o),
		newAskHistoryCmd(o),
	)
	return cmd
}

func repositoryDetails(ctx context.Context, o *opts.RootOpts, owner, repo string) assist.RepositoryDetails {
	d := assist.RepositoryDetails{Owner: owner, Name: repo}
	gh, err := o.GitHub(ctx)
	if err != nil {
		return d
	}
	info, err := gh.Repository(ctx, owner, repo)
	if err != nil {
		o.Console.Warningf("could not load details of %s/%s: %v", owner, repo, err)
		return d
	}
	d.Description = info.Description
	d.Language = info.Language
	return d
}

func printAnswer(cmd *cobra.Command, answer string) {
	fmt.Fprintln(cmd.OutOrStdout(), answer)
}

func newAskRepoCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "repo OWNER/REPO QUESTION...",
		Short: "Ask about a repository",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			owner, repo, err := remote.ParseRepository(args[0])
			if err != nil {
				return err
			}
			client, err := o.Assist(ctx)
			if err != nil {
				return err
			}

			answer, err := client.QueryRepository(ctx, repositoryDetails(ctx, o, owner, repo), strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			printAnswer(cmd, answer)
			return nil
		},
	}
}

func newAskCodeCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "code FILE|URL QUESTION...",
		Short: "Ask about a local file or a file's download url",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := o.Assist(ctx)
			if err != nil {
				return err
			}

			var code []byte
			if strings.HasPrefix(args[0], "http://") || strings.HasPrefix(args[0], "https://") {
				src, err := o.Source(ctx)
				if err != nil {
					return err
				}
				code, err = src.FetchContent(ctx, args[0])
				if err != nil {
					return err
				}
			} else {
				code, err = os.ReadFile(args[0])
				if err != nil {
					return errors.Errorf("reading %s: %w", args[0], err)
				}
			}

			answer, err := client.QueryCode(ctx, string(code), strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			printAnswer(cmd, answer)
			return nil
		},
	}
}

func newAskDocsCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "docs OWNER/REPO",
		Short: "Draft documentation from a repository's root listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			owner, repo, err := remote.ParseRepository(args[0])
			if err != nil {
				return err
			}
			client, err := o.Assist(ctx)
			if err != nil {
				return err
			}
			src, err := o.Source(ctx)
			if err != nil {
				return err
			}

			entries, err := o.Materializer(src).FetchRootListing(ctx, owner, repo)
			if err != nil {
				return err
			}
			paths := make([]string, 0, len(entries))
			for _, e := range entries {
				paths = append(paths, e.Path)
			}

			doc, err := client.GenerateDocumentation(ctx, repositoryDetails(ctx, o, owner, repo), paths)
			if err != nil {
				return err
			}
			printAnswer(cmd, doc)
			return nil
		},
	}
}

func newAskHistoryCmd(o *opts.RootOpts) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently answered questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := o.Store(ctx)
			if err != nil {
				return err
			}
			queries, err := s.RecentQueries(ctx, limit)
			if err != nil {
				return err
			}

			data := pterm.TableData{{"When", "Kind", "Question"}}
			for _, q := range queries {
				data = append(data, []string{q.CreatedAt.Local().Format("2006-01-02 15:04"), q.Kind, q.Query})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(cmd.OutOrStdout()).Render(); err != nil {
				return errors.Errorf("rendering table: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of questions to list")
	return cmd
}
