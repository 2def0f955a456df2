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
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/walteh/viksit/cmd/viksit/opts"
	"github.com/walteh/viksit/pkg/log"
)

// NewChatCmd creates the chat command
func NewChatCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Read and post community chat messages",
	}

	var author string
	post := &cobra.Command{
		Use:   "post MESSAGE...",
		Short: "Post a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			room, err := o.Room(ctx)
			if err != nil {
				return err
			}
			m, err := room.Post(ctx, author, strings.Join(args, " "))
			if err != nil {
				return err
			}
			o.UserLogger.LogChange(log.Change{Type: log.ChangeSaved, Subject: "message", Description: m.ID})
			return nil
		},
	}
	post.Flags().StringVarP(&author, "author", "a", "", "author, usually an email address")
	_ = post.MarkFlagRequired("author")

	var limit int
	history := &cobra.Command{
		Use:   "history",
		Short: "Print the latest messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			room, err := o.Room(ctx)
			if err != nil {
				return err
			}
			msgs, err := room.History(ctx, limit)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
					color.New(color.Faint).Sprint(m.CreatedAt.Local().Format("Jan 02 15:04")),
					color.New(color.Bold, color.FgCyan).Sprint(m.DisplayName+":"),
					m.Text)
			}
			return nil
		},
	}
	history.Flags().IntVarP(&limit, "limit", "n", 50, "number of messages")

	cmd.AddCommand(post, history)
	return cmd
}
