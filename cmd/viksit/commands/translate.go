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
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/walteh/viksit/cmd/viksit/opts"
	"github.com/walteh/viksit/pkg/log"
	"github.com/walteh/viksit/pkg/render"
	"github.com/walteh/viksit/pkg/translate"
	"gitlab.com/tozd/go/errors"
)

// NewTranslateCmd creates the translate command
func NewTranslateCmd(o *opts.RootOpts) *cobra.Command {
	var (
		to      string
		from    string
		speak   string
		speaker string
	)

	cmd := &cobra.Command{
		Use:   "translate TEXT...",
		Short: "Translate text into an Indian language",
		Long: `Translate prints TEXT translated into --to. With --speak FILE the
translation is also synthesized and the audio written to FILE.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := o.Translate()
			if err != nil {
				return err
			}

			out, err := client.Translate(ctx, strings.Join(args, " "), from, to)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Text)

			if speak == "" {
				return nil
			}
			audio, err := client.Speak(ctx, out.Text, to, speaker)
			if err != nil {
				return err
			}
			if err := os.WriteFile(speak, audio, 0o644); err != nil {
				return errors.Errorf("writing audio: %w", err)
			}
			o.UserLogger.LogChange(log.Change{Type: log.ChangeSaved, Subject: speak, Description: render.FormatSize(int64(len(audio)))})
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "hi-IN", "target language code")
	cmd.Flags().StringVar(&from, "from", translate.AutoDetect, "source language code")
	cmd.Flags().StringVar(&speak, "speak", "", "also write speech audio to this file")
	cmd.Flags().StringVar(&speaker, "speaker", translate.DefaultSpeaker, "voice used with --speak")
	return cmd
}
