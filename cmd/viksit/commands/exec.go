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
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/walteh/viksit/cmd/viksit/opts"
	"github.com/walteh/viksit/pkg/execute"
	"gitlab.com/tozd/go/errors"
)

// NewExecCmd creates the exec command
func NewExecCmd(o *opts.RootOpts) *cobra.Command {
	var (
		language    string
		version     string
		stdin       string
		compileOnly bool
	)

	cmd := &cobra.Command{
		Use:   "exec FILE",
		Short: "Run a source file in the remote sandbox",
		Long: `Exec sends FILE to the code execution service and prints its output.
The language is taken from the file extension unless --language is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			script, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Errorf("reading %s: %w", args[0], err)
			}

			if language == "" {
				l, err := execute.LanguageForFile(filepath.Base(args[0]))
				if err != nil {
					return err
				}
				language = l.ID
			} else if _, ok := execute.LookupLanguage(language); !ok {
				return errors.Errorf("%w: %s", execute.ErrUnknownLanguage, language)
			}

			client, err := o.Execute()
			if err != nil {
				return err
			}

			result, err := client.Execute(ctx, execute.Request{
				Script:       string(script),
				Language:     language,
				VersionIndex: version,
				Stdin:        stdin,
				CompileOnly:  compileOnly,
			})
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), result.Output)
			o.Console.Infof("%s • cpu %ss • memory %s KB", language, result.CPUTime, result.Memory)
			if result.Error != "" {
				return errors.Errorf("execution reported: %s", result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "sandbox language id, e.g. python3")
	cmd.Flags().StringVar(&version, "version", "", "sandbox version index, defaults per language")
	cmd.Flags().StringVar(&stdin, "stdin", "", "input passed to the program")
	cmd.Flags().BoolVar(&compileOnly, "compile-only", false, "compile without running")
	return cmd
}
