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

package log

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

// 📢 UserLogger gives short human feedback for CLI commands
type UserLogger struct {
	log zerolog.Logger
}

// 🎨 ChangeType is the kind of event being reported
type ChangeType int

const (
	ChangeSelected ChangeType = iota
	ChangeExpanded
	ChangeSaved
	ChangeSkipped
	ChangeFailed
)

// 🖼️ Change is one user visible event
type Change struct {
	Type        ChangeType
	Subject     string
	Description string
	Error       error
}

// 🎯 NewUserLogger creates a user logger that mirrors to the context logger
func NewUserLogger(ctx context.Context) *UserLogger {
	return &UserLogger{
		log: *zerolog.Ctx(ctx),
	}
}

// Message renders a change the way LogChange prints it
func (c Change) Message() string {
	var action string
	switch c.Type {
	case ChangeSelected:
		action = "Selected"
	case ChangeExpanded:
		action = "Expanded"
	case ChangeSaved:
		action = "Saved"
	case ChangeSkipped:
		action = "Skipped"
	case ChangeFailed:
		action = "Failed"
	}

	msg := fmt.Sprintf("%s %s", action, c.Subject)
	if c.Description != "" {
		msg += fmt.Sprintf(" (%s)", c.Description)
	}
	return msg
}

// 📝 LogChange prints a change with its emoji prefix
func (u *UserLogger) LogChange(change Change) {
	var printer *pterm.PrefixPrinter
	switch change.Type {
	case ChangeSelected:
		printer = pterm.Info.WithPrefix(pterm.Prefix{Text: "📦"})
	case ChangeExpanded:
		printer = pterm.Success.WithPrefix(pterm.Prefix{Text: "🌳"})
	case ChangeSaved:
		printer = pterm.Success.WithPrefix(pterm.Prefix{Text: "✨"})
	case ChangeSkipped:
		printer = pterm.Debug.WithPrefix(pterm.Prefix{Text: "⏭️"})
	default:
		printer = pterm.Error.WithPrefix(pterm.Prefix{Text: "❌"})
	}

	msg := change.Message()
	printer.Println(msg)
	if change.Error != nil {
		pterm.Error.Println(change.Error)
		u.log.Error().Err(change.Error).Msg(msg)
		return
	}
	u.log.Info().Msg(msg)
}

// 🔍 LogResult reports the outcome of a command
func (u *UserLogger) LogResult(ok bool, description string, err error) {
	switch {
	case ok:
		pterm.Success.WithPrefix(pterm.Prefix{Text: "✅"}).Println(description)
		u.log.Info().Msg(description)
	case err != nil:
		pterm.Error.WithPrefix(pterm.Prefix{Text: "❌"}).Println(description)
		pterm.Error.Println(err)
		u.log.Error().Err(err).Msg(description)
	default:
		pterm.Warning.WithPrefix(pterm.Prefix{Text: "⚠️"}).Println(description)
		u.log.Warn().Msg(description)
	}
}
