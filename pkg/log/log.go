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
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/walteh/viksit/pkg/tree"
)

// 🎨 Display configuration
const (
	dirIndent    = 4  // spaces to indent directory entries
	pathWidth    = 40 // width for directory path
	childWidth   = 12 // width for child count
	statusWidth  = 15 // width for status text
	rootDisplay  = "/"
	statusOK     = "expanded"
	statusFailed = "failed"
)

// 📂 DirectoryOperation is one directory expansion reported during a walk
type DirectoryOperation struct {
	Path     string // directory path, empty for the root
	Children int    // number of direct children attached
	Err      error  // fetch failure, if any
}

// 🌳 WalkOperation describes a materialization walk
type WalkOperation struct {
	Owner string
	Repo  string
	Mode  string // lazy or eager
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
	current *WalkOperation
	dirs    []DirectoryOperation
}

var _ tree.Observer = (*Logger)(nil)

// 🏭 New creates a new logger
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

func (l *Logger) formatDirectory(op DirectoryOperation) string {
	path := op.Path
	if path == tree.RootPath {
		path = rootDisplay
	}

	symbol, symbolColor, status := '✓', color.FgGreen, statusOK
	children := fmt.Sprintf("%d items", op.Children)
	if op.Err != nil {
		symbol, symbolColor, status = '✗', color.FgRed, statusFailed
		children = "-"
	}

	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", dirIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", pathWidth, path),
		color.New(color.FgCyan).Sprint(fmt.Sprintf("%-*s", childWidth, children)),
		fmt.Sprintf("%-*s", statusWidth, status))
}

// 📝 LogDirectory logs one directory expansion. It counts toward the
// summary only while a walk is started.
func (l *Logger) LogDirectory(ctx context.Context, op DirectoryOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current != nil {
		l.dirs = append(l.dirs, op)
	}

	fmt.Fprintln(l.console, l.formatDirectory(op))

	ev := l.zlog.Info()
	if op.Err != nil {
		ev = l.zlog.Warn().Err(op.Err)
	}
	ev.Str("path", op.Path).
		Int("children", op.Children).
		Msg("directory expansion")
}

// DirectoryExpanded reports a successful expansion
func (l *Logger) DirectoryExpanded(ctx context.Context, _ *tree.Tree, path string, children int) {
	l.LogDirectory(ctx, DirectoryOperation{Path: path, Children: children})
}

// DirectoryFailed reports a failed expansion
func (l *Logger) DirectoryFailed(ctx context.Context, _ *tree.Tree, path string, err error) {
	l.LogDirectory(ctx, DirectoryOperation{Path: path, Err: err})
}

// 📝 StartWalk starts a new walk
func (l *Logger) StartWalk(ctx context.Context, op WalkOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.current = &op
	l.dirs = nil

	fmt.Fprintf(l.console, "[walking %s]\n",
		color.New(color.FgCyan).Sprint(op.Owner+"/"+op.Repo))

	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(op.Repo),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprint(op.Mode))

	l.zlog.Info().
		Str("owner", op.Owner).
		Str("repo", op.Repo).
		Str("mode", op.Mode).
		Msg("starting walk")
}

// 📝 EndWalk ends the current walk and returns how many directories
// expanded and failed
func (l *Logger) EndWalk(ctx context.Context) (expanded, failed int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return 0, 0
	}

	for _, d := range l.dirs {
		if d.Err != nil {
			failed++
		} else {
			expanded++
		}
	}

	l.zlog.Info().
		Str("repo", l.current.Owner+"/"+l.current.Repo).
		Int("expanded", expanded).
		Int("failed", failed).
		Msg("walk complete")

	l.current = nil
	l.dirs = nil
	return expanded, failed
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("viksit")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warningf(format string, args ...any) {
	l.Warning(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Successf(format string, args ...any) {
	l.Success(fmt.Sprintf(format, args...))
}
