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

// Package server exposes repository browsing, tree materialization and the
// assistant tools over a JSON HTTP API.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"
	"github.com/walteh/viksit/pkg/assist"
	"github.com/walteh/viksit/pkg/chat"
	"github.com/walteh/viksit/pkg/execute"
	"github.com/walteh/viksit/pkg/remote"
	"github.com/walteh/viksit/pkg/remote/github"
	"github.com/walteh/viksit/pkg/translate"
	"github.com/walteh/viksit/pkg/tree"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultSession is used when a request names no session
const DefaultSession = "default"

const shutdownTimeout = 10 * time.Second

const chatStreamPath = "/api/chat/stream"

// 🐙 Repositories answers account and repository metadata questions
type Repositories interface {
	ListRepositories(ctx context.Context, user string) ([]github.Repository, error)
	Repository(ctx context.Context, owner, repo string) (*github.Info, error)
}

// Options wires the server to its collaborators. Nil tools answer 503.
type Options struct {
	Address      string
	Source       remote.Source
	Repositories Repositories
	Materializer *tree.Materializer
	DefaultMode  tree.Mode
	Assist       *assist.Client
	Execute      *execute.Client
	Translate    *translate.Client
	Room         *chat.Room
	Logger       zerolog.Logger
}

// 🛰️ Server is the HTTP API
type Server struct {
	opts   Options
	router *http.ServeMux
	server *http.Server

	mu       sync.Mutex
	sessions map[string]*tree.Session
}

// New creates a server; nothing listens until Run
func New(opts Options) *Server {
	s := &Server{
		opts:     opts,
		router:   http.NewServeMux(),
		sessions: map[string]*tree.Session{},
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:              opts.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return opts.Logger.WithContext(context.Background())
		},
	}
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("GET /api/repositories/{user}/{$}", s.handleRepositories)
	s.router.HandleFunc("GET /api/repositories/{user}", s.handleRepositories)
	s.router.HandleFunc("GET /api/repo-structure/{user}/{repo}/{$}", s.handleRepoStructure)
	s.router.HandleFunc("GET /api/repo-structure/{user}/{repo}", s.handleRepoStructure)
	s.router.HandleFunc("GET /api/listing/{owner}/{repo}", s.handleListing)
	s.router.HandleFunc("GET /api/repo-info/{user}/{repo}/{$}", s.handleRepoInfo)
	s.router.HandleFunc("GET /api/repo-info/{user}/{repo}", s.handleRepoInfo)
	s.router.HandleFunc("GET /api/file", s.handleFile)

	s.router.HandleFunc("POST /api/tree/{owner}/{repo}", s.handleSelect)
	s.router.HandleFunc("POST /api/tree/expand", s.handleExpand)
	s.router.HandleFunc("GET /api/tree", s.handleCurrentTree)

	s.router.HandleFunc("POST /api/query-repository/{$}", s.handleQueryRepository)
	s.router.HandleFunc("POST /api/query-code/{$}", s.handleQueryCode)
	s.router.HandleFunc("POST /api/generate-documentation/{$}", s.handleGenerateDocumentation)
	s.router.HandleFunc("POST /api/execute-code/{$}", s.handleExecute)
	s.router.HandleFunc("POST /api/translate/{$}", s.handleTranslate)
	s.router.HandleFunc("POST /api/text-to-speech/{$}", s.handleTextToSpeech)
	s.router.HandleFunc("GET /api/languages", s.handleLanguages)

	s.router.HandleFunc("GET /api/chat/messages", s.handleChatHistory)
	s.router.HandleFunc("POST /api/chat/messages", s.handleChatPost)
	s.router.HandleFunc("GET "+chatStreamPath, s.handleChatStream)
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.router
	handler = recoveryMiddleware(handler)
	handler = loggingMiddleware(s.opts.Logger)(handler)
	handler = requestIDMiddleware(handler)
	handler = corsMiddleware(handler)

	// gzhttp buffers until it has enough bytes to decide on compression,
	// which would hold event streams back indefinitely
	outer := http.NewServeMux()
	outer.Handle("GET "+chatStreamPath, handler)
	outer.Handle("/", gzhttp.GzipHandler(handler))
	return outer
}

// 🚀 Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", s.opts.Address).Msg("starting http server")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Errorf("serving http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return errors.Errorf("shutting down http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// session returns the tree session called name, creating it on first use
func (s *Server) session(name string) *tree.Session {
	if name == "" {
		name = DefaultSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[name]
	if !ok {
		sess = tree.NewSession(s.opts.Materializer)
		s.sessions[name] = sess
	}
	return sess
}
