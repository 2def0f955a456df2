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

package tree_test

import (
	"context"
	"sync"

	"github.com/walteh/viksit/pkg/remote"
)

// fakeLister serves canned listings and counts calls per path
type fakeLister struct {
	mu       sync.Mutex
	listings map[string][]remote.Entry
	failures map[string]error
	calls    map[string]int
	contexts []context.Context

	// gates block a path until closed; honorCtx lets a cancelled context
	// unblock it early
	gates    map[string]chan struct{}
	started  map[string]chan struct{}
	honorCtx bool
}

func newFakeLister(listings map[string][]remote.Entry) *fakeLister {
	return &fakeLister{
		listings: listings,
		failures: map[string]error{},
		calls:    map[string]int{},
		gates:    map[string]chan struct{}{},
		started:  map[string]chan struct{}{},
	}
}

// gate blocks List for path until the returned release func is called.
// The started channel closes once List has been entered.
func (f *fakeLister) gate(path string) (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	s := make(chan struct{})
	f.gates[path] = g
	f.started[path] = s
	var once sync.Once
	return s, func() { once.Do(func() { close(g) }) }
}

func (f *fakeLister) List(ctx context.Context, owner, repo, path string) ([]remote.Entry, error) {
	key := owner + "/" + repo + ":" + path

	f.mu.Lock()
	f.calls[key]++
	f.contexts = append(f.contexts, ctx)
	gate := f.gates[key]
	started := f.started[key]
	f.mu.Unlock()

	if gate != nil {
		close(started)
		if f.honorCtx {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, &remote.FetchError{Op: "listing", Path: path, Err: ctx.Err()}
			}
		} else {
			<-gate
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[key]; ok {
		return nil, err
	}
	entries, ok := f.listings[key]
	if !ok {
		return nil, &remote.FetchError{Op: "listing", Path: path, StatusCode: 404}
	}
	return entries, nil
}

func (f *fakeLister) seenContexts() []context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]context.Context(nil), f.contexts...)
}

func (f *fakeLister) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeLister) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func dir(path string) remote.Entry {
	return remote.Entry{Name: base(path), Path: path, Type: remote.EntryTypeDir, URL: "https://api.example.com/contents/" + path}
}

func file(path string, size int64) remote.Entry {
	return remote.Entry{Name: base(path), Path: path, Type: remote.EntryTypeFile, Size: size, DownloadURL: "https://raw.example.com/" + path}
}

func base(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// sampleRepo is acme/widget:
//
//	src/
//	  index.js
//	  lib/
//	    util.js
//	docs/
//	README.md
func sampleRepo() map[string][]remote.Entry {
	return map[string][]remote.Entry{
		"acme/widget:":        {dir("src"), dir("docs"), file("README.md", 120)},
		"acme/widget:src":     {file("src/index.js", 42), dir("src/lib")},
		"acme/widget:src/lib": {file("src/lib/util.js", 7)},
		"acme/widget:docs":    {},
	}
}
