// Package state holds the server's whole-workspace snapshot and
// computes the diagnostic publish/clear deltas between snapshots, per
// spec.md §4.8 and §5's single-writer state-cell model.
package state

import (
	"errors"
	"sort"
	"sync"

	"go.lsp.dev/protocol"

	"github.com/wikilsp/wikilsp/internal/workspace/diagnostics"
	"github.com/wikilsp/wikilsp/internal/workspace/folder"
)

// ErrNotInitialized names the not-initialized condition in this package.
// Manager's accessors do not return it: before the first Update, Current
// yields the empty initial State and Initialized reports false.
var ErrNotInitialized = errors.New("state: not initialized")

// State is one immutable snapshot of everything the server needs to
// answer requests and decide what to publish.
type State struct {
	ClientCaps    protocol.ClientCapabilities
	Folders       map[string]*folder.Folder // keyed by Folder.Name
	Revision      uint64
	LastPublished map[string]Published // keyed by document canonical path
	Diagnostics   diagnostics.Options
}

// Published records what was last sent to the client for one document:
// its client-facing URI (so a later clear-on-removal publish doesn't need
// to consult live Folders for a URI the document no longer has) and the
// diagnostic set it was sent with.
type Published struct {
	URI         string
	Diagnostics diagnostics.Set
}

// New returns the empty initial State, matching spec.md §4.8's starting
// condition before any workspace folder is registered.
func New() State {
	return State{
		Folders:       make(map[string]*folder.Folder),
		Revision:      0,
		LastPublished: make(map[string]Published),
		Diagnostics:   diagnostics.DefaultOptions(),
	}
}

// Manager owns the single current State value for a running server.
// Exactly one goroutine (the jsonrpc2 handler task) calls Update; it is
// not safe for concurrent use, matching spec.md §5's single-writer
// discipline, but does guard reads with a mutex so the publish-queue
// goroutine can safely read Current() without racing a handler mutation.
type Manager struct {
	mu          sync.RWMutex
	cur         State
	initialized bool
}

// NewManager returns a Manager seeded with the empty initial State.
func NewManager() *Manager {
	return &Manager{cur: New()}
}

// Update commits next as the manager's current state, bumping its
// revision and diffing diagnostics against what was last published, and
// returns the Publishes the caller must enqueue.
func (m *Manager) Update(next State) []Publish {
	m.mu.Lock()
	defer m.mu.Unlock()
	newState, publishes := Update(m.cur, next)
	m.cur = newState
	m.initialized = true
	return publishes
}

// Current returns the manager's current State. Calling it before the
// first Update still returns the zero-valued initial State (not an
// error); use Initialized to test whether initialize has run.
func (m *Manager) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// Initialized reports whether Update has been called at least once.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// Publish describes one publishDiagnostics notification to send. URI is
// the client-facing URI to publish against, captured at commit time so
// the publish-queue goroutine never needs to consult live Folders (which
// may have already dropped the document by the time delivery runs).
// Diagnostics is the full set the client should now display, replacing
// whatever it had before; nil means "clear".
type Publish struct {
	DocumentKey string
	URI         string
	Diagnostics diagnostics.Set
}

// Update computes the next State from a mutation of cur (a caller
// supplies next with the Folders already mutated, e.g. via
// folder.UpdateDocument) and returns the set of publishes needed to
// bring clients up to date, implementing spec.md §4.8's four-step
// algorithm:
//  1. Bump the revision.
//  2. Recompute diagnostics for every folder in next.
//  3. Diff against cur.LastPublished: any document whose new diagnostic
//     set differs from what was last published is scheduled.
//  4. Any document that was open in cur.LastPublished but no longer
//     exists in next's folders is scheduled with an empty set (clear).
func Update(cur State, next State) (State, []Publish) {
	next.Revision = cur.Revision + 1

	computed := make(map[string]Published)
	for _, f := range next.Folders {
		sets := diagnostics.ComputeWithOptions(f, next.Diagnostics)
		for _, doc := range f.SortedDocuments() {
			key := doc.Path.CanonicalKey()
			computed[key] = Published{URI: doc.Path.URI, Diagnostics: sets[key]}
		}
	}

	var publishes []Publish
	for key, pub := range computed {
		if !pub.Diagnostics.Equal(cur.LastPublished[key].Diagnostics) {
			publishes = append(publishes, Publish{DocumentKey: key, URI: pub.URI, Diagnostics: pub.Diagnostics})
		}
	}
	for key, prev := range cur.LastPublished {
		if _, stillPresent := computed[key]; !stillPresent {
			publishes = append(publishes, Publish{DocumentKey: key, URI: prev.URI, Diagnostics: nil})
		}
	}

	sort.Slice(publishes, func(i, j int) bool { return publishes[i].DocumentKey < publishes[j].DocumentKey })

	next.LastPublished = computed
	return next, publishes
}

// WithFolder returns a copy of s with f registered (or replaced) under
// its Name.
func (s State) WithFolder(f *folder.Folder) State {
	next := s.clone()
	next.Folders[f.Name] = f
	return next
}

// WithoutFolder returns a copy of s with the named folder removed.
func (s State) WithoutFolder(name string) State {
	next := s.clone()
	delete(next.Folders, name)
	return next
}

func (s State) clone() State {
	folders := make(map[string]*folder.Folder, len(s.Folders))
	for k, v := range s.Folders {
		folders[k] = v
	}
	published := make(map[string]Published, len(s.LastPublished))
	for k, v := range s.LastPublished {
		published[k] = v
	}
	return State{ClientCaps: s.ClientCaps, Folders: folders, Revision: s.Revision, LastPublished: published, Diagnostics: s.Diagnostics}
}
