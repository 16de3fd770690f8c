// Package state holds the single source of truth for everything the
// dashboard renders. The Store is constructed once, passed by reference to
// the bridge and the TUI, and mutated only through its methods; every
// mutation is atomic and is visible to subscribers before the call returns.
package state

import (
	"sync"

	"github.com/calldeck/calldeck/internal/api"
)

// Speaker identifies who produced a transcript entry.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerSystem    Speaker = "system"
)

// ValidSpeaker reports whether s is one of the three known speakers.
func ValidSpeaker(s Speaker) bool {
	return s == SpeakerUser || s == SpeakerAssistant || s == SpeakerSystem
}

// Session is the credential set for one room membership. It is replaced
// wholesale on connect and cleared wholesale on disconnect, never partially
// mutated.
type Session struct {
	ConnectionURL string
	Token         string
	Identity      string
	RoomName      string
	CallerPhone   string
}

// TranscriptEntry is one finalized transcript line.
type TranscriptEntry struct {
	Speaker   Speaker
	Text      string
	Timestamp float64 // seconds since epoch
	ItemID    string
}

// ToolEvent is one tool invocation reported over the side channel.
type ToolEvent struct {
	Name      string
	Arguments map[string]any
	Output    any
	Timestamp float64
	CallID    string
}

// Snapshot is a consistent copy of the store, safe to read without holding
// any lock and never showing a partial update.
type Snapshot struct {
	Session    Session
	Connecting bool
	Endpoint   string
	Transcript []TranscriptEntry
	ToolEvents []ToolEvent
	Summary    *api.SummaryRecord
}

// Connected reports whether a session is active: credential and connection
// URL jointly present.
func (s Snapshot) Connected() bool {
	return s.Session.Token != "" && s.Session.ConnectionURL != ""
}

// Store owns the session record, the connection flags and the three
// session-scoped values (transcript log, tool timeline, summary).
type Store struct {
	mu         sync.Mutex
	session    Session
	connecting bool
	endpoint   string
	transcript []TranscriptEntry
	toolEvents []ToolEvent
	summary    *api.SummaryRecord
	listeners  []func()
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Subscribe registers a listener invoked synchronously inside every mutation,
// before the mutating call returns. Listeners must not call back into the
// store.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// SetEndpoint records the realtime transport endpoint discovered via config.
// It touches no other field.
func (s *Store) SetEndpoint(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoint = url
	s.notify()
}

// BeginConnecting flags a connect attempt in progress. Idempotent.
func (s *Store) BeginConnecting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connecting = true
	s.notify()
}

// SetSession replaces the session wholesale, clears the connecting flag and
// atomically resets the three session-scoped values. This is the only
// mutation that clears the logs as a side effect.
func (s *Store) SetSession(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
	s.connecting = false
	s.transcript = nil
	s.toolEvents = nil
	s.summary = nil
	s.notify()
}

// ClearSession empties the session, clears the connecting flag and resets the
// session-scoped values. Used on disconnect and on connect failure.
func (s *Store) ClearSession() {
	s.SetSession(Session{})
}

// AppendTranscript appends one entry; existing entries are never touched.
func (s *Store) AppendTranscript(entry TranscriptEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, entry)
	s.notify()
}

// AppendToolEvent appends one tool event.
func (s *Store) AppendToolEvent(ev ToolEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolEvents = append(s.toolEvents, ev)
	s.notify()
}

// SetSummary replaces the summary wholesale. Nil clears it.
func (s *Store) SetSummary(record *api.SummaryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = record
	s.notify()
}

// Snapshot returns a consistent copy of the current state. The logs are
// copied so later appends never show through; the summary is copied by value
// for the same reason.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Session:    s.session,
		Connecting: s.connecting,
		Endpoint:   s.endpoint,
	}
	if len(s.transcript) > 0 {
		snap.Transcript = make([]TranscriptEntry, len(s.transcript))
		copy(snap.Transcript, s.transcript)
	}
	if len(s.toolEvents) > 0 {
		snap.ToolEvents = make([]ToolEvent, len(s.toolEvents))
		copy(snap.ToolEvents, s.toolEvents)
	}
	if s.summary != nil {
		cp := *s.summary
		snap.Summary = &cp
	}
	return snap
}

// notify runs under s.mu so every listener observes the mutation it was
// woken for.
func (s *Store) notify() {
	for _, fn := range s.listeners {
		fn()
	}
}
