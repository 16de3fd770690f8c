package state

import (
	"fmt"
	"testing"

	"github.com/calldeck/calldeck/internal/api"
)

func demoSession() Session {
	return Session{
		ConnectionURL: "wss://rt.example.com",
		Token:         "tok-1",
		Identity:      "id-1",
		RoomName:      "room-1",
		CallerPhone:   "+15555550123",
	}
}

func TestNewStoreEmpty(t *testing.T) {
	s := NewStore()
	snap := s.Snapshot()

	if snap.Connected() {
		t.Error("new store should not be connected")
	}
	if snap.Connecting {
		t.Error("new store should not be connecting")
	}
	if len(snap.Transcript) != 0 || len(snap.ToolEvents) != 0 {
		t.Error("new store should have empty logs")
	}
	if snap.Summary != nil {
		t.Error("new store should have no summary")
	}
}

func TestConnectedRequiresTokenAndURL(t *testing.T) {
	s := NewStore()

	s.SetSession(Session{Token: "tok-only"})
	if s.Snapshot().Connected() {
		t.Error("token without connection URL must not count as connected")
	}

	s.SetSession(Session{ConnectionURL: "wss://rt"})
	if s.Snapshot().Connected() {
		t.Error("connection URL without token must not count as connected")
	}

	s.SetSession(demoSession())
	if !s.Snapshot().Connected() {
		t.Error("token plus connection URL should be connected")
	}
}

func TestAppendOnlyInOrder(t *testing.T) {
	s := NewStore()
	s.SetSession(demoSession())

	const n = 25
	for i := 0; i < n; i++ {
		s.AppendTranscript(TranscriptEntry{
			Speaker: SpeakerUser,
			Text:    fmt.Sprintf("line %d", i),
			ItemID:  fmt.Sprintf("item-%d", i),
		})
		s.AppendToolEvent(ToolEvent{Name: fmt.Sprintf("tool-%d", i)})
	}

	snap := s.Snapshot()
	if len(snap.Transcript) != n {
		t.Fatalf("transcript length = %d, want %d", len(snap.Transcript), n)
	}
	if len(snap.ToolEvents) != n {
		t.Fatalf("tool event length = %d, want %d", len(snap.ToolEvents), n)
	}
	for i, e := range snap.Transcript {
		if e.ItemID != fmt.Sprintf("item-%d", i) {
			t.Fatalf("transcript[%d].ItemID = %q, arrival order not preserved", i, e.ItemID)
		}
	}
	for i, ev := range snap.ToolEvents {
		if ev.Name != fmt.Sprintf("tool-%d", i) {
			t.Fatalf("toolEvents[%d].Name = %q, arrival order not preserved", i, ev.Name)
		}
	}
}

func TestSetSessionResetsSessionScopedState(t *testing.T) {
	s := NewStore()
	s.SetSession(demoSession())
	s.AppendTranscript(TranscriptEntry{Speaker: SpeakerUser, Text: "hello"})
	s.AppendToolEvent(ToolEvent{Name: "book_appointment"})
	s.SetSummary(&api.SummaryRecord{ID: "sum-1", SummaryText: "old call"})
	s.BeginConnecting()

	next := demoSession()
	next.RoomName = "room-2"
	s.SetSession(next)

	snap := s.Snapshot()
	if snap.Session.RoomName != "room-2" {
		t.Errorf("session not replaced, room = %q", snap.Session.RoomName)
	}
	if snap.Connecting {
		t.Error("SetSession must clear connecting")
	}
	if len(snap.Transcript) != 0 {
		t.Error("SetSession must clear the transcript log")
	}
	if len(snap.ToolEvents) != 0 {
		t.Error("SetSession must clear the tool-event log")
	}
	if snap.Summary != nil {
		t.Error("SetSession must clear the summary")
	}
}

func TestClearSession(t *testing.T) {
	s := NewStore()
	s.SetEndpoint("wss://rt.example.com")
	s.SetSession(demoSession())
	s.AppendTranscript(TranscriptEntry{Speaker: SpeakerAssistant, Text: "hi"})

	s.ClearSession()

	snap := s.Snapshot()
	if snap.Connected() {
		t.Error("cleared store should not be connected")
	}
	if snap.Session != (Session{}) {
		t.Errorf("session should be empty, got %+v", snap.Session)
	}
	if len(snap.Transcript) != 0 {
		t.Error("ClearSession must clear the transcript log")
	}
	if snap.Endpoint != "wss://rt.example.com" {
		t.Error("ClearSession must not touch the config-discovered endpoint")
	}
}

func TestBeginConnectingIdempotent(t *testing.T) {
	s := NewStore()
	s.BeginConnecting()
	s.BeginConnecting()
	if !s.Snapshot().Connecting {
		t.Error("connecting should be set")
	}
}

func TestSetEndpointTouchesNothingElse(t *testing.T) {
	s := NewStore()
	s.SetSession(demoSession())
	s.AppendTranscript(TranscriptEntry{Speaker: SpeakerUser, Text: "hello"})

	s.SetEndpoint("wss://other")

	snap := s.Snapshot()
	if snap.Endpoint != "wss://other" {
		t.Errorf("endpoint = %q", snap.Endpoint)
	}
	if len(snap.Transcript) != 1 || !snap.Connected() {
		t.Error("SetEndpoint must not disturb session or logs")
	}
}

func TestSetSummaryWholesale(t *testing.T) {
	s := NewStore()
	s.SetSummary(&api.SummaryRecord{ID: "a", SummaryText: "first"})
	s.SetSummary(&api.SummaryRecord{ID: "b", SummaryText: "second"})

	snap := s.Snapshot()
	if snap.Summary == nil || snap.Summary.ID != "b" {
		t.Fatalf("summary not replaced wholesale: %+v", snap.Summary)
	}

	s.SetSummary(nil)
	if s.Snapshot().Summary != nil {
		t.Error("nil summary should clear")
	}
}

func TestSubscriberSeesMutationBeforeReturn(t *testing.T) {
	s := NewStore()

	var observed []int
	s.Subscribe(func() {
		// Runs inside the mutation: read the internal length directly since
		// the lock is already held.
		observed = append(observed, len(s.transcript))
	})

	s.AppendTranscript(TranscriptEntry{Speaker: SpeakerUser, Text: "one"})
	s.AppendTranscript(TranscriptEntry{Speaker: SpeakerUser, Text: "two"})

	if len(observed) != 2 {
		t.Fatalf("listener fired %d times, want 2", len(observed))
	}
	if observed[0] != 1 || observed[1] != 2 {
		t.Errorf("listener observed lengths %v, want [1 2]", observed)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore()
	s.AppendTranscript(TranscriptEntry{Speaker: SpeakerUser, Text: "before"})

	snap := s.Snapshot()
	s.AppendTranscript(TranscriptEntry{Speaker: SpeakerUser, Text: "after"})
	s.SetSummary(&api.SummaryRecord{ID: "x"})

	if len(snap.Transcript) != 1 {
		t.Error("later appends must not show through an earlier snapshot")
	}
	if snap.Summary != nil {
		t.Error("later summary must not show through an earlier snapshot")
	}

	// Mutating the snapshot's copy must not reach the store.
	snap.Transcript[0].Text = "tampered"
	if s.Snapshot().Transcript[0].Text != "before" {
		t.Error("snapshot must be a copy, not a view")
	}
}

func TestValidSpeaker(t *testing.T) {
	for _, s := range []Speaker{SpeakerUser, SpeakerAssistant, SpeakerSystem} {
		if !ValidSpeaker(s) {
			t.Errorf("ValidSpeaker(%q) = false", s)
		}
	}
	if ValidSpeaker("narrator") {
		t.Error("unknown speaker should be invalid")
	}
	if ValidSpeaker("") {
		t.Error("empty speaker should be invalid")
	}
}
