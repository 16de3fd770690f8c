package bridge

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/calldeck/calldeck/internal/logger"
	"github.com/calldeck/calldeck/internal/room"
	"github.com/calldeck/calldeck/internal/state"
)

// fakeMembership delivers events synchronously to registered handlers and
// counts cancellations.
type fakeMembership struct {
	identity   string
	segFn      func(room.Segment)
	dataFn     func(room.DataPacket)
	segCancels int
	dataCancel int
}

func (f *fakeMembership) LocalIdentity() string { return f.identity }

func (f *fakeMembership) OnSegment(fn func(room.Segment)) func() {
	f.segFn = fn
	return func() { f.segCancels++ }
}

func (f *fakeMembership) OnData(fn func(room.DataPacket)) func() {
	f.dataFn = fn
	return func() { f.dataCancel++ }
}

func (f *fakeMembership) Close() error { return nil }

func newHarness(identity string) (*fakeMembership, *state.Store, *Attachment) {
	m := &fakeMembership{identity: identity}
	store := state.NewStore()
	a := Attach(m, store, logger.Discard())
	return m, store, a
}

func packet(topic string, body any) room.DataPacket {
	data, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return room.DataPacket{Topic: topic, Payload: data}
}

func TestSegmentSpeakerClassification(t *testing.T) {
	m, store, _ := newHarness("local-id")

	m.segFn(room.Segment{ID: "s1", Text: "hello", ParticipantIdentity: "local-id"})
	m.segFn(room.Segment{ID: "s2", Text: "hi there", ParticipantIdentity: "agent-77"})

	snap := store.Snapshot()
	if len(snap.Transcript) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(snap.Transcript))
	}
	if snap.Transcript[0].Speaker != state.SpeakerUser {
		t.Errorf("local identity should classify as user, got %q", snap.Transcript[0].Speaker)
	}
	if snap.Transcript[1].Speaker != state.SpeakerAssistant {
		t.Errorf("remote identity should classify as assistant, got %q", snap.Transcript[1].Speaker)
	}
}

func TestSegmentEmptyTextSuppressed(t *testing.T) {
	m, store, _ := newHarness("local-id")

	m.segFn(room.Segment{ID: "s1", ParticipantIdentity: "local-id"})

	if n := len(store.Snapshot().Transcript); n != 0 {
		t.Errorf("empty segment produced %d entries, want 0", n)
	}
}

func TestSegmentDefaults(t *testing.T) {
	m, store, _ := newHarness("local-id")

	m.segFn(room.Segment{Text: "no id, no start time"})

	snap := store.Snapshot()
	if len(snap.Transcript) != 1 {
		t.Fatal("expected one entry")
	}
	e := snap.Transcript[0]
	if e.ItemID == "" {
		t.Error("missing segment id should get a generated item id")
	}
	if e.Timestamp == 0 {
		t.Error("missing start time should default to now")
	}
}

func TestSegmentStartTimeAndIDPassthrough(t *testing.T) {
	m, store, _ := newHarness("local-id")

	m.segFn(room.Segment{ID: "seg-9", Text: "x", StartTime: 1725000000.5})

	e := store.Snapshot().Transcript[0]
	if e.ItemID != "seg-9" {
		t.Errorf("ItemID = %q, want seg-9", e.ItemID)
	}
	if e.Timestamp != 1725000000.5 {
		t.Errorf("Timestamp = %v, want 1725000000.5", e.Timestamp)
	}
}

func TestTopicFiltering(t *testing.T) {
	m, store, _ := newHarness("local-id")

	m.dataFn(packet("other.thing", map[string]any{"type": "transcript", "text": "ignored"}))
	m.dataFn(packet("", map[string]any{"type": "tool", "name": "ignored"}))
	m.dataFn(packet("apple.transcript", map[string]any{"type": "transcript", "text": "ignored"}))

	snap := store.Snapshot()
	if len(snap.Transcript) != 0 || len(snap.ToolEvents) != 0 {
		t.Error("payloads outside the app. namespace must never mutate the store")
	}
}

func TestMalformedJSONSwallowed(t *testing.T) {
	m, store, _ := newHarness("local-id")

	// Must not panic and must not mutate.
	m.dataFn(room.DataPacket{Topic: "app.transcript", Payload: []byte("{not json")})
	m.dataFn(room.DataPacket{Topic: "app.timeline", Payload: []byte{0xff, 0xfe}})

	snap := store.Snapshot()
	if len(snap.Transcript) != 0 || len(snap.ToolEvents) != 0 {
		t.Error("malformed payloads must not mutate the store")
	}
}

func TestUnknownTypeIgnored(t *testing.T) {
	m, store, _ := newHarness("local-id")

	m.dataFn(packet("app.transcript", map[string]any{"type": "metrics", "value": 3}))
	m.dataFn(packet("app.transcript", map[string]any{"text": "no type at all"}))

	snap := store.Snapshot()
	if len(snap.Transcript) != 0 || len(snap.ToolEvents) != 0 {
		t.Error("unknown or missing type must be silently ignored")
	}
}

func TestDataTranscriptDispatch(t *testing.T) {
	m, store, _ := newHarness("local-id")

	m.dataFn(packet("app.transcript", map[string]any{
		"type":      "transcript",
		"speaker":   "user",
		"text":      "I need an appointment",
		"timestamp": 1725000001.0,
		"item_id":   "item-1",
	}))

	snap := store.Snapshot()
	if len(snap.Transcript) != 1 {
		t.Fatal("expected one transcript entry")
	}
	e := snap.Transcript[0]
	if e.Speaker != state.SpeakerUser || e.Text != "I need an appointment" ||
		e.Timestamp != 1725000001.0 || e.ItemID != "item-1" {
		t.Errorf("entry = %+v", e)
	}
}

func TestDataTranscriptDefaults(t *testing.T) {
	m, store, _ := newHarness("local-id")

	m.dataFn(packet("app.transcript", map[string]any{
		"type":    "transcript",
		"speaker": "narrator", // invalid
	}))

	snap := store.Snapshot()
	if len(snap.Transcript) != 1 {
		t.Fatal("expected one entry")
	}
	e := snap.Transcript[0]
	if e.Speaker != state.SpeakerAssistant {
		t.Errorf("invalid speaker should default to assistant, got %q", e.Speaker)
	}
	if e.ItemID == "" {
		t.Error("missing item_id should get a generated token")
	}
	if e.Timestamp == 0 {
		t.Error("missing timestamp should default to now")
	}
}

// A side-channel transcript with empty text still appends. The segment path
// suppresses empty text; the two paths are deliberately asymmetric.
func TestDataTranscriptEmptyTextStillAppends(t *testing.T) {
	m, store, _ := newHarness("local-id")

	m.dataFn(packet("app.transcript", map[string]any{"type": "transcript"}))

	snap := store.Snapshot()
	if len(snap.Transcript) != 1 {
		t.Fatalf("empty-text side-channel transcript should append, got %d entries", len(snap.Transcript))
	}
	if snap.Transcript[0].Text != "" {
		t.Errorf("text = %q, want empty", snap.Transcript[0].Text)
	}
}

func TestDataToolDispatch(t *testing.T) {
	m, store, _ := newHarness("local-id")

	m.dataFn(packet("app.timeline", map[string]any{
		"type":      "tool",
		"name":      "book_appointment",
		"arguments": map[string]any{"slot": "10:00"},
		"call_id":   "c1",
	}))

	snap := store.Snapshot()
	if len(snap.ToolEvents) != 1 {
		t.Fatal("expected one tool event")
	}
	ev := snap.ToolEvents[0]
	if ev.Name != "book_appointment" {
		t.Errorf("Name = %q", ev.Name)
	}
	if ev.Arguments["slot"] != "10:00" {
		t.Errorf("Arguments = %v", ev.Arguments)
	}
	if ev.CallID != "c1" {
		t.Errorf("CallID = %q", ev.CallID)
	}
	if ev.Output != nil {
		t.Errorf("Output should be absent, got %v", ev.Output)
	}
}

func TestDataToolOutputPassthrough(t *testing.T) {
	m, store, _ := newHarness("local-id")

	m.dataFn(packet("app.timeline", map[string]any{
		"type":   "tool",
		"name":   "fetch_slots",
		"output": []any{map[string]any{"start_time": "10:00"}},
	}))

	ev := store.Snapshot().ToolEvents[0]
	out, ok := ev.Output.([]any)
	if !ok || len(out) != 1 {
		t.Fatalf("Output = %#v", ev.Output)
	}
	if ev.Arguments == nil || len(ev.Arguments) != 0 {
		t.Errorf("missing arguments should default to an empty map, got %#v", ev.Arguments)
	}
	if ev.Timestamp == 0 {
		t.Error("missing timestamp should default to now")
	}
}

func TestDataToolMissingNameStillAppends(t *testing.T) {
	m, store, _ := newHarness("local-id")

	m.dataFn(packet("app.timeline", map[string]any{"type": "tool"}))

	snap := store.Snapshot()
	if len(snap.ToolEvents) != 1 {
		t.Fatal("nameless tool event should still append")
	}
	if snap.ToolEvents[0].Name != "" {
		t.Errorf("Name = %q, want empty", snap.ToolEvents[0].Name)
	}
}

func TestDuplicateCallIDProducesTwoEntries(t *testing.T) {
	m, store, _ := newHarness("local-id")

	body := map[string]any{"type": "tool", "name": "identify_user", "call_id": "dup"}
	m.dataFn(packet("app.timeline", body))
	m.dataFn(packet("app.timeline", body))

	if n := len(store.Snapshot().ToolEvents); n != 2 {
		t.Errorf("duplicate delivery should produce two entries, got %d", n)
	}
}

func TestDetachReleasesBothSubscriptionsOnce(t *testing.T) {
	m, _, a := newHarness("local-id")

	a.Detach()
	a.Detach()
	a.Detach()

	if m.segCancels != 1 {
		t.Errorf("segment cancel called %d times, want 1", m.segCancels)
	}
	if m.dataCancel != 1 {
		t.Errorf("data cancel called %d times, want 1", m.dataCancel)
	}
}

func TestStragglerAfterDetachIsSuppressed(t *testing.T) {
	m, store, a := newHarness("local-id")

	a.Detach()

	// The fake never unregisters, standing in for a transport that delivers
	// one more event after teardown.
	m.segFn(room.Segment{ID: "late", Text: "straggler"})
	m.dataFn(packet("app.timeline", map[string]any{"type": "tool", "name": "late_tool"}))

	snap := store.Snapshot()
	if len(snap.Transcript) != 0 || len(snap.ToolEvents) != 0 {
		t.Error("events delivered after Detach must never mutate the store")
	}
}

func TestArrivalOrderPreserved(t *testing.T) {
	m, store, _ := newHarness("local-id")

	for i := 0; i < 10; i++ {
		m.dataFn(packet("app.transcript", map[string]any{
			"type":    "transcript",
			"text":    fmt.Sprintf("line %d", i),
			"item_id": fmt.Sprintf("i-%d", i),
		}))
	}

	snap := store.Snapshot()
	if len(snap.Transcript) != 10 {
		t.Fatalf("length = %d", len(snap.Transcript))
	}
	for i, e := range snap.Transcript {
		if e.ItemID != fmt.Sprintf("i-%d", i) {
			t.Fatalf("entry %d out of order: %q", i, e.ItemID)
		}
	}
}
