// Package bridge translates inbound realtime events into store mutations.
// It holds no state of its own: transcription segments and side-channel
// payloads are parsed, normalized and appended to the store, or dropped with
// a diagnostic when malformed. Dropping is never fatal.
package bridge

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/calldeck/calldeck/internal/room"
	"github.com/calldeck/calldeck/internal/state"
)

// TopicPrefix is the side-channel namespace the bridge listens to. Payloads
// on any other topic are ignored without inspection.
const TopicPrefix = "app."

// Attachment is the paired lifecycle handle for the two subscriptions.
// Detach releases both together, exactly once.
type Attachment struct {
	once          sync.Once
	cancelSegment func()
	cancelData    func()

	mu     sync.Mutex
	closed bool
}

// Attach subscribes the bridge to a room membership's segment and data
// streams, writing normalized entries into store until Detach is called.
func Attach(m room.Membership, store *state.Store, log *logrus.Logger) *Attachment {
	a := &Attachment{}
	local := m.LocalIdentity()

	a.cancelSegment = m.OnSegment(func(seg room.Segment) {
		a.guard(func() { handleSegment(seg, local, store) })
	})
	a.cancelData = m.OnData(func(pkt room.DataPacket) {
		a.guard(func() { handleData(pkt, store, log) })
	})

	return a
}

// Detach cancels both subscriptions and blocks out any straggler event that
// raced with the teardown. Must be called before the store is cleared for
// the next session.
func (a *Attachment) Detach() {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()
		a.cancelSegment()
		a.cancelData()
	})
}

// guard runs fn unless the attachment has been detached. The mutex is held
// across fn so Detach cannot complete while a handler is mid-write.
func (a *Attachment) guard(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	fn()
}

// handleSegment normalizes a structured transcription segment. Empty text is
// discarded silently; this filter is deliberately absent on the side-channel
// transcript path.
func handleSegment(seg room.Segment, localIdentity string, store *state.Store) {
	if seg.Text == "" {
		return
	}

	speaker := state.SpeakerAssistant
	if seg.ParticipantIdentity == localIdentity {
		speaker = state.SpeakerUser
	}

	ts := seg.StartTime
	if ts == 0 {
		ts = nowSeconds()
	}

	itemID := seg.ID
	if itemID == "" {
		itemID = uuid.NewString()
	}

	store.AppendTranscript(state.TranscriptEntry{
		Speaker:   speaker,
		Text:      seg.Text,
		Timestamp: ts,
		ItemID:    itemID,
	})
}

// sidePayload is the discriminated side-channel message. Only the type field is
// required for dispatch; each variant validates its own fields with defaults
// rather than rejection.
type sidePayload struct {
	Type      string          `json:"type"`
	Speaker   string          `json:"speaker"`
	Text      string          `json:"text"`
	Timestamp float64         `json:"timestamp"`
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Arguments map[string]any  `json:"arguments"`
	Output    json.RawMessage `json:"output"`
	CallID    string          `json:"call_id"`
}

// handleData normalizes a topic-tagged side-channel payload.
func handleData(pkt room.DataPacket, store *state.Store, log *logrus.Logger) {
	if !strings.HasPrefix(pkt.Topic, TopicPrefix) {
		return
	}

	var msg sidePayload
	if err := json.Unmarshal(pkt.Payload, &msg); err != nil {
		log.WithFields(logrus.Fields{"topic": pkt.Topic}).WithError(err).Warn("dropping malformed side-channel payload")
		return
	}

	switch msg.Type {
	case "transcript":
		speaker := state.Speaker(msg.Speaker)
		if !state.ValidSpeaker(speaker) {
			speaker = state.SpeakerAssistant
		}
		ts := msg.Timestamp
		if ts == 0 {
			ts = nowSeconds()
		}
		itemID := msg.ItemID
		if itemID == "" {
			itemID = uuid.NewString()
		}
		store.AppendTranscript(state.TranscriptEntry{
			Speaker:   speaker,
			Text:      msg.Text,
			Timestamp: ts,
			ItemID:    itemID,
		})

	case "tool":
		args := msg.Arguments
		if args == nil {
			args = map[string]any{}
		}
		ts := msg.Timestamp
		if ts == 0 {
			ts = nowSeconds()
		}
		var output any
		if len(msg.Output) > 0 && string(msg.Output) != "null" {
			if err := json.Unmarshal(msg.Output, &output); err != nil {
				output = string(msg.Output)
			}
		}
		store.AppendToolEvent(state.ToolEvent{
			Name:      msg.Name,
			Arguments: args,
			Output:    output,
			Timestamp: ts,
			CallID:    msg.CallID,
		})

	default:
		// Unknown or missing type: silently ignored.
	}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
