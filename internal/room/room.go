// Package room models membership in a realtime media room. The dashboard
// never touches audio; it consumes the room's transcription events and
// topic-tagged side-channel payloads, delivered here as two independent
// subscriptions.
package room

// Segment is one structured transcription event from the transport. Zero
// values mean the field was absent on the wire.
type Segment struct {
	ID                  string
	Text                string
	ParticipantIdentity string
	StartTime           float64 // seconds since epoch
}

// DataPacket is a generic side-channel payload tagged with a topic.
type DataPacket struct {
	Topic   string
	Payload []byte
}

// Membership is a live room join. Handlers registered through OnSegment and
// OnData are invoked sequentially, in delivery order, from the membership's
// event loop; each registration returns a cancel func that stops further
// deliveries to that handler.
type Membership interface {
	LocalIdentity() string
	OnSegment(fn func(Segment)) (cancel func())
	OnData(fn func(DataPacket)) (cancel func())
	Close() error
}
