package room

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// envelope is one frame on the events websocket. kind discriminates:
// "transcription" carries a finalized segment, "data" carries a
// base64-encoded side-channel payload. Anything else is skipped.
type envelope struct {
	Kind                string  `json:"kind"`
	ID                  string  `json:"id,omitempty"`
	Text                string  `json:"text,omitempty"`
	ParticipantIdentity string  `json:"participant_identity,omitempty"`
	StartTime           float64 `json:"start_time,omitempty"`
	Topic               string  `json:"topic,omitempty"`
	Payload             string  `json:"payload,omitempty"`
}

// Room is a websocket-backed Membership reading the realtime gateway's
// events channel. One read goroutine decodes frames and fans them out to
// registered handlers sequentially.
type Room struct {
	conn     *websocket.Conn
	identity string
	log      *logrus.Logger

	mu       sync.Mutex
	segSubs  map[int]func(Segment)
	dataSubs map[int]func(DataPacket)
	nextID   int

	done    chan struct{}
	doneErr error
	closed  bool
}

// Join dials the room's events websocket. The URL is the realtime endpoint
// from config or the session response; the token is sent as a bearer header
// and the identity as a query parameter.
func Join(ctx context.Context, endpoint, token, identity string, log *logrus.Logger) (*Room, error) {
	wsURL, err := eventsURL(endpoint, identity)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("join room: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("join room: %w", err)
	}

	r := &Room{
		conn:     conn,
		identity: identity,
		log:      log,
		segSubs:  make(map[int]func(Segment)),
		dataSubs: make(map[int]func(DataPacket)),
		done:     make(chan struct{}),
	}
	go r.readLoop()

	log.WithFields(logrus.Fields{"endpoint": endpoint, "identity": identity}).Info("joined room events channel")
	return r, nil
}

// eventsURL converts the realtime endpoint to the events websocket URL.
func eventsURL(endpoint, identity string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse realtime endpoint: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported realtime endpoint scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/rtc/events"
	q := u.Query()
	q.Set("identity", identity)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// LocalIdentity returns the identity this membership joined with.
func (r *Room) LocalIdentity() string { return r.identity }

// OnSegment registers a transcription handler.
func (r *Room) OnSegment(fn func(Segment)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.segSubs[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.segSubs, id)
		r.mu.Unlock()
	}
}

// OnData registers a side-channel payload handler.
func (r *Room) OnData(fn func(DataPacket)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.dataSubs[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.dataSubs, id)
		r.mu.Unlock()
	}
}

// Done is closed when the read loop ends; Err then reports why.
func (r *Room) Done() <-chan struct{} { return r.done }

// Err returns the terminal read error, nil on a clean close.
func (r *Room) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doneErr
}

// Close tears the connection down. Safe to call more than once.
func (r *Room) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()
	return r.conn.Close()
}

func (r *Room) readLoop() {
	defer close(r.done)

	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			r.mu.Lock()
			if !r.closed && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.doneErr = err
			}
			r.mu.Unlock()
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			r.log.WithError(err).Warn("dropping undecodable room frame")
			continue
		}

		switch env.Kind {
		case "transcription":
			seg := Segment{
				ID:                  env.ID,
				Text:                env.Text,
				ParticipantIdentity: env.ParticipantIdentity,
				StartTime:           env.StartTime,
			}
			for _, fn := range r.segmentHandlers() {
				fn(seg)
			}

		case "data":
			payload, err := base64.StdEncoding.DecodeString(env.Payload)
			if err != nil {
				r.log.WithError(err).Warn("dropping data frame with bad payload encoding")
				continue
			}
			pkt := DataPacket{Topic: env.Topic, Payload: payload}
			for _, fn := range r.dataHandlers() {
				fn(pkt)
			}

		default:
			// Unknown frame kinds are skipped without inspection.
		}
	}
}

func (r *Room) segmentHandlers() []func(Segment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]func(Segment), 0, len(r.segSubs))
	for id := 0; id < r.nextID; id++ {
		if fn, ok := r.segSubs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (r *Room) dataHandlers() []func(DataPacket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]func(DataPacket), 0, len(r.dataSubs))
	for id := 0; id < r.nextID; id++ {
		if fn, ok := r.dataSubs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}
