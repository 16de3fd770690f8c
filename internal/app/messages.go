package app

import (
	"github.com/calldeck/calldeck/internal/api"
	"github.com/calldeck/calldeck/internal/history"
	"github.com/calldeck/calldeck/internal/room"
)

// StoreChangedMsg is pumped into Update whenever the state store mutates.
type StoreChangedMsg struct{}

// ConfigLoadedMsg carries the backend's startup config.
type ConfigLoadedMsg struct {
	Config api.ConfigResponse
}

// ConfigErrorMsg is sent when the startup config fetch fails. Non-fatal: the
// realtime endpoint simply stays unset.
type ConfigErrorMsg struct {
	Err error
}

// SessionCreatedMsg carries a successful session issuance plus the form
// values it was issued for.
type SessionCreatedMsg struct {
	Session     api.SessionResponse
	PhoneNumber string
	DisplayName string
}

// SessionErrorMsg is sent when session issuance fails.
type SessionErrorMsg struct {
	Err error
}

// RoomJoinedMsg carries a joined room membership.
type RoomJoinedMsg struct {
	Room *room.Room
}

// RoomJoinErrorMsg is sent when joining the realtime room fails.
type RoomJoinErrorMsg struct {
	Err error
}

// RoomClosedMsg is sent when the room's event stream ends on its own.
type RoomClosedMsg struct {
	Err error
}

// SummariesMsg carries fetched post-call summaries.
type SummariesMsg struct {
	Records []api.SummaryRecord
}

// SummaryErrorMsg is sent when the summary fetch fails. Non-fatal: the
// summary panel stays empty.
type SummaryErrorMsg struct {
	Err error
}

// HistoryLoadedMsg carries recent calls from the local call log.
type HistoryLoadedMsg struct {
	Calls []history.Call
}

// historyStartedMsg carries the call-log row id for the active call.
type historyStartedMsg struct {
	id int64
}
