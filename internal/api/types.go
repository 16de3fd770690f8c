package api

// SessionRequest is the body for POST /api/session.
type SessionRequest struct {
	DisplayName string `json:"display_name"`
	PhoneNumber string `json:"phone_number"`
	RoomName    string `json:"room_name,omitempty"`
}

// SessionResponse carries the credential and identifiers for one room join.
type SessionResponse struct {
	RoomName   string  `json:"room_name"`
	Identity   string  `json:"identity"`
	Token      string  `json:"token"`
	ExpiresAt  float64 `json:"expires_at"`
	LiveKitURL string  `json:"livekit_url"`
}

// SummaryRecord is the persistence service's post-call summary. The optional
// structured sections are passed through untyped; the dashboard renders
// summary_text and action_items and treats the rest as opaque.
type SummaryRecord struct {
	ID                 string           `json:"id"`
	SummaryText        string           `json:"summary_text"`
	Preferences        map[string]any   `json:"preferences,omitempty"`
	AppointmentsInCall []map[string]any `json:"appointments_in_call,omitempty"`
	CostBreakdown      map[string]any   `json:"cost_breakdown,omitempty"`
	ActionItems        []string         `json:"action_items,omitempty"`
	Timeline           []map[string]any `json:"timeline,omitempty"`
	Transcript         []map[string]any `json:"transcript,omitempty"`
	CreatedAt          string           `json:"created_at"`
}

// ConfigResponse is GET /api/config.
type ConfigResponse struct {
	LiveKitURL      string `json:"livekit_url"`
	DefaultTimezone string `json:"default_timezone"`
}

// Appointment is one scheduled appointment as stored by the backend.
type Appointment struct {
	ID          string `json:"id"`
	UserPhone   string `json:"user_phone"`
	ServiceType string `json:"service_type"`
	StartsAt    string `json:"starts_at"`
	Status      string `json:"status"`
	Notes       string `json:"notes,omitempty"`
}

// Slot is one bookable time slot.
type Slot struct {
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	ServiceType string `json:"service_type"`
	Available   bool   `json:"available"`
}

// HealthResponse is GET /api/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Supabase bool   `json:"supabase"`
}
