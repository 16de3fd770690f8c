package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "calldeck.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordStartAndRecent(t *testing.T) {
	s := openTestStore(t)

	started := time.Now().Add(-5 * time.Minute)
	id, err := s.RecordStart(Call{
		RoomName:    "room-1",
		Identity:    "id-1",
		CallerPhone: "+15555550123",
		DisplayName: "A",
		StartedAt:   started,
	})
	if err != nil {
		t.Fatalf("record start: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a row id")
	}

	calls, err := s.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}

	c := calls[0]
	if c.RoomName != "room-1" || c.CallerPhone != "+15555550123" || c.DisplayName != "A" {
		t.Errorf("call = %+v", c)
	}
	if c.EndedAt != nil {
		t.Error("ongoing call should have no end time")
	}
	if c.StartedAt.Unix() != started.Unix() {
		t.Errorf("startedAt = %v, want %v", c.StartedAt, started)
	}
}

func TestRecordEnd(t *testing.T) {
	s := openTestStore(t)

	id, err := s.RecordStart(Call{
		RoomName:  "room-1",
		Identity:  "id-1",
		StartedAt: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("record start: %v", err)
	}

	ended := time.Now()
	if err := s.RecordEnd(id, ended, "Caller booked a cleaning."); err != nil {
		t.Fatalf("record end: %v", err)
	}

	calls, err := s.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	c := calls[0]
	if c.EndedAt == nil {
		t.Fatal("ended call should have an end time")
	}
	if c.SummaryText != "Caller booked a cleaning." {
		t.Errorf("summaryText = %q", c.SummaryText)
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, err := s.RecordStart(Call{
			RoomName:    "room",
			Identity:    "id",
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			CallerPhone: fmt.Sprintf("+1555000%04d", i),
		})
		if err != nil {
			t.Fatalf("record start %d: %v", i, err)
		}
	}

	calls, err := s.Recent(3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("got %d calls, want 3", len(calls))
	}
	for i := 1; i < len(calls); i++ {
		if calls[i].StartedAt.After(calls[i-1].StartedAt) {
			t.Error("calls should be newest first")
		}
	}
}
