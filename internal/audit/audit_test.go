package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"
)

func TestCSVWriterSinkRowShape(t *testing.T) {
	var buf bytes.Buffer
	sink := NewCSVWriterSink(&buf)

	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	sink.Emit(context.Background(), Event{
		Timestamp:   ts,
		EventType:   "grant_issued",
		UserID:      "u1",
		DisplayName: "Alice",
		Success:     true,
		Links:       []string{"https://a.test/1", "https://b.test/2"},
	})

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV output: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if len(row) != 7 {
		t.Fatalf("expected 7 columns, got %d: %v", len(row), row)
	}
	if row[0] != ts.Format(time.RFC3339) {
		t.Fatalf("expected RFC3339 timestamp, got %q", row[0])
	}
	if row[1] != "grant_issued" || row[2] != "u1" || row[3] != "Alice" {
		t.Fatalf("unexpected identity columns: %v", row)
	}
	if row[4] != "true" {
		t.Fatalf("expected success true, got %q", row[4])
	}
	if row[6] != "https://a.test/1 https://b.test/2" {
		t.Fatalf("expected space-joined links, got %q", row[6])
	}
}

func TestCSVWriterSinkFailureRow(t *testing.T) {
	var buf bytes.Buffer
	sink := NewCSVWriterSink(&buf)

	sink.Emit(context.Background(), Event{
		Timestamp: time.Now().UTC(),
		EventType: "link_rejected",
		Success:   false,
		Error:     "link_not_found",
	})

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV output: %v", err)
	}
	row := rows[0]
	if row[4] != "false" {
		t.Fatalf("expected success false, got %q", row[4])
	}
	if row[5] != "link_not_found" {
		t.Fatalf("expected error code column, got %q", row[5])
	}
}

func TestJSONWriterSinkEmitsOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	for i := 0; i < 3; i++ {
		sink.Emit(context.Background(), Event{
			Timestamp: time.Now().UTC(),
			EventType: "link_validated",
			Success:   true,
		})
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, "\"event_type\":\"link_validated\"") {
			t.Fatalf("unexpected line %q", line)
		}
	}
}

func TestChannelSinkDeliversAndRespectsContext(t *testing.T) {
	sink := NewChannelSink(1)

	sink.Emit(context.Background(), Event{EventType: "e1"})

	// Buffer is full; a cancelled context unblocks the emit.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink.Emit(ctx, Event{EventType: "e2"})

	select {
	case ev := <-sink.Events():
		if ev.EventType != "e1" {
			t.Fatalf("expected e1, got %q", ev.EventType)
		}
	default:
		t.Fatal("expected buffered event")
	}
}

func TestNoOpSinkDiscards(t *testing.T) {
	NoOpSink{}.Emit(context.Background(), Event{EventType: "anything"})
}
