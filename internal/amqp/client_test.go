package amqp

import (
	"testing"
	"time"
)

func TestNewSnapshotSavedMessage(t *testing.T) {
	updated := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	msg := NewSnapshotSavedMessage("u1", updated)

	if msg.OwnerID != "u1" || !msg.UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Fatalf("timestamp should be recent, got %v", msg.Timestamp)
	}
}

func TestSnapshotSavedMessageJSON(t *testing.T) {
	msg := &SnapshotSavedMessage{
		OwnerID:   "demo-user-123",
		UpdatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Timestamp: time.Date(2024, 3, 1, 0, 0, 1, 0, time.UTC),
	}

	b, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	got, err := SnapshotSavedMessageFromJSON(b)
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if got.OwnerID != msg.OwnerID || !got.UpdatedAt.Equal(msg.UpdatedAt) || !got.Timestamp.Equal(msg.Timestamp) {
		t.Fatalf("got %+v, want %+v", got, msg)
	}
}

func TestSnapshotSavedMessageInvalid(t *testing.T) {
	for _, body := range []string{
		`{"owner_id": 42}`,
		`{"updated_at": "2024-01-01T00:00:00Z"}`,
		`not json`,
	} {
		if _, err := SnapshotSavedMessageFromJSON([]byte(body)); err == nil {
			t.Fatalf("expected error for %s", body)
		}
	}
}

func TestCloseWithoutConnection(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
