package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotSavedMessage announces that an owner's snapshot changed. The
// worker reads the snapshot itself from the store.
type SnapshotSavedMessage struct {
	OwnerID   string    `json:"owner_id"`
	UpdatedAt time.Time `json:"updated_at"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSnapshotSavedMessage(ownerID string, updatedAt time.Time) *SnapshotSavedMessage {
	return &SnapshotSavedMessage{
		OwnerID:   ownerID,
		UpdatedAt: updatedAt,
		Timestamp: time.Now(),
	}
}

func (m *SnapshotSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotSavedMessageFromJSON decodes a message and rejects ones without
// an owner.
func SnapshotSavedMessageFromJSON(data []byte) (*SnapshotSavedMessage, error) {
	var msg SnapshotSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerID == "" {
		return nil, fmt.Errorf("message without owner_id")
	}
	return &msg, nil
}
