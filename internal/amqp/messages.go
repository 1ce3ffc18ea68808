package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is what happened to a movement.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return true
	}
	return false
}

// MovementEvent announces a change to a movement. It carries only ids; the
// consumer loads the current row from the store.
type MovementEvent struct {
	MessageID string    `json:"messageId"`
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Action    Action    `json:"action"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMovementEvent(id, userID int64, action Action, version int64) *MovementEvent {
	return &MovementEvent{
		MessageID: uuid.NewString(),
		ID:        id,
		UserID:    userID,
		Action:    action,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

// Type is the message type header, e.g. "movement.created".
func (m *MovementEvent) Type() string {
	return "movement." + string(m.Action)
}

func (m *MovementEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MovementEventFromJSON(data []byte) (*MovementEvent, error) {
	var msg MovementEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("movement event without id")
	}
	if !msg.Action.Valid() {
		return nil, fmt.Errorf("unknown movement action %q", msg.Action)
	}
	return &msg, nil
}
