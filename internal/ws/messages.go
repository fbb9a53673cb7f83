package ws

import (
	"encoding/json"

	"github.com/studyhive/studyroom-server/internal/service"
)

// EventType names a WebSocket event
type EventType string

// Inbound command events
const (
	EventJoin       EventType = "join"
	EventStartTimer EventType = "start_timer"
	EventPauseTimer EventType = "pause_timer"
	EventStopTimer  EventType = "stop_timer"
	EventResetTimer EventType = "reset_timer"
	EventLeaveRoom  EventType = "leave_room"
)

// Outbound events
const (
	EventUpdateMembers EventType = "update_studying_members"
	EventRemoveMember  EventType = "remove_studying_member"
	EventError         EventType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CommandPayload carries the room a command targets. The acting user comes
// from the connection, never from here.
type CommandPayload struct {
	RoomID int64 `json:"roomId"`
}

type MembersPayload struct {
	RoomID  int64                    `json:"roomId"`
	Members []service.StudyingMember `json:"members"`
}

type RemovePayload struct {
	RoomID int64 `json:"roomId"`
	UserID int64 `json:"userId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func newMessage(eventType EventType, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: eventType, Payload: data}, nil
}
