// Package events contains the message contract for the websocket event
// stream. Every frame the hub broadcasts is a Message.
package events

import (
	"time"

	"licensor/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeConnection is sent once to each client on connect.
	MessageTypeConnection MessageType = "connection"
	// MessageTypeValidation carries one audit log entry as it is appended.
	MessageTypeValidation MessageType = "validation"
	// MessageTypeError reports a stream-level failure.
	MessageTypeError MessageType = "error"
)

// Message is the envelope for every frame on the event stream.
type Message struct {
	Type      MessageType `json:"type"`
	Data      any         `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// ConnectionData is the payload of a connection message.
type ConnectionData struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
}

// NewConnectionMessage builds the greeting frame for a newly registered
// client.
func NewConnectionMessage(clientID string) Message {
	return Message{
		Type:      MessageTypeConnection,
		Data:      ConnectionData{Status: "connected", ClientID: clientID},
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationMessage wraps an audit entry for broadcast.
func NewValidationMessage(entry domain.ValidationLog) Message {
	return Message{
		Type:      MessageTypeValidation,
		Data:      entry,
		Timestamp: time.Now().UTC(),
	}
}
