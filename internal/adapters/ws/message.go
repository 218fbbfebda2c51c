// Package ws pushes live score updates to websocket subscribers of a match.
package ws

import "time"

// Message types sent to subscribers.
const (
	MessageTypeSnapshot  = "snapshot"
	MessageTypeBall      = "ball"
	MessageTypeUndo      = "undo"
	MessageTypeLineup    = "lineup"
	MessageTypeCompleted = "completed"
)

// Message is one server-to-client frame.
type Message struct {
	Type      string    `json:"type"`
	MatchID   string    `json:"match_id"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
