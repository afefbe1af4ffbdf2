package discovery

import (
	"maps"
	"time"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerClient    Speaker = "client"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one entry of the append-only conversation history.
type Turn struct {
	Speaker   Speaker   `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"ts"`
}

// Session captures one ephemeral discovery conversation.
// Records are shared by reference; callers mutate them only while holding
// the store's per-session lock.
type Session struct {
	ID        string         `json:"session_id"`
	ClientID  *string        `json:"client_id"`
	Metadata  map[string]any `json:"metadata"`
	Turns     []Turn         `json:"turns"`
	Slots     Slots          `json:"slots"`
	CreatedAt time.Time      `json:"created_at"`
}

// AppendTurn records a turn at the given time.
func (s *Session) AppendTurn(speaker Speaker, text string, at time.Time) {
	s.Turns = append(s.Turns, Turn{Speaker: speaker, Text: text, Timestamp: at})
}

// Snapshot returns a copy that is safe to hand out after the lock is released.
func (s *Session) Snapshot() Session {
	out := *s
	out.Turns = append([]Turn(nil), s.Turns...)
	out.Slots = s.Slots.Clone()
	out.Metadata = maps.Clone(s.Metadata)
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}
	if s.ClientID != nil {
		id := *s.ClientID
		out.ClientID = &id
	}
	return out
}
