package protocol

import "encoding/json"

// Message types exchanged between participants and the hub
const (
	TypeParticipantList = "participant-list"
	TypeSegment         = "segment"
	TypeClear           = "clear"
)

// Message is the envelope for all WebSocket messages
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event is one decoded protocol message: Segment, Clear or ParticipantList.
type Event interface {
	Type() string
}

// Segment is a single line segment of a stroke
type Segment struct {
	X0        float64 `json:"x0"`
	Y0        float64 `json:"y0"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	Color     string  `json:"color"`
	BrushSize float64 `json:"brushSize"`
}

func (Segment) Type() string { return TypeSegment }

// Clear tells every session to blank its canvas
type Clear struct{}

func (Clear) Type() string { return TypeClear }

// ParticipantList carries the ids of everyone currently connected
type ParticipantList struct {
	IDs []string
}

func (ParticipantList) Type() string { return TypeParticipantList }
