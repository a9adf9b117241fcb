package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// MaxBrushSize bounds the line width a segment may carry.
const MaxBrushSize = 200

var (
	ErrUnknownType    = errors.New("protocol: unknown message type")
	ErrInvalidSegment = errors.New("protocol: invalid segment")
)

// Validate reports whether the segment can be drawn.
func (s Segment) Validate() error {
	for _, v := range []float64{s.X0, s.Y0, s.X1, s.Y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", ErrInvalidSegment)
		}
	}
	if math.IsNaN(s.BrushSize) || s.BrushSize <= 0 || s.BrushSize > MaxBrushSize {
		return fmt.Errorf("%w: brush size %v", ErrInvalidSegment, s.BrushSize)
	}
	if _, err := ParseColor(s.Color); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSegment, err)
	}
	return nil
}

// Encode wraps ev in its envelope.
func Encode(ev Event) ([]byte, error) {
	msg := Message{Type: ev.Type()}

	var payload any
	switch e := ev.(type) {
	case Segment:
		payload = e
	case *Segment:
		payload = *e
	case ParticipantList:
		ids := e.IDs
		if ids == nil {
			ids = []string{}
		}
		payload = ids
	case Clear:
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, ev)
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Data = data
	}
	return json.Marshal(msg)
}

// PeekType returns the envelope type without touching the payload.
func PeekType(raw []byte) (string, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}

// Decode parses raw into one of the known events. Segments are validated, so
// callers never see a segment they cannot draw.
func Decode(raw []byte) (Event, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}

	switch msg.Type {
	case TypeSegment:
		if len(msg.Data) == 0 {
			return nil, fmt.Errorf("%w: missing payload", ErrInvalidSegment)
		}
		var seg Segment
		if err := json.Unmarshal(msg.Data, &seg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSegment, err)
		}
		if err := seg.Validate(); err != nil {
			return nil, err
		}
		return seg, nil

	case TypeClear:
		return Clear{}, nil

	case TypeParticipantList:
		var ids []string
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &ids); err != nil {
				return nil, fmt.Errorf("decode participant list: %w", err)
			}
		}
		return ParticipantList{IDs: ids}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
}
