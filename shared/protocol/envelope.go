package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope is the outbound wire shape toward the transport layer:
// {"event": <name>, "data": {...}}.
type Envelope struct {
	Event EventName `json:"event"`
	Data  any       `json:"data"`
}

func NewEnvelope(event EventName, data any) *Envelope {
	return &Envelope{Event: event, Data: data}
}

func (e *Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

func DecodeEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &e, nil
}

// DecodeData re-marshals e.Data (typically a map[string]any from a
// round-tripped decode) into the requested concrete type.
func DecodeData[T any](e *Envelope) (*T, error) {
	if typed, ok := e.Data.(T); ok {
		return &typed, nil
	}

	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("re-encode data: %w", err)
	}

	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode data to %T: %w", result, err)
	}
	return &result, nil
}
