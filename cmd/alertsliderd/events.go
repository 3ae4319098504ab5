package main

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ============================================================================
// IPC Events
// ============================================================================
// Events are requests arriving from outside the input path (slider-ctl, audio
// server hooks, scripts). They are decoded from JSON envelopes on the IPC
// socket and applied to the Mapper.
// ============================================================================

// Event is a marker interface for IPC requests.
type Event interface {
	eventMarker()
}

// StreamMuteChanged reports that an audio stream's mute state changed.
type StreamMuteChanged struct {
	Stream StreamType `json:"stream"`
	Muted  bool       `json:"muted"`
}

func (StreamMuteChanged) eventMarker() {}

// ApplyMode requests a ringer mode transition without a slider move.
type ApplyMode struct {
	Mode RingerMode `json:"mode"`
}

func (ApplyMode) eventMarker() {}

// GetState requests the current state snapshot.
type GetState struct{}

func (GetState) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "stream_mute_changed":
		var e StreamMuteChanged
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal StreamMuteChanged: %w", err)
		}
		return e, nil

	case "apply_mode":
		// The zero RingerMode is silent, so an absent mode must not decode to it.
		var raw struct {
			Mode *RingerMode `json:"mode"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal ApplyMode: %w", err)
		}
		if raw.Mode == nil {
			return nil, errors.New("unmarshal ApplyMode: missing mode")
		}
		return ApplyMode{Mode: *raw.Mode}, nil

	case "get_state":
		return GetState{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case StreamMuteChanged:
		env.Type = "stream_mute_changed"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal StreamMuteChanged: %w", err)
		}
		env.Data = data

	case ApplyMode:
		env.Type = "apply_mode"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal ApplyMode: %w", err)
		}
		env.Data = data

	case GetState:
		env.Type = "get_state"

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
