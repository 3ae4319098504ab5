package main

import (
	"fmt"
	"strings"
)

// SliderPosition is one of the three physical detents of the alert slider.
type SliderPosition int

const (
	PositionTop SliderPosition = iota
	PositionMiddle
	PositionBottom
)

func (p SliderPosition) String() string {
	switch p {
	case PositionTop:
		return "top"
	case PositionMiddle:
		return "middle"
	case PositionBottom:
		return "bottom"
	default:
		return fmt.Sprintf("SliderPosition(%d)", int(p))
	}
}

// parseSliderPosition interprets the content of the tri-state status file.
// Only the literal values "1", "2" and "3" (after trimming whitespace) are
// recognized.
func parseSliderPosition(content string) (SliderPosition, bool) {
	switch strings.TrimSpace(content) {
	case "1":
		return PositionTop, true
	case "2":
		return PositionMiddle, true
	case "3":
		return PositionBottom, true
	}
	return 0, false
}

// RingerMode is the device-wide audio profile.
type RingerMode int

const (
	RingerModeSilent RingerMode = iota
	RingerModeVibrate
	RingerModeNormal
)

func (m RingerMode) String() string {
	switch m {
	case RingerModeSilent:
		return "silent"
	case RingerModeVibrate:
		return "vibrate"
	case RingerModeNormal:
		return "normal"
	default:
		return fmt.Sprintf("RingerMode(%d)", int(m))
	}
}

// ParseRingerMode parses the textual form used on the IPC socket and CLI.
func ParseRingerMode(s string) (RingerMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent":
		return RingerModeSilent, nil
	case "vibrate":
		return RingerModeVibrate, nil
	case "normal":
		return RingerModeNormal, nil
	default:
		return 0, fmt.Errorf("invalid ringer mode: %q (must be silent, vibrate, or normal)", s)
	}
}

// MarshalText implements encoding.TextMarshaler so modes travel as strings in JSON.
func (m RingerMode) MarshalText() ([]byte, error) {
	switch m {
	case RingerModeSilent, RingerModeVibrate, RingerModeNormal:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("invalid ringer mode: %d", int(m))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *RingerMode) UnmarshalText(b []byte) error {
	v, err := ParseRingerMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// modeForPosition is the fixed position -> ringer mode table.
func modeForPosition(p SliderPosition) RingerMode {
	switch p {
	case PositionTop:
		return RingerModeSilent
	case PositionMiddle:
		return RingerModeVibrate
	default:
		return RingerModeNormal
	}
}

// StreamType identifies an audio stream in mute-change notifications.
type StreamType int

// KeyAction is the phase of a key event.
type KeyAction int

const (
	KeyDown KeyAction = iota
	KeyUp
	KeyRepeat
)

func (a KeyAction) String() string {
	switch a {
	case KeyDown:
		return "down"
	case KeyUp:
		return "up"
	case KeyRepeat:
		return "repeat"
	default:
		return fmt.Sprintf("KeyAction(%d)", int(a))
	}
}

// keyActionFromValue converts an EV_KEY value into a KeyAction.
func keyActionFromValue(v int32) (KeyAction, bool) {
	switch v {
	case evValuePress:
		return KeyDown, true
	case evValueRelease:
		return KeyUp, true
	case evValueRepeat:
		return KeyRepeat, true
	}
	return 0, false
}

// KeyEvent is a key event originating from one of the opened input devices.
type KeyEvent struct {
	DeviceID int
	Code     uint16
	Action   KeyAction
}

// MediaAdjust is a relative adjustment of the media stream.
type MediaAdjust int

const (
	AdjustMute MediaAdjust = iota
	AdjustUnmute
)

func (a MediaAdjust) String() string {
	if a == AdjustMute {
		return "mute"
	}
	return "unmute"
}

// HapticEffect is one of the predefined vibration patterns.
type HapticEffect int

const (
	EffectDoubleClick HapticEffect = iota
	EffectHeavyClick
)

func (e HapticEffect) String() string {
	switch e {
	case EffectDoubleClick:
		return "double_click"
	case EffectHeavyClick:
		return "heavy_click"
	default:
		return fmt.Sprintf("HapticEffect(%d)", int(e))
	}
}
