package main

import "fmt"

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect requested by the mode planner.
// Commands are executed in order by runEffect.
type Command interface {
	commandMarker()
	String() string
}

// CmdSetRingerMode sets the system ringer mode.
type CmdSetRingerMode struct {
	Mode RingerMode
}

func (CmdSetRingerMode) commandMarker() {}
func (c CmdSetRingerMode) String() string {
	return fmt.Sprintf("CmdSetRingerMode(mode=%s)", c.Mode)
}

// CmdAdjustMediaVolume mutes or unmutes the media stream.
// TrackMute marks a mute issued on entering silent; once it succeeds the
// mapper records that it owns the mute.
type CmdAdjustMediaVolume struct {
	Adjust    MediaAdjust
	TrackMute bool
}

func (CmdAdjustMediaVolume) commandMarker() {}
func (c CmdAdjustMediaVolume) String() string {
	return fmt.Sprintf("CmdAdjustMediaVolume(adjust=%s, track=%v)", c.Adjust, c.TrackMute)
}

// CmdVibrate plays a haptic pattern.
type CmdVibrate struct {
	Effect HapticEffect
}

func (CmdVibrate) commandMarker()   {}
func (c CmdVibrate) String() string { return fmt.Sprintf("CmdVibrate(effect=%s)", c.Effect) }
