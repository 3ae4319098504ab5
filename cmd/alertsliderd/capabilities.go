package main

import "os"

// RingerControl sets the device-wide ringer mode.
type RingerControl interface {
	SetRingerMode(mode RingerMode) error
}

// AudioControl adjusts the media stream. Implementations must tolerate being
// asked to mute an already muted stream (and vice versa).
type AudioControl interface {
	AdjustMediaVolume(adjust MediaAdjust) error
}

// HapticControl plays one of the predefined vibration patterns. Playback is
// fire-and-forget.
type HapticControl interface {
	Vibrate(effect HapticEffect) error
}

// SettingsReader reads the mute-media-on-silent preference. It is consulted
// on every mode application and must not cache.
type SettingsReader interface {
	MuteMediaOnSilent() (bool, error)
}

// FileReader reads the hardware status file.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// DeviceNamer resolves the name of an input device by id.
type DeviceNamer interface {
	DeviceName(id int) (string, bool)
}

// osFileReader reads files from the local filesystem.
type osFileReader struct{}

func (osFileReader) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }
