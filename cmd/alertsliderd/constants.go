package main

import "time"

// Hardware identity of the OnePlus/OPlus tri-state key.
const (
	defaultSliderDeviceName = "oplus,hall_tri_state_key"
	defaultSliderStatePath  = "/proc/tristatekey/tri_state"
)

// Input event value constants (struct input_event.value for EV_KEY)
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Audio stream identifiers carried by mute-change notifications.
// Numbering follows the platform audio system stream types.
const (
	StreamVoiceCall    StreamType = 0
	StreamSystem       StreamType = 1
	StreamRing         StreamType = 2
	StreamMusic        StreamType = 3
	StreamAlarm        StreamType = 4
	StreamNotification StreamType = 5
)

// Daemon defaults
const (
	defaultSettingsPath   = "/etc/alertslider/settings.yaml"
	defaultIPCSocketPath  = "/run/alertslider.sock"
	defaultStateListen    = "127.0.0.1:3002"
	defaultStateWSPath    = "/ws/state"
	defaultUInputPath     = "/dev/uinput"
	defaultPassthroughKbd = "alertslider-passthrough"

	defaultReadTimeoutMS = 500 // Default timeout for reading websocket responses (ms)
	defaultMutePollMS    = 250 // CamillaDSP mute polling interval (ms)

	defaultFeedbackdBus = "session"

	// Settings key controlling whether silent mode also mutes media.
	settingAlertSliderMuteMedia = "alert_slider_mute_media"
)

// Haptic pattern timings
const (
	doubleClickPulse     = 30 * time.Millisecond
	doubleClickGap       = 70 * time.Millisecond
	doubleClickMagnitude = 0x9000

	heavyClickPulse     = 60 * time.Millisecond
	heavyClickMagnitude = 0xffff
)
