package main

import (
	"log/slog"
	"sync"
	"time"
)

// ============================================================================
// Slider State Mapper
// ============================================================================
//
// The Mapper turns slider key events into ringer-mode transitions:
//
//   key event -> device filter -> read status file -> position -> mode
//             -> planMode (pure) -> runEffect (ringer, media mute, haptic)
//
// Two independent callers touch it:
//   - Handle/ApplyMode run on the input dispatch goroutine, one event at a time
//   - OnMuteChanged runs on whichever goroutine observes a stream mute change
//     (CamillaDSP poller, IPC connections)
//
// wasMuted is shared between both paths and guarded by mu. ApplyMode holds mu
// for the whole transition so a notification can't land between the read of
// wasMuted and its update.
// ============================================================================

// MapperConfig identifies the slider hardware.
type MapperConfig struct {
	DeviceName string
	StatePath  string
}

// MapperDeps are the capabilities the Mapper drives.
type MapperDeps struct {
	Devices  DeviceNamer
	Files    FileReader
	Settings SettingsReader
	Backends Backends
}

// Mapper is the slider state mapping engine.
type Mapper struct {
	cfg    MapperConfig
	deps   MapperDeps
	logger *slog.Logger

	mu       sync.Mutex
	wasMuted bool
	mode     RingerMode
	modeSet  bool
	modeAt   time.Time

	// broadcasts is optional; sends never block.
	broadcasts chan<- StateBroadcast
}

// NewMapper constructs a Mapper. wasMuted starts false.
func NewMapper(cfg MapperConfig, deps MapperDeps, logger *slog.Logger) *Mapper {
	if cfg.DeviceName == "" {
		cfg.DeviceName = defaultSliderDeviceName
	}
	if cfg.StatePath == "" {
		cfg.StatePath = defaultSliderStatePath
	}
	if deps.Files == nil {
		deps.Files = osFileReader{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{cfg: cfg, deps: deps, logger: logger}
}

// SetBroadcasts attaches a channel receiving state changes for UI clients.
// Must be called before the Mapper is shared between goroutines.
func (m *Mapper) SetBroadcasts(ch chan<- StateBroadcast) {
	m.broadcasts = ch
}

// Handle processes one key event. A nil result means the event was consumed;
// otherwise ev is returned unchanged for default handling.
//
// Status file read failures are swallowed (the event is still consumed).
// Service failures from the mode transition are returned.
func (m *Mapper) Handle(ev KeyEvent) (*KeyEvent, error) {
	if ev.Action != KeyDown {
		return &ev, nil
	}

	name, ok := m.deviceName(ev.DeviceID)
	if !ok || name != m.cfg.DeviceName {
		return &ev, nil
	}

	b, err := m.deps.Files.ReadFile(m.cfg.StatePath)
	if err != nil {
		m.logger.Debug("slider state unreadable", "path", m.cfg.StatePath, "error", err)
		return nil, nil
	}

	pos, ok := parseSliderPosition(string(b))
	if !ok {
		m.logger.Debug("slider state unrecognized", "path", m.cfg.StatePath, "content", string(b))
		return nil, nil
	}

	mode := modeForPosition(pos)
	m.logger.Debug("slider moved", "position", pos, "mode", mode)
	return nil, m.ApplyMode(mode)
}

func (m *Mapper) deviceName(id int) (string, bool) {
	if m.deps.Devices == nil {
		return "", false
	}
	return m.deps.Devices.DeviceName(id)
}

// ApplyMode runs the transition into mode: ringer, media mute and haptic.
// The preference is read on every call.
func (m *Mapper) ApplyMode(mode RingerMode) error {
	muteMedia := false
	if m.deps.Settings != nil {
		v, err := m.deps.Settings.MuteMediaOnSilent()
		if err != nil {
			return err
		}
		muteMedia = v
	}

	// Runs after mu is released: OnMuteChanged takes it too.
	defer m.deliverMuteEchoes()

	m.mu.Lock()
	defer m.mu.Unlock()

	cmds := planMode(mode, muteMedia, m.wasMuted)
	for _, cmd := range cmds {
		if err := runEffect(m.deps.Backends, cmd, m.logger); err != nil {
			return err
		}

		switch c := cmd.(type) {
		case CmdSetRingerMode:
			m.mode = c.Mode
			m.modeSet = true
			m.modeAt = time.Now()
			m.broadcast(BroadcastModeChanged{Mode: c.Mode, At: m.modeAt})
		case CmdAdjustMediaVolume:
			if c.TrackMute && !m.wasMuted {
				m.wasMuted = true
				m.broadcast(BroadcastMuteTrackingChanged{WasMuted: true, At: time.Now()})
			}
		}
	}

	m.logger.Info("ringer mode applied", "mode", mode, "mute_media", muteMedia, "was_muted", m.wasMuted)
	return nil
}

// muteEchoSource is implemented by audio backends that report the mute
// states they wrote, the way a platform audio service announces every change
// including ours.
type muteEchoSource interface {
	DrainMuteEchoes() []bool
}

func (m *Mapper) deliverMuteEchoes() {
	src, ok := m.deps.Backends.Audio.(muteEchoSource)
	if !ok {
		return
	}
	for _, muted := range src.DrainMuteEchoes() {
		m.OnMuteChanged(StreamMusic, muted)
	}
}

// OnMuteChanged handles a system-wide stream mute notification.
func (m *Mapper) OnMuteChanged(stream StreamType, muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := reduceMuteChanged(m.wasMuted, stream, muted)
	if next == m.wasMuted {
		return
	}
	m.wasMuted = next
	m.logger.Debug("media mute tracking cleared", "stream", int(stream))
	m.broadcast(BroadcastMuteTrackingChanged{WasMuted: next, At: time.Now()})
}

// WasMuted reports whether the Mapper believes it owns an active media mute.
func (m *Mapper) WasMuted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wasMuted
}

// StateSnapshot is a coherent copy of the Mapper's state for IPC/UI clients.
type StateSnapshot struct {
	Mode      RingerMode `json:"mode"`
	ModeKnown bool       `json:"mode_known"`
	ModeAt    time.Time  `json:"mode_at"`
	WasMuted  bool       `json:"was_muted"`
}

// Snapshot returns the current state.
func (m *Mapper) Snapshot() StateSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return StateSnapshot{
		Mode:      m.mode,
		ModeKnown: m.modeSet,
		ModeAt:    m.modeAt,
		WasMuted:  m.wasMuted,
	}
}

// broadcast must be called with mu held.
func (m *Mapper) broadcast(b StateBroadcast) {
	if m.broadcasts == nil {
		return
	}
	select {
	case m.broadcasts <- b:
	default:
		m.logger.Warn("state broadcast queue full, dropping", "broadcast", b)
	}
}

// ============================================================================
// State broadcasts
// ============================================================================

// StateBroadcast is a state change published to websocket clients.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastModeChanged is emitted after the ringer mode was set.
type BroadcastModeChanged struct {
	Mode RingerMode
	At   time.Time
}

func (BroadcastModeChanged) broadcastMarker() {}

// BroadcastMuteTrackingChanged is emitted when wasMuted flips.
type BroadcastMuteTrackingChanged struct {
	WasMuted bool
	At       time.Time
}

func (BroadcastMuteTrackingChanged) broadcastMarker() {}
