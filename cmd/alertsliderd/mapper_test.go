package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Fakes
// ============================================================================

// call records one backend invocation, in order, across all fakes.
type call struct {
	kind  string // "ringer", "audio", "haptic"
	value string
}

type callLog struct {
	mu    sync.Mutex
	calls []call
}

func (l *callLog) add(kind, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call{kind: kind, value: value})
}

func (l *callLog) snapshot() []call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]call(nil), l.calls...)
}

func (l *callLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

type fakeRinger struct {
	log *callLog
	err error
}

func (f *fakeRinger) SetRingerMode(mode RingerMode) error {
	f.log.add("ringer", mode.String())
	return f.err
}

type fakeAudio struct {
	log *callLog
	err error
}

func (f *fakeAudio) AdjustMediaVolume(adjust MediaAdjust) error {
	f.log.add("audio", adjust.String())
	return f.err
}

type fakeHaptic struct {
	log *callLog
	err error
}

func (f *fakeHaptic) Vibrate(effect HapticEffect) error {
	f.log.add("haptic", effect.String())
	return f.err
}

type fakeSettings struct {
	muteMedia bool
	err       error
}

func (f *fakeSettings) MuteMediaOnSilent() (bool, error) { return f.muteMedia, f.err }

type fakeFiles struct {
	content string
	err     error
	reads   int
}

func (f *fakeFiles) ReadFile(string) ([]byte, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.content), nil
}

type fakeDevices map[int]string

func (d fakeDevices) DeviceName(id int) (string, bool) {
	n, ok := d[id]
	return n, ok
}

const (
	sliderDevice = 0
	otherDevice  = 1
)

type mapperHarness struct {
	m        *Mapper
	log      *callLog
	ringer   *fakeRinger
	audio    *fakeAudio
	haptic   *fakeHaptic
	settings *fakeSettings
	files    *fakeFiles
}

func newMapperHarness(t *testing.T) *mapperHarness {
	t.Helper()
	h := &mapperHarness{log: &callLog{}}
	h.ringer = &fakeRinger{log: h.log}
	h.audio = &fakeAudio{log: h.log}
	h.haptic = &fakeHaptic{log: h.log}
	h.settings = &fakeSettings{}
	h.files = &fakeFiles{}

	h.m = NewMapper(MapperConfig{}, MapperDeps{
		Devices: fakeDevices{
			sliderDevice: defaultSliderDeviceName,
			otherDevice:  "gpio-keys",
		},
		Files:    h.files,
		Settings: h.settings,
		Backends: Backends{Ringer: h.ringer, Audio: h.audio, Haptic: h.haptic},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h
}

// press simulates a slider move to content and asserts the event was consumed.
func (h *mapperHarness) press(t *testing.T, content string) error {
	t.Helper()
	h.files.content = content
	out, err := h.m.Handle(KeyEvent{DeviceID: sliderDevice, Code: 0x259, Action: KeyDown})
	assert.Nil(t, out, "slider key-down must be consumed")
	return err
}

// ============================================================================
// Handle
// ============================================================================

func TestHandle_PositionsMapToModes(t *testing.T) {
	tests := []struct {
		content string
		want    []call
	}{
		{"1", []call{{"ringer", "silent"}}},
		{"2", []call{{"ringer", "vibrate"}, {"haptic", "double_click"}}},
		{"3", []call{{"ringer", "normal"}, {"haptic", "heavy_click"}}},
		{"2\n", []call{{"ringer", "vibrate"}, {"haptic", "double_click"}}},
		{" 3 \n", []call{{"ringer", "normal"}, {"haptic", "heavy_click"}}},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			h := newMapperHarness(t)
			require.NoError(t, h.press(t, tt.content))
			assert.Equal(t, tt.want, h.log.snapshot())
		})
	}
}

func TestHandle_UnrecognizedContentIsConsumedWithoutEffects(t *testing.T) {
	for _, content := range []string{"", "0", "4", "abc", "12"} {
		t.Run(content, func(t *testing.T) {
			h := newMapperHarness(t)
			require.NoError(t, h.press(t, content))
			assert.Empty(t, h.log.snapshot())
		})
	}
}

func TestHandle_OtherDeviceIsNotConsumed(t *testing.T) {
	h := newMapperHarness(t)
	h.files.content = "1"

	ev := KeyEvent{DeviceID: otherDevice, Code: 30, Action: KeyDown}
	out, err := h.m.Handle(ev)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, ev, *out)
	assert.Empty(t, h.log.snapshot())
	assert.Zero(t, h.files.reads, "status file must not be read for other devices")
}

func TestHandle_UnknownDeviceIsNotConsumed(t *testing.T) {
	h := newMapperHarness(t)
	h.files.content = "1"

	out, err := h.m.Handle(KeyEvent{DeviceID: 42, Action: KeyDown})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Empty(t, h.log.snapshot())
}

func TestHandle_NonDownActionsAreNotConsumed(t *testing.T) {
	for _, action := range []KeyAction{KeyUp, KeyRepeat} {
		t.Run(action.String(), func(t *testing.T) {
			h := newMapperHarness(t)
			h.files.content = "1"

			ev := KeyEvent{DeviceID: sliderDevice, Action: action}
			out, err := h.m.Handle(ev)
			require.NoError(t, err)
			require.NotNil(t, out)
			assert.Equal(t, ev, *out)
			assert.Empty(t, h.log.snapshot())
		})
	}
}

func TestHandle_ReadFailureIsConsumedSilently(t *testing.T) {
	h := newMapperHarness(t)
	h.files.err = fs.ErrPermission

	out, err := h.m.Handle(KeyEvent{DeviceID: sliderDevice, Action: KeyDown})
	assert.NoError(t, err)
	assert.Nil(t, out)
	assert.Empty(t, h.log.snapshot())
}

func TestHandle_ServiceFailureIsReturned(t *testing.T) {
	h := newMapperHarness(t)
	boom := errors.New("feedbackd gone")
	h.ringer.err = boom

	err := h.press(t, "2")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	// The haptic is not attempted once the ringer fails.
	assert.Equal(t, []call{{"ringer", "vibrate"}}, h.log.snapshot())
}

func TestHandle_SettingsFailureIsReturned(t *testing.T) {
	h := newMapperHarness(t)
	boom := errors.New("bad yaml")
	h.settings.err = boom

	err := h.press(t, "1")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, h.log.snapshot())
}

// ============================================================================
// Media mute tracking
// ============================================================================

func TestSilentThenVibrate_MutesAndUnmutes(t *testing.T) {
	h := newMapperHarness(t)
	h.settings.muteMedia = true

	require.NoError(t, h.press(t, "1"))
	assert.Equal(t, []call{{"ringer", "silent"}, {"audio", "mute"}}, h.log.snapshot())
	assert.True(t, h.m.WasMuted())

	h.log.reset()
	require.NoError(t, h.press(t, "2"))
	assert.Equal(t, []call{
		{"ringer", "vibrate"},
		{"audio", "unmute"},
		{"haptic", "double_click"},
	}, h.log.snapshot())

	// Only the external notification clears the flag.
	assert.True(t, h.m.WasMuted())

	// Without that notification NORMAL unmutes a second time.
	h.log.reset()
	require.NoError(t, h.press(t, "3"))
	assert.Equal(t, []call{
		{"ringer", "normal"},
		{"audio", "unmute"},
		{"haptic", "heavy_click"},
	}, h.log.snapshot())
	assert.True(t, h.m.WasMuted())
}

func TestSilent_PreferenceDisabled_NoMediaAdjust(t *testing.T) {
	h := newMapperHarness(t)

	require.NoError(t, h.press(t, "1"))
	assert.Equal(t, []call{{"ringer", "silent"}}, h.log.snapshot())
	assert.False(t, h.m.WasMuted())
}

func TestExternalUnmuteClearsTracking(t *testing.T) {
	h := newMapperHarness(t)
	h.settings.muteMedia = true

	require.NoError(t, h.press(t, "1"))
	require.True(t, h.m.WasMuted())

	h.m.OnMuteChanged(StreamMusic, false)
	assert.False(t, h.m.WasMuted())

	h.log.reset()
	require.NoError(t, h.press(t, "3"))
	assert.Equal(t, []call{{"ringer", "normal"}, {"haptic", "heavy_click"}}, h.log.snapshot())
}

func TestMuteNotificationsThatDoNotClear(t *testing.T) {
	tests := []struct {
		name   string
		stream StreamType
		muted  bool
	}{
		{"music muted", StreamMusic, true},
		{"ring unmuted", StreamRing, false},
		{"alarm muted", StreamAlarm, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newMapperHarness(t)
			h.settings.muteMedia = true
			require.NoError(t, h.press(t, "1"))

			h.m.OnMuteChanged(tt.stream, tt.muted)
			assert.True(t, h.m.WasMuted())
		})
	}
}

func TestRepeatedSilentIsIdempotent(t *testing.T) {
	h := newMapperHarness(t)
	h.settings.muteMedia = true

	require.NoError(t, h.press(t, "1"))
	require.NoError(t, h.press(t, "1"))

	assert.Equal(t, []call{
		{"ringer", "silent"}, {"audio", "mute"},
		{"ringer", "silent"}, {"audio", "mute"},
	}, h.log.snapshot())
	assert.True(t, h.m.WasMuted())
}

func TestFailedMuteDoesNotSetTracking(t *testing.T) {
	h := newMapperHarness(t)
	h.settings.muteMedia = true
	h.audio.err = errors.New("camilladsp down")

	err := h.press(t, "1")
	require.Error(t, err)
	assert.False(t, h.m.WasMuted())
}

func TestPreferenceReadOnEveryTransition(t *testing.T) {
	h := newMapperHarness(t)

	require.NoError(t, h.press(t, "1"))
	assert.False(t, h.m.WasMuted())

	h.settings.muteMedia = true
	require.NoError(t, h.press(t, "1"))
	assert.True(t, h.m.WasMuted())
}

func TestVibrateWithoutTracking_NoUnmute(t *testing.T) {
	h := newMapperHarness(t)
	h.settings.muteMedia = true

	require.NoError(t, h.press(t, "2"))
	assert.Equal(t, []call{{"ringer", "vibrate"}, {"haptic", "double_click"}}, h.log.snapshot())
}

// ============================================================================
// Snapshot / broadcasts
// ============================================================================

func TestSnapshotAndBroadcasts(t *testing.T) {
	h := newMapperHarness(t)
	h.settings.muteMedia = true
	ch := make(chan StateBroadcast, 8)
	h.m.SetBroadcasts(ch)

	snap := h.m.Snapshot()
	assert.False(t, snap.ModeKnown)

	require.NoError(t, h.press(t, "1"))

	snap = h.m.Snapshot()
	assert.True(t, snap.ModeKnown)
	assert.Equal(t, RingerModeSilent, snap.Mode)
	assert.True(t, snap.WasMuted)
	assert.False(t, snap.ModeAt.IsZero())

	require.Len(t, ch, 2)
	mc, ok := (<-ch).(BroadcastModeChanged)
	require.True(t, ok)
	assert.Equal(t, RingerModeSilent, mc.Mode)
	mt, ok := (<-ch).(BroadcastMuteTrackingChanged)
	require.True(t, ok)
	assert.True(t, mt.WasMuted)

	h.m.OnMuteChanged(StreamMusic, false)
	require.Len(t, ch, 1)
	mt, ok = (<-ch).(BroadcastMuteTrackingChanged)
	require.True(t, ok)
	assert.False(t, mt.WasMuted)

	// Already clear: no broadcast.
	h.m.OnMuteChanged(StreamMusic, false)
	assert.Len(t, ch, 0)
}

func TestConcurrentHandleAndMuteChanged(t *testing.T) {
	h := newMapperHarness(t)
	h.settings.muteMedia = true
	h.files.content = "1"

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			h.m.OnMuteChanged(StreamMusic, false)
		}
	}()

	// Mode changes run on a single goroutine, like the dispatch loop.
	for i := 0; i < 200; i++ {
		require.NoError(t, h.m.ApplyMode(RingerModeSilent))
	}
	wg.Wait()
}
