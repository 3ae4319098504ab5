package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMuteWatch_Observe(t *testing.T) {
	var w muteWatch
	assert.False(t, w.observe(true), "first observation only seeds")
	assert.False(t, w.observe(true))
	assert.True(t, w.observe(false))
	assert.False(t, w.observe(false))
	assert.True(t, w.observe(true))
}

// scriptedMute returns a fixed sequence of observations, then repeats the last.
type scriptedMute struct {
	mu    sync.Mutex
	steps []any // bool or error
}

func (s *scriptedMute) GetMute() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step := s.steps[0]
	if len(s.steps) > 1 {
		s.steps = s.steps[1:]
	}
	if err, ok := step.(error); ok {
		return false, err
	}
	return step.(bool), nil
}

type muteRecorder struct {
	mu    sync.Mutex
	calls []StreamMuteChanged
}

func (r *muteRecorder) OnMuteChanged(stream StreamType, muted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, StreamMuteChanged{Stream: stream, Muted: muted})
}

func (r *muteRecorder) get() []StreamMuteChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StreamMuteChanged(nil), r.calls...)
}

func TestRunMuteWatcher_ReportsChangesOnly(t *testing.T) {
	src := &scriptedMute{steps: []any{true, true, errors.New("timeout"), false, false, true}}
	rec := &muteRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		runMuteWatcher(ctx, src, rec, nil, time.Millisecond, quietLogger())
	}()

	want := []StreamMuteChanged{
		{Stream: StreamMusic, Muted: false},
		{Stream: StreamMusic, Muted: true},
	}
	require.Eventually(t, func() bool { return len(rec.get()) >= len(want) }, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, want, rec.get())
}

func TestRunMuteWatcher_ClearsMapperTracking(t *testing.T) {
	h := newMapperHarness(t)
	h.settings.muteMedia = true
	require.NoError(t, h.m.ApplyMode(RingerModeSilent))
	require.True(t, h.m.WasMuted())

	// The mute applied by the Mapper is seen first, then the user unmutes.
	src := &scriptedMute{steps: []any{true, false}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runMuteWatcher(ctx, src, h.m, nil, time.Millisecond, quietLogger())

	require.Eventually(t, func() bool { return !h.m.WasMuted() }, 2*time.Second, 5*time.Millisecond)
}

func TestMuteEcho_OwnWritesAreNotPolledTwice(t *testing.T) {
	var e muteEcho
	assert.False(t, e.observe(false), "first observation only seeds")

	e.wrote(true)
	assert.False(t, e.observe(true), "our own mute is already known")
	assert.True(t, e.observe(false))

	e.wrote(true)
	e.wrote(false)
	assert.Equal(t, []bool{true, false}, e.drain())
	assert.Empty(t, e.drain())
}

// mediaDSP is a mute-only CamillaDSP stand-in serving as both the audio
// backend and the watcher's source.
type mediaDSP struct {
	mu     sync.Mutex
	muted  bool
	writes []bool
	reads  int
}

func (d *mediaDSP) GetMute() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	return d.muted, nil
}

func (d *mediaDSP) SetMute(muted bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muted = muted
	d.writes = append(d.writes, muted)
	return nil
}

func (d *mediaDSP) Close() error { return nil }

// userMute changes the state behind the daemon's back.
func (d *mediaDSP) userMute() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muted = true
}

func (d *mediaDSP) snapshot() (muted bool, writes []bool, reads int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.muted, append([]bool(nil), d.writes...), d.reads
}

func TestFastSilentVibrateCycle_KeepsUserMute(t *testing.T) {
	dsp := &mediaDSP{}
	cache := &muteEcho{}
	log := &callLog{}
	m := NewMapper(MapperConfig{}, MapperDeps{
		Settings: &fakeSettings{muteMedia: true},
		Backends: Backends{
			Ringer: &fakeRinger{log: log},
			Audio:  camillaMediaAudio{client: dsp, echo: cache},
			Haptic: &fakeHaptic{log: log},
		},
	}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		runMuteWatcher(ctx, dsp, m, cache, 5*time.Millisecond, quietLogger())
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Both transitions land well inside one poll interval.
	require.NoError(t, m.ApplyMode(RingerModeSilent))
	require.NoError(t, m.ApplyMode(RingerModeVibrate))
	assert.False(t, m.WasMuted(), "our own unmute releases the tracked mute")

	dsp.userMute()
	_, _, reads := dsp.snapshot()
	require.Eventually(t, func() bool {
		_, _, n := dsp.snapshot()
		return n >= reads+2
	}, 2*time.Second, time.Millisecond)

	require.NoError(t, m.ApplyMode(RingerModeNormal))

	muted, writes, _ := dsp.snapshot()
	assert.Equal(t, []bool{true, false}, writes)
	assert.True(t, muted, "the user's mute survives NORMAL")
	assert.False(t, m.WasMuted())
}
