package main

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTarget struct {
	mu       sync.Mutex
	mutes    []StreamMuteChanged
	modes    []RingerMode
	applyErr error
	snap     StateSnapshot
}

func (r *recordingTarget) OnMuteChanged(stream StreamType, muted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutes = append(r.mutes, StreamMuteChanged{Stream: stream, Muted: muted})
}

func (r *recordingTarget) ApplyMode(mode RingerMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes = append(r.modes, mode)
	return r.applyErr
}

func (r *recordingTarget) Snapshot() StateSnapshot { return r.snap }

func TestEventEnvelopeRoundTrip(t *testing.T) {
	for _, ev := range []Event{
		StreamMuteChanged{Stream: StreamMusic, Muted: false},
		ApplyMode{Mode: RingerModeVibrate},
		GetState{},
	} {
		b, err := MarshalEvent(ev)
		require.NoError(t, err)
		got, err := UnmarshalEvent(b)
		require.NoError(t, err)
		assert.Equal(t, ev, got)
	}
}

func TestApplyIPCLine(t *testing.T) {
	target := &recordingTarget{snap: StateSnapshot{Mode: RingerModeNormal, ModeKnown: true}}

	resp := applyIPCLine(`{"type":"stream_mute_changed","data":{"stream":3,"muted":false}}`, target)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []StreamMuteChanged{{Stream: StreamMusic, Muted: false}}, target.mutes)

	resp = applyIPCLine(`{"type":"apply_mode","data":{"mode":"silent"}}`, target)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []RingerMode{RingerModeSilent}, target.modes)

	resp = applyIPCLine(`{"type":"get_state"}`, target)
	require.NotNil(t, resp.State)
	assert.Equal(t, RingerModeNormal, resp.State.Mode)

	resp = applyIPCLine(`{"type":"apply_mode","data":{"mode":"loud"}}`, target)
	assert.Equal(t, "error", resp.Status)

	// An absent or null mode must not fall back to silent.
	for _, line := range []string{
		`{"type":"apply_mode","data":{}}`,
		`{"type":"apply_mode","data":{"mode":null}}`,
	} {
		resp = applyIPCLine(line, target)
		assert.Equal(t, "error", resp.Status, line)
		assert.Contains(t, resp.Error, "missing mode", line)
	}
	assert.Equal(t, []RingerMode{RingerModeSilent}, target.modes)

	resp = applyIPCLine(`{"type":"volume_up"}`, target)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "unknown event type")

	target.applyErr = errors.New("feedbackd gone")
	resp = applyIPCLine(`{"type":"apply_mode","data":{"mode":"normal"}}`, target)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "feedbackd gone", resp.Error)
}

func TestIPCServer_EndToEnd(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "alertslider.sock")
	target := &recordingTarget{snap: StateSnapshot{WasMuted: true}}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- runIPCServer(ctx, socket, target, quietLogger()) }()

	var resp IPCResponse
	require.Eventually(t, func() bool {
		var err error
		resp, err = SendIPCEvent(socket, GetState{})
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	require.NotNil(t, resp.State)
	assert.True(t, resp.State.WasMuted)

	resp, err := SendIPCEvent(socket, StreamMuteChanged{Stream: StreamMusic, Muted: true})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)

	target.mu.Lock()
	assert.Len(t, target.mutes, 1)
	target.mu.Unlock()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("IPC server did not stop")
	}
}
