package main

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MuteReader reports the current mute state of the media output.
type MuteReader interface {
	GetMute() (bool, error)
}

// MuteListener receives stream mute-change notifications.
type MuteListener interface {
	OnMuteChanged(stream StreamType, muted bool)
}

// runMuteWatcher polls the media output's mute state and turns changes into
// OnMuteChanged(StreamMusic, muted) notifications.
//
// The first successful observation only seeds the cache. Poll errors are
// logged and the next tick tries again. cache may be shared with the media
// backend (see muteEcho) so the daemon's own writes are not reported twice;
// nil means a private cache.
//
// Shutdown semantics:
//   - Exits when ctx is canceled
func runMuteWatcher(ctx context.Context, src MuteReader, listener MuteListener, cache *muteEcho, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Duration(defaultMutePollMS) * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if cache == nil {
		cache = &muteEcho{}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Debug("mute watcher stopping (context canceled)")
			return

		case <-ticker.C:
			muted, err := src.GetMute()
			if err != nil {
				logger.Warn("mute poll failed", "error", err)
				continue
			}
			if cache.observe(muted) {
				logger.Debug("media mute changed", "muted", muted)
				listener.OnMuteChanged(StreamMusic, muted)
			}
		}
	}
}

// muteWatch is the change detector behind runMuteWatcher.
type muteWatch struct {
	muted bool
	known bool
}

// observe records a mute observation and reports whether it is a change
// relative to a previous observation.
func (w *muteWatch) observe(muted bool) bool {
	if !w.known {
		w.known = true
		w.muted = muted
		return false
	}
	if w.muted == muted {
		return false
	}
	w.muted = muted
	return true
}

// muteEcho is the mute cache shared by the media backend and runMuteWatcher.
//
// A poller only sees changes that outlive one interval, so a mute followed by
// our own unmute within the same interval would never be reported and the
// Mapper would keep believing it owns a mute. The backend therefore records
// each successful write here; the Mapper drains the writes after a transition
// and handles them like any other mute notification.
type muteEcho struct {
	mu      sync.Mutex
	watch   muteWatch
	pending []bool
}

// wrote records a mute state the daemon itself applied.
func (e *muteEcho) wrote(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.watch.known = true
	e.watch.muted = muted
	e.pending = append(e.pending, muted)
}

func (e *muteEcho) observe(muted bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.watch.observe(muted)
}

// drain returns and clears the writes recorded since the last drain.
func (e *muteEcho) drain() []bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.pending
	e.pending = nil
	return out
}
