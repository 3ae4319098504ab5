package main

import (
	"context"
	"log/slog"
)

// keyHandler is what the dispatch loop feeds events into.
type keyHandler interface {
	Handle(ev KeyEvent) (*KeyEvent, error)
}

// ============================================================================
// Dispatch loop
// ============================================================================
// Events from every reader goroutine funnel into one channel and are handled
// here one at a time, so the Mapper sees a single input thread.
//
//   - Handle errors are logged; the loop keeps going
//   - Unconsumed events go to sink (if any)
//   - A reader error stops the loop and is returned
// ============================================================================

func runDispatch(ctx context.Context, events <-chan KeyEvent, readErr <-chan error, h keyHandler, sink KeySink, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			logger.Debug("dispatch loop stopping (context canceled)")
			return nil

		case err := <-readErr:
			if ctx.Err() != nil {
				// Devices are closed during shutdown; the resulting read error is expected.
				return nil
			}
			return err

		case ev := <-events:
			out, err := h.Handle(ev)
			if err != nil {
				logger.Error("slider event failed", "code", ev.Code, "device", ev.DeviceID, "error", err)
				continue
			}
			if out == nil || sink == nil {
				continue
			}
			if err := sink.Forward(*out); err != nil {
				logger.Warn("passthrough failed", "code", out.Code, "action", out.Action, "error", err)
			}
		}
	}
}
