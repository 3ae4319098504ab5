package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Log-only backends for hosts that lack feedbackd, CamillaDSP or a vibrator.

type logRinger struct{ logger *slog.Logger }

func (l logRinger) SetRingerMode(mode RingerMode) error {
	l.logger.Info("ringer mode (log backend)", "mode", mode)
	return nil
}

type logAudio struct{ logger *slog.Logger }

func (l logAudio) AdjustMediaVolume(adjust MediaAdjust) error {
	l.logger.Info("media volume (log backend)", "adjust", adjust)
	return nil
}

type logHaptic struct{ logger *slog.Logger }

func (l logHaptic) Vibrate(effect HapticEffect) error {
	l.logger.Info("haptic (log backend)", "effect", effect)
	return nil
}

// openedBackends holds the constructed backends plus whatever needs closing.
type openedBackends struct {
	Backends
	camilla   *CamillaDSPClient
	muteCache *muteEcho // shared by the camilla backend and the mute watcher
	closers   []io.Closer
}

func (o *openedBackends) Close() error {
	var errs []error
	for i := len(o.closers) - 1; i >= 0; i-- {
		if err := o.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openBackends constructs the ringer, audio and haptic backends named in cfg.
func openBackends(cfg *Config, logger *slog.Logger) (*openedBackends, error) {
	ob := &openedBackends{}

	switch cfg.Ringer.Backend {
	case "feedbackd":
		r, err := NewFeedbackdRinger(cfg.Ringer.Bus, logger)
		if err != nil {
			ob.Close()
			return nil, fmt.Errorf("ringer backend: %w", err)
		}
		if p, err := r.Profile(); err != nil {
			logger.Warn("feedbackd not answering yet", "error", err)
		} else {
			logger.Info("feedbackd connected", "bus", cfg.Ringer.Bus, "profile", p)
		}
		ob.Ringer = r
		ob.closers = append(ob.closers, r)
	default:
		ob.Ringer = logRinger{logger: logger}
	}

	switch cfg.Media.Backend {
	case "camilladsp":
		c, err := NewCamillaDSPClient(cfg.CamillaDSP.WsURL, logger, cfg.CamillaDSP.TimeoutMS)
		if err != nil {
			ob.Close()
			return nil, fmt.Errorf("media backend: %w", err)
		}
		ob.muteCache = &muteEcho{}
		ob.Audio = camillaMediaAudio{client: c, echo: ob.muteCache}
		ob.camilla = c
		ob.closers = append(ob.closers, c)
	default:
		ob.Audio = logAudio{logger: logger}
	}

	switch cfg.Haptics.Backend {
	case "ff":
		v, err := NewFFVibrator(cfg.Haptics.Device, logger)
		if err != nil {
			ob.Close()
			return nil, fmt.Errorf("haptics backend: %w", err)
		}
		ob.Haptic = v
		ob.closers = append(ob.closers, v)
	default:
		ob.Haptic = logHaptic{logger: logger}
	}

	return ob, nil
}
