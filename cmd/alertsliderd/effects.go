package main

import (
	"fmt"
	"log/slog"
)

// Backends bundles the OS services the mode planner's commands run against.
type Backends struct {
	Ringer RingerControl
	Audio  AudioControl
	Haptic HapticControl
}

// runEffect executes a single planner-emitted Command.
//
// Design rules:
//   - This function is allowed to perform I/O.
//   - It never retries; failures are returned to the caller, which aborts the
//     remaining commands of the transition.
func runEffect(b Backends, cmd Command, logger *slog.Logger) error {
	switch c := cmd.(type) {
	case CmdSetRingerMode:
		if b.Ringer == nil {
			return errNoBackend{name: "ringer"}
		}
		if err := b.Ringer.SetRingerMode(c.Mode); err != nil {
			return fmt.Errorf("set ringer mode %s: %w", c.Mode, err)
		}
		logger.Debug("ringer mode set", "mode", c.Mode)

	case CmdAdjustMediaVolume:
		if b.Audio == nil {
			return errNoBackend{name: "audio"}
		}
		if err := b.Audio.AdjustMediaVolume(c.Adjust); err != nil {
			return fmt.Errorf("adjust media volume (%s): %w", c.Adjust, err)
		}
		logger.Debug("media volume adjusted", "adjust", c.Adjust)

	case CmdVibrate:
		if b.Haptic == nil {
			return errNoBackend{name: "haptic"}
		}
		if err := b.Haptic.Vibrate(c.Effect); err != nil {
			return fmt.Errorf("vibrate %s: %w", c.Effect, err)
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
		return errUnknownCommand{cmd: cmd}
	}
	return nil
}

// errNoBackend indicates a command was issued without the matching backend.
type errNoBackend struct {
	name string
}

func (e errNoBackend) Error() string { return "no " + e.name + " backend" }

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }
