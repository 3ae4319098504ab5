package main

// This file holds the pure half of mode application:
//
//   - planMode computes the ordered Commands for a ringer mode transition
//   - reduceMuteChanged computes the next wasMuted value for a mute notification
//
// Neither function performs I/O. The Mapper reads the preference, calls the
// planner and hands the Commands to runEffect.

// planMode returns the side effects for entering mode.
//
//	SILENT          set ringer; mute media if muteMedia
//	VIBRATE/NORMAL  set ringer; unmute media if muteMedia && wasMuted
//	                (wasMuted is left untouched, only a mute notification clears it)
//	haptic          double click for VIBRATE, heavy click for NORMAL, none for SILENT
func planMode(mode RingerMode, muteMedia, wasMuted bool) []Command {
	cmds := []Command{CmdSetRingerMode{Mode: mode}}

	switch mode {
	case RingerModeSilent:
		if muteMedia {
			cmds = append(cmds, CmdAdjustMediaVolume{Adjust: AdjustMute, TrackMute: true})
		}
	case RingerModeVibrate, RingerModeNormal:
		if muteMedia && wasMuted {
			cmds = append(cmds, CmdAdjustMediaVolume{Adjust: AdjustUnmute})
		}
	}

	if effect, ok := hapticForMode(mode); ok {
		cmds = append(cmds, CmdVibrate{Effect: effect})
	}
	return cmds
}

func hapticForMode(mode RingerMode) (HapticEffect, bool) {
	switch mode {
	case RingerModeVibrate:
		return EffectDoubleClick, true
	case RingerModeNormal:
		return EffectHeavyClick, true
	}
	return 0, false
}

// reduceMuteChanged returns the next wasMuted value after a stream mute
// notification. Only the music stream becoming unmuted clears the flag,
// whoever caused it.
func reduceMuteChanged(wasMuted bool, stream StreamType, muted bool) bool {
	if stream == StreamMusic && !muted {
		return false
	}
	return wasMuted
}
