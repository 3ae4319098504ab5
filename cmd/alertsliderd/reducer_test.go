package main

import (
	"reflect"
	"testing"
)

func TestPlanMode(t *testing.T) {
	tests := []struct {
		name      string
		mode      RingerMode
		muteMedia bool
		wasMuted  bool
		want      []Command
	}{
		{
			name: "silent without preference",
			mode: RingerModeSilent,
			want: []Command{CmdSetRingerMode{Mode: RingerModeSilent}},
		},
		{
			name:      "silent with preference mutes and tracks",
			mode:      RingerModeSilent,
			muteMedia: true,
			want: []Command{
				CmdSetRingerMode{Mode: RingerModeSilent},
				CmdAdjustMediaVolume{Adjust: AdjustMute, TrackMute: true},
			},
		},
		{
			name:      "silent while already tracked mutes again",
			mode:      RingerModeSilent,
			muteMedia: true,
			wasMuted:  true,
			want: []Command{
				CmdSetRingerMode{Mode: RingerModeSilent},
				CmdAdjustMediaVolume{Adjust: AdjustMute, TrackMute: true},
			},
		},
		{
			name:      "vibrate unmutes when tracked",
			mode:      RingerModeVibrate,
			muteMedia: true,
			wasMuted:  true,
			want: []Command{
				CmdSetRingerMode{Mode: RingerModeVibrate},
				CmdAdjustMediaVolume{Adjust: AdjustUnmute},
				CmdVibrate{Effect: EffectDoubleClick},
			},
		},
		{
			name:     "vibrate tracked but preference off",
			mode:     RingerModeVibrate,
			wasMuted: true,
			want: []Command{
				CmdSetRingerMode{Mode: RingerModeVibrate},
				CmdVibrate{Effect: EffectDoubleClick},
			},
		},
		{
			name:      "normal untracked",
			mode:      RingerModeNormal,
			muteMedia: true,
			want: []Command{
				CmdSetRingerMode{Mode: RingerModeNormal},
				CmdVibrate{Effect: EffectHeavyClick},
			},
		},
		{
			name:      "normal unmutes when tracked",
			mode:      RingerModeNormal,
			muteMedia: true,
			wasMuted:  true,
			want: []Command{
				CmdSetRingerMode{Mode: RingerModeNormal},
				CmdAdjustMediaVolume{Adjust: AdjustUnmute},
				CmdVibrate{Effect: EffectHeavyClick},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := planMode(tt.mode, tt.muteMedia, tt.wasMuted)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("planMode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReduceMuteChanged(t *testing.T) {
	tests := []struct {
		wasMuted bool
		stream   StreamType
		muted    bool
		want     bool
	}{
		{true, StreamMusic, false, false},
		{true, StreamMusic, true, true},
		{true, StreamRing, false, true},
		{true, StreamNotification, false, true},
		{false, StreamMusic, false, false},
		{false, StreamMusic, true, false},
	}
	for _, tt := range tests {
		if got := reduceMuteChanged(tt.wasMuted, tt.stream, tt.muted); got != tt.want {
			t.Errorf("reduceMuteChanged(%v, %d, %v) = %v, want %v", tt.wasMuted, tt.stream, tt.muted, got, tt.want)
		}
	}
}
