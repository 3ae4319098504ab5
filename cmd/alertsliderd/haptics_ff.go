//go:build linux

package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux force-feedback constants (from <linux/input.h>)
const (
	evFF     = 0x15
	ffRumble = 0x50
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// ffRumbleEffect mirrors struct ff_effect with the rumble member of the union
// filled in. The union is 8-byte aligned on 64-bit targets, so it starts at
// offset 16 and the whole struct is 48 bytes.
type ffRumbleEffect struct {
	Type          uint16
	ID            int16
	Direction     uint16
	TriggerButton uint16
	TriggerIntvl  uint16
	ReplayLength  uint16
	ReplayDelay   uint16
	_             [2]byte
	Strong        uint16
	Weak          uint16
	_             [28]byte
}

// ioctl request numbers: _IOW('E', 0x80, struct ff_effect) and _IOW('E', 0x81, int)
var (
	eviocsff  = iocWrite('E', 0x80, unsafe.Sizeof(ffRumbleEffect{}))
	eviocrmff = iocWrite('E', 0x81, unsafe.Sizeof(int32(0)))
)

func iocWrite(typ byte, nr byte, size uintptr) uintptr {
	return 1<<30 | size<<16 | uintptr(typ)<<8 | uintptr(nr)
}

// rumblePattern is a pulse played count times.
type rumblePattern struct {
	length    time.Duration
	gap       time.Duration
	magnitude uint16
	count     int32
}

// hapticPatterns are the two fixed slider feedback patterns.
var hapticPatterns = map[HapticEffect]rumblePattern{
	EffectDoubleClick: {length: doubleClickPulse, gap: doubleClickGap, magnitude: doubleClickMagnitude, count: 2},
	EffectHeavyClick:  {length: heavyClickPulse, magnitude: heavyClickMagnitude, count: 1},
}

// FFVibrator plays haptic patterns on an input device exposing FF_RUMBLE
// (e.g. a gpio/pwm vibrator node under /dev/input).
type FFVibrator struct {
	mu      sync.Mutex
	f       *os.File
	effects map[HapticEffect]int16
	logger  *slog.Logger
}

// NewFFVibrator opens the vibrator device and uploads both patterns.
func NewFFVibrator(path string, logger *slog.Logger) (*FFVibrator, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open vibrator %s: %w", path, err)
	}

	v := &FFVibrator{
		f:       f,
		effects: make(map[HapticEffect]int16, len(hapticPatterns)),
		logger:  logger,
	}

	for effect, p := range hapticPatterns {
		id, err := v.upload(p)
		if err != nil {
			v.Close()
			return nil, fmt.Errorf("upload %s effect: %w", effect, err)
		}
		v.effects[effect] = id
	}

	return v, nil
}

func (v *FFVibrator) upload(p rumblePattern) (int16, error) {
	eff := ffRumbleEffect{
		Type:         ffRumble,
		ID:           -1, // kernel assigns
		ReplayLength: uint16(p.length / time.Millisecond),
		ReplayDelay:  uint16(p.gap / time.Millisecond),
		Strong:       p.magnitude,
		Weak:         p.magnitude / 2,
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, v.f.Fd(), eviocsff, uintptr(unsafe.Pointer(&eff)))
	if errno != 0 {
		return 0, errno
	}
	return eff.ID, nil
}

// Vibrate implements HapticControl. It queues playback and returns.
func (v *FFVibrator) Vibrate(effect HapticEffect) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	id, ok := v.effects[effect]
	if !ok {
		return fmt.Errorf("unknown haptic effect %s", effect)
	}
	p := hapticPatterns[effect]

	now := time.Now()
	ev := inputEvent{
		Sec:   now.Unix(),
		Usec:  int64(now.Nanosecond() / 1000),
		Type:  evFF,
		Code:  uint16(id),
		Value: p.count,
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, ev); err != nil {
		return fmt.Errorf("encode ff event: %w", err)
	}
	if _, err := v.f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("play %s: %w", effect, err)
	}

	v.logger.Debug("haptic played", "effect", effect)
	return nil
}

// Close erases the uploaded effects and closes the device.
func (v *FFVibrator) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for effect, id := range v.effects {
		if _, _, errno := unix.Syscall(unix.SYS_IOCTL, v.f.Fd(), eviocrmff, uintptr(id)); errno != 0 {
			v.logger.Debug("erase ff effect failed", "effect", effect, "error", errno)
		}
	}
	v.effects = nil
	return v.f.Close()
}
