package main

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	evdev "github.com/holoplot/go-evdev"
)

// inputDevice is an opened evdev node.
type inputDevice struct {
	id   int
	path string
	name string
	dev  *evdev.InputDevice
}

// DeviceRegistry owns the opened input devices and resolves device ids to
// their kernel-reported names.
type DeviceRegistry struct {
	mu      sync.RWMutex
	devices []*inputDevice
	grabbed bool
}

// DeviceName implements DeviceNamer.
func (r *DeviceRegistry) DeviceName(id int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 0 || id >= len(r.devices) {
		return "", false
	}
	return r.devices[id].name, true
}

// Len returns the number of opened devices.
func (r *DeviceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

func (r *DeviceRegistry) add(path, name string, dev *evdev.InputDevice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = append(r.devices, &inputDevice{
		id:   len(r.devices),
		path: path,
		name: name,
		dev:  dev,
	})
}

// Close ungrabs and closes all devices. Closing unblocks pending reads.
func (r *DeviceRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, d := range r.devices {
		if d.dev == nil {
			continue
		}
		if r.grabbed {
			_ = d.dev.Ungrab()
		}
		if err := d.dev.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", d.path, err))
		}
		d.dev = nil
	}
	return errors.Join(errs...)
}

// openInputDevices opens the configured device paths. With no paths
// configured it opens every input node whose name equals sliderName.
// When grab is set each device is grabbed exclusively so its events only
// reach this daemon.
func openInputDevices(paths []string, sliderName string, grab bool, logger *slog.Logger) (*DeviceRegistry, error) {
	if len(paths) == 0 {
		found, err := evdev.ListDevicePaths()
		if err != nil {
			return nil, fmt.Errorf("list input devices: %w", err)
		}
		for _, p := range found {
			if p.Name == sliderName {
				paths = append(paths, p.Path)
			}
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no input device named %q found", sliderName)
		}
	}

	reg := &DeviceRegistry{grabbed: grab}
	for _, p := range paths {
		dev, err := evdev.Open(ExpandPath(p))
		if err != nil {
			reg.Close()
			return nil, fmt.Errorf("open input device %s: %w", p, err)
		}

		name, err := dev.Name()
		if err != nil {
			dev.Close()
			reg.Close()
			return nil, fmt.Errorf("read name of %s: %w", p, err)
		}

		if grab {
			if err := dev.Grab(); err != nil {
				dev.Close()
				reg.Close()
				return nil, fmt.Errorf("grab %s: %w", p, err)
			}
		}

		reg.add(p, name, dev)
		logger.Info("input device opened", "path", p, "name", name, "grabbed", grab)
	}

	return reg, nil
}

// startReaders starts one reader goroutine per device. Each goroutine sends
// key events on events and exits after reporting its first read error.
func (r *DeviceRegistry) startReaders(events chan<- KeyEvent, readErr chan<- error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.devices {
		go readKeyEvents(d.id, d.path, d.dev, events, readErr)
	}
}

// readKeyEvents reads input events from one device and forwards EV_KEY events.
// This runs in a dedicated goroutine and blocks on read operations.
func readKeyEvents(id int, path string, dev *evdev.InputDevice, events chan<- KeyEvent, readErr chan<- error) {
	for {
		ev, err := dev.ReadOne()
		if err != nil {
			readErr <- fmt.Errorf("read from %s: %w", path, err)
			return
		}
		if ev.Type != evdev.EV_KEY {
			continue
		}

		action, ok := keyActionFromValue(ev.Value)
		if !ok {
			continue
		}

		events <- KeyEvent{
			DeviceID: id,
			Code:     uint16(ev.Code),
			Action:   action,
		}
	}
}
