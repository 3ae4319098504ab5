package main

import (
	"fmt"

	"github.com/bendahl/uinput"
)

// KeySink receives key events the Mapper did not consume.
type KeySink interface {
	Forward(ev KeyEvent) error
}

// uinputPassthrough re-emits unconsumed key events through a virtual
// keyboard. It is used when the input devices are grabbed, so keys other than
// the slider still reach the rest of the system.
type uinputPassthrough struct {
	kbd uinput.Keyboard
}

func newUinputPassthrough(path, name string) (*uinputPassthrough, error) {
	kbd, err := uinput.CreateKeyboard(path, []byte(name))
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	return &uinputPassthrough{kbd: kbd}, nil
}

// Forward implements KeySink. Repeats are sent as key down.
func (p *uinputPassthrough) Forward(ev KeyEvent) error {
	switch ev.Action {
	case KeyDown, KeyRepeat:
		return p.kbd.KeyDown(int(ev.Code))
	case KeyUp:
		return p.kbd.KeyUp(int(ev.Code))
	}
	return nil
}

func (p *uinputPassthrough) Close() error {
	return p.kbd.Close()
}
