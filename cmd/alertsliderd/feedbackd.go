package main

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// feedbackd exposes the phone's feedback profile on D-Bus. Its three profiles
// line up with the ringer modes:
//
//	full   sound, haptic and LED        -> normal
//	quiet  haptic and LED only          -> vibrate
//	silent LED only                     -> silent
const (
	feedbackdBusName    = "org.sigxcpu.Feedback"
	feedbackdObjectPath = "/org/sigxcpu/Feedback"
	feedbackdProfile    = "org.sigxcpu.Feedback.Profile"
)

// feedbackdProfileFor maps a ringer mode to the feedbackd profile name.
func feedbackdProfileFor(mode RingerMode) (string, error) {
	switch mode {
	case RingerModeSilent:
		return "silent", nil
	case RingerModeVibrate:
		return "quiet", nil
	case RingerModeNormal:
		return "full", nil
	default:
		return "", fmt.Errorf("no feedbackd profile for %s", mode)
	}
}

// FeedbackdRinger sets the ringer mode through feedbackd's Profile property.
type FeedbackdRinger struct {
	conn   *dbus.Conn
	obj    dbus.BusObject
	logger *slog.Logger
}

// NewFeedbackdRinger connects to the session or system bus.
func NewFeedbackdRinger(bus string, logger *slog.Logger) (*FeedbackdRinger, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	switch bus {
	case "system":
		conn, err = dbus.ConnectSystemBus()
	case "session", "":
		conn, err = dbus.ConnectSessionBus()
	default:
		return nil, fmt.Errorf("invalid dbus bus: %q (must be session or system)", bus)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s bus: %w", bus, err)
	}

	return &FeedbackdRinger{
		conn:   conn,
		obj:    conn.Object(feedbackdBusName, dbus.ObjectPath(feedbackdObjectPath)),
		logger: logger,
	}, nil
}

// SetRingerMode implements RingerControl.
func (f *FeedbackdRinger) SetRingerMode(mode RingerMode) error {
	profile, err := feedbackdProfileFor(mode)
	if err != nil {
		return err
	}
	if err := f.obj.SetProperty(feedbackdProfile, dbus.MakeVariant(profile)); err != nil {
		return fmt.Errorf("feedbackd set profile %q: %w", profile, err)
	}
	f.logger.Debug("feedbackd profile set", "profile", profile)
	return nil
}

// Profile reads the active feedbackd profile.
func (f *FeedbackdRinger) Profile() (string, error) {
	v, err := f.obj.GetProperty(feedbackdProfile)
	if err != nil {
		return "", fmt.Errorf("feedbackd get profile: %w", err)
	}
	s, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("feedbackd profile has type %s", v.Signature())
	}
	return s, nil
}

// Close closes the bus connection.
func (f *FeedbackdRinger) Close() error {
	return f.conn.Close()
}
