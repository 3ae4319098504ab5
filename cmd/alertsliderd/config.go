package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the alertslider daemon.
//
// Precedence, lowest first: DefaultConfig, YAML file, dotenv file,
// ALERTSLIDER_* environment variables, command-line flags.
type Config struct {
	Slider     SliderConfig     `yaml:"slider"`
	Input      InputConfig      `yaml:"input"`
	Settings   SettingsConfig   `yaml:"settings"`
	Ringer     RingerConfig     `yaml:"ringer"`
	Media      MediaConfig      `yaml:"media"`
	CamillaDSP CamillaDSPConfig `yaml:"camilladsp"`
	Haptics    HapticsConfig    `yaml:"haptics"`
	IPC        IPCConfig        `yaml:"ipc"`
	StateWS    StateWSConfig    `yaml:"state_ws"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SliderConfig identifies the tri-state key hardware.
type SliderConfig struct {
	DeviceName string `yaml:"device_name" env:"ALERTSLIDER_DEVICE_NAME"`
	StatePath  string `yaml:"state_path" env:"ALERTSLIDER_STATE_PATH"`
}

type InputConfig struct {
	// Devices to open. Empty means: every input node named slider.device_name.
	Devices     []string `yaml:"devices,omitempty" env:"ALERTSLIDER_INPUT_DEVICES" envSeparator:","`
	Grab        bool     `yaml:"grab" env:"ALERTSLIDER_INPUT_GRAB"`
	Passthrough bool     `yaml:"passthrough" env:"ALERTSLIDER_INPUT_PASSTHROUGH"`
	UInputPath  string   `yaml:"uinput_path" env:"ALERTSLIDER_UINPUT_PATH"`
}

type SettingsConfig struct {
	Path string `yaml:"path" env:"ALERTSLIDER_SETTINGS_PATH"`
}

type RingerConfig struct {
	Backend string `yaml:"backend" env:"ALERTSLIDER_RINGER_BACKEND"` // "feedbackd" or "log"
	Bus     string `yaml:"bus" env:"ALERTSLIDER_RINGER_BUS"`         // "session" or "system"
}

type MediaConfig struct {
	Backend string `yaml:"backend" env:"ALERTSLIDER_MEDIA_BACKEND"` // "camilladsp" or "log"
}

type CamillaDSPConfig struct {
	WsURL      string `yaml:"ws_url" env:"ALERTSLIDER_CAMILLADSP_WS_URL"`
	TimeoutMS  int    `yaml:"timeout_ms" env:"ALERTSLIDER_CAMILLADSP_TIMEOUT_MS"`
	MutePollMS int    `yaml:"mute_poll_ms" env:"ALERTSLIDER_CAMILLADSP_MUTE_POLL_MS"`
}

type HapticsConfig struct {
	Backend string `yaml:"backend" env:"ALERTSLIDER_HAPTICS_BACKEND"` // "ff" or "log"
	Device  string `yaml:"device,omitempty" env:"ALERTSLIDER_HAPTICS_DEVICE"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path" env:"ALERTSLIDER_IPC_SOCKET"`
}

type StateWSConfig struct {
	Enabled bool   `yaml:"enabled" env:"ALERTSLIDER_STATE_WS_ENABLED"`
	Listen  string `yaml:"listen" env:"ALERTSLIDER_STATE_WS_LISTEN"`
	Path    string `yaml:"path" env:"ALERTSLIDER_STATE_WS_PATH"`
}

type LoggingConfig struct {
	Level string `yaml:"level" env:"ALERTSLIDER_LOG_LEVEL"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go.
func DefaultConfig() Config {
	return Config{
		Slider: SliderConfig{
			DeviceName: defaultSliderDeviceName,
			StatePath:  defaultSliderStatePath,
		},
		Input: InputConfig{
			Grab:        false,
			Passthrough: false,
			UInputPath:  defaultUInputPath,
		},
		Settings: SettingsConfig{
			Path: defaultSettingsPath,
		},
		Ringer: RingerConfig{
			Backend: "feedbackd",
			Bus:     defaultFeedbackdBus,
		},
		Media: MediaConfig{
			Backend: "log",
		},
		CamillaDSP: CamillaDSPConfig{
			WsURL:      "ws://127.0.0.1:1234",
			TimeoutMS:  defaultReadTimeoutMS,
			MutePollMS: defaultMutePollMS,
		},
		Haptics: HapticsConfig{
			Backend: "log",
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocketPath,
		},
		StateWS: StateWSConfig{
			Enabled: false,
			Listen:  defaultStateListen,
			Path:    defaultStateWSPath,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of the defaults.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// ApplyEnv loads envFile (if set) into the process environment without
// overriding variables that are already set, then applies ALERTSLIDER_*
// variables to cfg. Unset variables leave cfg untouched.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(ExpandPath(envFile)); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
// Each override is only applied if its pointer is non-nil (the flag was set).
type FlagOverrides struct {
	DeviceName   *string
	StatePath    *string
	InputDevice  *string
	Grab         *bool
	Passthrough  *bool
	SettingsPath *string

	RingerBackend  *string
	MediaBackend   *string
	CamillaWsURL   *string
	HapticsBackend *string
	HapticsDevice  *string

	IPCSocketPath *string
	StateWSListen *string

	LogLevel *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
// If the pointer is non-nil, the value is applied (even if it is a “zero value”).
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.DeviceName != nil {
		cfg.Slider.DeviceName = *o.DeviceName
	}
	if o.StatePath != nil {
		cfg.Slider.StatePath = *o.StatePath
	}
	if o.InputDevice != nil {
		cfg.Input.Devices = []string{*o.InputDevice}
	}
	if o.Grab != nil {
		cfg.Input.Grab = *o.Grab
	}
	if o.Passthrough != nil {
		cfg.Input.Passthrough = *o.Passthrough
	}
	if o.SettingsPath != nil {
		cfg.Settings.Path = *o.SettingsPath
	}
	if o.RingerBackend != nil {
		cfg.Ringer.Backend = *o.RingerBackend
	}
	if o.MediaBackend != nil {
		cfg.Media.Backend = *o.MediaBackend
	}
	if o.CamillaWsURL != nil {
		cfg.CamillaDSP.WsURL = *o.CamillaWsURL
	}
	if o.HapticsBackend != nil {
		cfg.Haptics.Backend = *o.HapticsBackend
	}
	if o.HapticsDevice != nil {
		cfg.Haptics.Device = *o.HapticsDevice
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.StateWSListen != nil {
		cfg.StateWS.Enabled = true
		cfg.StateWS.Listen = *o.StateWSListen
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + env + overrides are applied.
func (c *Config) Validate() error {
	// Slider
	if c.Slider.DeviceName == "" {
		return errors.New("slider.device_name must not be empty")
	}
	if c.Slider.StatePath == "" {
		return errors.New("slider.state_path must not be empty")
	}

	// Input
	for i, dev := range c.Input.Devices {
		if strings.TrimSpace(dev) == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	if c.Input.Passthrough && !c.Input.Grab {
		return errors.New("input.passthrough requires input.grab")
	}
	if c.Input.Passthrough && c.Input.UInputPath == "" {
		return errors.New("input.passthrough is true but input.uinput_path is empty")
	}

	// Settings
	if c.Settings.Path == "" {
		return errors.New("settings.path must not be empty")
	}

	// Ringer
	switch c.Ringer.Backend {
	case "feedbackd":
		if c.Ringer.Bus != "session" && c.Ringer.Bus != "system" {
			return errors.New(`ringer.bus must be "session" or "system"`)
		}
	case "log":
	default:
		return fmt.Errorf("ringer.backend must be %q or %q", "feedbackd", "log")
	}

	// Media
	switch c.Media.Backend {
	case "camilladsp":
		if c.CamillaDSP.WsURL == "" {
			return errors.New("camilladsp.ws_url must not be empty")
		}
		if c.CamillaDSP.TimeoutMS <= 0 {
			return errors.New("camilladsp.timeout_ms must be > 0")
		}
		if c.CamillaDSP.MutePollMS <= 0 {
			return errors.New("camilladsp.mute_poll_ms must be > 0")
		}
	case "log":
	default:
		return fmt.Errorf("media.backend must be %q or %q", "camilladsp", "log")
	}

	// Haptics
	switch c.Haptics.Backend {
	case "ff":
		if c.Haptics.Device == "" {
			return errors.New("haptics.backend is ff but haptics.device is empty")
		}
	case "log":
	default:
		return fmt.Errorf("haptics.backend must be %q or %q", "ff", "log")
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// State websocket
	if c.StateWS.Enabled {
		if c.StateWS.Listen == "" {
			return errors.New("state_ws.enabled is true but state_ws.listen is empty")
		}
		if !strings.HasPrefix(c.StateWS.Path, "/") {
			return errors.New("state_ws.path must start with /")
		}
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// MutePollInterval returns the CamillaDSP mute polling interval.
func (c *Config) MutePollInterval() time.Duration {
	return time.Duration(c.CamillaDSP.MutePollMS) * time.Millisecond
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
