package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("alertsliderd v%s\n", version)
	fmt.Println("Alert slider daemon: maps the tri-state key to ringer modes")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  alertsliderd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Watches the alert slider input device. On every key press from the")
	fmt.Println("  slider it reads the slider position from the kernel status file and")
	fmt.Println("  switches the ringer mode (top: silent, middle: vibrate, bottom: normal),")
	fmt.Println("  optionally muting media while silent and playing a haptic pulse.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        YAML config file (optional; defaults are used when omitted)")
	fmt.Println()
	fmt.Println("  -env-file string")
	fmt.Println("        dotenv file with ALERTSLIDER_* variables (optional)")
	fmt.Println()
	fmt.Println("  -device-name string")
	fmt.Printf("        Slider input device name (default %q)\n", defaultSliderDeviceName)
	fmt.Println()
	fmt.Println("  -state-path string")
	fmt.Printf("        Slider position status file (default %q)\n", defaultSliderStatePath)
	fmt.Println()
	fmt.Println("  -input-device string")
	fmt.Println("        Input event device to read (default: auto-detect by device name)")
	fmt.Println()
	fmt.Println("  -grab")
	fmt.Println("        Grab input devices exclusively")
	fmt.Println()
	fmt.Println("  -passthrough")
	fmt.Println("        Re-emit unhandled keys through uinput (requires -grab)")
	fmt.Println()
	fmt.Println("  -settings string")
	fmt.Printf("        Settings file holding %s (default %q)\n", settingAlertSliderMuteMedia, defaultSettingsPath)
	fmt.Println()
	fmt.Println("  -ringer-backend string")
	fmt.Println("        Ringer backend: feedbackd|log (default \"feedbackd\")")
	fmt.Println()
	fmt.Println("  -media-backend string")
	fmt.Println("        Media mute backend: camilladsp|log (default \"log\")")
	fmt.Println()
	fmt.Println("  -camilladsp-ws-url string")
	fmt.Println("        CamillaDSP websocket URL (default \"ws://127.0.0.1:1234\")")
	fmt.Println()
	fmt.Println("  -haptics-backend string")
	fmt.Println("        Haptics backend: ff|log (default \"log\")")
	fmt.Println()
	fmt.Println("  -haptics-device string")
	fmt.Println("        Force-feedback input device for the ff backend")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultIPCSocketPath)
	fmt.Println()
	fmt.Println("  -state-ws-listen string")
	fmt.Println("        Enable the state websocket on this address (e.g. 127.0.0.1:3002)")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Auto-detect the slider, log-only media and haptics")
	fmt.Println("  alertsliderd")
	fmt.Println()
	fmt.Println("  # Grab the slider node and mute CamillaDSP while silent")
	fmt.Println("  alertsliderd -input-device /dev/input/event3 -grab -media-backend camilladsp")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires read access to input devices (run as root or add user to 'input' group)")
	fmt.Println("  - Environment variables (ALERTSLIDER_*) override the config file; flags override both")
	fmt.Println()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath     = flag.String("config", "", "YAML config file")
		envFile        = flag.String("env-file", "", "dotenv file with ALERTSLIDER_* variables")
		deviceName     = flag.String("device-name", defaultSliderDeviceName, "Slider input device name")
		statePath      = flag.String("state-path", defaultSliderStatePath, "Slider position status file")
		inputDevice    = flag.String("input-device", "", "Input event device to read")
		grab           = flag.Bool("grab", false, "Grab input devices exclusively")
		passthrough    = flag.Bool("passthrough", false, "Re-emit unhandled keys through uinput")
		settingsPath   = flag.String("settings", defaultSettingsPath, "Settings file")
		ringerBackend  = flag.String("ringer-backend", "feedbackd", "Ringer backend: feedbackd|log")
		mediaBackend   = flag.String("media-backend", "log", "Media mute backend: camilladsp|log")
		camillaWsURL   = flag.String("camilladsp-ws-url", "ws://127.0.0.1:1234", "CamillaDSP websocket URL")
		hapticsBackend = flag.String("haptics-backend", "log", "Haptics backend: ff|log")
		hapticsDevice  = flag.String("haptics-device", "", "Force-feedback input device")
		ipcSocketPath  = flag.String("ipc-socket", defaultIPCSocketPath, "Unix domain socket path for IPC")
		stateWSListen  = flag.String("state-ws-listen", "", "State websocket listen address")
		logLevelStr    = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		showVersion    = flag.Bool("version", false, "Print version and exit")
		showHelp       = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Only flags given on the command line override the config.
	var ov FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device-name":
			ov.DeviceName = deviceName
		case "state-path":
			ov.StatePath = statePath
		case "input-device":
			ov.InputDevice = inputDevice
		case "grab":
			ov.Grab = grab
		case "passthrough":
			ov.Passthrough = passthrough
		case "settings":
			ov.SettingsPath = settingsPath
		case "ringer-backend":
			ov.RingerBackend = ringerBackend
		case "media-backend":
			ov.MediaBackend = mediaBackend
		case "camilladsp-ws-url":
			ov.CamillaWsURL = camillaWsURL
		case "haptics-backend":
			ov.HapticsBackend = hapticsBackend
		case "haptics-device":
			ov.HapticsDevice = hapticsDevice
		case "ipc-socket":
			ov.IPCSocketPath = ipcSocketPath
		case "state-ws-listen":
			ov.StateWSListen = stateWSListen
		case "log-level":
			ov.LogLevel = logLevelStr
		}
	})

	cfg, err := loadConfig(*configPath, *envFile, ov)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level) // checked by Validate
	logger := setupLogger(logLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("alertsliderd stopped", "error", err)
		os.Exit(1)
	}
}

// loadConfig layers defaults, the optional YAML file, the environment and the
// flag overrides, then validates the result.
func loadConfig(path, envFile string, ov FlagOverrides) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		fileCfg, err := LoadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = fileCfg
	}
	if err := ApplyEnv(&cfg, envFile); err != nil {
		return Config{}, err
	}
	ov.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(cfg Config, logger *slog.Logger) error {
	logger.Debug("starting alertsliderd", "version", version)
	logger.Debug("configuration",
		"device_name", cfg.Slider.DeviceName,
		"state_path", cfg.Slider.StatePath,
		"input_devices", cfg.Input.Devices,
		"grab", cfg.Input.Grab,
		"passthrough", cfg.Input.Passthrough,
		"settings", cfg.Settings.Path,
		"ringer_backend", cfg.Ringer.Backend,
		"media_backend", cfg.Media.Backend,
		"haptics_backend", cfg.Haptics.Backend,
		"ipc_socket", cfg.IPC.SocketPath,
		"state_ws", cfg.StateWS.Enabled)

	backends, err := openBackends(&cfg, logger)
	if err != nil {
		return err
	}
	defer backends.Close()

	devices, err := openInputDevices(cfg.Input.Devices, cfg.Slider.DeviceName, cfg.Input.Grab, logger)
	if err != nil {
		return fmt.Errorf("%w (tip: run as root or add user to 'input' group)", err)
	}
	defer devices.Close()

	var sink KeySink
	if cfg.Input.Passthrough {
		p, err := newUinputPassthrough(cfg.Input.UInputPath, defaultPassthroughKbd)
		if err != nil {
			return err
		}
		defer p.Close()
		sink = p
	}

	mapper := NewMapper(
		MapperConfig{DeviceName: cfg.Slider.DeviceName, StatePath: cfg.Slider.StatePath},
		MapperDeps{
			Devices:  devices,
			Settings: NewSettingsFile(cfg.Settings.Path),
			Backends: backends.Backends,
		},
		logger,
	)

	var broadcasts chan StateBroadcast
	if cfg.StateWS.Enabled {
		broadcasts = make(chan StateBroadcast, 64)
		mapper.SetBroadcasts(broadcasts)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runIPCServer(ctx, cfg.IPC.SocketPath, mapper, logger)
	})

	if backends.camilla != nil {
		g.Go(func() error {
			runMuteWatcher(ctx, backends.camilla, mapper, backends.muteCache, cfg.MutePollInterval(), logger)
			return nil
		})
	}

	if cfg.StateWS.Enabled {
		srv := NewServer(logger, mapper, ServerConfig{})
		mux := http.NewServeMux()
		srv.Register(mux, cfg.StateWS.Path)

		g.Go(func() error {
			srv.Hub().Run(ctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(ctx, srv.Hub(), broadcasts, logger)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(ctx, cfg.StateWS.Listen, mux, logger)
		})
	}

	events := make(chan KeyEvent, 64)
	readErr := make(chan error, devices.Len())
	devices.startReaders(events, readErr)

	g.Go(func() error {
		return runDispatch(ctx, events, readErr, mapper, sink, logger)
	})

	// Closing the devices unblocks the reader goroutines on shutdown.
	g.Go(func() error {
		<-ctx.Done()
		if err := devices.Close(); err != nil {
			logger.Warn("closing input devices", "error", err)
		}
		return nil
	})

	logger.Info("listening",
		"device_name", cfg.Slider.DeviceName,
		"devices", devices.Len(),
		"ipc", cfg.IPC.SocketPath,
		"media_backend", cfg.Media.Backend)

	err = g.Wait()
	logger.Info("shutting down")
	return err
}
