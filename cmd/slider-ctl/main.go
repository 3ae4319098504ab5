package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// slider-ctl - Command-line IPC Client
// ============================================================================
// Sends requests to alertsliderd over its Unix socket.
//
// Usage:
//   slider-ctl silent|vibrate|normal
//   slider-ctl unmuted [stream]
//   slider-ctl muted [stream]
//   slider-ctl state
//
// Options:
//   -socket PATH    Unix domain socket path (default: /run/alertslider.sock)
// ============================================================================

const defaultSocketPath = "/run/alertslider.sock"

// Stream numbers understood by the daemon.
var streamNames = map[string]int{
	"voice_call":   0,
	"system":       1,
	"ring":         2,
	"music":        3,
	"alarm":        4,
	"notification": 5,
}

// Request payloads (duplicated from the daemon for a standalone binary)

type applyModeData struct {
	Mode string `json:"mode"`
}

type streamMuteData struct {
	Stream int  `json:"stream"`
	Muted  bool `json:"muted"`
}

// requestEnvelope wraps requests for JSON
type requestEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type stateSnapshot struct {
	Mode      string    `json:"mode"`
	ModeKnown bool      `json:"mode_known"`
	ModeAt    time.Time `json:"mode_at"`
	WasMuted  bool      `json:"was_muted"`
}

// ipcResponse represents the daemon's response
type ipcResponse struct {
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	State  *stateSnapshot `json:"state,omitempty"`
}

func main() {
	socketPath := defaultSocketPath
	if v := os.Getenv("ALERTSLIDER_IPC_SOCKET"); v != "" {
		socketPath = v
	}

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		os.Exit(0)
	}

	req, err := buildRequest(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	resp, err := send(socketPath, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if resp.State != nil {
		printState(*resp.State)
		return
	}
	fmt.Println("ok")
}

// buildRequest turns command-line arguments into a request envelope.
func buildRequest(args []string) (requestEnvelope, error) {
	switch args[0] {
	case "silent", "vibrate", "normal":
		data, err := json.Marshal(applyModeData{Mode: args[0]})
		if err != nil {
			return requestEnvelope{}, err
		}
		return requestEnvelope{Type: "apply_mode", Data: data}, nil

	case "muted", "unmuted":
		stream := streamNames["music"]
		if len(args) > 1 {
			s, err := parseStream(args[1])
			if err != nil {
				return requestEnvelope{}, err
			}
			stream = s
		}
		data, err := json.Marshal(streamMuteData{Stream: stream, Muted: args[0] == "muted"})
		if err != nil {
			return requestEnvelope{}, err
		}
		return requestEnvelope{Type: "stream_mute_changed", Data: data}, nil

	case "state":
		return requestEnvelope{Type: "get_state"}, nil

	default:
		return requestEnvelope{}, fmt.Errorf("unknown command: %s", args[0])
	}
}

// parseStream accepts a stream name or its number.
func parseStream(s string) (int, error) {
	if n, ok := streamNames[strings.ToLower(s)]; ok {
		return n, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid stream: %q", s)
	}
	return n, nil
}

func send(socketPath string, req requestEnvelope) (ipcResponse, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return ipcResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		return ipcResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	// Line-delimited JSON
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return ipcResponse{}, fmt.Errorf("send request: %w", err)
	}

	var resp ipcResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return ipcResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status == "error" {
		return resp, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return resp, nil
}

func printState(s stateSnapshot) {
	if s.ModeKnown {
		fmt.Printf("mode:      %s (since %s)\n", s.Mode, s.ModeAt.Local().Format(time.RFC3339))
	} else {
		fmt.Println("mode:      unknown (slider not moved yet)")
	}
	fmt.Printf("was_muted: %t\n", s.WasMuted)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `slider-ctl - Control the alertsliderd daemon via IPC

Usage:
  slider-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: %s,
                  or $ALERTSLIDER_IPC_SOCKET)

Commands:
  silent              Switch to silent (as if the slider moved to the top)
  vibrate             Switch to vibrate (middle position)
  normal              Switch to normal (bottom position)
  muted [stream]      Report that a stream was muted (default stream: music)
  unmuted [stream]    Report that a stream was unmuted (default stream: music)
  state               Print the current mode and media mute tracking
  help                Show this help message

Streams:
  voice_call, system, ring, music, alarm, notification, or a number

Examples:
  slider-ctl vibrate
  slider-ctl unmuted music
  slider-ctl -socket /tmp/alertslider.sock state
`, defaultSocketPath)
}
