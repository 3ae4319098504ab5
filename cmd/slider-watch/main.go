package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// slider-watch follows alertsliderd's state websocket and prints every
// ringer mode and media mute tracking change as it happens.

type envelope struct {
	Type string          `json:"type"`
	Ts   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

type stateData struct {
	Mode      string    `json:"mode"`
	ModeKnown bool      `json:"mode_known"`
	ModeAt    time.Time `json:"mode_at"`
	WasMuted  bool      `json:"was_muted"`
}

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3002/ws/state", "alertsliderd state websocket URL")
		raw   = flag.Bool("raw", false, "Print raw JSON frames")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()
	log.Printf("connected! (press Ctrl+C to exit)")

	// The daemon pings every 20s; answer with pongs (default handler) and
	// treat a long silence as a dead connection.
	var writeMu sync.Mutex
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if *raw {
				fmt.Println(string(message))
				continue
			}
			printFrame(message)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

func printFrame(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	ts := env.Ts.Local().Format("15:04:05.000")

	var s stateData
	if err := json.Unmarshal(env.Data, &s); err != nil {
		fmt.Printf("%s [%s] %s\n", ts, env.Type, string(env.Data))
		return
	}

	switch env.Type {
	case "state_init":
		mode := "unknown"
		if s.ModeKnown {
			mode = s.Mode
		}
		fmt.Printf("%s [STATE] mode=%s was_muted=%t\n", ts, mode, s.WasMuted)
	case "mode_changed":
		fmt.Printf("%s [MODE] %s\n", ts, s.Mode)
	case "mute_tracking_changed":
		status := "released"
		if s.WasMuted {
			status = "media muted by slider"
		}
		fmt.Printf("%s [MUTE] %s\n", ts, status)
	default:
		fmt.Printf("%s [%s] %s\n", ts, env.Type, string(env.Data))
	}
}
