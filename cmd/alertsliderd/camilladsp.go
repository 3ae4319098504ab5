package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// CamillaDSPClientInterface is the subset of the CamillaDSP websocket API used
// for media muting. It allows for mocking in tests.
type CamillaDSPClientInterface interface {
	GetMute() (bool, error)
	SetMute(mute bool) error
	Close() error
}

// CamillaDSPClient speaks CamillaDSP's websocket protocol: one JSON command
// out, one JSON reply back. A broken connection is dropped and redialed on
// the next command.
type CamillaDSPClient struct {
	url     string
	timeout time.Duration
	logger  *slog.Logger

	dialer   websocket.Dialer
	attempts int
	backoff  time.Duration

	mu   sync.Mutex // serializes round trips; guards conn
	conn *websocket.Conn
}

// NewCamillaDSPClient dials wsURL, retrying briefly, and fails if CamillaDSP
// never answers. Later redials happen on the command path and make a single
// attempt, so a vanished CamillaDSP costs one handshake timeout per command.
func NewCamillaDSPClient(wsURL string, logger *slog.Logger, readTimeoutMS int) (*CamillaDSPClient, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	c := &CamillaDSPClient{
		url:      u.String(),
		timeout:  time.Duration(readTimeoutMS) * time.Millisecond,
		logger:   logger,
		dialer:   websocket.Dialer{HandshakeTimeout: 2 * time.Second},
		attempts: 10,
		backoff:  500 * time.Millisecond,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.redialLocked(c.attempts); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CamillaDSPClient) redialLocked(attempts int) error {
	var err error
	for i := 1; i <= attempts; i++ {
		var conn *websocket.Conn
		if conn, _, err = c.dialer.Dial(c.url, nil); err == nil {
			c.conn = conn
			c.logger.Info("camilladsp connected", "url", c.url)
			return nil
		}
		c.logger.Warn("camilladsp dial failed", "url", c.url, "attempt", i, "error", err)
		if i < attempts {
			time.Sleep(c.backoff)
		}
	}
	return fmt.Errorf("camilladsp unreachable after %d attempts: %w", attempts, err)
}

func (c *CamillaDSPClient) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// roundTrip sends cmd and decodes the reply into out.
func (c *CamillaDSPClient) roundTrip(cmd any, out any) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.redialLocked(1); err != nil {
			return err
		}
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.dropLocked()
		return err
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	_, reply, err := c.conn.ReadMessage()
	if err != nil {
		c.dropLocked()
		return err
	}
	_ = c.conn.SetReadDeadline(time.Time{})

	if err := json.Unmarshal(reply, out); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}

func (c *CamillaDSPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()
	return nil
}

// camillaReply is the body of every CamillaDSP answer, keyed by command name.
type camillaReply struct {
	Result string          `json:"result"`
	Value  json.RawMessage `json:"value,omitempty"`
}

func (r camillaReply) err(cmd string) error {
	if r.Result != "" && r.Result != "Ok" {
		return fmt.Errorf("camilladsp %s: result %q", cmd, r.Result)
	}
	return nil
}

// GetMute reports whether CamillaDSP's main fader is muted.
func (c *CamillaDSPClient) GetMute() (bool, error) {
	var resp struct {
		GetMute camillaReply `json:"GetMute"`
	}
	if err := c.roundTrip("GetMute", &resp); err != nil {
		return false, fmt.Errorf("get mute: %w", err)
	}
	if err := resp.GetMute.err("GetMute"); err != nil {
		return false, err
	}
	var muted bool
	if err := json.Unmarshal(resp.GetMute.Value, &muted); err != nil {
		return false, fmt.Errorf("get mute: value: %w", err)
	}
	c.logger.Debug("camilladsp mute read", "muted", muted)
	return muted, nil
}

// SetMute mutes or unmutes CamillaDSP's main fader.
func (c *CamillaDSPClient) SetMute(mute bool) error {
	var resp struct {
		SetMute camillaReply `json:"SetMute"`
	}
	if err := c.roundTrip(map[string]bool{"SetMute": mute}, &resp); err != nil {
		return fmt.Errorf("set mute: %w", err)
	}
	if err := resp.SetMute.err("SetMute"); err != nil {
		return err
	}
	c.logger.Debug("camilladsp mute written", "muted", mute)
	return nil
}

// camillaMediaAudio adapts a CamillaDSP client to AudioControl: the Main
// fader mute stands in for the media stream.
type camillaMediaAudio struct {
	client CamillaDSPClientInterface
	echo   *muteEcho // optional
}

func (a camillaMediaAudio) AdjustMediaVolume(adjust MediaAdjust) error {
	muted := adjust == AdjustMute
	if err := a.client.SetMute(muted); err != nil {
		return err
	}
	if a.echo != nil {
		a.echo.wrote(muted)
	}
	return nil
}

// DrainMuteEchoes returns the mute states written since the last call.
func (a camillaMediaAudio) DrainMuteEchoes() []bool {
	if a.echo == nil {
		return nil
	}
	return a.echo.drain()
}
