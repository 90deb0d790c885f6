package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/gwillem/rover/pkg/rover"
)

// WebSocketLink talks to a rover over a WebSocket: binary messages are
// camera frames, text messages are telemetry, and the current command is
// sent back every SendEvery.
type WebSocketLink struct {
	URL       string
	SendEvery time.Duration

	logger hclog.Logger
}

// NewWebSocketLink returns a link that dials url.
func NewWebSocketLink(url string, sendEvery time.Duration, logger hclog.Logger) *WebSocketLink {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if sendEvery <= 0 {
		sendEvery = 50 * time.Millisecond
	}
	return &WebSocketLink{URL: url, SendEvery: sendEvery, logger: logger}
}

// Run connects and exchanges messages until ctx is done, h shuts down or
// the connection fails. On a clean stop the rover is told to quit.
// A shutdown during the dial abandons it without an error.
func (l *WebSocketLink) Run(ctx context.Context, h *rover.Handle) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-h.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.URL, nil)
	if err != nil {
		if h.ShutdownRequested() {
			return nil
		}
		return fmt.Errorf("dial %s: %w", l.URL, err)
	}
	defer conn.Close()
	l.logger.Info("connected", "url", l.URL)

	readErr := make(chan error, 1)
	go func() {
		readErr <- l.read(conn, h)
	}()

	ticker := time.NewTicker(l.SendEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return l.quit(conn)
		case <-h.Done():
			return l.quit(conn)
		case err := <-readErr:
			return fmt.Errorf("read: %w", err)
		case <-ticker.C:
			msg, err := NewCommandMessage(h.Command())
			if err != nil {
				l.logger.Warn("not sending command", "error", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				return fmt.Errorf("send command: %w", err)
			}
		}
	}
}

func (l *WebSocketLink) read(conn *websocket.Conn, h *rover.Handle) error {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		switch kind {
		case websocket.BinaryMessage:
			h.Frames().Publish(data)
		case websocket.TextMessage:
			tel, err := DecodeTelemetry(data, time.Now())
			if err != nil {
				l.logger.Warn("dropping telemetry", "error", err)
				continue
			}
			h.PublishTelemetry(tel)
		}
	}
}

func (l *WebSocketLink) quit(conn *websocket.Conn) error {
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := conn.WriteJSON(QuitMessage{Quit: true}); err != nil {
		return fmt.Errorf("send quit: %w", err)
	}
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("close: %w", err)
	}
	l.logger.Info("disconnected", "url", l.URL)
	return nil
}
