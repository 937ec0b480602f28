package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// TextURL builds the /ws/text URL for a viewer address such as
// "localhost:5000" or "http://host:5000".
func TextURL(addr string) (string, error) {
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("parse viewer address: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("viewer address %q has no host", addr)
	}
	u.Path = "/ws/text"
	return u.String(), nil
}

// Watch connects to a running viewer and calls fn for each text message
// until ctx is canceled or the server goes away. A server-side close is
// not an error.
func Watch(ctx context.Context, wsURL string, fn func(TextMessage)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	// Unblock ReadMessage on cancel.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var msg TextMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("decode text message: %w", err)
		}
		fn(msg)
	}
}
