package web

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// watchReadTimeout bounds the wait for the next frame.
const watchReadTimeout = 30 * time.Second

// Watch connects to a /ws/frames endpoint and calls fn with every JPEG
// frame until ctx ends, the server closes the stream or fn fails.
func Watch(ctx context.Context, url string, fn func(jpeg []byte) error) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer ws.Close()

	// Unblock ReadMessage on cancel.
	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	for {
		ws.SetReadDeadline(time.Now().Add(watchReadTimeout))
		kind, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		if err := fn(data); err != nil {
			return err
		}
	}
}
