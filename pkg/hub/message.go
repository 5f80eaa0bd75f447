// Package hub fans websocket messages out to every connected client.
// Slow clients are dropped rather than allowed to stall the broadcast.
package hub

import "github.com/gofiber/websocket/v2"

// Message is one broadcast payload: a JPEG frame or a JSON document.
type Message struct {
	Binary bool
	Data   []byte
}

// wireType is the websocket frame type for m.
func (m Message) wireType() int {
	if m.Binary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
