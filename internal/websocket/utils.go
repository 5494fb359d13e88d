package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// ReadWait bounds how long a connection may stay silent. Clients ping
	// well within it.
	ReadWait = 5 * time.Minute
)

// WriteEvent sends a successful event over the WebSocket.
func WriteEvent(conn *websocket.Conn, event Event, data interface{}) error {
	return writeTyped(conn, Response{Event: event, Data: data})
}

// WriteError sends an error event over the WebSocket.
func WriteError(conn *websocket.Conn, code, errMsg string) error {
	return writeTyped(conn, Response{Event: EventError, Code: code, Error: errMsg})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(ReadWait))
	return conn.ReadJSON(v)
}

func writeTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
