package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// Connection abstracts the underlying websocket connection so pumps can be
// exercised against fakes.
type Connection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	RemoteAddr() string
}

// connectionWrapper adapts a *websocket.Conn to the Connection interface.
type connectionWrapper struct {
	conn *websocket.Conn
}

// NewConnectionWrapper wraps a gorilla websocket connection
func NewConnectionWrapper(conn *websocket.Conn) Connection {
	return &connectionWrapper{conn: conn}
}

func (w *connectionWrapper) ReadMessage() (int, []byte, error) {
	return w.conn.ReadMessage()
}

func (w *connectionWrapper) WriteMessage(messageType int, data []byte) error {
	return w.conn.WriteMessage(messageType, data)
}

func (w *connectionWrapper) Close() error {
	return w.conn.Close()
}

func (w *connectionWrapper) SetReadLimit(limit int64) {
	w.conn.SetReadLimit(limit)
}

func (w *connectionWrapper) SetReadDeadline(t time.Time) error {
	return w.conn.SetReadDeadline(t)
}

func (w *connectionWrapper) SetWriteDeadline(t time.Time) error {
	return w.conn.SetWriteDeadline(t)
}

func (w *connectionWrapper) SetPongHandler(h func(appData string) error) {
	w.conn.SetPongHandler(h)
}

func (w *connectionWrapper) RemoteAddr() string {
	if addr := w.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
