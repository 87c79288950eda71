package room

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	readLimit  = 64 << 10
	pongWait   = 60 * time.Second
	writeWait  = 10 * time.Second
	closeGrace = time.Second
)

type WebsocketConnection struct {
	socket *websocket.Conn
	once   sync.Once
}

func NewWebsocketConnection(conn *websocket.Conn) *WebsocketConnection {
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &WebsocketConnection{socket: conn}
}

func (wc *WebsocketConnection) Write(data []byte) error {
	_ = wc.socket.SetWriteDeadline(time.Now().Add(writeWait))
	return wc.socket.WriteMessage(websocket.TextMessage, data)
}

func (wc *WebsocketConnection) Ping() error {
	return wc.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (wc *WebsocketConnection) Read() ([]byte, error) {
	_, p, err := wc.socket.ReadMessage()
	return p, err
}

func (wc *WebsocketConnection) Close(code int, reason string) {
	wc.once.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		_ = wc.socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		_ = wc.socket.Close()
	})
}

// Reject sends one error notice on a connection that never made it into a
// room, then closes it with the matching code.
func Reject(conn Connection, err error) {
	if data, merr := json.Marshal(makeError(publicError(err))); merr == nil {
		_ = conn.Write(data)
	}
	conn.Close(CloseCode(err), publicError(err))
}
