package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Connection wraps a gorilla websocket for a single watcher. Writes are
// serialized; gorilla connections allow only one concurrent writer.
type Connection struct {
	conn    *websocket.Conn
	userID  string
	writeMu sync.Mutex
}

func NewConnection(conn *websocket.Conn, userID string) *Connection {
	return &Connection{
		conn:   conn,
		userID: userID,
	}
}

func (c *Connection) Send(message interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(message)
}

func (c *Connection) Close() error {
	return c.conn.Close()
}

func (c *Connection) UserID() string {
	return c.userID
}
