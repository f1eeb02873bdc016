package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	defaultSendBuffer = 64
)

// Conn is a WebSocket-backed Handle. writePump is the only goroutine that
// writes to the socket; Send only enqueues.
type Conn struct {
	ID     string
	UserID int64

	ws      *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	stopped chan struct{}
	logger  *zap.Logger
}

// NewConn wraps ws and starts its write pump.
func NewConn(userID int64, ws *websocket.Conn, sendBuffer int, logger *zap.Logger) *Conn {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	id := uuid.NewString()
	c := &Conn{
		ID:      id,
		UserID:  userID,
		ws:      ws,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  logger.With(zap.Int64("user_id", userID), zap.String("conn_id", id)),
	}
	go c.writePump()
	return c
}

// Send enqueues frame without blocking.
func (c *Conn) Send(frame []byte) error {
	if !c.IsOpen() {
		return ErrConnClosed
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame and closes the socket.
// Safe to call more than once and from any goroutine.
func (c *Conn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *Conn) IsOpen() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Stopped is closed once the socket has been closed by the write pump.
func (c *Conn) Stopped() <-chan struct{} {
	return c.stopped
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		close(c.stopped)
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("ws write failed", zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
