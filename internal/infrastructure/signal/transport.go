package signal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roomchat/internal/core/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxCloseReason is the largest close reason a control frame can carry.
const maxCloseReason = 123

// wsTransport owns the write side of a websocket. Payloads are queued on send
// and written by writePump, the only goroutine that writes to conn.
type wsTransport struct {
	conn *websocket.Conn
	send chan []byte

	done      chan struct{}
	finished  chan struct{}
	closeOnce sync.Once
	closeCode int
	closeMsg  string

	writeTimeout time.Duration
	pingInterval time.Duration
	logger       *zap.SugaredLogger
}

func newWSTransport(conn *websocket.Conn, buffer int, writeTimeout, pingInterval time.Duration, logger *zap.SugaredLogger) *wsTransport {
	return &wsTransport{
		conn:         conn,
		send:         make(chan []byte, buffer),
		done:         make(chan struct{}),
		finished:     make(chan struct{}),
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Send queues payload, waiting for queue space until ctx is done.
func (t *wsTransport) Send(ctx context.Context, payload []byte) error {
	select {
	case <-t.done:
		return domain.ErrConnectionClosed
	default:
	}

	select {
	case t.send <- payload:
		return nil
	case <-t.done:
		return domain.ErrConnectionClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", domain.ErrSendTimeout, ctx.Err())
	}
}

// Close asks the writer to send a close frame and shut the socket. Only the
// first call's code and reason are used.
func (t *wsTransport) Close(code int, reason string) error {
	t.closeOnce.Do(func() {
		if len(reason) > maxCloseReason {
			reason = reason[:maxCloseReason]
		}
		t.closeCode = code
		t.closeMsg = reason
		close(t.done)
	})
	return nil
}

// Wait blocks until the writer has closed the socket.
func (t *wsTransport) Wait() {
	<-t.finished
}

func (t *wsTransport) writePump() {
	ticker := time.NewTicker(t.pingInterval)
	defer func() {
		ticker.Stop()
		t.conn.Close()
		close(t.finished)
	}()

	for {
		select {
		case payload := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
			if err := t.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				t.logger.Debugw("write failed", "error", err)
				t.Close(websocket.CloseAbnormalClosure, "")
				return
			}

		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.logger.Debugw("error sending ping", "error", err)
				t.Close(websocket.CloseAbnormalClosure, "")
				return
			}

		case <-t.done:
			if t.closeCode != websocket.CloseAbnormalClosure {
				msg := websocket.FormatCloseMessage(t.closeCode, t.closeMsg)
				_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(t.writeTimeout))
			}
			return
		}
	}
}
