package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	outboundBuffer   = 128
	outboundTimeout  = 10 * time.Second
	pingInterval     = 20 * time.Second
	closeGracePeriod = time.Second
)

// Outbound serializes all writes to one websocket connection through a
// single goroutine, which keeps event frames in enqueue order and isolates
// slow clients from the pipeline.
type Outbound struct {
	conn   *websocket.Conn
	logger *slog.Logger

	frames chan any

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

func NewOutbound(conn *websocket.Conn, logger *slog.Logger) *Outbound {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Outbound{
		conn:   conn,
		logger: logger,
		frames: make(chan any, outboundBuffer),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go o.writeLoop()
	return o
}

// Send enqueues one JSON frame. It returns an error once the writer is
// closed or when the client cannot keep up.
func (o *Outbound) Send(v any) error {
	select {
	case <-o.closed:
		return fmt.Errorf("outbound: closed")
	default:
	}
	select {
	case o.frames <- v:
		return nil
	case <-o.closed:
		return fmt.Errorf("outbound: closed")
	default:
		return fmt.Errorf("outbound: buffer full")
	}
}

// Close stops the writer after flushing whatever is already queued.
func (o *Outbound) Close() {
	o.closeOnce.Do(func() { close(o.closed) })
	select {
	case <-o.done:
	case <-time.After(closeGracePeriod):
	}
}

func (o *Outbound) writeLoop() {
	defer close(o.done)
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-o.frames:
			o.conn.SetWriteDeadline(time.Now().Add(outboundTimeout))
			if err := o.conn.WriteJSON(frame); err != nil {
				o.logger.Debug("outbound write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := o.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(outboundTimeout)); err != nil {
				o.logger.Debug("outbound ping failed", "error", err)
				return
			}
		case <-o.closed:
			// Flush queued frames before exiting.
			for {
				select {
				case frame := <-o.frames:
					o.conn.SetWriteDeadline(time.Now().Add(outboundTimeout))
					if err := o.conn.WriteJSON(frame); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}
