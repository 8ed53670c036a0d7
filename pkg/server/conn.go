package server

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/Mr-Jack-Tung/private-poker/pkg/wire"
)

// ErrSlowConsumer marks a connection whose outbound queue overflowed.
var ErrSlowConsumer = errors.New("outbound queue overflow")

// conn is one client connection. The reader goroutine turns frames into
// inbound events for the game loop; the writer goroutine drains the
// bounded outbound queue. The username is claimed by the game loop when
// it accepts a Connect and is never reassigned.
type conn struct {
	id  uint64
	nc  net.Conn
	srv *Server

	// username is written once by the game loop; the reader and writer
	// never touch it. Identity checks happen on the game loop.
	username string

	out    chan *wire.ServerResponse
	dying  chan struct{} // closed to ask the writer to flush a final error and hang up
	reason error         // why dying was closed

	notifyOnce sync.Once
	dieOnce    sync.Once
}

func newConn(id uint64, nc net.Conn, srv *Server) *conn {
	return &conn{
		id:    id,
		nc:    nc,
		srv:   srv,
		out:   make(chan *wire.ServerResponse, srv.cfg.OutboundQueue),
		dying: make(chan struct{}),
	}
}

// send enqueues a response without blocking the game loop. A full queue
// means the peer has stopped reading; it is cut loose so one slow
// client cannot stall the table.
func (c *conn) send(resp *wire.ServerResponse) {
	select {
	case c.out <- resp:
	case <-c.dying:
	default:
		c.srv.log.Warnf("conn %d: %v, disconnecting", c.id, ErrSlowConsumer)
		c.terminate(ErrSlowConsumer)
	}
}

// terminate asks the writer to send a final ClientError and close.
func (c *conn) terminate(reason error) {
	c.dieOnce.Do(func() {
		c.reason = reason
		close(c.dying)
	})
}

// notifyClosed delivers exactly one disconnect event to the game loop.
func (c *conn) notifyClosed(err error) {
	c.notifyOnce.Do(func() {
		c.srv.deliver(inEvent{c: c, err: err})
	})
}

// readLoop decodes frames off the socket. Malformed-but-framed messages
// get a ClientError and the connection stays open; broken framing or
// transport errors are fatal for this connection only. The writer owns
// closing the socket, so a final ClientError can still be flushed.
func (c *conn) readLoop() {
	for {
		var msg wire.ClientMessage
		err := wire.ReadPrefixed(c.nc, &msg)
		var nerr net.Error
		switch {
		case err == nil:
		case errors.Is(err, wire.ErrFrameTooLarge):
			// Protocol violation: report and drop without decoding.
			c.terminate(err)
			c.notifyClosed(err)
			return
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.As(err, &nerr):
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.srv.log.Debugf("conn %d: read: %v", c.id, err)
			}
			c.terminate(nil)
			c.notifyClosed(err)
			return
		default:
			// A whole frame arrived but did not decode; the stream is
			// still aligned on the next frame.
			c.send(wire.ClientError(err))
			continue
		}

		if err := msg.Validate(); err != nil {
			c.send(wire.ClientError(err))
			continue
		}
		c.srv.deliver(inEvent{c: c, msg: &msg})
	}
}

// writeLoop drains the outbound queue in order. On shutdown it flushes
// a final ClientError naming the reason, best effort.
func (c *conn) writeLoop() {
	defer c.nc.Close()
	for {
		select {
		case resp := <-c.out:
			c.nc.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := wire.WritePrefixed(c.nc, resp); err != nil {
				c.srv.log.Debugf("conn %d: write: %v", c.id, err)
				c.terminate(nil)
				c.notifyClosed(err)
				return
			}
		case <-c.dying:
			if c.reason != nil {
				c.nc.SetWriteDeadline(time.Now().Add(WriteTimeout))
				_ = wire.WritePrefixed(c.nc, wire.ClientError(c.reason))
			}
			c.notifyClosed(c.reason)
			return
		}
	}
}
