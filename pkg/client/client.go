// Package client implements the blocking TCP client used by the
// terminal UI and by end-to-end tests.
package client

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Mr-Jack-Tung/private-poker/pkg/poker"
	"github.com/Mr-Jack-Tung/private-poker/pkg/wire"
)

// Stream timeouts for the blocking client socket.
const (
	ReadTimeout  = 10 * time.Second
	WriteTimeout = 1 * time.Second
)

// Client is a connected poker user.
type Client struct {
	Username string
	nc       net.Conn
}

// connectAttempts is the dial retry ladder, tried shortest first.
var connectAttempts = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, time.Second}

// Connect dials addr, claims username, and completes the handshake:
// the server acknowledges the claim and follows with the first game
// view.
func Connect(addr, username string) (*Client, *poker.GameView, error) {
	var lastErr error
	for _, timeout := range connectAttempts {
		nc, err := net.DialTimeout("tcp", addr, timeout)
		if err != nil {
			lastErr = err
			time.Sleep(timeout)
			continue
		}

		c := &Client{Username: username, nc: nc}
		if err := c.write(&wire.ClientMessage{Username: username, Command: wire.CmdConnect}); err != nil {
			nc.Close()
			return nil, nil, err
		}
		if err := c.recvAck(); err != nil {
			nc.Close()
			return nil, nil, err
		}
		view, err := c.recvView()
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		return c, view, nil
	}
	return nil, nil, fmt.Errorf("couldn't connect to %s as %s: %w", addr, username, lastErr)
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.nc.Close()
}

func (c *Client) write(msg *wire.ClientMessage) error {
	c.nc.SetWriteDeadline(time.Now().Add(WriteTimeout))
	return wire.WritePrefixed(c.nc, msg)
}

// Recv reads the next server response. A deadline expiry is benign;
// check it with IsTimeout and read again.
func (c *Client) Recv() (*wire.ServerResponse, error) {
	c.nc.SetReadDeadline(time.Now().Add(ReadTimeout))
	return wire.ReadResponse(c.nc)
}

// IsTimeout reports whether err is a benign read deadline expiry.
func IsTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// recvAck consumes one response and requires it to acknowledge the
// request; error responses surface as errors.
func (c *Client) recvAck() error {
	resp, err := c.Recv()
	if err != nil {
		return err
	}
	switch resp.Kind {
	case wire.RespAck:
		return nil
	case wire.RespClientError, wire.RespUserError:
		return errors.New(resp.Error)
	default:
		return fmt.Errorf("expected ack, got response %d", resp.Kind)
	}
}

// recvView consumes responses until the next game view, surfacing any
// error response in between.
func (c *Client) recvView() (*poker.GameView, error) {
	for {
		resp, err := c.Recv()
		if err != nil {
			return nil, err
		}
		switch resp.Kind {
		case wire.RespGameView:
			return resp.View, nil
		case wire.RespClientError, wire.RespUserError:
			return nil, errors.New(resp.Error)
		case wire.RespStatus, wire.RespAck, wire.RespTurnSignal:
			// Narration between handshake steps is fine to skip here.
		}
	}
}

// ChangeState asks to move to the given role.
func (c *Client) ChangeState(state poker.UserState) error {
	return c.write(&wire.ClientMessage{
		Username: c.Username,
		Command:  wire.CmdChangeState,
		State:    &state,
	})
}

// StartGame asks to begin play.
func (c *Client) StartGame() error {
	return c.write(&wire.ClientMessage{Username: c.Username, Command: wire.CmdStartGame})
}

// TakeAction submits a betting action.
func (c *Client) TakeAction(action poker.Action) error {
	return c.write(&wire.ClientMessage{
		Username: c.Username,
		Command:  wire.CmdTakeAction,
		Action:   &action,
	})
}

// ShowHand reveals hole cards at showdown.
func (c *Client) ShowHand() error {
	return c.write(&wire.ClientMessage{Username: c.Username, Command: wire.CmdShowHand})
}
