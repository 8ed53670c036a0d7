// Package wire defines the request/response schema spoken between the
// poker client and server, and the length-prefixed framing that carries
// it over TCP. Payloads are CBOR; every enum travels as a stable
// numeric discriminant, and unknown discriminants are rejected before
// any state is touched.
package wire

import (
	"fmt"

	"github.com/Mr-Jack-Tung/private-poker/pkg/poker"
)

// CommandKind discriminates client commands. Values are part of the
// wire format and must not be renumbered.
type CommandKind uint8

const (
	CmdConnect     CommandKind = 1
	CmdChangeState CommandKind = 2
	CmdStartGame   CommandKind = 3
	CmdTakeAction  CommandKind = 4
	CmdShowHand    CommandKind = 5
)

// String returns a human-readable name for the command.
func (k CommandKind) String() string {
	switch k {
	case CmdConnect:
		return "connect"
	case CmdChangeState:
		return "change state"
	case CmdStartGame:
		return "start game"
	case CmdTakeAction:
		return "take action"
	case CmdShowHand:
		return "show hand"
	default:
		return fmt.Sprintf("command %d", uint8(k))
	}
}

// ClientMessage is the envelope every request travels in. Username must
// match the connection's claimed identity once Connect has been
// acknowledged.
type ClientMessage struct {
	Username string      `cbor:"u"`
	Command  CommandKind `cbor:"c"`

	// At most one payload field is set, matching Command: State for
	// ChangeState, Action for TakeAction, none otherwise.
	State  *poker.UserState `cbor:"s,omitempty"`
	Action *poker.Action    `cbor:"a,omitempty"`
}

// Validate rejects structurally malformed messages: unknown command or
// enum discriminants, or a missing payload for the command.
func (m *ClientMessage) Validate() error {
	switch m.Command {
	case CmdConnect, CmdStartGame, CmdShowHand:
	case CmdChangeState:
		if m.State == nil {
			return fmt.Errorf("%s requires a state payload", m.Command)
		}
		switch *m.State {
		case poker.Spectate, poker.Waitlist, poker.Play:
		default:
			return fmt.Errorf("unknown user state %d", int(*m.State))
		}
	case CmdTakeAction:
		if m.Action == nil {
			return fmt.Errorf("%s requires an action payload", m.Command)
		}
		switch m.Action.Kind {
		case poker.Fold, poker.Check, poker.Call, poker.Raise, poker.AllIn:
		default:
			return fmt.Errorf("unknown action %d", int(m.Action.Kind))
		}
	default:
		return fmt.Errorf("unknown command %d", uint8(m.Command))
	}
	return nil
}

// ResponseKind discriminates server responses. Values are part of the
// wire format and must not be renumbered.
type ResponseKind uint8

const (
	RespAck         ResponseKind = 1
	RespClientError ResponseKind = 2
	RespUserError   ResponseKind = 3
	RespGameView    ResponseKind = 4
	RespStatus      ResponseKind = 5
	RespTurnSignal  ResponseKind = 6
)

// ServerResponse is a tagged union of everything the server sends.
type ServerResponse struct {
	Kind ResponseKind `cbor:"k"`

	Ack    *ClientMessage    `cbor:"ack,omitempty"`
	Error  string            `cbor:"err,omitempty"`
	View   *poker.GameView   `cbor:"view,omitempty"`
	Status string            `cbor:"status,omitempty"`
	Turn   *poker.TurnSignal `cbor:"turn,omitempty"`
}

// Validate rejects responses with an unknown discriminant.
func (r *ServerResponse) Validate() error {
	switch r.Kind {
	case RespAck, RespClientError, RespUserError, RespGameView, RespStatus, RespTurnSignal:
		return nil
	default:
		return fmt.Errorf("unknown response %d", uint8(r.Kind))
	}
}

// Ack wraps the accepted request in an acknowledgement.
func Ack(m *ClientMessage) *ServerResponse {
	return &ServerResponse{Kind: RespAck, Ack: m}
}

// ClientError reports a protocol-level rejection.
func ClientError(err error) *ServerResponse {
	return &ServerResponse{Kind: RespClientError, Error: err.Error()}
}

// UserError reports a game-rule rejection.
func UserError(err error) *ServerResponse {
	return &ServerResponse{Kind: RespUserError, Error: err.Error()}
}

// Status wraps a narration line.
func Status(text string) *ServerResponse {
	return &ServerResponse{Kind: RespStatus, Status: text}
}

// GameView wraps a per-recipient snapshot.
func GameView(view *poker.GameView) *ServerResponse {
	return &ServerResponse{Kind: RespGameView, View: view}
}

// TurnSignal wraps the acting player's turn notification.
func TurnSignal(turn *poker.TurnSignal) *ServerResponse {
	return &ServerResponse{Kind: RespTurnSignal, Turn: turn}
}
