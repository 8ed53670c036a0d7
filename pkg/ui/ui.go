// Package ui implements the terminal client: a scrollback pane of
// narration, a rendered table view, and a one-line command input.
package ui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mr-Jack-Tung/private-poker/pkg/client"
	"github.com/Mr-Jack-Tung/private-poker/pkg/poker"
	"github.com/Mr-Jack-Tung/private-poker/pkg/wire"
)

const maxScrollback = 200

// PokerUI contains all the state for the poker client UI.
type PokerUI struct {
	pc   *client.Client
	view *poker.GameView
	turn *poker.TurnSignal

	input     string
	scrollbak []string
	err       error

	responses chan responseMsg
	width     int
	height    int
}

type responseMsg struct {
	resp *wire.ServerResponse
	err  error
}

// New creates the UI around an established client connection and its
// first game view.
func New(pc *client.Client, view *poker.GameView) *PokerUI {
	ui := &PokerUI{
		pc:        pc,
		view:      view,
		responses: make(chan responseMsg, 16),
	}
	go ui.pump()
	return ui
}

// pump reads server responses into the UI's channel, skipping benign
// read timeouts.
func (ui *PokerUI) pump() {
	for {
		resp, err := ui.pc.Recv()
		if err != nil {
			if client.IsTimeout(err) {
				continue
			}
			ui.responses <- responseMsg{err: err}
			return
		}
		ui.responses <- responseMsg{resp: resp}
	}
}

func (ui *PokerUI) waitForResponse() tea.Cmd {
	return func() tea.Msg {
		return <-ui.responses
	}
}

// Init implements tea.Model.
func (ui *PokerUI) Init() tea.Cmd {
	return ui.waitForResponse()
}

// Update implements tea.Model.
func (ui *PokerUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		ui.width = msg.Width
		ui.height = msg.Height
		return ui, nil

	case responseMsg:
		if msg.err != nil {
			ui.err = msg.err
			return ui, tea.Quit
		}
		ui.apply(msg.resp)
		return ui, ui.waitForResponse()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return ui, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(ui.input)
			ui.input = ""
			if line != "" {
				ui.runCommand(line)
			}
			return ui, nil
		case tea.KeyBackspace:
			if len(ui.input) > 0 {
				ui.input = ui.input[:len(ui.input)-1]
			}
			return ui, nil
		case tea.KeySpace:
			ui.input += " "
			return ui, nil
		case tea.KeyRunes:
			ui.input += string(msg.Runes)
			return ui, nil
		}
	}
	return ui, nil
}

// apply folds one server response into the UI state.
func (ui *PokerUI) apply(resp *wire.ServerResponse) {
	switch resp.Kind {
	case wire.RespGameView:
		ui.view = resp.View
		if ui.turn != nil && ui.view.ToAct != ui.pc.Username {
			ui.turn = nil
		}
	case wire.RespStatus:
		ui.appendLine(resp.Status)
	case wire.RespTurnSignal:
		ui.turn = resp.Turn
		ui.appendLine(fmt.Sprintf("your turn: %s", formatActions(resp.Turn)))
	case wire.RespUserError:
		ui.appendLine("error: " + resp.Error)
	case wire.RespClientError:
		ui.appendLine("protocol error: " + resp.Error)
	case wire.RespAck:
		// Quietly accepted.
	}
}

func (ui *PokerUI) appendLine(line string) {
	ui.scrollbak = append(ui.scrollbak, line)
	if len(ui.scrollbak) > maxScrollback {
		ui.scrollbak = ui.scrollbak[len(ui.scrollbak)-maxScrollback:]
	}
}

// runCommand parses and executes one input line.
func (ui *PokerUI) runCommand(line string) {
	fields := strings.Fields(line)
	cmd := fields[0]

	var err error
	switch cmd {
	case "all-in", "allin":
		err = ui.pc.TakeAction(poker.Action{Kind: poker.AllIn})
	case "call":
		err = ui.pc.TakeAction(poker.Action{Kind: poker.Call})
	case "check":
		err = ui.pc.TakeAction(poker.Action{Kind: poker.Check})
	case "fold":
		err = ui.pc.TakeAction(poker.Action{Kind: poker.Fold})
	case "raise":
		var amount int64
		if len(fields) > 1 {
			amount, err = strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				ui.appendLine(fmt.Sprintf("bad raise amount %q", fields[1]))
				return
			}
		}
		err = ui.pc.TakeAction(poker.Action{Kind: poker.Raise, Amount: amount})
	case "play":
		err = ui.pc.ChangeState(poker.Play)
	case "spectate":
		err = ui.pc.ChangeState(poker.Spectate)
	case "waitlist":
		err = ui.pc.ChangeState(poker.Waitlist)
	case "show":
		err = ui.pc.ShowHand()
	case "start":
		err = ui.pc.StartGame()
	case "clear":
		ui.scrollbak = nil
	default:
		ui.appendLine(fmt.Sprintf("unknown command %q", cmd))
		return
	}
	if err != nil {
		ui.appendLine("send failed: " + err.Error())
	}
}

func formatActions(turn *poker.TurnSignal) string {
	parts := make([]string, 0, len(turn.Actions))
	for _, a := range turn.Actions {
		switch a {
		case poker.Call:
			parts = append(parts, fmt.Sprintf("call $%d", turn.CallAmount))
		case poker.Raise:
			parts = append(parts, fmt.Sprintf("raise (min $%d)", turn.MinRaise))
		default:
			parts = append(parts, a.String())
		}
	}
	return strings.Join(parts, ", ")
}

// Err returns the error that terminated the UI, if any.
func (ui *PokerUI) Err() error { return ui.err }
