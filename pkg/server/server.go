// Package server hosts a poker game over TCP. The process splits into
// a network side and a game side: the network side owns the listener
// and every connection, and forwards decoded requests over a channel;
// the game side is a single goroutine that exclusively owns the poker
// state machine, wakes on a fixed tick or an arriving message, and
// routes the game's emitted events back to per-connection write
// queues. No game state is ever shared between the two sides.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/decred/slog"

	"github.com/Mr-Jack-Tung/private-poker/pkg/poker"
	"github.com/Mr-Jack-Tung/private-poker/pkg/wire"
)

// inEvent is what the network side hands the game loop: a newly
// accepted connection (register), a decoded message, or (msg == nil
// and register unset) the death of a connection.
type inEvent struct {
	c        *conn
	msg      *wire.ClientMessage
	err      error
	register bool
}

// Server mediates one table shared by every connected user.
type Server struct {
	cfg  Config
	log  slog.Logger
	game *poker.Game

	inbound chan inEvent
	done    chan struct{}
	ready   chan struct{}
	addr    net.Addr

	// Game-loop owned: live connections and the username association.
	conns map[*conn]struct{}
	users map[string]*conn

	nextConnID uint64
}

// New creates a server from cfg.
func New(cfg Config) *Server {
	if cfg.Bind == "" {
		cfg.Bind = DefaultBind
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.OutboundQueue <= 0 {
		cfg.OutboundQueue = DefaultOutboundQueue
	}
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.Game.Log == nil {
		cfg.Game.Log = cfg.Log
	}
	return &Server{
		cfg:     cfg,
		log:     cfg.Log,
		game:    poker.NewGame(cfg.Game),
		inbound: make(chan inEvent, 512),
		done:    make(chan struct{}),
		ready:   make(chan struct{}),
		conns:   make(map[*conn]struct{}),
		users:   make(map[string]*conn),
	}
}

// deliver hands an event to the game loop, giving up if the server has
// shut down so connection goroutines never leak on a dead channel.
func (s *Server) deliver(ev inEvent) {
	select {
	case s.inbound <- ev:
	case <-s.done:
	}
}

// Run listens on the configured address and serves until ctx is
// canceled. Listener failure is fatal; per-connection failures never
// are.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.Bind)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Bind, err)
	}
	s.log.Infof("serving poker at %s (buy-in $%d, blinds $%d/$%d)",
		lis.Addr(), s.cfg.Game.BuyIn, s.cfg.Game.SmallBlind, s.cfg.Game.BigBlind)

	s.addr = lis.Addr()
	close(s.ready)

	go s.acceptLoop(lis)

	err = s.gameLoop(ctx)

	close(s.done)
	lis.Close()
	for c := range s.conns {
		c.nc.Close()
	}
	return err
}

// Addr is the configured bind address.
func (s *Server) Addr() string { return s.cfg.Bind }

// Ready is closed once the listener is bound; BoundAddr is then the
// actual listen address, useful when binding to port 0.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// BoundAddr returns the bound listen address after Ready.
func (s *Server) BoundAddr() net.Addr { return s.addr }

func (s *Server) acceptLoop(lis net.Listener) {
	for {
		nc, err := lis.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Errorf("accept: %v", err)
			}
			return
		}
		s.nextConnID++
		c := newConn(s.nextConnID, nc, s)
		s.log.Debugf("conn %d: accepted %s", c.id, nc.RemoteAddr())
		s.deliver(inEvent{c: c, msg: nil, err: nil, register: true})
	}
}

// gameLoop is the only goroutine that touches the poker state machine.
func (s *Server) gameLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Infof("shutting down")
			return nil
		case ev := <-s.inbound:
			s.handleEvent(ev)
			s.routeEvents()
		case now := <-ticker.C:
			s.game.Tick(now)
			s.routeEvents()
		}
	}
}

func (s *Server) handleEvent(ev inEvent) {
	c := ev.c

	if ev.register {
		s.conns[c] = struct{}{}
		go c.readLoop()
		go c.writeLoop()
		return
	}

	if ev.msg == nil {
		// Connection died.
		delete(s.conns, c)
		if c.username != "" {
			delete(s.users, c.username)
			s.game.Disconnect(c.username)
		}
		return
	}

	msg := ev.msg

	// A connection's first accepted message must claim a username.
	if c.username == "" {
		if msg.Command != wire.CmdConnect {
			c.send(wire.ClientError(fmt.Errorf("must connect before %s", msg.Command)))
			return
		}
		if err := s.game.Connect(msg.Username); err != nil {
			c.send(wire.ClientError(err))
			return
		}
		c.username = msg.Username
		s.users[msg.Username] = c
		c.send(wire.Ack(msg))
		c.send(wire.GameView(s.game.ViewFor(msg.Username)))
		s.log.Infof("conn %d: %s connected", c.id, msg.Username)
		return
	}

	// The envelope must match the claimed identity.
	if msg.Username != c.username {
		c.send(wire.ClientError(fmt.Errorf("username %q does not match connection identity", msg.Username)))
		return
	}

	var err error
	switch msg.Command {
	case wire.CmdConnect:
		err = poker.ErrUsernameTaken
	case wire.CmdChangeState:
		err = s.game.ChangeState(msg.Username, *msg.State)
	case wire.CmdStartGame:
		err = s.game.StartGame(msg.Username)
	case wire.CmdTakeAction:
		err = s.game.TakeAction(msg.Username, *msg.Action)
	case wire.CmdShowHand:
		err = s.game.ShowHand(msg.Username)
	}
	if err != nil {
		c.send(wire.UserError(err))
		return
	}
	c.send(wire.Ack(msg))
}

// routeEvents drains the game's emitted events and fans them out:
// narration and views broadcast to every named connection, turn
// signals and synthesized acks go only to their addressee.
func (s *Server) routeEvents() {
	for _, ev := range s.game.DrainEvents() {
		switch ev.Kind {
		case poker.EventStatus:
			for _, c := range s.users {
				c.send(wire.Status(ev.Status))
			}
		case poker.EventView:
			for name, c := range s.users {
				c.send(wire.GameView(s.game.ViewFor(name)))
			}
		case poker.EventTurnSignal:
			if c, ok := s.users[ev.To]; ok {
				c.send(wire.TurnSignal(ev.Turn))
			}
		case poker.EventAck:
			if c, ok := s.users[ev.To]; ok {
				c.send(wire.Ack(&wire.ClientMessage{
					Username: ev.To,
					Command:  wire.CmdTakeAction,
					Action:   ev.Action,
				}))
			}
		}
	}
}
