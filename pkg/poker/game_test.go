package poker

import (
	"errors"
	"testing"
	"time"
)

// newTestGame builds a seeded game with the given users seated and the
// clock at a fixed base time.
func newTestGame(t *testing.T, buyIn Usd, names ...string) *Game {
	t.Helper()
	settings := NewGameSettings(buyIn)
	settings.Seed = 42
	g := NewGame(settings)
	g.Tick(time.Unix(1000, 0))

	for _, name := range names {
		if err := g.Connect(name); err != nil {
			t.Fatalf("connect %s: %v", name, err)
		}
		if err := g.ChangeState(name, Play); err != nil {
			t.Fatalf("seat %s: %v", name, err)
		}
	}
	g.DrainEvents()
	return g
}

func totalMoney(g *Game) Usd {
	var sum Usd
	for _, name := range g.Usernames() {
		sum += g.User(name).Money
	}
	return sum
}

// findTurnSignal returns the most recent turn signal in the batch.
func findTurnSignal(events []Event) *Event {
	var found *Event
	for i := range events {
		if events[i].Kind == EventTurnSignal {
			found = &events[i]
		}
	}
	return found
}

func TestConnectAndSpectate(t *testing.T) {
	g := NewGame(NewGameSettings(200))
	g.Tick(time.Unix(1000, 0))

	if err := g.Connect("alice"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	view := g.ViewFor("alice")
	if len(view.Spectators) != 1 || view.Spectators[0] != "alice" {
		t.Errorf("Expected spectators [alice], got %v", view.Spectators)
	}
	if len(view.Players) != 0 || len(view.Pots) != 0 || len(view.Board) != 0 {
		t.Errorf("Expected empty table, got %+v", view)
	}

	if err := g.ChangeState("alice", Waitlist); err != nil {
		t.Fatalf("waitlist: %v", err)
	}
	view = g.ViewFor("alice")
	if len(view.Waitlisters) != 1 || view.Waitlisters[0] != "alice" {
		t.Errorf("Expected waitlisters [alice], got %v", view.Waitlisters)
	}
	if len(view.Spectators) != 0 {
		t.Errorf("Expected no spectators, got %v", view.Spectators)
	}

	if err := g.StartGame("alice"); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Errorf("Expected ErrNotEnoughPlayers, got %v", err)
	}
}

func TestConnectRejectsBadUsernames(t *testing.T) {
	g := NewGame(NewGameSettings(200))

	for _, name := range []string{"", "has space", "toolongusername12345", "bad-dash", "ünïcode"} {
		if err := g.Connect(name); !errors.Is(err, ErrInvalidUsername) {
			t.Errorf("Expected ErrInvalidUsername for %q, got %v", name, err)
		}
	}

	if err := g.Connect("alice"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := g.Connect("alice"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Expected ErrUsernameTaken, got %v", err)
	}
}

func TestHeadsUpSmallBlindFoldsPreflop(t *testing.T) {
	g := newTestGame(t, 200, "alice", "bob")

	if err := g.StartGame("alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	events := g.DrainEvents()

	// Heads-up: the button (alice, seated first) posts the small
	// blind and acts first preflop.
	turn := findTurnSignal(events)
	if turn == nil {
		t.Fatal("Expected a turn signal after the deal")
	}
	if turn.To != "alice" {
		t.Fatalf("Expected alice to act first, got %s", turn.To)
	}

	// Acting out of turn changes nothing.
	if err := g.TakeAction("bob", Action{Kind: Fold}); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("Expected ErrNotYourTurn, got %v", err)
	}

	if err := g.TakeAction("alice", Action{Kind: Fold}); err != nil {
		t.Fatalf("fold: %v", err)
	}

	if money := g.User("alice").Money; money != 195 {
		t.Errorf("Expected alice at 195, got %d", money)
	}
	if money := g.User("bob").Money; money != 205 {
		t.Errorf("Expected bob at 205, got %d", money)
	}
	if total := totalMoney(g); total != 400 {
		t.Errorf("Money not conserved: %d", total)
	}
}

func TestPreflopCheckLegality(t *testing.T) {
	g := newTestGame(t, 200, "alice", "bob")
	if err := g.StartGame("alice"); err != nil {
		t.Fatal(err)
	}

	// Alice owes half a blind; checking is illegal, calling is not.
	if err := g.TakeAction("alice", Action{Kind: Check}); !errors.Is(err, ErrCheckUnavailable) {
		t.Errorf("Expected ErrCheckUnavailable, got %v", err)
	}
	if err := g.TakeAction("alice", Action{Kind: Call}); err != nil {
		t.Fatalf("call: %v", err)
	}
	// Bob already matches the bet and has the option.
	if err := g.TakeAction("bob", Action{Kind: Check}); err != nil {
		t.Fatalf("check: %v", err)
	}

	if g.Street() != Flop {
		t.Errorf("Expected flop after settled preflop, got %v", g.Street())
	}
	view := g.ViewFor("alice")
	if len(view.Board) != 3 {
		t.Errorf("Expected 3 board cards on the flop, got %d", len(view.Board))
	}
}

func TestCheckdownReachesShowdown(t *testing.T) {
	g := newTestGame(t, 200, "alice", "bob")
	if err := g.StartGame("alice"); err != nil {
		t.Fatal(err)
	}

	if err := g.TakeAction("alice", Action{Kind: Call}); err != nil {
		t.Fatal(err)
	}
	if err := g.TakeAction("bob", Action{Kind: Check}); err != nil {
		t.Fatal(err)
	}
	// Postflop the big blind (left of the button) acts first.
	for street := 0; street < 3; street++ {
		if err := g.TakeAction("bob", Action{Kind: Check}); err != nil {
			t.Fatalf("street %d bob: %v", street, err)
		}
		if err := g.TakeAction("alice", Action{Kind: Check}); err != nil {
			t.Fatalf("street %d alice: %v", street, err)
		}
	}

	if g.Street() != Showdown {
		t.Fatalf("Expected showdown, got %v", g.Street())
	}
	view := g.ViewFor("alice")
	if len(view.Board) != 5 {
		t.Errorf("Expected a full board, got %d cards", len(view.Board))
	}
	if total := totalMoney(g); total != 400 {
		t.Errorf("Money not conserved at showdown: %d", total)
	}
	// Somebody won the 20 in blinds-and-calls.
	a, b := g.User("alice").Money, g.User("bob").Money
	if a != 190 && a != 210 && a != 200 {
		t.Errorf("Unexpected alice stack %d (bob %d)", a, b)
	}
}

func TestThreeWayAllInSidePot(t *testing.T) {
	g := newTestGame(t, 200, "ann", "ben", "cat")
	g.User("ann").Money = 50
	g.User("ben").Money = 100
	g.User("cat").Money = 100

	if err := g.StartGame("ann"); err != nil {
		t.Fatal(err)
	}
	// Seats: ann=0 (button), ben=1 (small blind), cat=2 (big blind).
	// Preflop everyone calls to 10.
	if err := g.TakeAction("ann", Action{Kind: Call}); err != nil {
		t.Fatal(err)
	}
	if err := g.TakeAction("ben", Action{Kind: Call}); err != nil {
		t.Fatal(err)
	}
	if err := g.TakeAction("cat", Action{Kind: Check}); err != nil {
		t.Fatal(err)
	}
	if g.Street() != Flop {
		t.Fatalf("Expected flop, got %v", g.Street())
	}

	// Flop: checks around to ann, who jams her last 40; ben calls;
	// cat raises all-in to 90; ben calls the remaining 50.
	if err := g.TakeAction("ben", Action{Kind: Check}); err != nil {
		t.Fatal(err)
	}
	if err := g.TakeAction("cat", Action{Kind: Check}); err != nil {
		t.Fatal(err)
	}
	if err := g.TakeAction("ann", Action{Kind: AllIn}); err != nil {
		t.Fatal(err)
	}
	if err := g.TakeAction("ben", Action{Kind: Call}); err != nil {
		t.Fatal(err)
	}
	if err := g.TakeAction("cat", Action{Kind: AllIn}); err != nil {
		t.Fatal(err)
	}
	if err := g.TakeAction("ben", Action{Kind: Call}); err != nil {
		t.Fatal(err)
	}

	// No further betting is possible: the board runs out and the hand
	// settles.
	if g.Street() != Showdown {
		t.Fatalf("Expected showdown, got %v", g.Street())
	}
	view := g.ViewFor("ann")
	if len(view.Board) != 5 {
		t.Errorf("Expected full board revealed, got %d cards", len(view.Board))
	}

	// Main pot 3x50, side pot 2x50.
	if len(g.pm.Pots) != 2 {
		t.Fatalf("Expected main pot and one side pot, got %d pots", len(g.pm.Pots))
	}
	main, side := g.pm.Pots[0], g.pm.Pots[1]
	if main.Amount != 150 {
		t.Errorf("Expected main pot 150, got %d", main.Amount)
	}
	if !main.IsEligible(0) || !main.IsEligible(1) || !main.IsEligible(2) {
		t.Error("Expected all three seats eligible for the main pot")
	}
	if side.Amount != 100 {
		t.Errorf("Expected side pot 100, got %d", side.Amount)
	}
	if side.IsEligible(0) {
		t.Error("Short stack must not be eligible for the side pot")
	}
	if !side.IsEligible(1) || !side.IsEligible(2) {
		t.Error("Expected ben and cat eligible for the side pot")
	}

	if total := totalMoney(g); total != 250 {
		t.Errorf("Money not conserved: %d", total)
	}
}

func TestRaiseBelowMinimumRejected(t *testing.T) {
	g := newTestGame(t, 200, "alice", "bob")
	g.User("bob").Money = 45

	if err := g.StartGame("alice"); err != nil {
		t.Fatal(err)
	}
	// Alice raises to 30: min raise becomes 20.
	if err := g.TakeAction("alice", Action{Kind: Raise, Amount: 20}); err != nil {
		t.Fatal(err)
	}

	// Bob has 35 behind; after calling 20 only 15 remain, below the
	// minimum raise. The raise is rejected but all-in is not.
	if err := g.TakeAction("bob", Action{Kind: Raise, Amount: 15}); !errors.Is(err, ErrRaiseTooSmall) {
		t.Fatalf("Expected ErrRaiseTooSmall, got %v", err)
	}
	if err := g.TakeAction("bob", Action{Kind: AllIn}); err != nil {
		t.Fatalf("all-in: %v", err)
	}

	// The short all-in hands the action back to alice but leaves the
	// minimum raise unchanged.
	events := g.DrainEvents()
	turn := findTurnSignal(events)
	if turn == nil || turn.To != "alice" {
		t.Fatal("Expected the action back on alice")
	}
	if turn.Turn.MinRaise != 20 {
		t.Errorf("Expected min raise to stay 20, got %d", turn.Turn.MinRaise)
	}
	if err := g.TakeAction("alice", Action{Kind: Call}); err != nil {
		t.Fatal(err)
	}

	if g.Street() != Showdown {
		t.Fatalf("Expected showdown after the call, got %v", g.Street())
	}
	if total := totalMoney(g); total != 245 {
		t.Errorf("Money not conserved: %d", total)
	}
}

func TestTurnTimeoutAutoFolds(t *testing.T) {
	g := newTestGame(t, 200, "alice", "bob")
	base := g.Now()
	if err := g.StartGame("alice"); err != nil {
		t.Fatal(err)
	}
	g.DrainEvents()

	// One tick before the deadline nothing happens.
	g.Tick(base.Add(DefaultTurnTimeout - time.Millisecond))
	if g.User("bob").Money != 190 {
		t.Fatal("Hand should still be running")
	}
	for _, ev := range g.DrainEvents() {
		if ev.Kind == EventAck {
			t.Fatal("No action may be synthesized before the deadline")
		}
	}

	// At the deadline alice owes a call, so she is folded.
	g.Tick(base.Add(DefaultTurnTimeout))
	events := g.DrainEvents()

	var acked *Event
	for i := range events {
		if events[i].Kind == EventAck {
			acked = &events[i]
		}
	}
	if acked == nil || acked.To != "alice" || acked.Action.Kind != Fold {
		t.Fatalf("Expected a synthesized fold for alice, got %+v", acked)
	}
	if money := g.User("bob").Money; money != 205 {
		t.Errorf("Expected bob at 205 after the timeout fold, got %d", money)
	}
}

func TestTurnTimeoutChecksWhenPossible(t *testing.T) {
	g := newTestGame(t, 200, "alice", "bob")
	base := g.Now()
	if err := g.StartGame("alice"); err != nil {
		t.Fatal(err)
	}
	if err := g.TakeAction("alice", Action{Kind: Call}); err != nil {
		t.Fatal(err)
	}
	g.DrainEvents()

	// Bob can check, so the timeout checks rather than folds.
	g.Tick(base.Add(DefaultTurnTimeout))
	var acked *Event
	for _, ev := range g.DrainEvents() {
		if ev.Kind == EventAck {
			e := ev
			acked = &e
		}
	}
	if acked == nil || acked.To != "bob" || acked.Action.Kind != Check {
		t.Fatalf("Expected a synthesized check for bob, got %+v", acked)
	}
	if g.Street() != Flop {
		t.Errorf("Expected flop after the option checks, got %v", g.Street())
	}
}

func TestDisconnectMidHandFoldsAtDeadline(t *testing.T) {
	g := newTestGame(t, 200, "alice", "bob")
	base := g.Now()
	if err := g.StartGame("alice"); err != nil {
		t.Fatal(err)
	}

	g.Disconnect("alice")
	// The seat stays in the hand until its deadline.
	if g.User("alice") == nil {
		t.Fatal("User record must survive until the hand ends")
	}

	g.Tick(base.Add(DefaultTurnTimeout))
	if money := g.User("bob").Money; money != 205 {
		t.Errorf("Expected bob to win the blinds, got %d", money)
	}

	// The boundary destroys the record and stops the game.
	g.Tick(base.Add(DefaultTurnTimeout + DefaultInterHandWait))
	if g.User("alice") != nil {
		t.Error("Expected alice destroyed at the hand boundary")
	}
	if g.HandActive() {
		t.Error("Expected the game idle with one player left")
	}
}

func TestNextHandStartsAfterPause(t *testing.T) {
	g := newTestGame(t, 200, "alice", "bob")
	base := g.Now()
	if err := g.StartGame("alice"); err != nil {
		t.Fatal(err)
	}
	if err := g.TakeAction("alice", Action{Kind: Fold}); err != nil {
		t.Fatal(err)
	}
	g.DrainEvents()

	// Stacks hold steady through the pause.
	g.Tick(base.Add(DefaultInterHandWait - time.Second))
	if g.User("alice").Money != 195 || g.User("bob").Money != 205 {
		t.Fatal("Stacks must not change during the inter-hand pause")
	}

	g.Tick(base.Add(DefaultInterHandWait))
	if !g.HandActive() {
		t.Fatal("Expected the next hand to begin")
	}
	// Button passed to bob, who now posts the small blind.
	view := g.ViewFor("alice")
	if view.Button != 1 {
		t.Errorf("Expected button on seat 1, got %d", view.Button)
	}
	// The new hand's blinds sit in the pot.
	if total := totalMoney(g) + g.pm.GetTotalPot(); total != 400 {
		t.Errorf("Money not conserved across hands: %d", total)
	}
}

func TestMidHandJoinDeferredToBoundary(t *testing.T) {
	g := newTestGame(t, 200, "alice", "bob")
	base := g.Now()
	if err := g.StartGame("alice"); err != nil {
		t.Fatal(err)
	}

	if err := g.Connect("carol"); err != nil {
		t.Fatal(err)
	}
	if err := g.ChangeState("carol", Play); err != nil {
		t.Fatal(err)
	}
	// Carol waits out the live hand.
	if g.User("carol").State != Waitlist {
		t.Errorf("Expected carol waitlisted mid-hand, got %v", g.User("carol").State)
	}

	if err := g.TakeAction("alice", Action{Kind: Fold}); err != nil {
		t.Fatal(err)
	}
	g.Tick(base.Add(DefaultInterHandWait))

	if g.User("carol").State != Play {
		t.Errorf("Expected carol seated at the boundary, got %v", g.User("carol").State)
	}
	view := g.ViewFor("carol")
	if len(view.Players) != 3 {
		t.Errorf("Expected 3 seated players, got %d", len(view.Players))
	}
}

func TestShowHandAtShowdown(t *testing.T) {
	g := newTestGame(t, 200, "alice", "bob")
	if err := g.StartGame("alice"); err != nil {
		t.Fatal(err)
	}

	// Showing out of phase is rejected.
	if err := g.ShowHand("alice"); !errors.Is(err, ErrNotShowdown) {
		t.Errorf("Expected ErrNotShowdown, got %v", err)
	}

	if err := g.TakeAction("alice", Action{Kind: Call}); err != nil {
		t.Fatal(err)
	}
	if err := g.TakeAction("bob", Action{Kind: Check}); err != nil {
		t.Fatal(err)
	}
	for street := 0; street < 3; street++ {
		if err := g.TakeAction("bob", Action{Kind: Check}); err != nil {
			t.Fatal(err)
		}
		if err := g.TakeAction("alice", Action{Kind: Check}); err != nil {
			t.Fatal(err)
		}
	}
	if g.Street() != Showdown {
		t.Fatal("Expected showdown")
	}

	if err := g.ShowHand("alice"); err != nil {
		t.Fatalf("show: %v", err)
	}
	view := g.ViewFor("bob")
	for _, p := range view.Players {
		if p.Name == "alice" && len(p.Cards) != 2 {
			t.Errorf("Expected alice's cards revealed to bob, got %v", p.Cards)
		}
	}
}

func TestHoleCardsRedacted(t *testing.T) {
	g := newTestGame(t, 200, "alice", "bob")
	if err := g.StartGame("alice"); err != nil {
		t.Fatal(err)
	}

	view := g.ViewFor("alice")
	for _, p := range view.Players {
		switch p.Name {
		case "alice":
			if len(p.Cards) != 2 {
				t.Errorf("Expected alice to see her own cards, got %v", p.Cards)
			}
		case "bob":
			if len(p.Cards) != 0 {
				t.Errorf("Expected bob's cards hidden from alice, got %v", p.Cards)
			}
		}
	}
}

func TestBlindShortStackGoesAllIn(t *testing.T) {
	g := newTestGame(t, 200, "alice", "bob")
	g.User("bob").Money = 4 // cannot cover the big blind

	if err := g.StartGame("alice"); err != nil {
		t.Fatal(err)
	}

	view := g.ViewFor("alice")
	for _, p := range view.Players {
		if p.Name == "bob" {
			if !p.AllIn {
				t.Error("Expected bob all-in from the capped blind")
			}
			if p.Bet != 4 {
				t.Errorf("Expected bob's blind capped at 4, got %d", p.Bet)
			}
		}
	}
	// The blinds sit in the pot while the hand is live.
	if total := totalMoney(g) + g.pm.GetTotalPot(); total != 204 {
		t.Errorf("Money not conserved: %d", total)
	}
}
