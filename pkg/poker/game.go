package poker

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/decred/slog"
)

// Table limits and defaults.
const (
	MaxPlayers      = 10
	DefaultMaxUsers = 32

	DefaultBuyIn Usd = 200

	DefaultTurnTimeout   = 30 * time.Second
	DefaultTickInterval  = 100 * time.Millisecond
	DefaultInterHandWait = 5 * time.Second
)

// GameSettings holds the fixed parameters of a table.
type GameSettings struct {
	MaxPlayers    int
	MaxUsers      int
	BuyIn         Usd
	SmallBlind    Usd
	BigBlind      Usd
	TurnTimeout   time.Duration
	InterHandWait time.Duration
	Seed          int64 // 0 means seed from the clock
	Log           slog.Logger
}

// NewGameSettings derives a settings struct from a buy-in, with blinds
// at 1/40 and 1/20 of the buy-in as in the default 5/10 at 200.
func NewGameSettings(buyIn Usd) GameSettings {
	return GameSettings{
		MaxPlayers:    MaxPlayers,
		MaxUsers:      DefaultMaxUsers,
		BuyIn:         buyIn,
		SmallBlind:    buyIn / 40,
		BigBlind:      buyIn / 20,
		TurnTimeout:   DefaultTurnTimeout,
		InterHandWait: DefaultInterHandWait,
	}
}

// Game is the authoritative poker state machine. It is not safe for
// concurrent use; the orchestrator confines it to a single goroutine
// and drives it with commands and discrete clock ticks. The game never
// performs I/O: every externally visible effect is an Event drained
// with DrainEvents.
type Game struct {
	settings GameSettings
	log      slog.Logger
	rng      *rand.Rand

	users    map[string]*User
	waitlist []string
	pending  map[string]UserState // seating changes queued until the hand boundary

	seats  []*Seat
	button int

	deck  *Deck
	board []Card
	pm    *PotManager

	street     Street
	handActive bool
	handNum    int

	currentBet Usd // bet-to-match this street
	minRaise   Usd // minimum raise delta
	toAct      int // seat index whose turn it is; -1 when nobody acts

	now          time.Time
	turnDeadline time.Time

	nextHandPending bool
	nextHandAt      time.Time

	events []Event
}

// NewGame creates an idle game with no users.
func NewGame(settings GameSettings) *Game {
	if settings.MaxPlayers <= 0 || settings.MaxPlayers > MaxPlayers {
		settings.MaxPlayers = MaxPlayers
	}
	if settings.MaxUsers <= 0 {
		settings.MaxUsers = DefaultMaxUsers
	}
	if settings.BuyIn <= 0 {
		settings.BuyIn = DefaultBuyIn
	}
	if settings.SmallBlind <= 0 {
		settings.SmallBlind = settings.BuyIn / 40
	}
	if settings.BigBlind <= 0 {
		settings.BigBlind = settings.BuyIn / 20
	}
	if settings.TurnTimeout <= 0 {
		settings.TurnTimeout = DefaultTurnTimeout
	}
	if settings.InterHandWait <= 0 {
		settings.InterHandWait = DefaultInterHandWait
	}
	if settings.Log == nil {
		settings.Log = slog.Disabled
	}

	seed := settings.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	seats := make([]*Seat, settings.MaxPlayers)
	for i := range seats {
		seats[i] = &Seat{}
	}

	return &Game{
		settings: settings,
		log:      settings.Log,
		rng:      rand.New(rand.NewSource(seed)),
		users:    make(map[string]*User),
		pending:  make(map[string]UserState),
		seats:    seats,
		button:   len(seats) - 1,
		pm:       NewPotManager(),
		toAct:    -1,
		now:      time.Now(),
	}
}

// Settings returns the game's fixed parameters.
func (g *Game) Settings() GameSettings { return g.settings }

// DrainEvents returns the events emitted since the last drain.
func (g *Game) DrainEvents() []Event {
	events := g.events
	g.events = nil
	return events
}

func (g *Game) emitStatus(format string, args ...interface{}) {
	g.events = append(g.events, Event{Kind: EventStatus, Status: fmt.Sprintf(format, args...)})
}

func (g *Game) emitView() {
	g.events = append(g.events, Event{Kind: EventView})
}

func (g *Game) emitAck(to string, action Action) {
	g.events = append(g.events, Event{Kind: EventAck, To: to, Action: &action})
}

func (g *Game) emitTurnSignal() {
	if g.toAct < 0 {
		return
	}
	seat := g.seats[g.toAct]
	user := g.users[seat.User]
	if user == nil {
		return
	}
	g.events = append(g.events, Event{
		Kind: EventTurnSignal,
		To:   seat.User,
		Turn: &TurnSignal{
			Username:   seat.User,
			Actions:    g.legalActions(g.toAct),
			CallAmount: g.callAmount(g.toAct),
			MinRaise:   g.minRaise,
			TimeLeft:   g.secondsLeft(),
		},
	})
}

// Connect claims a username and joins the table as a spectator.
func (g *Game) Connect(name string) error {
	if !ValidUsername(name) {
		return ErrInvalidUsername
	}
	if _, ok := g.users[name]; ok {
		return ErrUsernameTaken
	}
	if len(g.users) >= g.settings.MaxUsers {
		return ErrServerFull
	}
	g.users[name] = NewUser(name, g.settings.BuyIn)
	g.log.Debugf("%s connected with $%d", name, g.settings.BuyIn)
	g.emitStatus("%s joins the table", name)
	g.emitView()
	return nil
}

// Disconnect tears down a user. A user seated in a live hand folds out
// at each remaining turn deadline and is destroyed when the hand ends;
// anyone else is destroyed immediately.
func (g *Game) Disconnect(name string) {
	user, ok := g.users[name]
	if !ok {
		return
	}
	seatIdx := g.seatOf(name)
	inLiveHand := seatIdx >= 0 && g.handActive && g.seats[seatIdx].InHand()

	user.Leave()
	if inLiveHand {
		// Keep the seat so the pot accounting stays intact; the turn
		// timer folds it at each deadline and the boundary removes it.
		g.log.Debugf("%s disconnected mid-hand, seat %d plays out", name, seatIdx)
		g.emitStatus("%s disconnects", name)
		g.emitView()
		return
	}
	g.removeUser(name)
	g.emitStatus("%s leaves the table", name)
	g.emitView()
}

// removeUser destroys a user record and vacates any seat it holds.
func (g *Game) removeUser(name string) {
	if seatIdx := g.seatOf(name); seatIdx >= 0 {
		g.seats[seatIdx].User = ""
		g.seats[seatIdx].resetForHand()
	}
	g.dropFromWaitlist(name)
	delete(g.pending, name)
	delete(g.users, name)
}

func (g *Game) dropFromWaitlist(name string) {
	for i, n := range g.waitlist {
		if n == name {
			g.waitlist = append(g.waitlist[:i], g.waitlist[i+1:]...)
			return
		}
	}
}

// ChangeState moves a user to the requested role. Transitions between
// Spectate and Waitlist apply immediately; transitions into or out of a
// seat during a live hand are queued until the hand boundary.
func (g *Game) ChangeState(name string, target UserState) error {
	user, ok := g.users[name]
	if !ok {
		return ErrUnknownUser
	}
	seatIdx := g.seatOf(name)

	switch target {
	case Spectate, Waitlist:
		if seatIdx >= 0 {
			if g.handActive && g.seats[seatIdx].InHand() {
				g.pending[name] = target
				g.emitStatus("%s will leave the game after this hand", name)
				return nil
			}
			g.seats[seatIdx].User = ""
			g.seats[seatIdx].resetForHand()
		}
		g.dropFromWaitlist(name)
		if target == Waitlist {
			g.waitlist = append(g.waitlist, name)
		}
		user.SetState(target)
		g.emitStatus("%s moves to %s", name, target)
		g.emitView()
		return nil

	case Play:
		if seatIdx >= 0 {
			delete(g.pending, name)
			return nil
		}
		if g.handActive {
			// Seated at the next hand boundary via the waitlist.
			g.dropFromWaitlist(name)
			g.waitlist = append(g.waitlist, name)
			user.SetState(Waitlist)
			g.emitStatus("%s waits for the next hand", name)
			g.emitView()
			return nil
		}
		idx := g.vacantSeat()
		if idx < 0 {
			g.dropFromWaitlist(name)
			g.waitlist = append(g.waitlist, name)
			user.SetState(Waitlist)
			g.emitStatus("table is full; %s joins the waitlist", name)
			g.emitView()
			return nil
		}
		g.dropFromWaitlist(name)
		g.seatUser(name, idx)
		g.emitStatus("%s sits at seat %d", name, idx)
		g.emitView()
		return nil
	}
	return ErrUnknownUser
}

func (g *Game) vacantSeat() int {
	for i, s := range g.seats {
		if !s.Occupied() {
			return i
		}
	}
	return -1
}

func (g *Game) seatUser(name string, idx int) {
	g.seats[idx].User = name
	g.seats[idx].resetForHand()
	g.users[name].SetState(Play)
}

// seatWaitlisters fills vacant seats from the waitlist in FIFO order.
func (g *Game) seatWaitlisters() {
	for len(g.waitlist) > 0 {
		idx := g.vacantSeat()
		if idx < 0 {
			return
		}
		name := g.waitlist[0]
		g.waitlist = g.waitlist[1:]
		g.seatUser(name, idx)
		g.emitStatus("%s sits at seat %d", name, idx)
	}
}

func (g *Game) seatedCount() int {
	n := 0
	for _, s := range g.seats {
		if s.Occupied() {
			n++
		}
	}
	return n
}

// StartGame begins the first hand. It requires at least two users who
// are seated or next in line from the waitlist.
func (g *Game) StartGame(name string) error {
	if _, ok := g.users[name]; !ok {
		return ErrUnknownUser
	}
	if g.handActive {
		return ErrGameInProgress
	}

	vacancies := 0
	for _, s := range g.seats {
		if !s.Occupied() {
			vacancies++
		}
	}
	joinable := len(g.waitlist)
	if joinable > vacancies {
		joinable = vacancies
	}
	if g.seatedCount()+joinable < 2 {
		return ErrNotEnoughPlayers
	}

	g.seatWaitlisters()
	g.nextHandPending = false
	g.startHand()
	return nil
}

// startHand deals a new hand: advances the button, posts blinds, deals
// hole cards, and opens preflop betting.
func (g *Game) startHand() {
	g.handNum++
	g.deck = NewDeck(g.rng)
	g.board = nil
	g.pm = NewPotManager()
	g.street = PreFlop
	g.currentBet = 0
	g.minRaise = g.settings.BigBlind
	g.handActive = true

	for _, s := range g.seats {
		s.resetForHand()
	}

	g.button = g.nextOccupied(g.button)
	g.emitStatus("hand #%d begins", g.handNum)

	// Heads-up the button posts the small blind; otherwise the blinds
	// are the two seats after the button.
	var sbIdx int
	if g.seatedCount() == 2 {
		sbIdx = g.button
	} else {
		sbIdx = g.nextOccupied(g.button)
	}
	bbIdx := g.nextOccupied(sbIdx)

	g.postBlind(sbIdx, g.settings.SmallBlind, "small blind")
	g.postBlind(bbIdx, g.settings.BigBlind, "big blind")
	g.currentBet = g.settings.BigBlind

	// Two hole cards to every seated player.
	for i := 0; i < 2; i++ {
		for j := 1; j <= len(g.seats); j++ {
			idx := (g.button + j) % len(g.seats)
			if !g.seats[idx].Occupied() {
				continue
			}
			card, ok := g.deck.Draw()
			if !ok {
				g.log.Errorf("deck exhausted dealing hand #%d", g.handNum)
				return
			}
			g.seats[idx].Cards = append(g.seats[idx].Cards, card)
		}
	}

	// Preflop action starts left of the big blind. If the blinds put
	// everyone all-in there is no betting at all.
	g.openBetting(g.nextCanAct(bbIdx))
	if g.toAct < 0 {
		g.endStreet()
		return
	}
	g.emitView()
}

// postBlind posts a forced bet, capped at the player's stack.
func (g *Game) postBlind(idx int, blind Usd, label string) {
	seat := g.seats[idx]
	user := g.users[seat.User]
	amount := blind
	if amount >= user.Money {
		amount = user.Money
		seat.AllIn = true
	}
	user.Money -= amount
	g.pm.AddBet(idx, amount)
	g.emitStatus("%s posts %s $%d", seat.User, label, amount)
}

// nextOccupied returns the next occupied seat strictly after idx,
// wrapping clockwise. Returns idx when it is the only occupied seat.
func (g *Game) nextOccupied(idx int) int {
	for j := 1; j <= len(g.seats); j++ {
		next := (idx + j) % len(g.seats)
		if g.seats[next].Occupied() {
			return next
		}
	}
	return idx
}

// nextCanAct returns the next seat strictly after idx that still has
// actions to take, or -1 if none.
func (g *Game) nextCanAct(idx int) int {
	for j := 1; j <= len(g.seats); j++ {
		next := (idx + j) % len(g.seats)
		if g.seats[next].CanAct() {
			return next
		}
	}
	return -1
}

func (g *Game) inHandCount() int {
	n := 0
	for _, s := range g.seats {
		if s.InHand() {
			n++
		}
	}
	return n
}

// openBetting hands the turn to idx and arms the turn timer.
func (g *Game) openBetting(idx int) {
	g.toAct = idx
	if idx < 0 {
		return
	}
	g.turnDeadline = g.now.Add(g.settings.TurnTimeout)
	g.emitTurnSignal()
}

func (g *Game) secondsLeft() int {
	if g.toAct < 0 {
		return 0
	}
	left := g.turnDeadline.Sub(g.now)
	if left < 0 {
		left = 0
	}
	return int(left / time.Second)
}

// committed returns what the seat has put in this street.
func (g *Game) committed(idx int) Usd {
	return g.pm.GetCurrentBet(idx)
}

// callAmount returns the cost for the seat to call, capped at its stack.
func (g *Game) callAmount(idx int) Usd {
	seat := g.seats[idx]
	user := g.users[seat.User]
	need := g.currentBet - g.committed(idx)
	if need > user.Money {
		need = user.Money
	}
	if need < 0 {
		need = 0
	}
	return need
}

// legalActions enumerates the actions the seat may take right now.
func (g *Game) legalActions(idx int) []ActionKind {
	seat := g.seats[idx]
	user := g.users[seat.User]
	c := g.committed(idx)
	m := g.currentBet
	s := user.Money

	actions := []ActionKind{Fold}
	if c == m {
		actions = append(actions, Check)
	}
	if c < m && s > 0 {
		actions = append(actions, Call)
	}
	if s+c > m && s-(m-c) >= g.minRaise {
		actions = append(actions, Raise)
	}
	if s > 0 {
		actions = append(actions, AllIn)
	}
	return actions
}

// TakeAction submits a betting action for the user's seat. Illegal
// actions leave state unchanged.
func (g *Game) TakeAction(name string, action Action) error {
	if _, ok := g.users[name]; !ok {
		return ErrUnknownUser
	}
	if !g.handActive || g.street == Showdown {
		return ErrNoHandInProgress
	}
	idx := g.seatOf(name)
	if idx < 0 {
		return ErrNotSeated
	}
	if idx != g.toAct {
		return ErrNotYourTurn
	}
	return g.applyAction(idx, action)
}

// applyAction validates and applies an action for the acting seat, then
// advances the turn, the street, or the hand.
func (g *Game) applyAction(idx int, action Action) error {
	seat := g.seats[idx]
	user := g.users[seat.User]
	c := g.committed(idx)
	m := g.currentBet
	s := user.Money

	var paid Usd
	switch action.Kind {
	case Fold:
		seat.Folded = true

	case Check:
		if c != m {
			return ErrCheckUnavailable
		}

	case Call:
		if c >= m {
			return ErrCallUnavailable
		}
		paid = m - c
		if paid >= s {
			paid = s
			seat.AllIn = true
		}

	case Raise:
		if s+c <= m {
			return ErrRaiseUnavailable
		}
		available := s - (m - c)
		if available < g.minRaise {
			return ErrRaiseTooSmall
		}
		delta := action.Amount
		if delta < g.minRaise {
			delta = g.minRaise
		}
		if delta > available {
			delta = available
		}
		paid = (m - c) + delta
		if paid == s {
			seat.AllIn = true
		}
		g.currentBet = m + delta
		g.minRaise = delta
		g.reopenBetting(idx)

	case AllIn:
		if s <= 0 {
			return ErrAllInUnavailable
		}
		paid = s
		seat.AllIn = true
		if c+s > m {
			delta := c + s - m
			g.currentBet = c + s
			// A short all-in raise does not reopen the minimum.
			if delta >= g.minRaise {
				g.minRaise = delta
			}
			g.reopenBetting(idx)
		}

	default:
		return ErrRaiseUnavailable
	}

	if paid > 0 {
		user.Money -= paid
		g.pm.AddBet(idx, paid)
	}
	seat.Acted = true
	seat.LastAction = &Action{Kind: action.Kind, Amount: paid}

	settled := g.committed(idx)
	if action.Kind == Call {
		settled = paid
	}
	g.emitStatus("%s %s", seat.User, Action{Kind: action.Kind}.narrate(settled))
	g.log.Debugf("seat %d (%s) %s, pot $%d", idx, seat.User, action.Kind, g.pm.GetTotalPot())

	g.afterAction()
	return nil
}

// reopenBetting clears the acted flag of every other live seat after a
// raise so they get another turn.
func (g *Game) reopenBetting(raiser int) {
	for i, s := range g.seats {
		if i != raiser && s.CanAct() {
			s.Acted = false
		}
	}
}

// afterAction decides what follows an accepted action: a fold win, the
// next seat's turn, or the end of the street.
func (g *Game) afterAction() {
	if g.inHandCount() <= 1 {
		g.foldWin()
		return
	}
	if g.roundComplete() {
		g.endStreet()
		return
	}
	g.openBetting(g.nextCanAct(g.toAct))
	g.emitView()
}

// roundComplete reports whether the street's betting is settled: every
// seat that can still act has acted and matched the bet.
func (g *Game) roundComplete() bool {
	for i, s := range g.seats {
		if s.CanAct() && (!s.Acted || g.committed(i) < g.currentBet) {
			return false
		}
	}
	return true
}

// endStreet closes the betting round and advances the street, dealing
// through to showdown when no further betting is possible.
func (g *Game) endStreet() {
	g.toAct = -1
	g.pm.ResetCurrentBets()
	g.currentBet = 0
	g.minRaise = g.settings.BigBlind
	for _, s := range g.seats {
		s.Acted = false
	}

	g.dealNextStreet()

	// With fewer than two seats able to act there is no more betting;
	// run the board out and go straight to showdown.
	canAct := 0
	for _, s := range g.seats {
		if s.CanAct() {
			canAct++
		}
	}
	for canAct < 2 && g.street != Showdown {
		g.dealNextStreet()
	}

	if g.street == Showdown {
		g.emitView()
		g.showdown()
		return
	}

	// Postflop action starts left of the button.
	g.openBetting(g.nextCanAct(g.button))
	g.emitView()
}

// dealNextStreet reveals board cards for the next street.
func (g *Game) dealNextStreet() {
	switch g.street {
	case PreFlop:
		g.street = Flop
		g.dealBoard(3)
		g.emitStatus("flop: %s", cardsString(g.board))
	case Flop:
		g.street = Turn
		g.dealBoard(1)
		g.emitStatus("turn: %s", cardsString(g.board))
	case Turn:
		g.street = River
		g.dealBoard(1)
		g.emitStatus("river: %s", cardsString(g.board))
	case River:
		g.street = Showdown
	}
}

func (g *Game) dealBoard(n int) {
	for i := 0; i < n; i++ {
		card, ok := g.deck.Draw()
		if !ok {
			g.log.Errorf("deck exhausted dealing board on hand #%d", g.handNum)
			return
		}
		g.board = append(g.board, card)
	}
}

// foldWin ends the hand when only one seat remains unfolded.
func (g *Game) foldWin() {
	g.toAct = -1
	for i, s := range g.seats {
		if s.InHand() {
			pot := g.pm.GetTotalPot()
			g.users[s.User].Money += pot
			g.emitStatus("%s wins $%d", s.User, pot)
			g.log.Debugf("hand #%d: seat %d (%s) wins $%d uncontested", g.handNum, i, s.User, pot)
			break
		}
	}
	g.finishHand()
}

// showdownOrder lists seats still in the hand clockwise from the seat
// after the button. Odd chips go to the first winner in this order.
func (g *Game) showdownOrder() []int {
	order := make([]int, 0, len(g.seats))
	for j := 1; j <= len(g.seats); j++ {
		idx := (g.button + j) % len(g.seats)
		if g.seats[idx].InHand() {
			order = append(order, idx)
		}
	}
	return order
}

// showdown settles the hand: refunds any uncalled bet, builds side
// pots, compares hands per pot, and pays the winners.
func (g *Game) showdown() {
	g.street = Showdown
	g.toAct = -1

	if refundSeat, refund := g.pm.ReturnUncalledBet(); refundSeat >= 0 {
		g.users[g.seats[refundSeat].User].Money += refund
		g.emitStatus("$%d uncalled returns to %s", refund, g.seats[refundSeat].User)
	}

	hands := make(map[int]*HandValue)
	for i, s := range g.seats {
		if !s.InHand() {
			continue
		}
		hv, err := EvaluateHand(s.Cards, g.board)
		if err != nil {
			g.log.Errorf("hand #%d: evaluating seat %d: %v", g.handNum, i, err)
			continue
		}
		hands[i] = &hv
	}

	var allInTotals []Usd
	for i, s := range g.seats {
		if s.InHand() && s.AllIn {
			allInTotals = append(allInTotals, g.pm.GetTotalBet(i))
		}
	}
	g.pm.CreateSidePots(allInTotals, func(idx int) bool {
		return !g.seats[idx].InHand()
	})

	awards := g.pm.DistributePots(func(idx int) *HandValue {
		return hands[idx]
	}, g.showdownOrder())

	for potIdx, award := range awards {
		potName := "the pot"
		if len(awards) > 1 {
			if potIdx == 0 {
				potName = "the main pot"
			} else {
				potName = fmt.Sprintf("side pot %d", potIdx)
			}
		}
		for _, winner := range award.Winners {
			seat := g.seats[winner]
			g.users[seat.User].Money += award.Payouts[winner]
			seat.Showing = true
			g.emitStatus("%s wins $%d from %s with %s",
				seat.User, award.Payouts[winner], potName, hands[winner].Description())
		}
	}

	g.emitView()
	g.finishHand()
}

// finishHand schedules the hand boundary after the inter-hand pause.
func (g *Game) finishHand() {
	g.toAct = -1
	g.nextHandPending = true
	g.nextHandAt = g.now.Add(g.settings.InterHandWait)
	g.emitView()
}

// boundary applies queued state changes between hands, clears out
// departed and broke players, seats waitlisters, and begins the next
// hand when at least two players remain.
func (g *Game) boundary() {
	g.handActive = false
	g.street = PreFlop
	g.board = nil
	g.pm = NewPotManager()
	for _, s := range g.seats {
		s.resetForHand()
	}

	for name, user := range g.users {
		if user.Left() {
			g.removeUser(name)
			g.emitStatus("%s leaves the table", name)
		}
	}

	for name, target := range g.pending {
		delete(g.pending, name)
		if _, ok := g.users[name]; !ok {
			continue
		}
		if err := g.ChangeState(name, target); err != nil {
			g.log.Warnf("queued state change for %s: %v", name, err)
		}
	}

	for _, s := range g.seats {
		if s.Occupied() && g.users[s.User].Money == 0 {
			name := s.User
			s.User = ""
			g.users[name].SetState(Spectate)
			g.emitStatus("%s is broke and returns to spectating", name)
		}
	}

	g.seatWaitlisters()

	if g.seatedCount() >= 2 {
		g.startHand()
		return
	}
	g.emitStatus("waiting for players")
	g.emitView()
}

// ShowHand reveals the user's hole cards during showdown.
func (g *Game) ShowHand(name string) error {
	if _, ok := g.users[name]; !ok {
		return ErrUnknownUser
	}
	if g.street != Showdown {
		return ErrNotShowdown
	}
	idx := g.seatOf(name)
	if idx < 0 || len(g.seats[idx].Cards) == 0 {
		return ErrNotSeated
	}
	seat := g.seats[idx]
	if !seat.Showing {
		seat.Showing = true
		g.emitStatus("%s shows %s", name, cardsString(seat.Cards))
		g.emitView()
	}
	return nil
}

// Tick advances the monotonic clock: expired turn deadlines synthesize
// an action, and the inter-hand pause elapses into the next boundary.
func (g *Game) Tick(now time.Time) {
	g.now = now

	if g.handActive && g.toAct >= 0 && !g.now.Before(g.turnDeadline) {
		idx := g.toAct
		seat := g.seats[idx]
		user := g.users[seat.User]

		action := Action{Kind: Fold}
		if !user.Leaving && g.committed(idx) == g.currentBet {
			action.Kind = Check
		}
		g.emitStatus("%s ran out of time", seat.User)
		g.emitAck(seat.User, action)
		if err := g.applyAction(idx, action); err != nil {
			g.log.Errorf("timeout action for seat %d: %v", idx, err)
		}
	}

	if g.nextHandPending && !g.now.Before(g.nextHandAt) {
		g.nextHandPending = false
		g.boundary()
	}
}

// Now returns the game's clock as of the last tick.
func (g *Game) Now() time.Time { return g.now }

// seatOf returns the seat index a user occupies, or -1.
func (g *Game) seatOf(name string) int {
	for i, s := range g.seats {
		if s.User == name {
			return i
		}
	}
	return -1
}

// HandActive reports whether a hand is being played.
func (g *Game) HandActive() bool { return g.handActive }

// Street returns the current street.
func (g *Game) Street() Street { return g.street }

// User returns a user record by name, or nil.
func (g *Game) User(name string) *User { return g.users[name] }

// Usernames returns every connected username.
func (g *Game) Usernames() []string {
	names := make([]string, 0, len(g.users))
	for name := range g.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ViewFor builds the authoritative snapshot of public state as seen by
// observer. Hole cards are redacted except for the observer's own seat
// and seats revealed at showdown.
func (g *Game) ViewFor(observer string) *GameView {
	view := &GameView{
		SmallBlind: g.settings.SmallBlind,
		BigBlind:   g.settings.BigBlind,
		Button:     g.button,
		HandActive: g.handActive,
		Street:     g.street.String(),
		TimeLeft:   g.secondsLeft(),
	}
	if !g.handActive {
		view.Street = ""
	}

	for _, name := range g.Usernames() {
		if g.users[name].State == Spectate {
			view.Spectators = append(view.Spectators, name)
		}
	}
	view.Waitlisters = append(view.Waitlisters, g.waitlist...)

	for i, s := range g.seats {
		if !s.Occupied() {
			continue
		}
		user := g.users[s.User]
		pv := PlayerView{
			Seat:   i,
			Name:   s.User,
			Money:  user.Money,
			Bet:    g.committed(i),
			Folded: s.Folded,
			AllIn:  s.AllIn,
		}
		if s.LastAction != nil {
			pv.LastAction = s.LastAction.Kind.String()
		}
		if s.User == observer || s.Showing {
			pv.Cards = append([]Card{}, s.Cards...)
		}
		view.Players = append(view.Players, pv)
	}

	view.Board = append([]Card{}, g.board...)

	if g.handActive {
		for _, pot := range g.pm.Pots {
			pv := PotView{Amount: pot.Amount}
			for idx := range pot.Eligibility {
				if g.seats[idx].Occupied() {
					pv.Eligible = append(pv.Eligible, g.seats[idx].User)
				}
			}
			sort.Strings(pv.Eligible)
			view.Pots = append(view.Pots, pv)
		}
	}

	if g.toAct >= 0 {
		view.ToAct = g.seats[g.toAct].User
	}
	return view
}
