package poker

import (
	"regexp"

	"github.com/Mr-Jack-Tung/private-poker/pkg/statemachine"
)

// Usd is the currency unit for user balances and bets.
type Usd = int64

// UserState represents a user's role at the table.
type UserState int

const (
	Spectate UserState = iota
	Waitlist
	Play
)

// String returns a human-readable name for the user state.
func (s UserState) String() string {
	switch s {
	case Spectate:
		return "spectate"
	case Waitlist:
		return "waitlist"
	case Play:
		return "play"
	default:
		return "unknown"
	}
}

// MaxUsernameLen is the longest accepted username, in bytes.
const MaxUsernameLen = 16

var usernameRE = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidUsername reports whether name is a legal username: non-empty,
// at most MaxUsernameLen bytes, alphanumeric or underscore.
func ValidUsername(name string) bool {
	return name != "" && len(name) <= MaxUsernameLen && usernameRE.MatchString(name)
}

// UserStateFn represents a user lifecycle state function.
type UserStateFn = statemachine.StateFn[User]

// User is a connected participant: a spectator, waitlister, or seated
// player. Identity is the username; balances persist across hands for
// as long as the user stays connected.
type User struct {
	Name  string
	Money Usd
	State UserState

	// Set when the user disconnected or asked to leave; the record is
	// torn down at the next safe boundary.
	Leaving bool

	sm *statemachine.StateMachine[User]
}

// NewUser creates a user with the given buy-in, joining as a spectator.
func NewUser(name string, buyIn Usd) *User {
	u := &User{
		Name:  name,
		Money: buyIn,
		State: Spectate,
	}
	u.sm = statemachine.NewStateMachine(u, userStateSpectate)
	return u
}

// User lifecycle state functions. Each keeps the State field coherent
// and decides where the user goes next based on the flags set by the
// game when it grants a transition.

func userStateSpectate(u *User) UserStateFn {
	if u.Leaving {
		return nil
	}
	switch u.State {
	case Waitlist:
		return userStateWaitlist
	case Play:
		return userStatePlay
	}
	u.State = Spectate
	return userStateSpectate
}

func userStateWaitlist(u *User) UserStateFn {
	if u.Leaving {
		return nil
	}
	switch u.State {
	case Spectate:
		return userStateSpectate
	case Play:
		return userStatePlay
	}
	u.State = Waitlist
	return userStateWaitlist
}

func userStatePlay(u *User) UserStateFn {
	if u.Leaving {
		return nil
	}
	switch u.State {
	case Spectate:
		return userStateSpectate
	case Waitlist:
		return userStateWaitlist
	}
	u.State = Play
	return userStatePlay
}

// SetState requests a role transition; the lifecycle machine settles it
// on the next dispatch.
func (u *User) SetState(state UserState) {
	u.State = state
	u.sm.Dispatch()
}

// Leave marks the user as leaving and terminates the lifecycle machine.
func (u *User) Leave() {
	u.Leaving = true
	u.sm.Dispatch()
}

// Left reports whether the user's lifecycle has terminated.
func (u *User) Left() bool {
	return u.sm.Terminated()
}
