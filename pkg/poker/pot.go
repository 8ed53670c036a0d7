package poker

import "sort"

// Pot represents a pot of chips in the game
type Pot struct {
	Amount      Usd
	Eligibility map[int]bool // Seat indices that are eligible to win this pot
}

// NewPot creates a new pot with the given amount
func NewPot(amount Usd) *Pot {
	return &Pot{
		Amount:      amount,
		Eligibility: make(map[int]bool),
	}
}

// MakeEligible marks a seat as eligible to win this pot
func (p *Pot) MakeEligible(seatIdx int) {
	p.Eligibility[seatIdx] = true
}

// IsEligible checks if a seat is eligible to win this pot
func (p *Pot) IsEligible(seatIdx int) bool {
	return p.Eligibility[seatIdx]
}

// PotManager manages the main pot and any side pots for one hand.
// All amounts are keyed by seat index.
type PotManager struct {
	Pots        []*Pot
	CurrentBets map[int]Usd // Committed this street
	TotalBets   map[int]Usd // Committed this hand
}

// NewPotManager creates a new pot manager
func NewPotManager() *PotManager {
	return &PotManager{
		Pots:        []*Pot{NewPot(0)},
		CurrentBets: make(map[int]Usd),
		TotalBets:   make(map[int]Usd),
	}
}

// AddBet adds a bet delta from a seat to the pot
func (pm *PotManager) AddBet(seatIdx int, amount Usd) {
	pm.CurrentBets[seatIdx] += amount
	pm.TotalBets[seatIdx] += amount
	pm.Pots[0].Amount += amount
	pm.Pots[0].MakeEligible(seatIdx)
}

// ResetCurrentBets resets the per-street bets for a new betting round
func (pm *PotManager) ResetCurrentBets() {
	pm.CurrentBets = make(map[int]Usd)
}

// GetTotalPot returns the total amount across all pots
func (pm *PotManager) GetTotalPot() Usd {
	var total Usd
	for _, pot := range pm.Pots {
		total += pot.Amount
	}
	return total
}

// GetCurrentBet returns the bet a seat has committed this street
func (pm *PotManager) GetCurrentBet(seatIdx int) Usd {
	return pm.CurrentBets[seatIdx]
}

// GetTotalBet returns the bet a seat has committed this hand
func (pm *PotManager) GetTotalBet(seatIdx int) Usd {
	return pm.TotalBets[seatIdx]
}

// ReturnUncalledBet returns any uncalled portion of the highest bet to
// the seat that made it. Returns the seat index and amount refunded, or
// (-1, 0) when every bet was called.
func (pm *PotManager) ReturnUncalledBet() (int, Usd) {
	var highest, second Usd
	highestSeat := -1
	matched := 0

	for seatIdx, bet := range pm.TotalBets {
		if bet > highest {
			second = highest
			highest = bet
			highestSeat = seatIdx
			matched = 1
		} else if bet == highest && bet > 0 {
			matched++
			if bet > second {
				second = bet
			}
		} else if bet > second {
			second = bet
		}
	}

	// Two or more seats at the highest level means the bet was called.
	if highestSeat == -1 || matched > 1 || highest == second {
		return -1, 0
	}

	uncalled := highest - second
	pm.Pots[0].Amount -= uncalled
	pm.CurrentBets[highestSeat] -= uncalled
	pm.TotalBets[highestSeat] -= uncalled
	return highestSeat, uncalled
}

// CreateSidePots splits the collected chips into a main pot and one side
// pot per distinct all-in threshold. allInTotals holds the hand-total
// commitment of each all-in seat; folded reports whether a seat has
// folded. Eligibility for each pot is limited to non-folded seats that
// contributed up to that pot's threshold, so eligibility shrinks
// monotonically across side pots.
func (pm *PotManager) CreateSidePots(allInTotals []Usd, folded func(int) bool) {
	// Distinct non-zero thresholds, ascending.
	seen := make(map[Usd]bool)
	thresholds := make([]Usd, 0, len(allInTotals))
	for _, total := range allInTotals {
		if total > 0 && !seen[total] {
			seen[total] = true
			thresholds = append(thresholds, total)
		}
	}
	sort.Slice(thresholds, func(i, j int) bool { return thresholds[i] < thresholds[j] })

	if len(thresholds) == 0 {
		return
	}

	// The residual above the highest threshold forms the last pot.
	var maxBet Usd
	for _, bet := range pm.TotalBets {
		if bet > maxBet {
			maxBet = bet
		}
	}
	if maxBet > thresholds[len(thresholds)-1] {
		thresholds = append(thresholds, maxBet)
	}

	var pots []*Pot
	var prev Usd
	for _, threshold := range thresholds {
		pot := NewPot(0)
		for seatIdx, bet := range pm.TotalBets {
			if bet > prev {
				contribution := bet
				if contribution > threshold {
					contribution = threshold
				}
				pot.Amount += contribution - prev
			}
			if bet >= threshold && !folded(seatIdx) {
				pot.MakeEligible(seatIdx)
			}
		}
		if pot.Amount > 0 {
			pots = append(pots, pot)
		}
		prev = threshold
	}

	pm.Pots = pots
}

// PotAward describes the settlement of one pot at showdown.
type PotAward struct {
	Amount  Usd
	Winners []int       // Seat indices sharing the pot
	Payouts map[int]Usd // Seat index to amount, remainder included
}

// DistributePots settles every pot. handOf returns the evaluated hand of
// a seat, or nil when the seat cannot win (folded or never dealt in).
// showdownOrder lists contesting seat indices clockwise from the button;
// odd remainder chips go to the first winning seat in that order.
func (pm *PotManager) DistributePots(handOf func(int) *HandValue, showdownOrder []int) []PotAward {
	awards := make([]PotAward, 0, len(pm.Pots))

	for _, pot := range pm.Pots {
		var winners []int
		var bestHand *HandValue

		// Walk in showdown order so ties list winners deterministically.
		for _, seatIdx := range showdownOrder {
			if !pot.IsEligible(seatIdx) {
				continue
			}
			hv := handOf(seatIdx)
			if hv == nil {
				continue
			}
			if bestHand == nil || CompareHands(*hv, *bestHand) > 0 {
				bestHand = hv
				winners = []int{seatIdx}
			} else if CompareHands(*hv, *bestHand) == 0 {
				winners = append(winners, seatIdx)
			}
		}

		if len(winners) == 0 {
			continue
		}

		share := pot.Amount / Usd(len(winners))
		remainder := pot.Amount % Usd(len(winners))
		payouts := make(map[int]Usd, len(winners))
		for _, w := range winners {
			payouts[w] = share
		}
		payouts[winners[0]] += remainder

		awards = append(awards, PotAward{
			Amount:  pot.Amount,
			Winners: winners,
			Payouts: payouts,
		})
	}

	return awards
}
