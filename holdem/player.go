package holdem

import "holdem-rooms/card"

type Player struct {
	name string
	seat int

	stack    int64
	bet      int64 // current betting round
	totalBet int64 // whole hand, drives side pots

	folded     bool
	allIn      bool
	sittingOut bool

	hole []card.Card
}

func (p *Player) Name() string { return p.name }
func (p *Player) Seat() int    { return p.seat }
func (p *Player) Stack() int64 { return p.stack }

// inHand 本手仍有牌且未弃牌
func (p *Player) inHand() bool { return !p.folded && len(p.hole) > 0 }

// canAct 仍可下注
func (p *Player) canAct() bool { return p.inHand() && !p.allIn }

// contributed 本手投入过筹码或拿到过手牌（含已弃牌）
func (p *Player) contributed() bool { return p.totalBet > 0 || len(p.hole) > 0 }

func (p *Player) resetForHand() {
	p.hole = nil
	p.bet = 0
	p.totalBet = 0
	p.folded = false
	p.allIn = false
}

// commit moves chips from stack to the current bet, capped at the stack.
func (p *Player) commit(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	if amount > p.stack {
		amount = p.stack
	}
	p.stack -= amount
	p.bet += amount
	p.totalBet += amount
	if p.stack == 0 {
		p.allIn = true
	}
	return amount
}

func (p *Player) state(showCards bool) PlayerState {
	s := PlayerState{
		Name:       p.name,
		Seat:       p.seat,
		Stack:      p.stack,
		CurrentBet: p.bet,
		TotalBet:   p.totalBet,
		Folded:     p.folded,
		AllIn:      p.allIn,
		SittingOut: p.sittingOut,
		HasCards:   len(p.hole) > 0,
	}
	if showCards && len(p.hole) > 0 {
		s.HoleCards = append([]card.Card{}, p.hole...)
	}
	return s
}

// PlayerState is a copy of a seated player, safe to hold outside the table lock.
type PlayerState struct {
	Name       string      `json:"name"`
	Seat       int         `json:"seat"`
	Stack      int64       `json:"stack"`
	CurrentBet int64       `json:"current_bet"`
	TotalBet   int64       `json:"total_bet"`
	Folded     bool        `json:"is_folded"`
	AllIn      bool        `json:"is_all_in"`
	SittingOut bool        `json:"is_sitting_out"`
	HasCards   bool        `json:"has_cards"`
	HoleCards  []card.Card `json:"hole_cards,omitempty"`
	Position   string      `json:"position,omitempty"`
}
