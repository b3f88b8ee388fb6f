package holdem

import "fmt"

const (
	MaxSeats = 9
	// NoSeat marks an unset seat reference (dealer, seat to act, aggressor).
	NoSeat = -1
)

// Phase 游戏阶段
type Phase byte

const (
	PhaseWaiting Phase = iota
	PhasePreflop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
	PhaseWaitingRunTwice
)

var PhaseDictionary = map[Phase]string{
	PhaseWaiting:         "waiting",
	PhasePreflop:         "preflop",
	PhaseFlop:            "flop",
	PhaseTurn:            "turn",
	PhaseRiver:           "river",
	PhaseShowdown:        "showdown",
	PhaseWaitingRunTwice: "waiting_run_twice",
}

func (p Phase) String() string {
	if s, ok := PhaseDictionary[p]; ok {
		return s
	}
	return fmt.Sprintf("phase(%d)", byte(p))
}

// Betting reports whether players act in this phase.
func (p Phase) Betting() bool {
	return p >= PhasePreflop && p <= PhaseRiver
}

func (p Phase) MarshalText() ([]byte, error) {
	s, ok := PhaseDictionary[p]
	if !ok {
		return nil, fmt.Errorf("%w: phase %d", ErrValidation, byte(p))
	}
	return []byte(s), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for k, v := range PhaseDictionary {
		if v == string(text) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("%w: phase %q", ErrValidation, string(text))
}

// ActionKind 动作类型
type ActionKind byte

const (
	ActionFold ActionKind = iota + 1
	ActionCheck
	ActionCall
	ActionRaise
	ActionAllIn
)

var ActionKindDictionary = map[ActionKind]string{
	ActionFold:  "fold",
	ActionCheck: "check",
	ActionCall:  "call",
	ActionRaise: "raise",
	ActionAllIn: "all_in",
}

func (a ActionKind) String() string {
	if s, ok := ActionKindDictionary[a]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", byte(a))
}

// ParseActionKind maps wire names ("fold", "check", "call", "raise", "all_in").
func ParseActionKind(s string) (ActionKind, error) {
	for k, v := range ActionKindDictionary {
		if v == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

func (a ActionKind) MarshalText() ([]byte, error) {
	s, ok := ActionKindDictionary[a]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAction, byte(a))
	}
	return []byte(s), nil
}

func (a *ActionKind) UnmarshalText(text []byte) error {
	k, err := ParseActionKind(string(text))
	if err != nil {
		return err
	}
	*a = k
	return nil
}

// Action is one entry of the hand's action log.
type Action struct {
	Player string     `json:"player"`
	Kind   ActionKind `json:"action"`
	Amount int64      `json:"amount"`
	Phase  Phase      `json:"phase"`
}
