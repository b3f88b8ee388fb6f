package holdem

// PositionName labels target relative to the button over an ascending seat
// list. Heads-up is BTN and BB. Seats after the blinds read UTG, UTG+1, MP,
// MP+1 while the two seats before the button are HJ and CO. It returns ""
// when target is not in seats.
func PositionName(dealerSeat int, seats []int, target int) string {
	n := len(seats)
	targetIdx, dealerIdx := -1, 0
	for i, s := range seats {
		if s == target {
			targetIdx = i
		}
		if s == dealerSeat {
			dealerIdx = i
		}
	}
	if targetIdx < 0 || n < 2 {
		return ""
	}
	rel := (targetIdx - dealerIdx + n) % n

	if n == 2 {
		if rel == 0 {
			return "BTN"
		}
		return "BB"
	}
	switch rel {
	case 0:
		return "BTN"
	case 1:
		return "SB"
	case 2:
		return "BB"
	}

	// 大盲之后的位置，从 1 开始数
	after := rel - 2
	slots := n - 3
	switch {
	case after == slots:
		return "CO"
	case slots >= 2 && after == slots-1:
		return "HJ"
	case after == 1:
		return "UTG"
	case after == 2 && slots >= 4:
		return "UTG+1"
	case after == 4 && slots >= 6:
		return "MP+1"
	}
	return "MP"
}

// PositionOf labels a seated player among the players not sitting out.
func (t *Table) PositionOf(seat int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positionLocked(seat)
}

func (t *Table) positionLocked(seat int) string {
	if t.dealerSeat == NoSeat {
		return ""
	}
	seats := make([]int, 0, len(t.players))
	for _, s := range t.seatsLocked() {
		if !t.players[s].sittingOut {
			seats = append(seats, s)
		}
	}
	return PositionName(t.dealerSeat, seats, seat)
}
