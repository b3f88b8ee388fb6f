package holdem

import "sort"

// Pot 主池或边池
type Pot struct {
	Amount   int64    `json:"amount"`
	Eligible []string `json:"eligible_players"`
}

// Contribution is one player's stake in the hand, folded players included.
type Contribution struct {
	Name   string
	Seat   int
	Total  int64
	Folded bool
	AllIn  bool
}

// BuildPots partitions all contributions into pot tiers. Tier boundaries are
// the distinct all-in totals of non-folded players. Folded chips stay in the
// tiers but never grant eligibility. A tier nobody can win is folded into the
// previous tier.
func BuildPots(contribs []Contribution) []Pot {
	if len(contribs) == 0 {
		return []Pot{}
	}
	sorted := append([]Contribution{}, contribs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seat < sorted[j].Seat })

	levelSet := make(map[int64]bool)
	for _, c := range sorted {
		if c.AllIn && !c.Folded && c.Total > 0 {
			levelSet[c.Total] = true
		}
	}
	if len(levelSet) == 0 {
		var total int64
		for _, c := range sorted {
			total += c.Total
		}
		return []Pot{{Amount: total, Eligible: eligibleAbove(sorted, 0)}}
	}

	levels := make([]int64, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]Pot, 0, len(levels)+1)
	prev := int64(0)
	for _, level := range levels {
		pots = appendTier(pots, tierAmount(sorted, prev, level), eligibleAbove(sorted, level))
		prev = level
	}
	// 超过最高 all-in 档位的部分
	pots = appendTier(pots, tierAmount(sorted, prev, -1), eligibleAbove(sorted, prev+1))
	if len(pots) == 0 {
		var total int64
		for _, c := range sorted {
			total += c.Total
		}
		pots = append(pots, Pot{Amount: total, Eligible: eligibleAbove(sorted, 0)})
	}
	return pots
}

// tierAmount sums what each contributor put in between prev and level.
// level < 0 means unbounded.
func tierAmount(contribs []Contribution, prev, level int64) int64 {
	var amount int64
	for _, c := range contribs {
		if c.Total <= prev {
			continue
		}
		top := c.Total
		if level >= 0 && top > level {
			top = level
		}
		amount += top - prev
	}
	return amount
}

// eligibleAbove lists non-folded contributors whose total reaches min.
func eligibleAbove(contribs []Contribution, min int64) []string {
	names := make([]string, 0, len(contribs))
	for _, c := range contribs {
		if !c.Folded && c.Total >= min {
			names = append(names, c.Name)
		}
	}
	return names
}

func appendTier(pots []Pot, amount int64, eligible []string) []Pot {
	if amount <= 0 {
		return pots
	}
	if len(eligible) == 0 && len(pots) > 0 {
		pots[len(pots)-1].Amount += amount
		return pots
	}
	return append(pots, Pot{Amount: amount, Eligible: eligible})
}

func totalPot(pots []Pot) int64 {
	var sum int64
	for _, p := range pots {
		sum += p.Amount
	}
	return sum
}
