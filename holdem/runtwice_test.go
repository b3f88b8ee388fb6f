package holdem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdem-rooms/card"
)

// twoBoards stacks full decks with first and partial decks with second, so
// the reshuffled second run-it-twice board is known in advance.
func twoBoards(first, second string) card.Shuffler {
	a, b := card.Stack(card.MustParseList(first)...), card.Stack(card.MustParseList(second)...)
	return func(cards []card.Card) {
		if len(cards) == 52 {
			a(cards)
			return
		}
		b(cards)
	}
}

// alice holds AA, bob KK. Board one favours alice, board two gives bob quads.
func allInHeadsUp(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable("rit", testSettings, WithShuffler(twoBoards(
		"As Kd Ah Kc 2c 7d 9h 3s 4c",
		"Kh Ks 2d 3d 4h",
	)))
	require.NoError(t, err)
	_, err = tbl.AddPlayer("alice", 100, 0)
	require.NoError(t, err)
	_, err = tbl.AddPlayer("bob", 100, 1)
	require.NoError(t, err)

	require.NoError(t, tbl.StartHand())
	act(t, tbl, "alice", ActionAllIn, 0)
	act(t, tbl, "bob", ActionCall, 0)
	require.Equal(t, PhaseWaitingRunTwice, tbl.Phase())
	return tbl
}

func TestRunTwice_Prompt(t *testing.T) {
	tbl := allInHeadsUp(t)

	assert.Equal(t, NoSeat, tbl.ActionSeat())
	assert.Empty(t, tbl.Community())
	assert.Equal(t, []string{"alice", "bob"}, tbl.RunTwiceEligible())
	assert.ErrorIs(t, tbl.ProcessAction("alice", ActionCheck, 0), ErrWrongPhase)

	v := tbl.View("bob")
	require.NotNil(t, v.RunTwice)
	assert.Equal(t, []string{"alice", "bob"}, v.RunTwice.WaitingFor)

	require.NoError(t, tbl.ChooseRunTwice("alice", true))
	assert.ErrorIs(t, tbl.ChooseRunTwice("alice", false), ErrAlreadyChosen)
	assert.Equal(t, []string{"bob"}, tbl.RunTwicePending())
	assert.ErrorIs(t, tbl.ChooseRunTwice("ghost", true), ErrNotEligible)
}

func TestRunTwice_DifferentWinnersSplitPot(t *testing.T) {
	tbl := allInHeadsUp(t)
	require.NoError(t, tbl.ChooseRunTwice("alice", true))
	require.NoError(t, tbl.ChooseRunTwice("bob", true))

	require.Equal(t, PhaseWaiting, tbl.Phase())
	assert.Equal(t, map[string]int64{"alice": 100, "bob": 100}, stacks(tbl))

	res := tbl.LastResult()
	require.True(t, res.RunTwice)
	require.Len(t, res.Runs, 2)
	assert.Equal(t, card.MustParseList("2c 7d 9h 3s 4c"), res.Runs[0].Board)
	assert.Equal(t, card.MustParseList("Kh Ks 2d 3d 4h"), res.Runs[1].Board)
	assert.Equal(t, []string{"alice"}, res.Runs[0].Winners)
	assert.Equal(t, []string{"bob"}, res.Runs[1].Winners)
	assert.Equal(t, []string{"alice", "bob"}, res.Winners)
	assert.Nil(t, res.Hands)
	assert.Equal(t, res.Runs[0].Board, res.Community)
	assert.Equal(t, []Payout{{Name: "alice", Amount: 100}, {Name: "bob", Amount: 100}}, res.Pots[0].Payouts)

	assert.ErrorIs(t, tbl.ChooseRunTwice("alice", true), ErrWrongPhase)
}

func TestRunTwice_AnyNoRunsOnce(t *testing.T) {
	tbl := allInHeadsUp(t)
	require.NoError(t, tbl.ChooseRunTwice("alice", true))
	require.NoError(t, tbl.ChooseRunTwice("bob", false))

	assert.Equal(t, map[string]int64{"alice": 200, "bob": 0}, stacks(tbl))
	res := tbl.LastResult()
	assert.False(t, res.RunTwice)
	assert.Empty(t, res.Runs)
	assert.Equal(t, card.MustParseList("2c 7d 9h 3s 4c"), res.Community)
	require.Len(t, res.Hands, 2)
	assert.Equal(t, "Pair of Aces", res.Hands[0].HandName)
}

func TestRunTwice_SameWinnersTakeWholePot(t *testing.T) {
	tbl, err := NewTable("rit", testSettings, WithShuffler(twoBoards(
		"As Kd Ah Kc 2c 7d 9h 3s 4c",
		"Ad 8d 2h 3h Jc",
	)))
	require.NoError(t, err)
	_, _ = tbl.AddPlayer("alice", 100, 0)
	_, _ = tbl.AddPlayer("bob", 100, 1)
	require.NoError(t, tbl.StartHand())
	act(t, tbl, "alice", ActionAllIn, 0)
	act(t, tbl, "bob", ActionCall, 0)

	require.NoError(t, tbl.ChooseRunTwice("bob", true))
	require.NoError(t, tbl.ChooseRunTwice("alice", true))

	assert.Equal(t, map[string]int64{"alice": 200, "bob": 0}, stacks(tbl))
	res := tbl.LastResult()
	assert.True(t, res.RunTwice)
	assert.Equal(t, []Payout{{Name: "alice", Amount: 200}}, res.Pots[0].Payouts)
}

// With an odd pot and different winners the extra chip goes to the first run.
func TestRunTwice_OddPotRemainderToFirstRun(t *testing.T) {
	// bob 弃掉小盲，池子为奇数
	tbl, err := NewTable("rit", testSettings, WithShuffler(twoBoards(
		"5c Kd As 6c Kc Ah 2c 7d 9h 3s 4c",
		"Kh Ks 2d 3d 4h",
	)))
	require.NoError(t, err)
	for i, n := range []string{"alice", "bob", "carol"} {
		_, err := tbl.AddPlayer(n, 100, i)
		require.NoError(t, err)
	}
	require.NoError(t, tbl.StartHand())

	// dealer alice, SB bob, BB carol
	act(t, tbl, "alice", ActionAllIn, 0)
	act(t, tbl, "bob", ActionFold, 0)
	act(t, tbl, "carol", ActionCall, 0)
	require.Equal(t, PhaseWaitingRunTwice, tbl.Phase())
	assert.Equal(t, []string{"alice", "carol"}, tbl.RunTwicePending())

	require.NoError(t, tbl.ChooseRunTwice("alice", true))
	require.NoError(t, tbl.ChooseRunTwice("carol", true))

	// 201 = 101 for run one (alice) + 100 for run two (carol)
	assert.Equal(t, map[string]int64{"alice": 101, "bob": 99, "carol": 100}, stacks(tbl))
}
