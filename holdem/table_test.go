package holdem

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdem-rooms/card"
)

// testSettings keeps buy-in clamping out of the way of scenario stacks.
var testSettings = Settings{SmallBlind: 1, BigBlind: 2, MinBuyIn: 1, MaxBuyIn: 1000}

type seating struct {
	name  string
	stack int64
}

// setupTable seats players at 0..n-1. top stacks the deck: hole cards go one
// per pass starting with the small blind, then the board.
func setupTable(t *testing.T, settings Settings, top string, players ...seating) *Table {
	t.Helper()
	opts := []Option{WithSeed(1)}
	if top != "" {
		opts = []Option{WithShuffler(card.Stack(card.MustParseList(top)...))}
	}
	tbl, err := NewTable("room-1", settings, opts...)
	require.NoError(t, err)
	for i, p := range players {
		seat, err := tbl.AddPlayer(p.name, p.stack, i)
		require.NoError(t, err)
		require.Equal(t, i, seat)
	}
	return tbl
}

func act(t *testing.T, tbl *Table, name string, kind ActionKind, amount int64) {
	t.Helper()
	require.NoError(t, tbl.ProcessAction(name, kind, amount), "%s %s %d", name, kind, amount)
}

func nameAt(tbl *Table, seat int) string {
	for _, p := range tbl.Players() {
		if p.Seat == seat {
			return p.Name
		}
	}
	return ""
}

func stacks(tbl *Table) map[string]int64 {
	out := map[string]int64{}
	for _, p := range tbl.Players() {
		out[p.Name] = p.Stack
	}
	return out
}

func sumStacks(tbl *Table) int64 {
	var sum int64
	for _, p := range tbl.Players() {
		sum += p.Stack
	}
	return sum
}

func TestNewTable_RejectsBadSettings(t *testing.T) {
	_, err := NewTable("r", Settings{SmallBlind: 5, BigBlind: 2, MinBuyIn: 1, MaxBuyIn: 10})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = NewTable("r", Settings{SmallBlind: 1, BigBlind: 2, MinBuyIn: 100, MaxBuyIn: 10})
	assert.True(t, IsValidation(err))
}

func TestStartHand_HeadsUp(t *testing.T) {
	tbl := setupTable(t, testSettings, "", seating{"alice", 100}, seating{"bob", 100})
	require.NoError(t, tbl.StartHand())

	assert.Equal(t, PhasePreflop, tbl.Phase())
	assert.Equal(t, int64(3), tbl.Pot())
	assert.Equal(t, 0, tbl.DealerSeat())
	// 单挑：庄家即小盲，翻前先行动
	assert.Equal(t, 0, tbl.ActionSeat())
	assert.Equal(t, int64(2), tbl.CurrentBet())

	v := tbl.View("alice")
	require.Len(t, v.Players, 2)
	assert.Len(t, v.Players[0].HoleCards, 2)
	assert.Nil(t, v.Players[1].HoleCards, "opponent cards are hidden")
	assert.True(t, v.Players[1].HasCards)
	assert.Equal(t, "BTN", v.Players[0].Position)
	assert.Equal(t, "BB", v.Players[1].Position)
	assert.NotEmpty(t, v.ValidActions)

	spectator := tbl.View("")
	for _, p := range spectator.Players {
		assert.Nil(t, p.HoleCards)
	}
	assert.Empty(t, spectator.ValidActions)
}

func TestStartHand_RequiresTwoActivePlayers(t *testing.T) {
	tbl := setupTable(t, testSettings, "", seating{"alice", 100})
	err := tbl.StartHand()
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
	assert.True(t, IsInsufficient(err))

	_, err = tbl.AddPlayer("bob", 100, -1)
	require.NoError(t, err)
	require.NoError(t, tbl.SetSittingOut("bob", true))
	assert.ErrorIs(t, tbl.StartHand(), ErrNotEnoughPlayers)

	require.NoError(t, tbl.SetSittingOut("bob", false))
	require.NoError(t, tbl.StartHand())
	assert.ErrorIs(t, tbl.StartHand(), ErrHandInProgress)
}

func TestThreeWay_LimpsReachFlop(t *testing.T) {
	tbl := setupTable(t, testSettings, "",
		seating{"alice", 100}, seating{"bob", 100}, seating{"carol", 100})
	require.NoError(t, tbl.StartHand())

	// dealer 0, SB 1, BB 2, UTG wraps to 0
	require.Equal(t, 0, tbl.ActionSeat())
	act(t, tbl, "alice", ActionCall, 0)
	act(t, tbl, "bob", ActionCall, 0)

	// 大盲保留行动权
	require.Equal(t, PhasePreflop, tbl.Phase())
	require.Equal(t, 2, tbl.ActionSeat())
	act(t, tbl, "carol", ActionCheck, 0)

	assert.Equal(t, PhaseFlop, tbl.Phase())
	assert.Len(t, tbl.Community(), 3)
	assert.Equal(t, 1, tbl.ActionSeat())
	assert.Equal(t, int64(6), tbl.Pot())
	assert.Equal(t, int64(0), tbl.CurrentBet())
}

func TestThreeWay_BigBlindOptionRaise(t *testing.T) {
	tbl := setupTable(t, testSettings, "",
		seating{"alice", 100}, seating{"bob", 100}, seating{"carol", 100})
	require.NoError(t, tbl.StartHand())

	act(t, tbl, "alice", ActionCall, 0)
	act(t, tbl, "bob", ActionCall, 0)
	act(t, tbl, "carol", ActionRaise, 6)

	assert.Equal(t, PhasePreflop, tbl.Phase())
	assert.Equal(t, 0, tbl.ActionSeat())
	assert.Equal(t, int64(4), tbl.LastRaiseAmount())

	act(t, tbl, "alice", ActionCall, 0)
	act(t, tbl, "bob", ActionCall, 0)
	assert.Equal(t, PhaseFlop, tbl.Phase())
	assert.Equal(t, int64(18), tbl.Pot())
}

func TestHeadsUp_ShortBigBlindPostsWhatItHas(t *testing.T) {
	settings := Settings{SmallBlind: 5, BigBlind: 10, MinBuyIn: 1, MaxBuyIn: 1000}
	tbl := setupTable(t, settings, "", seating{"alice", 100}, seating{"bob", 7})
	require.NoError(t, tbl.StartHand())

	bob, ok := tbl.Player("bob")
	require.True(t, ok)
	assert.True(t, bob.AllIn)
	assert.Equal(t, int64(0), bob.Stack)
	assert.Equal(t, int64(7), tbl.CurrentBet())
	assert.Equal(t, int64(12), tbl.Pot())

	va := tbl.ValidActions("alice")
	require.Len(t, va, 4)
	assert.Equal(t, ValidAction{Kind: ActionCall, Amount: 2}, va[1])

	act(t, tbl, "alice", ActionCall, 0)
	// 没人能再行动，直接发完摊牌
	assert.Equal(t, PhaseWaiting, tbl.Phase())
	require.NotNil(t, tbl.LastResult())
	assert.Len(t, tbl.LastResult().Community, 5)
	assert.Equal(t, int64(107), sumStacks(tbl))
}

func TestFold_AwardsPotToLastPlayer(t *testing.T) {
	tbl := setupTable(t, testSettings, "", seating{"alice", 100}, seating{"bob", 100})
	require.NoError(t, tbl.StartHand())
	act(t, tbl, "alice", ActionFold, 0)

	assert.Equal(t, PhaseWaiting, tbl.Phase())
	assert.Equal(t, map[string]int64{"alice": 99, "bob": 101}, stacks(tbl))
	assert.Equal(t, int64(0), tbl.Pot())

	res := tbl.LastResult()
	require.NotNil(t, res)
	assert.Equal(t, []string{"bob"}, res.Winners)
	assert.Equal(t, int64(3), res.Pot)
	assert.Nil(t, res.Hands)

	rec, ok := tbl.HandRecord()
	require.True(t, ok)
	assert.Equal(t, "room-1", rec.RoomID)
	assert.Equal(t, 1, rec.HandNumber)
	assert.Equal(t, int64(3), rec.PotSize)
	require.Len(t, rec.Actions, 1)
	assert.Equal(t, Action{Player: "alice", Kind: ActionFold, Phase: PhasePreflop}, rec.Actions[0])
	require.Len(t, rec.Players, 2)
	assert.Equal(t, PlayerResult{
		Name: "alice", Seat: 0, StartingStack: 100, EndingStack: 99, Profit: -1,
		HoleCards: rec.Players[0].HoleCards,
	}, rec.Players[0])
	assert.True(t, rec.Players[1].IsWinner)
	assert.Equal(t, int64(1), rec.Players[1].Profit)
	assert.Len(t, rec.Players[1].HoleCards, 2)
}

func TestHandRecord_UnavailableDuringHand(t *testing.T) {
	tbl := setupTable(t, testSettings, "", seating{"alice", 100}, seating{"bob", 100})
	_, ok := tbl.HandRecord()
	assert.False(t, ok)

	require.NoError(t, tbl.StartHand())
	_, ok = tbl.HandRecord()
	assert.False(t, ok)
}

func TestProcessAction_Rejections(t *testing.T) {
	tbl := setupTable(t, testSettings, "", seating{"alice", 100}, seating{"bob", 100})

	assert.ErrorIs(t, tbl.ProcessAction("alice", ActionCheck, 0), ErrWrongPhase)
	require.NoError(t, tbl.StartHand())

	assert.ErrorIs(t, tbl.ProcessAction("nobody", ActionFold, 0), ErrPlayerNotFound)
	assert.ErrorIs(t, tbl.ProcessAction("bob", ActionFold, 0), ErrOutOfTurn)
	assert.ErrorIs(t, tbl.ProcessAction("alice", ActionCheck, 0), ErrIllegalCheck)
	assert.ErrorIs(t, tbl.ProcessAction("alice", ActionKind(99), 0), ErrUnknownAction)

	err := tbl.ProcessAction("alice", ActionRaise, 3)
	var minErr *MinRaiseError
	require.True(t, errors.As(err, &minErr))
	assert.Equal(t, int64(4), minErr.Min)
	assert.ErrorIs(t, err, ErrIllegalAction)

	// 失败不改变状态
	assert.Equal(t, int64(3), tbl.Pot())
	assert.Equal(t, 0, tbl.ActionSeat())
	assert.Empty(t, tbl.Actions())
}

func TestRaise_RejectsAmountsThatDoNotRaise(t *testing.T) {
	tbl := setupTable(t, testSettings, "",
		seating{"alice", 100}, seating{"bob", 100}, seating{"carol", 100})
	require.NoError(t, tbl.StartHand())
	require.Equal(t, 0, tbl.ActionSeat())

	assert.ErrorIs(t, tbl.ProcessAction("alice", ActionRaise, math.MinInt64), ErrInvalidAmount)
	assert.ErrorIs(t, tbl.ProcessAction("alice", ActionRaise, -5), ErrInvalidAmount)
	var minErr *MinRaiseError
	require.ErrorAs(t, tbl.ProcessAction("alice", ActionRaise, 2), &minErr)
	assert.Equal(t, int64(4), minErr.Min)

	assert.Empty(t, tbl.Actions())
	assert.Equal(t, 0, tbl.ActionSeat())
	assert.Equal(t, map[string]int64{"alice": 100, "bob": 99, "carol": 98}, stacks(tbl))

	// 已有下注的小盲同样不能用负数绕过
	act(t, tbl, "alice", ActionCall, 0)
	require.Equal(t, 1, tbl.ActionSeat())
	assert.ErrorIs(t, tbl.ProcessAction("bob", ActionRaise, math.MinInt64), ErrInvalidAmount)
	assert.ErrorAs(t, tbl.ProcessAction("bob", ActionRaise, 1), &minErr)
	bob, _ := tbl.Player("bob")
	assert.Equal(t, int64(99), bob.Stack)
	assert.False(t, bob.AllIn)

	act(t, tbl, "bob", ActionRaise, math.MaxInt64)
	bob, _ = tbl.Player("bob")
	assert.True(t, bob.AllIn)
	assert.Equal(t, int64(100), tbl.CurrentBet())
}

func TestRaise_AboveStackIsCappedAllIn(t *testing.T) {
	tbl := setupTable(t, testSettings, "", seating{"alice", 50}, seating{"bob", 100})
	require.NoError(t, tbl.StartHand())

	act(t, tbl, "alice", ActionRaise, 500)
	alice, _ := tbl.Player("alice")
	assert.True(t, alice.AllIn)
	assert.Equal(t, int64(50), alice.CurrentBet)
	assert.Equal(t, int64(50), tbl.CurrentBet())

	actions := tbl.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, ActionAllIn, actions[0].Kind, "raise that empties the stack is logged as all-in")
	assert.Equal(t, int64(50), actions[0].Amount)
}

// A short all-in lifts the bet to call but keeps the previous raise
// increment. Players who already acted may still raise by that increment.
func TestShortAllIn_KeepsPreviousIncrement(t *testing.T) {
	tbl := setupTable(t, testSettings, "",
		seating{"alice", 100}, seating{"bob", 15}, seating{"carol", 100})
	require.NoError(t, tbl.StartHand())

	act(t, tbl, "alice", ActionRaise, 10)
	require.Equal(t, int64(8), tbl.LastRaiseAmount())

	act(t, tbl, "bob", ActionAllIn, 0)
	assert.Equal(t, int64(15), tbl.CurrentBet())
	assert.Equal(t, int64(8), tbl.LastRaiseAmount())

	va := tbl.ValidActions("carol")
	require.Len(t, va, 4)
	assert.Equal(t, ValidAction{Kind: ActionRaise, Min: 23, Max: 100}, va[2])
	act(t, tbl, "carol", ActionCall, 0)

	// alice 仍需补齐到 15，最小加注仍按 8 计算
	require.Equal(t, 0, tbl.ActionSeat())
	va = tbl.ValidActions("alice")
	assert.Equal(t, ValidAction{Kind: ActionCall, Amount: 5}, va[1])
	assert.Equal(t, ValidAction{Kind: ActionRaise, Min: 23, Max: 100}, va[2])
	act(t, tbl, "alice", ActionCall, 0)

	assert.Equal(t, PhaseFlop, tbl.Phase())
	assert.Equal(t, int64(45), tbl.Pot())
	pots := tbl.Pots()
	require.Len(t, pots, 1)
	assert.Equal(t, []string{"alice", "bob", "carol"}, pots[0].Eligible)
}

func TestShowdown_SplitRemainderGoesToLowestSeat(t *testing.T) {
	// deal order bob, carol, alice; the board plays a royal flush for everyone
	tbl := setupTable(t, testSettings, "2c 3c 4d 2d 3d 4c 10s Js Qs Ks As",
		seating{"alice", 100}, seating{"bob", 100}, seating{"carol", 100})
	require.NoError(t, tbl.StartHand())

	act(t, tbl, "alice", ActionCall, 0)
	act(t, tbl, "bob", ActionFold, 0)
	act(t, tbl, "carol", ActionCheck, 0)
	for _, phase := range []Phase{PhaseFlop, PhaseTurn, PhaseRiver} {
		require.Equal(t, phase, tbl.Phase())
		require.Equal(t, 2, tbl.ActionSeat())
		act(t, tbl, "carol", ActionCheck, 0)
		act(t, tbl, "alice", ActionCheck, 0)
	}

	require.Equal(t, PhaseWaiting, tbl.Phase())
	assert.Equal(t, map[string]int64{"alice": 101, "bob": 99, "carol": 100}, stacks(tbl))

	res := tbl.LastResult()
	assert.Equal(t, []string{"alice", "carol"}, res.Winners)
	require.Len(t, res.Pots, 1)
	assert.Equal(t, []Payout{{Name: "alice", Amount: 3}, {Name: "carol", Amount: 2}}, res.Pots[0].Payouts)
	require.Len(t, res.Hands, 2)
	assert.Equal(t, HandRoyalFlush, res.Hands[0].Rank)
	assert.Equal(t, "Royal Flush", res.Hands[0].HandName)
}

func TestSidePots_ThreeWayAllInShowdown(t *testing.T) {
	// deal order bob, charlie, alice. alice: AA, bob: KK, charlie: QQ
	tbl := setupTable(t, testSettings, "Kd Qd Ad Kc Qc Ac 2h 7s 9d 3c 4s",
		seating{"alice", 20}, seating{"bob", 50}, seating{"charlie", 100})
	require.NoError(t, tbl.StartHand())

	act(t, tbl, "alice", ActionAllIn, 0)
	act(t, tbl, "bob", ActionAllIn, 0)
	act(t, tbl, "charlie", ActionCall, 0)

	pots := tbl.Pots()
	require.Equal(t, []Pot{
		{Amount: 60, Eligible: []string{"alice", "bob", "charlie"}},
		{Amount: 60, Eligible: []string{"bob", "charlie"}},
	}, pots)

	require.Equal(t, PhaseWaitingRunTwice, tbl.Phase())
	assert.Equal(t, []string{"alice", "bob"}, tbl.RunTwicePending())
	assert.ErrorIs(t, tbl.ChooseRunTwice("charlie", true), ErrNotEligible)
	require.NoError(t, tbl.ChooseRunTwice("alice", false))
	require.NoError(t, tbl.ChooseRunTwice("bob", true))

	require.Equal(t, PhaseWaiting, tbl.Phase())
	assert.Equal(t, map[string]int64{"alice": 60, "bob": 60, "charlie": 50}, stacks(tbl))
	res := tbl.LastResult()
	assert.False(t, res.RunTwice)
	assert.Equal(t, []string{"alice", "bob"}, res.Winners)
}

func TestDealer_RotatesAndSkipsInactiveSeats(t *testing.T) {
	tbl := setupTable(t, testSettings, "",
		seating{"alice", 100}, seating{"bob", 100}, seating{"carol", 100})

	require.NoError(t, tbl.StartHand())
	assert.Equal(t, 0, tbl.DealerSeat())
	act(t, tbl, "alice", ActionFold, 0)
	act(t, tbl, "bob", ActionFold, 0)

	require.NoError(t, tbl.SetSittingOut("bob", true))
	require.NoError(t, tbl.StartHand())
	assert.Equal(t, 2, tbl.DealerSeat())
	bob, _ := tbl.Player("bob")
	assert.False(t, bob.HasCards)

	// bob 未入局，可以在手牌进行中离座
	removed, err := tbl.RemovePlayer("bob")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = tbl.RemovePlayer("alice")
	assert.ErrorIs(t, err, ErrHandInProgress)
	removed, err = tbl.RemovePlayer("ghost")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestAddPlayer_ClampsAndSeats(t *testing.T) {
	settings := Settings{SmallBlind: 1, BigBlind: 2, MinBuyIn: 40, MaxBuyIn: 200}
	tbl, err := NewTable("room-1", settings, WithSeed(1))
	require.NoError(t, err)

	seat, err := tbl.AddPlayer("low", 5, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, seat)
	seat, err = tbl.AddPlayer("high", math.MaxInt64, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, seat, "auto seat takes the first free seat")
	_, err = tbl.AddPlayer("negative", math.MinInt64, -1)
	require.NoError(t, err)

	_, err = tbl.AddPlayer("dup", 100, 3)
	assert.ErrorIs(t, err, ErrSeatTaken)
	_, err = tbl.AddPlayer("far", 100, MaxSeats)
	assert.ErrorIs(t, err, ErrInvalidSeat)
	_, err = tbl.AddPlayer("low", 100, 5)
	assert.ErrorIs(t, err, ErrNameTaken)
	_, err = tbl.AddPlayer("  ", 100, 5)
	assert.ErrorIs(t, err, ErrInvalidName)

	for i := len(tbl.Players()); i < MaxSeats; i++ {
		_, err := tbl.AddPlayer(string(rune('a'+i)), 100, -1)
		require.NoError(t, err)
	}
	_, err = tbl.AddPlayer("tenth", 100, -1)
	assert.ErrorIs(t, err, ErrTableFull)
	_, err = tbl.AddPlayer("tenth", 100, 8)
	assert.ErrorIs(t, err, ErrTableFull)

	players := tbl.Players()
	require.Len(t, players, MaxSeats)
	seen := map[int]bool{}
	for _, p := range players {
		assert.False(t, seen[p.Seat], "seat %d assigned twice", p.Seat)
		seen[p.Seat] = true
		assert.GreaterOrEqual(t, p.Stack, settings.MinBuyIn, p.Name)
		assert.LessOrEqual(t, p.Stack, settings.MaxBuyIn, p.Name)
	}
	got := stacks(tbl)
	assert.Equal(t, int64(40), got["low"])
	assert.Equal(t, int64(200), got["high"])
	assert.Equal(t, int64(40), got["negative"])
}

func TestAddChips(t *testing.T) {
	tbl := setupTable(t, testSettings, "", seating{"alice", 100}, seating{"bob", 100})

	assert.ErrorIs(t, tbl.AddChips("alice", math.MaxInt64), ErrStackLimit)
	require.NoError(t, tbl.AddChips("alice", 900))
	assert.ErrorIs(t, tbl.AddChips("alice", 1), ErrStackLimit)
	assert.ErrorIs(t, tbl.AddChips("alice", math.MaxInt64), ErrStackLimit)
	assert.ErrorIs(t, tbl.AddChips("bob", math.MinInt64), ErrInvalidAmount)
	assert.Equal(t, map[string]int64{"alice": 1000, "bob": 100}, stacks(tbl))
	assert.ErrorIs(t, tbl.AddChips("bob", 0), ErrInvalidAmount)
	assert.ErrorIs(t, tbl.AddChips("ghost", 10), ErrPlayerNotFound)

	require.NoError(t, tbl.StartHand())
	assert.ErrorIs(t, tbl.AddChips("bob", 10), ErrHandInProgress)
}

func TestBustedPlayerIsNotDealtIn(t *testing.T) {
	// alice 的 AA 吃掉 bob 全部筹码
	tbl := setupTable(t, testSettings, "As Kd Ah Kc 2c 7d 9h 3s 4c",
		seating{"alice", 100}, seating{"bob", 50})
	require.NoError(t, tbl.StartHand())
	act(t, tbl, "alice", ActionAllIn, 0)
	act(t, tbl, "bob", ActionCall, 0)
	require.NoError(t, tbl.ChooseRunTwice("alice", false))
	require.NoError(t, tbl.ChooseRunTwice("bob", false))

	assert.Equal(t, map[string]int64{"alice": 150, "bob": 0}, stacks(tbl))
	assert.ErrorIs(t, tbl.StartHand(), ErrNotEnoughPlayers)

	_, err := tbl.AddPlayer("carol", 100, -1)
	require.NoError(t, err)
	require.NoError(t, tbl.StartHand())
	bob, _ := tbl.Player("bob")
	assert.False(t, bob.HasCards)
	assert.Equal(t, 2, tbl.DealerSeat())
}

func TestRandomPlay_ConservesChips(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tbl, err := NewTable("fuzz", testSettings, WithSeed(11))
	require.NoError(t, err)
	for i, name := range []string{"p0", "p1", "p2", "p3", "p4", "p5"} {
		_, err := tbl.AddPlayer(name, 60+int64(i)*37, i)
		require.NoError(t, err)
	}
	total := sumStacks(tbl)

	for hand := 0; hand < 300; hand++ {
		if err := tbl.StartHand(); err != nil {
			require.ErrorIs(t, err, ErrNotEnoughPlayers)
			break
		}
		for steps := 0; tbl.Phase() != PhaseWaiting; steps++ {
			require.Less(t, steps, 500, "hand %d does not terminate", hand)
			if tbl.Phase() == PhaseWaitingRunTwice {
				for _, name := range tbl.RunTwicePending() {
					require.NoError(t, tbl.ChooseRunTwice(name, rng.Intn(2) == 0))
				}
				continue
			}
			name := nameAt(tbl, tbl.ActionSeat())
			valid := tbl.ValidActions(name)
			require.NotEmpty(t, valid, "hand %d: nobody to act at seat %d", hand, tbl.ActionSeat())

			choice := valid[rng.Intn(len(valid))]
			var amount int64
			if choice.Kind == ActionRaise {
				amount = choice.Min + rng.Int63n(choice.Max-choice.Min+1)
			}
			require.NoError(t, tbl.ProcessAction(name, choice.Kind, amount))
			require.Equal(t, total, sumStacks(tbl)+tbl.Pot())
		}

		res := tbl.LastResult()
		require.NotNil(t, res)
		var paid int64
		for _, pot := range res.Pots {
			for _, p := range pot.Payouts {
				paid += p.Amount
			}
		}
		require.Equal(t, res.Pot, paid)
		require.Equal(t, total, sumStacks(tbl))
	}
}
