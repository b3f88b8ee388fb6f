package room

import (
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"holdem-rooms/holdem"
)

type joinedData struct {
	PlayerName string `json:"player_name"`
	Seat       int    `json:"seat"`
}

type playerData struct {
	PlayerName string `json:"player_name"`
}

type actionData struct {
	PlayerName string            `json:"player_name"`
	Action     holdem.ActionKind `json:"action"`
	Amount     int64             `json:"amount"`
	Timeout    bool              `json:"timeout,omitempty"`
}

type runTwicePromptData struct {
	EligiblePlayers []string `json:"eligible_players"`
}

type runTwiceChoiceData struct {
	PlayerName string   `json:"player_name"`
	WantsTwice bool     `json:"wants_twice"`
	WaitingFor []string `json:"waiting_for"`
}

type chatData struct {
	PlayerName string `json:"player_name"`
	Message    string `json:"message"`
}

type handStartedData struct {
	HandNumber int `json:"hand_number"`
}

// StateData is the game_state payload: the personal view plus the name a
// spectator entered with.
type StateData struct {
	holdem.GameView
	SpectatorName string `json:"spectator_name,omitempty"`
}

func (r *Room) handleSpectate(c *Client, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return holdem.ErrInvalidName
	}
	r.clients[c.ID] = c

	if p, ok := r.table.Player(name); ok {
		// 已经入座的名字视为重连
		r.bindLocked(c, name)
		delete(r.pendingLeaves, name)
		r.sendLocked(c, Message{Type: MsgJoined, Data: joinedData{PlayerName: name, Seat: p.Seat}})
		r.log.Info("player reconnected", zap.String("player", name), zap.Int("seat", p.Seat))
	} else {
		c.name, c.seated = name, false
		r.sendLocked(c, Message{Type: MsgSpectating, Data: playerData{PlayerName: name}})
	}
	r.sendStateLocked(c)
	return nil
}

func (r *Room) handleJoin(fx *effects, c *Client, name string, stack int64, seat *int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = c.name
	}
	if name == "" {
		return holdem.ErrInvalidName
	}
	if seat == nil {
		return ErrSeatRequired
	}
	if c.seated && c.name != name {
		return ErrAlreadySeated
	}
	if stack <= 0 {
		stack = defaultJoinBuy
	}

	taken := *seat
	if p, ok := r.table.Player(name); ok {
		if taken >= 0 && p.Seat != taken {
			return holdem.ErrNameTaken
		}
		taken = p.Seat
		delete(r.pendingLeaves, name)
	} else {
		var err error
		if taken, err = r.table.AddPlayer(name, stack, taken); err != nil {
			return err
		}
		r.log.Info("player joined", zap.String("player", name), zap.Int("seat", taken))
	}

	r.clients[c.ID] = c
	r.bindLocked(c, name)
	joined := joinedData{PlayerName: name, Seat: taken}
	r.sendLocked(c, Message{Type: MsgJoined, Data: joined})
	r.broadcastLocked(Message{Type: MsgPlayerJoined, Data: joined}, c.ID)
	r.afterChangeLocked(fx)
	return nil
}

func (r *Room) handleLeave(fx *effects, c *Client) error {
	if !c.seated {
		return nil
	}
	name := c.name
	c.seated = false

	removed, err := r.table.RemovePlayer(name)
	switch {
	case errors.Is(err, holdem.ErrHandInProgress):
		r.pendingLeaves[name] = true
		r.log.Info("leave queued until hand ends", zap.String("player", name))
	case err != nil:
		return err
	case removed:
		r.log.Info("player left", zap.String("player", name))
		r.broadcastLocked(Message{Type: MsgPlayerLeft, Data: playerData{PlayerName: name}}, "")
	}
	r.afterChangeLocked(fx)
	return nil
}

func (r *Room) handleStartHand(fx *effects) error {
	if r.table.Phase() != holdem.PhaseWaiting {
		return holdem.ErrHandInProgress
	}
	if err := r.table.StartHand(); err != nil {
		return err
	}
	hand := r.table.HandNumber()
	r.log.Info("hand started", zap.Int("hand_number", hand), zap.Int("dealer", r.table.DealerSeat()))
	r.broadcastLocked(Message{Type: MsgHandStarted, Data: handStartedData{HandNumber: hand}}, "")
	r.afterChangeLocked(fx)
	return nil
}

func (r *Room) handleAction(fx *effects, c *Client, action string, amount int64) error {
	if c == nil || !c.seated {
		return ErrNotJoined
	}
	kind, err := holdem.ParseActionKind(action)
	if err != nil {
		return err
	}
	if err := r.actLocked(c.name, kind, amount, false); err != nil {
		return err
	}
	r.afterChangeLocked(fx)
	return nil
}

// actLocked applies one move and announces what the table recorded.
func (r *Room) actLocked(name string, kind holdem.ActionKind, amount int64, timeout bool) error {
	if err := r.table.ProcessAction(name, kind, amount); err != nil {
		return err
	}
	data := actionData{PlayerName: name, Action: kind, Amount: amount, Timeout: timeout}
	if actions := r.table.Actions(); len(actions) > 0 {
		last := actions[len(actions)-1]
		data.Action, data.Amount = last.Kind, last.Amount
	}
	r.broadcastLocked(Message{Type: MsgPlayerAction, Data: data}, "")
	return nil
}

func (r *Room) handleRunTwice(fx *effects, c *Client, yes bool) error {
	if c == nil || !c.seated {
		return ErrNotJoined
	}
	if err := r.chooseLocked(c.name, yes); err != nil {
		return err
	}
	r.afterChangeLocked(fx)
	return nil
}

func (r *Room) chooseLocked(name string, yes bool) error {
	if err := r.table.ChooseRunTwice(name, yes); err != nil {
		return err
	}
	waiting := r.table.RunTwicePending()
	if waiting == nil {
		waiting = []string{}
	}
	r.broadcastLocked(Message{Type: MsgRunTwiceChoiceMade, Data: runTwiceChoiceData{
		PlayerName: name,
		WantsTwice: yes,
		WaitingFor: waiting,
	}}, "")
	return nil
}

func (r *Room) handleSitOut(fx *effects, c *Client) error {
	if c == nil || !c.seated {
		return ErrNotJoined
	}
	p, ok := r.table.Player(c.name)
	if !ok {
		return holdem.ErrPlayerNotFound
	}
	if err := r.table.SetSittingOut(c.name, !p.SittingOut); err != nil {
		return err
	}
	r.afterChangeLocked(fx)
	return nil
}

func (r *Room) handleAddChips(fx *effects, c *Client, amount int64) error {
	if c == nil || !c.seated {
		return ErrNotJoined
	}
	if err := r.table.AddChips(c.name, amount); err != nil {
		return err
	}
	r.afterChangeLocked(fx)
	return nil
}

func (r *Room) handleChat(c *Client, text string) error {
	if c == nil || !c.seated {
		return ErrNotJoined
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if runes := []rune(text); len(runes) > maxChatRunes {
		text = string(runes[:maxChatRunes])
	}
	r.broadcastLocked(Message{Type: MsgChat, Data: chatData{PlayerName: c.name, Message: text}}, "")
	return nil
}

func (r *Room) handleDetach(c *Client) {
	if c == nil {
		return
	}
	if _, ok := r.clients[c.ID]; !ok {
		return
	}
	delete(r.clients, c.ID)
	if c.seated {
		c.seated = false
		r.log.Info("player disconnected", zap.String("player", c.name))
		r.broadcastLocked(Message{Type: MsgPlayerDisconnected, Data: playerData{PlayerName: c.name}}, "")
	}
}

// afterChangeLocked runs after every table mutation: it plays out pending
// leavers, prompts for run-it-twice, settles finished hands, re-arms the
// turn timer and pushes fresh views.
func (r *Room) afterChangeLocked(fx *effects) {
	r.autoPlayLeaversLocked()

	hand := r.table.HandNumber()
	if r.table.Phase() == holdem.PhaseWaitingRunTwice && r.promptedHand != hand {
		r.promptedHand = hand
		eligible := r.table.RunTwiceEligible()
		msg := Message{Type: MsgRunTwicePrompt, Data: runTwicePromptData{EligiblePlayers: eligible}}
		for _, c := range r.clients {
			if c.seated && containsName(eligible, c.name) {
				r.sendLocked(c, msg)
			}
		}
	}

	if rec, ok := r.table.HandRecord(); ok && rec.HandNumber > r.recordedHand {
		r.recordedHand = rec.HandNumber
		fx.record = &rec
		r.log.Info("hand ended", zap.Int("hand_number", rec.HandNumber), zap.Strings("winners", rec.Winners), zap.Int64("pot", rec.PotSize))
		r.broadcastLocked(Message{Type: MsgHandEnded, Data: r.table.LastResult()}, "")
		r.removeLeaversLocked()
	}

	r.armTurnTimerLocked()
	r.broadcastStatesLocked()
	fx.persist = r.serializeLocked()
}

// autoPlayLeaversLocked folds for queued leavers whose turn comes up and
// declines run-it-twice on their behalf.
func (r *Room) autoPlayLeaversLocked() {
	if len(r.pendingLeaves) == 0 {
		return
	}
	for i := 0; i < holdem.MaxSeats*4; i++ {
		switch {
		case r.table.Phase().Betting():
			name := r.nameAtLocked(r.table.ActionSeat())
			if !r.pendingLeaves[name] {
				return
			}
			if err := r.actLocked(name, holdem.ActionFold, 0, false); err != nil {
				r.log.Warn("auto fold for leaver failed", zap.String("player", name), zap.Error(err))
				return
			}
		case r.table.Phase() == holdem.PhaseWaitingRunTwice:
			var leaver string
			for _, n := range r.table.RunTwicePending() {
				if r.pendingLeaves[n] {
					leaver = n
					break
				}
			}
			if leaver == "" {
				return
			}
			if err := r.chooseLocked(leaver, false); err != nil {
				r.log.Warn("auto run-twice choice failed", zap.String("player", leaver), zap.Error(err))
				return
			}
		default:
			return
		}
	}
}

func (r *Room) removeLeaversLocked() {
	names := make([]string, 0, len(r.pendingLeaves))
	for n := range r.pendingLeaves {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, name := range names {
		delete(r.pendingLeaves, name)
		removed, err := r.table.RemovePlayer(name)
		if err != nil {
			r.log.Warn("deferred leave failed", zap.String("player", name), zap.Error(err))
			continue
		}
		if removed {
			r.log.Info("player left", zap.String("player", name))
			r.broadcastLocked(Message{Type: MsgPlayerLeft, Data: playerData{PlayerName: name}}, "")
		}
	}
}

// bindLocked makes c the live connection for name. Older connections for
// the same name drop back to spectating.
func (r *Room) bindLocked(c *Client, name string) {
	for id, other := range r.clients {
		if id != c.ID && other.seated && other.name == name {
			other.seated = false
		}
	}
	c.name, c.seated = name, true
}

func (r *Room) nameAtLocked(seat int) string {
	if seat == holdem.NoSeat {
		return ""
	}
	for _, p := range r.table.Players() {
		if p.Seat == seat {
			return p.Name
		}
	}
	return ""
}

func (r *Room) sendLocked(c *Client, msg Message) {
	Deliver(c, msg, r.log)
}

func (r *Room) broadcastLocked(msg Message, excludeClient string) {
	for id, c := range r.clients {
		if id == excludeClient {
			continue
		}
		r.sendLocked(c, msg)
	}
}

func (r *Room) sendStateLocked(c *Client) {
	observer, spectator := "", c.name
	if c.seated {
		observer, spectator = c.name, ""
	}
	r.sendLocked(c, Message{Type: MsgGameState, Data: StateData{
		GameView:      r.table.View(observer),
		SpectatorName: spectator,
	}})
}

func (r *Room) broadcastStatesLocked() {
	for _, c := range r.clients {
		r.sendStateLocked(c)
	}
}

func (r *Room) serializeLocked() []byte {
	data, err := r.table.Serialize()
	if err != nil {
		r.log.Error("serialize room failed", zap.Error(err))
		return nil
	}
	return data
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
