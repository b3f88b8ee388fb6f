package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"holdem-rooms/apps/server/internal/ledger"
	"holdem-rooms/apps/server/internal/roomstore"
	"holdem-rooms/holdem"
)

// Room owns one table and serializes every request through its actor loop.
type Room struct {
	ID string

	mu       sync.RWMutex
	table    *holdem.Table
	clients  map[string]*Client // client ID -> connection
	closed   bool
	stopOnce sync.Once

	// Players who asked to leave while dealt in; removed when the hand ends.
	pendingLeaves map[string]bool
	recordedHand  int
	promptedHand  int
	lastActive    time.Time

	// Event channel for actor pattern
	events chan Event
	done   chan struct{}

	clock         quartz.Clock
	actionTimeout time.Duration
	turnTimer     *quartz.Timer
	turn          turnKey

	ledger ledger.Service
	store  roomstore.Store
	log    *zap.Logger
}

// Deps are the collaborators shared by every room of a lobby.
type Deps struct {
	Ledger        ledger.Service
	Store         roomstore.Store
	Clock         quartz.Clock
	Log           *zap.Logger
	ActionTimeout time.Duration // 0 disables the turn timer
}

// Event types for the actor message queue
type EventType int

const (
	EventSpectate EventType = iota
	EventJoin
	EventLeave
	EventStartHand
	EventAction
	EventRunTwice
	EventSitOut
	EventAddChips
	EventChat
	EventDetach
	EventTimeout
	EventPersist
	EventClose
)

// Event represents a message to the room actor
type Event struct {
	Type     EventType
	Client   *Client
	Name     string
	Seat     *int
	Amount   int64
	Action   string
	RunTwice bool
	Text     string
	Response chan error

	turn turnKey
}

// turnKey identifies one pending decision so a late timer cannot act on a
// later turn.
type turnKey struct {
	hand int
	seat int
	step int
}

// effects is the I/O requested by one event, performed after mu is released.
type effects struct {
	record  *holdem.HandRecord
	persist []byte
}

var (
	ErrRoomClosed    = errors.New("room closed")
	ErrNotJoined     = errors.New("not joined")
	ErrSeatRequired  = errors.New("please select a seat")
	ErrAlreadySeated = errors.New("already seated under another name")
)

const (
	eventBuffer    = 256
	ioTimeout      = 3 * time.Second
	maxChatRunes   = 500
	defaultJoinBuy = 100
)

// New creates a room with a fresh table and starts its actor.
func New(id string, settings holdem.Settings, deps Deps, opts ...holdem.Option) (*Room, error) {
	table, err := holdem.NewTable(id, settings, opts...)
	if err != nil {
		return nil, err
	}
	return start(table, deps), nil
}

// Restore rebuilds a room from a stored snapshot and starts its actor.
func Restore(state []byte, deps Deps, opts ...holdem.Option) (*Room, error) {
	table, err := holdem.Deserialize(state, opts...)
	if err != nil {
		return nil, err
	}
	r := start(table, deps)

	r.mu.Lock()
	defer r.mu.Unlock()
	// 恢复前已经结束的手牌不再入账
	if rec, ok := table.HandRecord(); ok {
		r.recordedHand = rec.HandNumber
	}
	if table.Phase() == holdem.PhaseWaitingRunTwice {
		r.promptedHand = table.HandNumber()
	}
	r.armTurnTimerLocked()
	return r, nil
}

func start(table *holdem.Table, deps Deps) *Room {
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.NewNoop()
	}
	r := &Room{
		ID:            table.RoomID(),
		table:         table,
		clients:       make(map[string]*Client),
		pendingLeaves: make(map[string]bool),
		lastActive:    deps.Clock.Now(),
		events:        make(chan Event, eventBuffer),
		done:          make(chan struct{}),
		clock:         deps.Clock,
		actionTimeout: deps.ActionTimeout,
		ledger:        deps.Ledger,
		store:         deps.Store,
		log:           deps.Log.Named("room").With(zap.String("room", table.RoomID())),
	}
	go r.run()

	s := table.Settings()
	r.log.Info("room started",
		zap.Int64("small_blind", s.SmallBlind),
		zap.Int64("big_blind", s.BigBlind),
		zap.Int("hand_number", table.HandNumber()),
	)
	return r
}

// run is the main actor loop
func (r *Room) run() {
	for {
		select {
		case e := <-r.events:
			fx, err := r.handleEvent(e)
			r.apply(fx)
			if e.Response != nil {
				e.Response <- err
			}
		case <-r.done:
			r.log.Info("room actor stopped")
			return
		}
	}
}

func (r *Room) handleEvent(e Event) (effects, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var fx effects
	if r.closed && e.Type != EventClose {
		return fx, ErrRoomClosed
	}
	if e.Client != nil {
		r.lastActive = r.clock.Now()
	}

	var err error
	switch e.Type {
	case EventSpectate:
		err = r.handleSpectate(e.Client, e.Name)
	case EventJoin:
		err = r.handleJoin(&fx, e.Client, e.Name, e.Amount, e.Seat)
	case EventLeave:
		err = r.handleLeave(&fx, e.Client)
	case EventStartHand:
		err = r.handleStartHand(&fx)
	case EventAction:
		err = r.handleAction(&fx, e.Client, e.Action, e.Amount)
	case EventRunTwice:
		err = r.handleRunTwice(&fx, e.Client, e.RunTwice)
	case EventSitOut:
		err = r.handleSitOut(&fx, e.Client)
	case EventAddChips:
		err = r.handleAddChips(&fx, e.Client, e.Amount)
	case EventChat:
		err = r.handleChat(e.Client, e.Text)
	case EventDetach:
		r.handleDetach(e.Client)
	case EventTimeout:
		err = r.handleTimeout(&fx, e.turn)
	case EventPersist:
		fx.persist = r.serializeLocked()
	case EventClose:
		r.stopLocked()
	default:
		err = fmt.Errorf("unknown event type: %d", e.Type)
	}
	return fx, err
}

// apply performs storage writes outside the room lock. It still runs on
// the actor goroutine, so writes for one room never reorder.
func (r *Room) apply(fx effects) {
	if fx.record != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		id, err := r.ledger.RecordHand(ctx, *fx.record)
		cancel()
		if err != nil {
			r.log.Error("record hand failed", zap.Int("hand_number", fx.record.HandNumber), zap.Error(err))
		} else {
			r.log.Info("hand recorded", zap.Int("hand_number", fx.record.HandNumber), zap.Int64("hand_id", id))
		}
	}
	if fx.persist != nil && r.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		err := r.store.Save(ctx, r.ID, fx.persist)
		cancel()
		if err != nil {
			r.log.Error("persist room failed", zap.Error(err))
		}
	}
}

// SubmitEvent sends an event to the actor and waits for its result.
func (r *Room) SubmitEvent(e Event) error {
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrRoomClosed
	}

	select {
	case r.events <- e:
	case <-r.done:
		return ErrRoomClosed
	}

	select {
	case err := <-e.Response:
		return err
	case <-r.done:
		return ErrRoomClosed
	}
}

func (r *Room) Spectate(c *Client, name string) error {
	return r.SubmitEvent(Event{Type: EventSpectate, Client: c, Name: name})
}

// Join seats c as name. A nil seat is rejected; a negative seat picks the
// first free one. Joining an occupied seat under its own name reconnects.
func (r *Room) Join(c *Client, name string, stack int64, seat *int) error {
	return r.SubmitEvent(Event{Type: EventJoin, Client: c, Name: name, Amount: stack, Seat: seat})
}

// Leave frees c's seat, or queues the removal until the running hand ends.
func (r *Room) Leave(c *Client) error {
	return r.SubmitEvent(Event{Type: EventLeave, Client: c})
}

func (r *Room) Start() error {
	return r.SubmitEvent(Event{Type: EventStartHand})
}

func (r *Room) Act(c *Client, action string, amount int64) error {
	return r.SubmitEvent(Event{Type: EventAction, Client: c, Action: action, Amount: amount})
}

func (r *Room) ChooseRunTwice(c *Client, yes bool) error {
	return r.SubmitEvent(Event{Type: EventRunTwice, Client: c, RunTwice: yes})
}

func (r *Room) ToggleSitOut(c *Client) error {
	return r.SubmitEvent(Event{Type: EventSitOut, Client: c})
}

func (r *Room) AddChips(c *Client, amount int64) error {
	return r.SubmitEvent(Event{Type: EventAddChips, Client: c, Amount: amount})
}

func (r *Room) Chat(c *Client, text string) error {
	return r.SubmitEvent(Event{Type: EventChat, Client: c, Text: text})
}

// Detach forgets c. A seated player keeps the seat and may reconnect.
func (r *Room) Detach(c *Client) error {
	return r.SubmitEvent(Event{Type: EventDetach, Client: c})
}

// Persist writes the current snapshot to the room store.
func (r *Room) Persist() error {
	return r.SubmitEvent(Event{Type: EventPersist})
}

// Stop shuts down the room actor
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Room) stopLocked() {
	r.closed = true
	r.disarmTurnTimerLocked()
	r.stopOnce.Do(func() {
		close(r.done)
	})
}

func (r *Room) IsClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// IsIdleFor reports whether no client has been attached or active for ttl.
func (r *Room) IsIdleFor(ttl time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return true
	}
	if len(r.clients) > 0 {
		return false
	}
	return r.clock.Since(r.lastActive) >= ttl
}

// ClientCount is the number of attached connections.
func (r *Room) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// View is the spectator projection of the table, safe from any goroutine.
func (r *Room) View() holdem.GameView {
	return r.table.View("")
}

func (r *Room) Settings() holdem.Settings {
	return r.table.Settings()
}
