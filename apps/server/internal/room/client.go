package room

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Message is the JSON frame exchanged with clients: {"type": ..., "data": ...}.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Outbound message types.
const (
	MsgGameState          = "game_state"
	MsgJoined             = "joined"
	MsgSpectating         = "spectating"
	MsgError              = "error"
	MsgPlayerJoined       = "player_joined"
	MsgPlayerLeft         = "player_left"
	MsgPlayerDisconnected = "player_disconnected"
	MsgHandStarted        = "hand_started"
	MsgPlayerAction       = "player_action"
	MsgRunTwicePrompt     = "run_twice_prompt"
	MsgRunTwiceChoiceMade = "run_twice_choice_made"
	MsgHandEnded          = "hand_ended"
	MsgChat               = "chat"
)

// Client is one attached connection. The room writes encoded frames to
// Send and never closes it; the owner drains it until it is done.
type Client struct {
	ID   string
	Send chan []byte

	// 以下字段只在房间 actor 内读写
	name   string
	seated bool
}

func NewClient(id string, buffer int) *Client {
	return &Client{ID: id, Send: make(chan []byte, buffer)}
}

// ErrorMessage builds the error frame sent for a rejected request.
func ErrorMessage(err error) Message {
	return Message{Type: MsgError, Data: map[string]string{"message": err.Error()}}
}

// Deliver encodes msg onto c.Send and drops it when the buffer is full.
func Deliver(c *Client, msg Message, log *zap.Logger) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("marshal message failed", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Warn("client buffer full, dropping message", zap.String("client", c.ID), zap.String("type", msg.Type))
	}
}
