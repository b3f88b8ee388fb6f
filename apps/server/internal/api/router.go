package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"holdem-rooms/apps/server/internal/ledger"
	"holdem-rooms/apps/server/internal/lobby"
	"holdem-rooms/holdem"
)

type Handler struct {
	lobby  *lobby.Lobby
	ledger ledger.Service
	log    *zap.Logger
}

func RegisterRoutes(r gin.IRouter, lby *lobby.Lobby, history ledger.Service, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{lobby: lby, ledger: history, log: log.Named("api")}

	r.GET("/health", h.Health)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/rooms", h.ListRooms)
		apiGroup.POST("/rooms", h.CreateRoom)
		apiGroup.GET("/rooms/:id", h.GetRoom)
		apiGroup.DELETE("/rooms/:id", h.DeleteRoom)
		apiGroup.GET("/rooms/:id/history", h.RoomHistory)
		apiGroup.GET("/hands/:id", h.HandDetails)
		apiGroup.GET("/stats/:name", h.PlayerStats)
		apiGroup.GET("/leaderboard", h.Leaderboard)
	}
}

type createRoomBody struct {
	Settings *holdem.Settings `json:"settings"`
}

type createRoomResponse struct {
	RoomID   string          `json:"room_id"`
	Settings holdem.Settings `json:"settings"`
}

type roomSummary struct {
	RoomID      string          `json:"room_id"`
	Phase       holdem.Phase    `json:"phase"`
	HandNumber  int             `json:"hand_number"`
	Players     int             `json:"players"`
	Connections int             `json:"connections"`
	Settings    holdem.Settings `json:"settings"`
}

func (h *Handler) Health(c *gin.Context) {
	Success(c, gin.H{"status": "healthy", "rooms": h.lobby.Count()})
}

func (h *Handler) ListRooms(c *gin.Context) {
	rooms := make([]roomSummary, 0)
	for _, id := range h.lobby.IDs() {
		r, ok := h.lobby.Get(id)
		if !ok {
			continue
		}
		v := r.View()
		rooms = append(rooms, roomSummary{
			RoomID:      id,
			Phase:       v.Phase,
			HandNumber:  v.HandNumber,
			Players:     len(v.Players),
			Connections: r.ClientCount(),
			Settings:    v.Settings,
		})
	}
	Success(c, gin.H{"rooms": rooms})
}

// CreateRoom accepts an optional body; missing settings fields fall back to
// the configured defaults.
func (h *Handler) CreateRoom(c *gin.Context) {
	var body createRoomBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			Error(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	settings := h.lobby.DefaultSettings()
	if s := body.Settings; s != nil {
		if s.SmallBlind != 0 {
			settings.SmallBlind = s.SmallBlind
		}
		if s.BigBlind != 0 {
			settings.BigBlind = s.BigBlind
		}
		if s.MinBuyIn != 0 {
			settings.MinBuyIn = s.MinBuyIn
		}
		if s.MaxBuyIn != 0 {
			settings.MaxBuyIn = s.MaxBuyIn
		}
	}

	r, err := h.lobby.Create(settings)
	if err != nil {
		h.writeError(c, err)
		return
	}
	Success(c, createRoomResponse{RoomID: r.ID, Settings: r.Settings()})
}

func (h *Handler) GetRoom(c *gin.Context) {
	r, ok := h.lobby.Get(c.Param("id"))
	if !ok {
		Error(c, http.StatusNotFound, "Room not found")
		return
	}
	Success(c, r.View())
}

func (h *Handler) DeleteRoom(c *gin.Context) {
	if err := h.lobby.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	Success(c, gin.H{"room_id": c.Param("id")})
}

func (h *Handler) RoomHistory(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	hands, err := h.ledger.HandHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	Success(c, gin.H{"hands": hands})
}

func (h *Handler) HandDetails(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		Error(c, http.StatusBadRequest, "invalid hand id")
		return
	}
	details, err := h.ledger.HandDetails(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			Error(c, http.StatusNotFound, "Hand not found")
			return
		}
		h.writeError(c, err)
		return
	}
	Success(c, details)
}

// PlayerStats answers zeros for a player with no recorded hands.
func (h *Handler) PlayerStats(c *gin.Context) {
	stats, err := h.ledger.PlayerStats(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	Success(c, stats)
}

func (h *Handler) Leaderboard(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	top, err := h.ledger.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	Success(c, gin.H{"players": top})
}

// queryLimit parses ?limit=; 0 means the backend default.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		Error(c, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
		return 0, false
	}
	return limit, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lobby.ErrRoomNotFound), errors.Is(err, ledger.ErrNotFound), errors.Is(err, holdem.ErrNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case holdem.IsValidation(err):
		Error(c, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, "internal error")
	}
}
