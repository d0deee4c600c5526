package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Mesh/internal/app"
	"github.com/dkeye/Mesh/internal/app/orch"
	"github.com/dkeye/Mesh/internal/core"
	"github.com/dkeye/Mesh/internal/domain"
)

type CreateRoomRequest struct {
	Capacity *domain.Capacity `json:"capacity"`
	// MaxParticipants is the older name of Capacity, still sent by web clients.
	MaxParticipants *domain.Capacity `json:"maxParticipants"`
}

func (r CreateRoomRequest) requested() *domain.Capacity {
	if r.Capacity != nil {
		return r.Capacity
	}
	return r.MaxParticipants
}

type roomsHandler struct {
	orch    *orch.Orchestrator
	limiter *app.RateLimiter
}

func (h *roomsHandler) create(c *gin.Context) {
	if !h.limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate-limited"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid capacity"})
		return
	}

	room, err := h.orch.Rooms.CreateRoom(c.Request.Context(), req.requested())
	switch {
	case errors.Is(err, core.ErrCodeSpaceExhausted):
		log.Error().Err(err).Str("module", "adapters.http").Msg("create room")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no-room-code-available"})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "adapters.http").Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	c.JSON(http.StatusCreated, core.RoomDTO{
		RoomCode:  room.Code,
		Capacity:  room.Capacity,
		CreatedAt: room.CreatedAt,
	})
}

func (h *roomsHandler) get(c *gin.Context) {
	code := domain.RoomCode(c.Param("code"))
	room, err := h.orch.Rooms.GetRoom(c.Request.Context(), code)
	switch {
	case errors.Is(err, core.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room-not-found"})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "adapters.http").Str("code", string(code)).Msg("get room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	live := h.orch.Members.Count(room.Code)
	c.JSON(http.StatusOK, core.RoomDTO{
		RoomCode:             room.Code,
		Capacity:             room.Capacity,
		CreatedAt:            room.CreatedAt,
		LiveParticipantCount: &live,
	})
}

func (h *roomsHandler) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.orch.Members.Rooms()})
}

func (h *roomsHandler) members(c *gin.Context) {
	code := domain.RoomCode(c.Param("code"))
	if _, err := h.orch.Rooms.GetRoom(c.Request.Context(), code); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room-not-found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": h.orch.Members.MembersSnapshot(code)})
}
