// Package http holds the admin API handlers.
package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/voipcore/internal/app/orch"
	"github.com/dkeye/voipcore/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Host is the part of the orchestrator the admin API reads and drives.
type Host interface {
	Stats() orch.Stats
	ChannelTree() core.ChannelSnapshot
	IsPlayerMuted(prefix string) (muted bool, found bool)
	SetPlayerMuted(prefix string, muted bool) error
}

type MuteRequest struct {
	Muted *bool `json:"muted"`
}

type MuteResponse struct {
	Player string `json:"player"`
	Muted  bool   `json:"muted"`
}

type Handlers struct {
	Host Host
}

func NewHandlers(h Host) *Handlers {
	return &Handlers{Host: h}
}

func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/stats", h.stats)
	r.GET("/channels", h.channels)
	r.GET("/players/:prefix/mute", h.getMute)
	r.PUT("/players/:prefix/mute", h.putMute)
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Host.Stats())
}

func (h *Handlers) channels(c *gin.Context) {
	c.JSON(http.StatusOK, h.Host.ChannelTree())
}

func (h *Handlers) getMute(c *gin.Context) {
	prefix := c.Param("prefix")
	muted, found := h.Host.IsPlayerMuted(prefix)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown player"})
		return
	}
	c.JSON(http.StatusOK, MuteResponse{Player: prefix, Muted: muted})
}

func (h *Handlers) putMute(c *gin.Context) {
	var req MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Muted == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid muted"})
		return
	}
	prefix := c.Param("prefix")
	if err := h.Host.SetPlayerMuted(prefix, *req.Muted); err != nil {
		if errors.Is(err, orch.ErrUnknownPlayer) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown player"})
			return
		}
		log.Error().Err(err).Str("module", "transport.http").Str("player", prefix).Msg("set mute")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, MuteResponse{Player: prefix, Muted: *req.Muted})
}
