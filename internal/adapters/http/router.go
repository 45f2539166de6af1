package http

import (
	"context"

	"github.com/dkeye/voipcore/internal/adapters/signal"
	"github.com/dkeye/voipcore/internal/app/orch"
	"github.com/dkeye/voipcore/internal/config"
	handlers "github.com/dkeye/voipcore/internal/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware keeps a caller supplied request id or makes one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	r.GET("/healthz", handlers.Healthz)

	api := r.Group("/api")
	handlers.NewHandlers(o).Register(api)

	voice := signal.NewVoiceWSController(o, cfg.MaxMessageSize)
	api.GET("/ws/voice", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("request_id", c.GetString("request_id")).Msg("ws voice endpoint hit")
		voice.HandleVoice(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
