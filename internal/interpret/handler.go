package interpret

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dream-backend/internal/shared/server/middleware"
	"dream-backend/internal/shared/server/respond"
	"dream-backend/internal/shared/telemetry"
	"dream-backend/internal/stream"
)

const (
	statusReady         = "ready"
	statusMissingAPIKey = "missing_api_key"
	endpointType        = "structured-stream"

	streamErrorMessage = "The interpretation stream was interrupted. Please try again."
)

// Handler wires HTTP handlers to the interpretation service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the interpretation routes. Extra handlers run
// before the stream handler, e.g. a rate limiter.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, before ...gin.HandlerFunc) {
	rg.GET("/interpret/stream", h.status)
	rg.POST("/interpret/stream", append(before, h.stream)...)
}

type interpretRequest struct {
	Dream string `json:"dream"`
}

func (h *Handler) status(c *gin.Context) {
	status := statusReady
	if !h.Svc.Configured() {
		status = statusMissingAPIKey
	}
	respond.OK(c, gin.H{
		"status":   status,
		"provider": h.Svc.Provider,
		"model":    h.Svc.Model,
		"type":     endpointType,
	})
}

func (h *Handler) stream(c *gin.Context) {
	var req interpretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "request body must be a JSON object with a dream field", nil)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	updates, err := h.Svc.Interpret(ctx, req.Dream)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingDream):
			respond.Error(c, http.StatusBadRequest, ErrorCodeMissingDream, "Please describe your dream first.", nil)
		case errors.Is(err, ErrDreamTooLong):
			respond.Error(c, http.StatusBadRequest, ErrorCodeDreamTooLong, "Dream text is too long.", gin.H{
				"maxChars": h.Svc.maxDreamChars(),
			})
		case errors.Is(err, ErrUnconfigured):
			respond.Error(c, http.StatusInternalServerError, ErrorCodeMissingAPIKey, "Interpretation service is not configured.", nil)
		default:
			telemetry.Error("interpret.start_failed", map[string]any{
				"request_id": middleware.RequestIDFromContext(c),
				"err":        err.Error(),
			})
			respond.Error(c, http.StatusBadGateway, ErrorCodeUpstream, "Interpretation service is unavailable.", nil)
		}
		return
	}

	// Headers are committed only once the first update arrives, so an
	// upstream failure before any frame can still be reported as JSON.
	first, ok := <-updates
	if !ok {
		return
	}
	if first.Err != nil {
		telemetry.Error("interpret.upstream_failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"err":        first.Err.Error(),
		})
		respond.Error(c, http.StatusBadGateway, ErrorCodeUpstream, "Interpretation service is unavailable.", nil)
		return
	}

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	enc := stream.NewEncoder(c.Writer)
	for u := first; ; {
		if !h.write(c, enc, u) {
			return
		}
		if u.Done {
			return
		}
		if u, ok = <-updates; !ok {
			return
		}
	}
}

// write sends one update and reports whether the stream should continue.
func (h *Handler) write(c *gin.Context, enc *stream.Encoder, u Update) bool {
	var err error
	switch {
	case u.Err != nil:
		telemetry.Error("interpret.stream_failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"frames":     enc.Frames(),
			"err":        u.Err.Error(),
		})
		_ = enc.WriteError(streamErrorMessage, ErrorCodeStream)
		return false
	case u.Done:
		err = enc.WriteDone()
	default:
		err = enc.WriteSnapshot(u.Snapshot)
	}
	if err != nil {
		telemetry.Warn("interpret.write_failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"err":        err.Error(),
		})
		return false
	}
	return true
}
