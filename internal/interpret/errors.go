package interpret

import (
	"errors"

	"dream-backend/internal/stream"
)

var (
	ErrMissingDream = errors.New("dream text is required")
	ErrDreamTooLong = errors.New("dream text is too long")
	ErrUnconfigured = errors.New("interpretation provider is not configured")
	ErrEmptyOutput  = errors.New("model returned no interpretation")
)

const (
	ErrorCodeMissingDream   = "MISSING_DREAM"
	ErrorCodeInvalidRequest = "INVALID_REQUEST"
	ErrorCodeDreamTooLong   = "DREAM_TOO_LONG"
	ErrorCodeMissingAPIKey  = "MISSING_API_KEY"
	ErrorCodeUpstream       = "UPSTREAM_ERROR"
	ErrorCodeStream         = stream.CodeStreamError
)
