package dreams

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrEmptyDream = errors.New("dream text is required")
)
