package placement

import (
	"errors"

	"github.com/okian/formation/internal/domain/geometry"
)

// Sentinel errors returned by the Controller. None of them is fatal: a
// caller that ignores them simply gets no drag.
var (
	ErrGeometryUnready = geometry.ErrGeometryUnready
	ErrAlreadyDragging = errors.New("player already has a drag in progress")
	ErrNoSession       = errors.New("no drag in progress for player")
)
