package lineup

import "errors"

// Sentinel errors for the lineup store.
var (
	// ErrFetch wraps any failure of the lineup-read collaborator. The store
	// keeps its previous state when it is returned.
	ErrFetch = errors.New("lineup fetch failed")
	// ErrSave wraps a failed remote placement save inside a SaveResult.
	ErrSave          = errors.New("placement save failed")
	ErrUnknownPlayer = errors.New("player not in lineup")
	ErrNotLoaded     = errors.New("lineup not loaded")
	ErrInvalidInput  = errors.New("invalid placement coordinates")
)
