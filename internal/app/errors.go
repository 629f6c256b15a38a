package service

import "errors"

var (
	// ErrNotStarted is returned by Service reads and writes before Start.
	ErrNotStarted     = errors.New("service not started")
	ErrUnknownBackend = errors.New("unknown store backend")
	// ErrNoTeam is returned by Editor.Reload before any Load.
	ErrNoTeam = errors.New("no team loaded")
)
