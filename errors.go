package goGate

import "errors"

var (
	// ErrGateNotReady is an exported constant or variable used by the access gate engine.
	ErrGateNotReady = errors.New("gate not initialized")
	// ErrCooldownActive is an exported constant or variable used by the access gate engine.
	ErrCooldownActive = errors.New("challenge request cooldown active")
	// ErrLinkNotFound is an exported constant or variable used by the access gate engine.
	ErrLinkNotFound = errors.New("link token not found")
	// ErrLinkExpired is an exported constant or variable used by the access gate engine.
	ErrLinkExpired = errors.New("link token expired")
	// ErrGrantIssueFailed is an exported constant or variable used by the access gate engine.
	ErrGrantIssueFailed = errors.New("grant issuance failed")
	// ErrUnauthorized is an exported constant or variable used by the access gate engine.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBackendUnavailable is an exported constant or variable used by the access gate engine.
	ErrBackendUnavailable = errors.New("state backend unavailable")
)
