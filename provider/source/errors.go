package source

import (
	bridge "github.com/goliatone/go-identity-bridge"
)

// unavailable wraps a transport or non-success failure from a collaborator
// as a hard availability error. Never treated as a verdict.
func unavailable(service string, status int, cause error) error {
	clone := bridge.ErrServiceUnavailable.Clone()
	clone.Source = cause

	meta := map[string]any{"service": service}
	if status > 0 {
		meta["status"] = status
	}

	return clone.WithMetadata(meta)
}
