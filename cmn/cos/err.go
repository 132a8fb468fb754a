// Package cos provides common low-level types and utilities shared by the
// key scheme, placement, codec, transport, and orchestrator packages.
package cos

import (
	"context"
	"errors"
	"net/http"
	"syscall"
)

// IsErrConnectionRefused reports a dial-time connection refusal.
func IsErrConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

// IsErrConnectionReset reports a TCP RST, including its broken-pipe sibling.
func IsErrConnectionReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) || IsErrBrokenPipe(err)
}

func IsErrBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE)
}

// IsUnreachable classifies an error/status pair as "the fragment endpoint
// wasn't reachable", the dividing line between a TimeoutError and a
// transport-level PUTError/GETError/DELETEError in the orchestrator.
func IsUnreachable(err error, status int) bool {
	return IsErrConnectionRefused(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		status == http.StatusRequestTimeout ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusBadGateway
}
