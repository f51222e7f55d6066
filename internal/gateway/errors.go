package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrAuthRequired indicates a missing or rejected bearer token. It is the
// only gateway error fatal to every flow: the caller must force re-login.
var ErrAuthRequired = errors.New("authentication required")

// ErrEmptyResult indicates a successful response carrying no data where
// the caller expected at least one item.
var ErrEmptyResult = errors.New("empty result")

// ErrTransient indicates a timeout, connection fault or 5xx response.
// Callers retry or degrade to the local view.
type ErrTransient struct {
	Op         string
	StatusCode int // 0 for transport-level faults
	Err        error
}

func (e *ErrTransient) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: transient server error (HTTP %d)", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
}

func (e *ErrTransient) Unwrap() error { return e.Err }

// ErrNotFound indicates a 404. On a fetch-detail call the resource simply
// does not exist yet (Benign: render an empty state); on a state-changing
// call it is a genuine failure to surface.
type ErrNotFound struct {
	Op     string
	Benign bool
}

func (e *ErrNotFound) Error() string {
	if e.Benign {
		return fmt.Sprintf("%s: resource not yet created", e.Op)
	}
	return fmt.Sprintf("%s: resource not found", e.Op)
}

// IsTransient reports whether err should trigger a retry or local fallback.
func IsTransient(err error) bool {
	var t *ErrTransient
	if errors.As(err, &t) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// IsAuthRequired reports whether err requires re-authentication.
func IsAuthRequired(err error) bool {
	return errors.Is(err, ErrAuthRequired)
}

// IsBenignNotFound reports whether err is a 404 on a fetch-detail call,
// to be rendered as an empty state rather than an error.
func IsBenignNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf) && nf.Benign
}

// IsFatal reports whether err must propagate to the user: auth failures
// and not-found on state-changing calls. Everything else is absorbed at
// the component boundary.
func IsFatal(err error) bool {
	if IsAuthRequired(err) {
		return true
	}
	var nf *ErrNotFound
	if errors.As(err, &nf) && !nf.Benign {
		return true
	}
	return false
}

// retryable reports whether an error is worth another attempt. Context
// cancellation and fatal errors never are.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsFatal(err) || errors.Is(err, ErrEmptyResult) || IsBenignNotFound(err) {
		return false
	}
	return true
}
