package classifier

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind distinguishes why a classification attempt produced no suggestion.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindTimeout ErrorKind = "timeout"
	KindService ErrorKind = "service"
	KindParse   ErrorKind = "parse"
	KindSchema  ErrorKind = "schema"
)

// Error is the single failure type produced inside the classifier. It never
// leaves the package boundary: Classify logs it and degrades to an empty result.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("classification %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ServiceError reports a response from the generation service that carries no usable text.
type ServiceError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s api error: %s", e.Provider, e.Message)
}

// transportError maps a Generator failure onto the error kinds.
func transportError(err error) *Error {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return &Error{Kind: KindService, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindNetwork, Err: err}
}
