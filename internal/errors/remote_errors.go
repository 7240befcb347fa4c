package errors

import (
	"errors"
	"fmt"
)

var ErrRemoteService = errors.New("remote service failure")

// RemoteError wraps a failed call to a collaborator (lobby service, roster,
// preference store).
type RemoteError struct {
	Service string
	Op      string
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Service, e.Op)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteService
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Remote builds a RemoteError around a transport or store error.
func Remote(service, op string, err error) error {
	return &RemoteError{Service: service, Op: op, Err: err}
}

// IsRemote reports whether err came from a collaborator call.
func IsRemote(err error) bool {
	return errors.Is(err, ErrRemoteService)
}
