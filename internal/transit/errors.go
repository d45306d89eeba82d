package transit

import (
	"errors"
	"fmt"
)

// Kind classifies a failed transit request. Every kind is a communication
// error from the rider's point of view; the kind says where it came from.
type Kind string

const (
	// KindTransport is a transport failure. Message is the transport's own
	// message when it reported one.
	KindTransport Kind = "transport"
	// KindRemote is an API envelope carrying a failure code.
	KindRemote Kind = "remote"
	// KindParse is a payload that could not be turned into results.
	KindParse Kind = "parse"
)

// Error is returned by every Client operation. Message is ready for display:
// either the collaborator's own message or the localized generic one.
type Error struct {
	Kind     Kind
	Endpoint string
	Message  string
	// Generic is set when Message is the localized fallback rather than a
	// message reported by the transport or the server.
	Generic bool
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Describe renders the error for logs, including the cause.
func (e *Error) Describe() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Endpoint, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Endpoint, e.Kind, e.Message, e.Err)
}

// IsCommunication reports whether err came out of a transit request.
func IsCommunication(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Failure is the error a Transport returns. An empty Message means the
// transport had nothing to say beyond the cause.
type Failure struct {
	Message    string
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	switch {
	case f.Message != "" && f.Err != nil:
		return f.Message + ": " + f.Err.Error()
	case f.Message != "":
		return f.Message
	case f.Err != nil:
		return f.Err.Error()
	default:
		return "transport failure"
	}
}

func (f *Failure) Unwrap() error {
	return f.Err
}
