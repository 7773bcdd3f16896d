package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err == nil:
		return "unknown error"
	case errors.Is(e.Err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(e.Err, context.Canceled):
		return "request canceled"
	default:
		return e.Err.Error()
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response. Message comes from the body when it has one.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

func newServerError(status int, body []byte) *ServerError {
	msg := ErrorMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("HTTP error! status: %d", status)
	}
	return &ServerError{Status: status, Message: msg}
}

// ErrorMessage extracts the "error" or "message" field of a JSON body, or "".
func ErrorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	res := gjson.GetManyBytes(body, "error", "message")
	for _, r := range res {
		if r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}
