package exchange

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrEndpointBusy reports that another listener holds the endpoint lock.
var ErrEndpointBusy = errors.New("endpoint is held by another listener")

// BindError reports a listener that could not claim or bind its endpoint.
type BindError struct {
	Path string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Path, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// ConnectionError reports a connector that could not reach a listener.
type ConnectionError struct {
	Path string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Path, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DecodeError reports an operator line that is not valid hex.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid hex input %s: %v", strconv.Quote(e.Line), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
