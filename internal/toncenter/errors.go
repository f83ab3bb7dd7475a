package toncenter

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransportError wraps connection, DNS, and deadline failures. These are
// assumed transient and are the only errors the verification layer
// retries.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "indexer transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline rather than a
// connection-level problem.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// RemoteError is a non-success answer from the indexing service, or a
// contract-level execution failure. It indicates a structural problem
// (wrong address, incompatible contract, rejected request) and is never
// retried.
type RemoteError struct {
	// ExitCode is the TVM exit code when the contract itself failed;
	// zero for service-level rejections.
	ExitCode int
	Message  string
}

func (e *RemoteError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("indexer remote: %s (exit code %d)", e.Message, e.ExitCode)
	}
	return "indexer remote: " + e.Message
}

// DecodeError means the service answered but the payload did not match
// the expected shape. Never retried.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "indexer response: " + e.Reason
}
