// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Protocol-discipline violations. These are programmer errors: the
// operation that detects one panics with a *Violation wrapping the
// matching sentinel, after logging it.
var (
	// ErrConsumed reports reuse of an endpoint that an earlier
	// operation already consumed.
	ErrConsumed = errors.New("duplex: endpoint already consumed")
	// ErrUnbound reports use of an endpoint that was never produced by
	// Create or by a session operation, such as a zero value.
	ErrUnbound = errors.New("duplex: endpoint not bound to a session")
	// ErrFinished reports a send on a finished channel, or a receive on a
	// finished channel with nothing left to deliver.
	ErrFinished = errors.New("duplex: channel finished")
	// ErrPayload reports a received value whose type differs from the
	// type the protocol declares for this step.
	ErrPayload = errors.New("duplex: payload type mismatch")
	// ErrProtocol reports an operation that the current protocol state
	// does not permit.
	ErrProtocol = errors.New("duplex: operation not permitted by protocol state")
	// ErrNotDual reports two protocols that are not each other's dual.
	ErrNotDual = errors.New("duplex: protocols are not dual")
)

// Violation is the panic value for a protocol-discipline violation.
type Violation struct {
	// Op is the operation that detected the violation.
	Op string
	// Serial identifies the session, or 0 when unknown.
	Serial Serial
	// State is the protocol state at the point of violation, if known.
	State string
	// Err is one of the sentinel errors of this package, possibly wrapped.
	Err error
}

func (v *Violation) Error() string {
	if v.State != "" {
		return fmt.Sprintf("%v (op %s, session %d, state %s)", v.Err, v.Op, v.Serial, v.State)
	}
	return fmt.Sprintf("%v (op %s, session %d)", v.Err, v.Op, v.Serial)
}

func (v *Violation) Unwrap() error { return v.Err }

// violate logs and panics. It never returns.
func violate(op string, serial Serial, state string, err error) {
	v := &Violation{Op: op, Serial: serial, State: state, Err: err}
	logger().Error("protocol violation",
		zap.String("op", op),
		zap.Uint32("serial", serial),
		zap.String("state", state),
		zap.Error(err),
	)
	panic(v)
}

// payloadAs asserts a received value to T. A nil interface value is the
// zero T when T is itself an interface type.
func payloadAs[T any](v any) (T, bool) {
	if v == nil && reflect.TypeFor[T]().Kind() == reflect.Interface {
		var zero T
		return zero, true
	}
	t, ok := v.(T)
	return t, ok
}

func payloadError(want reflect.Type, got any) error {
	return fmt.Errorf("%w: want %v, got %T", ErrPayload, want, got)
}

func stateError(want Kind, got *node) error {
	if got == nil {
		return fmt.Errorf("%w: %s after Close", ErrProtocol, want)
	}
	return fmt.Errorf("%w: %s in %s state", ErrProtocol, want, got.kind)
}

// errUnclosed reports a party that stopped before closing its endpoint.
func errUnclosed(party string) error {
	return fmt.Errorf("%w: party %s returned without Close", ErrProtocol, party)
}
