// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex

import (
	"fmt"
	"reflect"

	"code.hybscloud.com/kont"
)

// checkPayload panics with ErrPayload when the program's message type
// differs from the type the protocol declares.
func checkPayload[T any](op string, ctx *sessionContext, n *node) {
	if want := reflect.TypeFor[T](); n.payload != want {
		violate(op, ctx.port.ch.serial, ctx.describe(),
			fmt.Errorf("%w: protocol declares %v, program uses %v", ErrPayload, n.payload, want))
	}
}

// SendOp is the effect operation for sending a value of type T.
// Perform(SendOp[T]{Value: v}) sends v to the peer.
type SendOp[T any] struct {
	kont.Phantom[struct{}]
	Value T
}

// DispatchSession handles SendOp on the session transport.
// Non-blocking: returns iox.ErrWouldBlock if the bounded SPSC queue is full.
func (s SendOp[T]) DispatchSession(ctx *sessionContext) (kont.Resumed, error) {
	n := ctx.expect("Send", KindSend)
	checkPayload[T]("Send", ctx, n)
	if err := ctx.transmit("Send", s.Value); err != nil {
		return nil, err
	}
	ctx.state = n.next
	return struct{}{}, nil
}

// RecvOp is the effect operation for receiving a value of type T.
// Perform(RecvOp[T]{}) receives a typed value from the peer.
type RecvOp[T any] struct {
	kont.Phantom[T]
}

// DispatchSession handles RecvOp on the session transport.
// Non-blocking: returns iox.ErrWouldBlock if the bounded SPSC queue is empty.
func (RecvOp[T]) DispatchSession(ctx *sessionContext) (kont.Resumed, error) {
	n := ctx.expect("Recv", KindRecv)
	checkPayload[T]("Recv", ctx, n)
	v, err := ctx.receive("Recv")
	if err != nil {
		return nil, err
	}
	t, ok := payloadAs[T](v)
	if !ok {
		violate("Recv", ctx.port.ch.serial, ctx.describe(), payloadError(n.payload, v))
	}
	ctx.state = n.next
	return t, nil
}

// CloseOp is the effect operation for closing the session.
// Perform(CloseOp{}) signals session termination.
type CloseOp struct {
	kont.Phantom[struct{}]
}

// DispatchSession handles CloseOp on the session transport.
// Atomically increments the shared finish counter. Never blocks.
func (CloseOp) DispatchSession(ctx *sessionContext) (kont.Resumed, error) {
	ctx.expect("Close", KindClose)
	ctx.port.close()
	ctx.state = nil
	return struct{}{}, nil
}

// offerLeft and offerRight are pre-boxed Resumed values for OfferOp dispatch.
// Either[struct{}, struct{}] is non-zero-size (contains isRight bool),
// so boxing into Resumed (any) allocates without pre-allocation.
var (
	offerLeft  kont.Resumed = kont.Left[struct{}, struct{}](struct{}{})
	offerRight kont.Resumed = kont.Right[struct{}](struct{}{})
)

// SelectLOp is the effect operation for choosing the left branch.
// Perform(SelectLOp{}) signals the left choice to the peer.
type SelectLOp struct {
	kont.Phantom[struct{}]
}

// DispatchSession handles SelectLOp on the session transport.
// Non-blocking: returns iox.ErrWouldBlock if the queue is full.
func (SelectLOp) DispatchSession(ctx *sessionContext) (kont.Resumed, error) {
	n := ctx.expect("SelectL", KindChoose)
	if err := ctx.transmit("SelectL", chooseLeft); err != nil {
		return nil, err
	}
	ctx.state = n.next
	return struct{}{}, nil
}

// SelectROp is the effect operation for choosing the right branch.
// Perform(SelectROp{}) signals the right choice to the peer.
type SelectROp struct {
	kont.Phantom[struct{}]
}

// DispatchSession handles SelectROp on the session transport.
// Non-blocking: returns iox.ErrWouldBlock if the queue is full.
func (SelectROp) DispatchSession(ctx *sessionContext) (kont.Resumed, error) {
	n := ctx.expect("SelectR", KindChoose)
	if err := ctx.transmit("SelectR", chooseRight); err != nil {
		return nil, err
	}
	ctx.state = n.alt
	return struct{}{}, nil
}

// OfferOp is the effect operation for receiving a branch choice from the peer.
// Perform(OfferOp{}) receives the peer's Left or Right selection.
type OfferOp struct {
	kont.Phantom[kont.Either[struct{}, struct{}]]
}

// DispatchSession handles OfferOp on the session transport.
// Non-blocking: returns iox.ErrWouldBlock if the queue is empty.
// true → Left (peer selected left), false → Right (peer selected right).
func (OfferOp) DispatchSession(ctx *sessionContext) (kont.Resumed, error) {
	n := ctx.expect("Offer", KindOffer)
	v, err := ctx.receive("Offer")
	if err != nil {
		return nil, err
	}
	c, ok := v.(choice)
	if !ok {
		violate("Offer", ctx.port.ch.serial, ctx.describe(), payloadError(reflect.TypeFor[choice](), v))
	}
	if c {
		ctx.state = n.next
		return offerLeft, nil
	}
	ctx.state = n.alt
	return offerRight, nil
}
