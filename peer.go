// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// sessionContext holds one party's port and its current protocol state.
// state is nil once the party has closed.
type sessionContext struct {
	port  *port
	state *node
}

// expect returns the current state if its combinator is k,
// and panics with ErrProtocol otherwise.
func (ctx *sessionContext) expect(op string, k Kind) *node {
	n := ctx.state
	if n == nil || n.kind != k {
		violate(op, ctx.port.ch.serial, ctx.describe(), stateError(k, n))
	}
	return n
}

// settle panics with ErrProtocol unless the party has closed.
// Called once a program on this context has completed.
func (ctx *sessionContext) settle(op string) {
	if ctx.state != nil {
		violate(op, ctx.port.ch.serial, ctx.describe(), errUnclosed(ctx.port.party()))
	}
}

// describe renders the current state for diagnostics.
func (ctx *sessionContext) describe() string {
	if ctx.state == nil {
		return "closed"
	}
	return Proto{ctx.state}.String()
}

// transmit attempts one non-blocking send. It returns iox.ErrWouldBlock
// on backpressure and panics on a finished channel.
func (ctx *sessionContext) transmit(op string, v any) error {
	err := ctx.port.trySend(v)
	if err != nil && !iox.IsWouldBlock(err) {
		violate(op, ctx.port.ch.serial, ctx.describe(), err)
	}
	return err
}

// receive attempts one non-blocking receive. It returns iox.ErrWouldBlock
// when nothing is buffered and panics on a finished, drained channel.
func (ctx *sessionContext) receive(op string) (any, error) {
	v, err := ctx.port.tryRecv()
	if err != nil && !iox.IsWouldBlock(err) {
		violate(op, ctx.port.ch.serial, ctx.describe(), err)
	}
	return v, err
}

// sessionDispatcher is the structural interface for session operations.
// DispatchSession is non-blocking: it returns iox.ErrWouldBlock at
// the I/O boundary when the bounded queue cannot make progress.
type sessionDispatcher interface {
	DispatchSession(ctx *sessionContext) (kont.Resumed, error)
}

// sessionHandler implements kont.Handler for session effects.
// Waits on iox.ErrWouldBlock, converting non-blocking dispatch
// into blocking evaluation for Exec/ExecExpr.
// Value type: passed to evalFrames on the stack, avoiding heap allocation.
type sessionHandler[R any] struct {
	ctx *sessionContext
}

// Dispatch implements kont.Handler via structural interface assertion.
// Waits past the iox.ErrWouldBlock boundary with adaptive backoff.
func (h sessionHandler[R]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	sop, ok := op.(sessionDispatcher)
	if !ok {
		panic("duplex: unhandled effect in sessionHandler")
	}
	return dispatchWait(h.ctx, sop), true
}

// dispatchWait blocks until DispatchSession succeeds, backing off on
// iox.ErrWouldBlock with iox.Backoff (I/O readiness waiting).
func dispatchWait(ctx *sessionContext, sop sessionDispatcher) kont.Resumed {
	var bo iox.Backoff
	for {
		v, err := sop.DispatchSession(ctx)
		if err == nil {
			return v
		}
		bo.Wait()
	}
}

// Peer is one side of a runtime-checked session. Programs driven on a
// Peer are ordinary kont effect programs; every session effect they
// perform is checked against the Peer's current protocol state before
// it touches the channel.
type Peer struct {
	ctx sessionContext
}

// Serial returns the serial number assigned to this peer's session.
func (pe *Peer) Serial() Serial {
	return pe.ctx.port.ch.serial
}

// State returns the peer's current protocol state.
// It returns the zero Proto once the peer has closed.
func (pe *Peer) State() Proto {
	return Proto{pe.ctx.state}
}

// peerPair holds both peers of one session in a single allocation.
type peerPair struct {
	a Peer
	b Peer
}

// NewPeers creates a connected pair of runtime-checked peers.
// The first follows p and the second follows p.Dual().
//
// Session operations are non-blocking: DispatchSession returns
// iox.ErrWouldBlock when the peer has not yet produced or consumed.
func NewPeers(p Proto) (*Peer, *Peer) {
	ch := newChannel()
	pair := &peerPair{}
	pair.a.ctx = sessionContext{port: &ch.a, state: p.must()}
	pair.b.ctx = sessionContext{port: &ch.b, state: p.Dual().n}
	return &pair.a, &pair.b
}
