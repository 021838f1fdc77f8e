// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// sessionErrorHandler handles both session and error effects.
// Session ops wait on ErrWouldBlock via iox.Backoff. Error ops short-circuit on Throw.
// Value type: passed to evalFrames on the stack, avoiding heap allocation.
type sessionErrorHandler[E, A any] struct {
	ctx    *sessionContext
	errCtx *kont.ErrorContext[E]
}

// Dispatch implements kont.Handler for the composed Session+Error handler.
// Dispatch order: Session → Error.
func (h sessionErrorHandler[E, A]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	if sop, ok := op.(sessionDispatcher); ok {
		return dispatchWait(h.ctx, sop), true
	}
	if eop, ok := op.(interface {
		DispatchError(ctx *kont.ErrorContext[E]) (kont.Resumed, bool)
	}); ok {
		v, _ := eop.DispatchError(h.errCtx)
		if h.errCtx.HasErr {
			return kont.Left[E, A](h.errCtx.Err), false
		}
		return v, true
	}
	panic("duplex: unhandled effect in sessionErrorHandler")
}

// ExecError runs a session program with error handling on a peer.
// Returns Right on success and Left with the thrown value on Throw.
// A Throw abandons the rest of the program, so the peer's protocol state
// stays wherever the program left it. A program that completes normally
// must have performed Close.
func ExecError[E, R any](pe *Peer, program kont.Eff[R]) kont.Either[E, R] {
	wrapped := kont.Map[kont.Resumed, R, kont.Either[E, R]](program, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	var errCtx kont.ErrorContext[E]
	h := sessionErrorHandler[E, R]{ctx: &pe.ctx, errCtx: &errCtx}
	result := kont.Handle(wrapped, h)
	settleRight(&pe.ctx, "ExecError", result)
	return result
}

// ExecErrorExpr is ExecError for Expr-world programs.
func ExecErrorExpr[E, R any](pe *Peer, program kont.Expr[R]) kont.Either[E, R] {
	wrapped := kont.ExprMap(program, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	var errCtx kont.ErrorContext[E]
	h := sessionErrorHandler[E, R]{ctx: &pe.ctx, errCtx: &errCtx}
	result := kont.HandleExpr(wrapped, h)
	settleRight(&pe.ctx, "ExecErrorExpr", result)
	return result
}

// settleRight checks closure for a program that completed without a Throw.
func settleRight[E, R any](ctx *sessionContext, op string, result kont.Either[E, R]) {
	if result.IsRight() {
		ctx.settle(op)
	}
}

// RunError creates a checked peer pair for p, runs both Cont-world
// programs with error handling, and returns both results as Either values.
// Interleaves execution on the calling goroutine using adaptive backoff
// (iox.Backoff). Does not spawn goroutines or create channels.
//
// A side that throws stops advancing. If the other side is still waiting
// on it, RunError waits with it. A side that completes without a Throw
// must have performed Close; otherwise RunError panics with ErrProtocol.
func RunError[E, A, B any](p Proto, a kont.Eff[A], b kont.Eff[B]) (kont.Either[E, A], kont.Either[E, B]) {
	return RunErrorExpr[E](p, Reify(a), Reify(b))
}

// RunErrorExpr is RunError for Expr-world programs.
func RunErrorExpr[E, A, B any](p Proto, a kont.Expr[A], b kont.Expr[B]) (kont.Either[E, A], kont.Either[E, B]) {
	peA, peB := NewPeers(p)
	resultA, suspA := StepError[E, A](a)
	resultB, suspB := StepError[E, B](b)
	if suspA == nil {
		settleRight(&peA.ctx, "RunError", resultA)
	}
	if suspB == nil {
		settleRight(&peB.ctx, "RunError", resultB)
	}
	var bo iox.Backoff
	for suspA != nil || suspB != nil {
		progress := false
		if suspA != nil {
			var err error
			resultA, suspA, err = AdvanceError[E](peA, suspA)
			if err == nil {
				progress = true
				if suspA == nil {
					settleRight(&peA.ctx, "RunError", resultA)
				}
			}
		}
		if suspB != nil {
			var err error
			resultB, suspB, err = AdvanceError[E](peB, suspB)
			if err == nil {
				progress = true
				if suspB == nil {
					settleRight(&peB.ctx, "RunError", resultB)
				}
			}
		}
		if !progress {
			bo.Wait()
		} else {
			bo.Reset()
		}
	}
	return resultA, resultB
}

// StepError evaluates a session program with error support until the first
// effect suspension. Returns (Either[E, R], nil) on completion or error,
// or (zero, suspension) if pending.
func StepError[E, R any](program kont.Expr[R]) (kont.Either[E, R], *kont.Suspension[kont.Either[E, R]]) {
	wrapped := kont.ExprMap(program, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	return kont.StepExpr(wrapped)
}

// AdvanceError dispatches the suspended operation on the peer.
// Session ops are non-blocking (ErrWouldBlock). Error ops are eager:
// Throw discards the suspension and returns Left.
func AdvanceError[E, R any](pe *Peer, susp *kont.Suspension[kont.Either[E, R]]) (kont.Either[E, R], *kont.Suspension[kont.Either[E, R]], error) {
	if sop, ok := susp.Op().(sessionDispatcher); ok {
		v, err := sop.DispatchSession(&pe.ctx)
		if err != nil {
			var zero kont.Either[E, R]
			return zero, susp, err
		}
		result, next := susp.Resume(v)
		return result, next, nil
	}
	if eop, ok := susp.Op().(interface {
		DispatchError(ctx *kont.ErrorContext[E]) (kont.Resumed, bool)
	}); ok {
		var ctx kont.ErrorContext[E]
		v, _ := eop.DispatchError(&ctx)
		if ctx.HasErr {
			susp.Discard()
			return kont.Left[E, R](ctx.Err), nil, nil
		}
		result, next := susp.Resume(v)
		return result, next, nil
	}
	panic("duplex: unhandled effect in AdvanceError")
}
