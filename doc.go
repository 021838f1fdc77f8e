// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package duplex provides session-typed, two-party communication over a
// bounded lock-free channel.
//
// A protocol is written as a nest of state types, read from the point of
// view of one party. Each state type is also that party's endpoint:
//
//	type Server = duplex.Recv[int, duplex.Send[int, duplex.Close]]
//	type Client = duplex.Send[int, duplex.Recv[int, duplex.Close]]
//
// [Create] checks that the two state types are dual, allocates one
// channel, and runs both bodies concurrently. Every operation consumes the
// endpoint it is called on and returns the endpoint for the next state, so
// the shape of a correct program follows the shape of its protocol.
//
// # Architecture
//
//   - Transport: one channel per session, made of two lock-free bounded SPSC queues via [code.hybscloud.com/lfq]. Branch selections travel on the same queue as payloads.
//   - Linearity: every endpoint carries a one-shot token ([code.hybscloud.com/kont.Affine]). Reusing an endpoint panics with [ErrConsumed]; a zero endpoint panics with [ErrUnbound].
//   - Duality: [Describe] reflects a state type into a [Proto] descriptor. [Create] compares descriptors once per state-type pair and panics with [ErrNotDual] on mismatch.
//   - Violations: every protocol-discipline failure panics with a [*Violation] wrapping one of the package's sentinel errors, after logging it through zap.
//
// # Typed endpoints
//
//   - States: [Close], [Send], [Recv], [Choose], [Offer].
//   - Operations: [Send.Send], [Recv.Recv], [Choose.ChooseLeft], [Choose.ChooseRight], [Offer.Offer], [Close.Close].
//   - Delegation: an endpoint is an ordinary value and may itself be the payload of a Send.
//
// # Checked effect programs
//
// Protocols that do not fit a finite nest of types, such as loops, are
// described at runtime with [End], [SendOf], [RecvOf], [ChooseOf],
// [OfferOf] and [Rec], and driven as [code.hybscloud.com/kont] effect
// programs on a [Peer]. Each effect is checked against the peer's current
// state before it touches the channel.
//
//   - Effects: [SendOp], [RecvOp], [CloseOp], [SelectLOp], [SelectROp], [OfferOp].
//   - Cont-world: [SendThen], [RecvBind], [CloseDone], [SelectLThen], [SelectRThen], [OfferBranch].
//   - Expr-world: [ExprSendThen], [ExprRecvBind], and the other Expr variants. Bridge via [Reify] and [Reflect].
//   - Recursive: [Loop] and [ExprLoop].
//   - Stepping: [Step] and [Advance] (or [StepError]/[AdvanceError]) evaluate one effect at a time and return [code.hybscloud.com/iox.ErrWouldBlock] at the queue boundary.
//   - Blocking: [Exec], [Run] (and Error/Expr variants) wait past boundaries using adaptive backoff.
//
// # Example
//
//	p := duplex.SendOf[int](duplex.End())
//	a, _ := duplex.NewPeers(p)
//	program := duplex.ExprSendThen(42, duplex.ExprCloseDone[struct{}](struct{}{}))
//	_, susp := duplex.Step[struct{}](program)
//	for susp != nil {
//		var err error
//		if _, susp, err = duplex.Advance(a, susp); err != nil {
//			continue // retry on ErrWouldBlock
//		}
//	}
package duplex
