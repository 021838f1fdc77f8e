// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex

import (
	"code.hybscloud.com/kont"
)

// Exec runs a Cont-world session program on a peer.
// Blocks on iox.ErrWouldBlock via adaptive backoff (iox.Backoff),
// without spawning goroutines or creating channels.
// Panics with a *Violation as soon as the program departs from the
// peer's protocol, and when it returns before performing Close.
func Exec[R any](pe *Peer, program kont.Eff[R]) R {
	h := sessionHandler[R]{ctx: &pe.ctx}
	r := kont.Handle(program, h)
	pe.ctx.settle("Exec")
	return r
}

// ExecExpr runs an Expr-world session program on a peer.
// Blocks on iox.ErrWouldBlock via adaptive backoff (iox.Backoff),
// without spawning goroutines or creating channels.
func ExecExpr[R any](pe *Peer, program kont.Expr[R]) R {
	h := sessionHandler[R]{ctx: &pe.ctx}
	r := kont.HandleExpr(program, h)
	pe.ctx.settle("ExecExpr")
	return r
}
