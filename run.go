// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
	"go.uber.org/zap"
)

// Run creates a checked peer pair for p, runs a on the side following p
// and b on the side following p.Dual(), and returns both results.
// Interleaves execution of both sides on the calling goroutine using
// adaptive backoff (iox.Backoff) when neither side can make progress.
// Does not spawn goroutines or create channels.
//
// Each side is checked as it completes: one that returns before
// performing Close panics with ErrProtocol.
func Run[A, B any](p Proto, a kont.Eff[A], b kont.Eff[B]) (A, B) {
	return RunExpr(p, Reify(a), Reify(b))
}

// RunExpr is Run for Expr-world programs.
func RunExpr[A, B any](p Proto, a kont.Expr[A], b kont.Expr[B]) (A, B) {
	peA, peB := NewPeers(p)
	logger().Debug("session created",
		zap.Uint32("serial", peA.Serial()),
		zap.Stringer("protocol", p),
	)
	resultA, suspA := Step[A](a)
	resultB, suspB := Step[B](b)
	if suspA == nil {
		peA.ctx.settle("Run")
	}
	if suspB == nil {
		peB.ctx.settle("Run")
	}
	var bo iox.Backoff

	for suspA != nil || suspB != nil {
		progress := false
		if suspA != nil {
			var err error
			if resultA, suspA, err = Advance(peA, suspA); err == nil {
				progress = true
				if suspA == nil {
					peA.ctx.settle("Run")
				}
			}
		}
		if suspB != nil {
			var err error
			if resultB, suspB, err = Advance(peB, suspB); err == nil {
				progress = true
				if suspB == nil {
					peB.ctx.settle("Run")
				}
			}
		}
		if !progress {
			bo.Wait()
		} else {
			bo.Reset()
		}
	}
	logger().Debug("session finished", zap.Uint32("serial", peA.Serial()))
	return resultA, resultB
}
