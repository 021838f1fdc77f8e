// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex

import (
	"code.hybscloud.com/kont"
)

// Loop runs a recursive session program (Cont-world).
// step returns Left(nextState) to continue or Right(result) to finish.
// The protocol it follows is normally built with Rec.
func Loop[S, A any](initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[A] {
	return kont.Bind(step(initial), func(e kont.Either[S, A]) kont.Eff[A] {
		if left, ok := e.GetLeft(); ok {
			return Loop(left, step)
		}
		right, _ := e.GetRight()
		return kont.Pure(right)
	})
}

// ExprLoop runs a recursive session program (Expr-world).
// step returns Left(nextState) to continue or Right(result) to finish.
func ExprLoop[S, A any](initial S, step func(S) kont.Expr[kont.Either[S, A]]) kont.Expr[A] {
	return kont.ExprBind(step(initial), func(e kont.Either[S, A]) kont.Expr[A] {
		if left, ok := e.GetLeft(); ok {
			return ExprLoop(left, step)
		}
		right, _ := e.GetRight()
		return kont.ExprReturn(right)
	})
}
