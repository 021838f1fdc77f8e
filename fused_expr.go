// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex

import (
	"code.hybscloud.com/kont"
)

// ExprSendThen sends a value and then continues with next.
// Fuses ExprPerform(SendOp[T]{Value: v}) + ExprThen.
func ExprSendThen[T, B any](v T, next kont.Expr[B]) kont.Expr[B] {
	return kont.ExprThen(kont.ExprPerform(SendOp[T]{Value: v}), next)
}

// ExprRecvBind receives a value and passes it to f.
// Fuses ExprPerform(RecvOp[T]{}) + ExprBind.
func ExprRecvBind[T, B any](f func(T) kont.Expr[B]) kont.Expr[B] {
	return kont.ExprBind(kont.ExprPerform(RecvOp[T]{}), f)
}

// ExprCloseDone closes the session and returns a.
// Fuses ExprPerform(CloseOp{}) + ExprThen + ExprReturn.
func ExprCloseDone[A any](a A) kont.Expr[A] {
	return kont.ExprThen(kont.ExprPerform(CloseOp{}), kont.ExprReturn(a))
}

// ExprSelectLThen selects the left branch and continues with next.
// Fuses ExprPerform(SelectLOp{}) + ExprThen.
func ExprSelectLThen[B any](next kont.Expr[B]) kont.Expr[B] {
	return kont.ExprThen(kont.ExprPerform(SelectLOp{}), next)
}

// ExprSelectRThen selects the right branch and continues with next.
// Fuses ExprPerform(SelectROp{}) + ExprThen.
func ExprSelectRThen[B any](next kont.Expr[B]) kont.Expr[B] {
	return kont.ExprThen(kont.ExprPerform(SelectROp{}), next)
}

// ExprOfferBranch waits for the peer's choice and calls onLeft or onRight.
// Fuses ExprPerform(OfferOp{}) + ExprBind + Either branch.
func ExprOfferBranch[A any](onLeft func() kont.Expr[A], onRight func() kont.Expr[A]) kont.Expr[A] {
	return kont.ExprBind(kont.ExprPerform(OfferOp{}), func(e kont.Either[struct{}, struct{}]) kont.Expr[A] {
		if e.IsLeft() {
			return onLeft()
		}
		return onRight()
	})
}
