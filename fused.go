// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex

import (
	"code.hybscloud.com/kont"
)

// SendThen sends a value and then continues with next.
// Fuses Perform(SendOp[T]{Value: v}) + Then.
func SendThen[T, B any](v T, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(SendOp[T]{Value: v}), next)
}

// RecvBind receives a value and passes it to f.
// Fuses Perform(RecvOp[T]{}) + Bind.
func RecvBind[T, B any](f func(T) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(RecvOp[T]{}), f)
}

// CloseDone closes the session and returns a.
// Fuses Perform(CloseOp{}) + Then + Pure.
func CloseDone[A any](a A) kont.Eff[A] {
	return kont.Then(kont.Perform(CloseOp{}), kont.Pure(a))
}

// SelectLThen selects the left branch and continues with next.
// Fuses Perform(SelectLOp{}) + Then.
func SelectLThen[B any](next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(SelectLOp{}), next)
}

// SelectRThen selects the right branch and continues with next.
// Fuses Perform(SelectROp{}) + Then.
func SelectRThen[B any](next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(SelectROp{}), next)
}

// OfferBranch waits for the peer's choice and calls onLeft or onRight.
// Fuses Perform(OfferOp{}) + Bind + Either branch.
func OfferBranch[A any](onLeft func() kont.Eff[A], onRight func() kont.Eff[A]) kont.Eff[A] {
	return kont.Bind(kont.Perform(OfferOp{}), func(e kont.Either[struct{}, struct{}]) kont.Eff[A] {
		if e.IsLeft() {
			return onLeft()
		}
		return onRight()
	})
}
