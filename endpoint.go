// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex

import "code.hybscloud.com/kont"

// endpoint is the state-independent part of every typed endpoint:
// the party's port and a one-shot token. Copies of an endpoint share the
// token, so whichever copy is used first consumes all of them.
type endpoint struct {
	p    *port
	once *kont.Affine[struct{}, struct{}]
}

// spent is the continuation behind every endpoint token.
func spent(struct{}) struct{} { return struct{}{} }

// mint binds a fresh endpoint to p.
func mint(p *port) endpoint {
	return endpoint{p: p, once: kont.Once(spent)}
}

// take consumes the endpoint and returns its port.
// Panics with ErrUnbound for a zero endpoint and ErrConsumed on reuse.
func (e endpoint) take(op string, state func() Proto) *port {
	if e.once == nil {
		violate(op, 0, state().String(), ErrUnbound)
	}
	if _, ok := e.once.TryResume(struct{}{}); !ok {
		violate(op, e.p.ch.serial, state().String(), ErrConsumed)
	}
	return e.p
}

// Serial returns the serial of the session this endpoint belongs to,
// or 0 for an unbound endpoint.
func (e endpoint) Serial() Serial {
	if e.p == nil {
		return 0
	}
	return e.p.ch.serial
}
