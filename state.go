// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex

import (
	"reflect"
	"sync"

	"code.hybscloud.com/kont"
	"go.uber.org/zap"
)

// State is the F-bounded constraint satisfied by the five protocol state
// types. Its methods are unexported, so the grammar is closed: Close,
// Send, Recv, Choose and Offer are the only states.
//
// A state type is also an endpoint: a value of it is one party's handle
// to its half of a session, positioned at that state.
type State[S State[S]] interface {
	bind(p *port) S
	describe() Proto
}

// Or is the result of Offer: an endpoint for whichever branch the peer
// selected. The other branch's endpoint is never created.
type Or[L, R any] = kont.Either[L, R]

// Close is the terminal state.
type Close struct{ endpoint }

func (Close) bind(p *port) Close { return Close{mint(p)} }
func (Close) describe() Proto    { return End() }

// Close consumes the endpoint and signals the channel finished.
func (c Close) Close() {
	p := c.take("Close", Describe[Close])
	p.close()
	logger().Debug("endpoint closed", zap.Uint32("serial", p.ch.serial), zap.String("party", p.party()))
}

// Send is the state that sends a T and then continues as N.
type Send[T any, N State[N]] struct{ endpoint }

func (Send[T, N]) bind(p *port) Send[T, N] { return Send[T, N]{mint(p)} }

func (Send[T, N]) describe() Proto {
	var n N
	return SendOf[T](n.describe())
}

// Send consumes the endpoint, writes v to the channel, and returns the
// endpoint for N. It blocks only while the channel buffer is full.
func (s Send[T, N]) Send(v T) N {
	p := s.take("Send", Describe[Send[T, N]])
	p.send("Send", v)
	var n N
	return n.bind(p)
}

// Recv is the state that receives a T and then continues as N.
type Recv[T any, N State[N]] struct{ endpoint }

func (Recv[T, N]) bind(p *port) Recv[T, N] { return Recv[T, N]{mint(p)} }

func (Recv[T, N]) describe() Proto {
	var n N
	return RecvOf[T](n.describe())
}

// Recv consumes the endpoint, blocks until a value arrives, and returns
// the value coupled with the endpoint for N.
func (r Recv[T, N]) Recv() (T, N) {
	p := r.take("Recv", Describe[Recv[T, N]])
	v := p.recv("Recv")
	t, ok := payloadAs[T](v)
	if !ok {
		violate("Recv", p.ch.serial, Describe[Recv[T, N]]().String(), payloadError(reflect.TypeFor[T](), v))
	}
	var n N
	return t, n.bind(p)
}

// Choose is the state where this party selects the next branch.
type Choose[L State[L], R State[R]] struct{ endpoint }

func (Choose[L, R]) bind(p *port) Choose[L, R] { return Choose[L, R]{mint(p)} }

func (Choose[L, R]) describe() Proto {
	var l L
	var r R
	return ChooseOf(l.describe(), r.describe())
}

// ChooseLeft consumes the endpoint, tells the peer that the left branch
// was taken, and returns the endpoint for L.
func (c Choose[L, R]) ChooseLeft() L {
	p := c.take("ChooseLeft", Describe[Choose[L, R]])
	p.send("ChooseLeft", chooseLeft)
	var l L
	return l.bind(p)
}

// ChooseRight consumes the endpoint, tells the peer that the right branch
// was taken, and returns the endpoint for R.
func (c Choose[L, R]) ChooseRight() R {
	p := c.take("ChooseRight", Describe[Choose[L, R]])
	p.send("ChooseRight", chooseRight)
	var r R
	return r.bind(p)
}

// Offer is the state where the peer selects the next branch.
type Offer[L State[L], R State[R]] struct{ endpoint }

func (Offer[L, R]) bind(p *port) Offer[L, R] { return Offer[L, R]{mint(p)} }

func (Offer[L, R]) describe() Proto {
	var l L
	var r R
	return OfferOf(l.describe(), r.describe())
}

// Offer consumes the endpoint, blocks for the peer's selection, and
// returns the endpoint of the selected branch.
func (o Offer[L, R]) Offer() Or[L, R] {
	p := o.take("Offer", Describe[Offer[L, R]])
	if p.recvChoice("Offer") {
		var l L
		return kont.Left[L, R](l.bind(p))
	}
	var r R
	return kont.Right[L](r.bind(p))
}

// descriptors caches Describe results by state type.
var descriptors sync.Map // reflect.Type → Proto

// Describe returns the runtime descriptor of the state type S.
// The result is computed once per type.
func Describe[S State[S]]() Proto {
	key := reflect.TypeFor[S]()
	if p, ok := descriptors.Load(key); ok {
		return p.(Proto)
	}
	var s S
	p, _ := descriptors.LoadOrStore(key, s.describe())
	return p.(Proto)
}
