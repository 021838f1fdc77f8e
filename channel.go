// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex

import (
	"reflect"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// channelCapacity is the bounded capacity for each direction of a channel.
// 4 balances amortizing producer-side cached-index refresh cost while
// keeping ring buffers within a single cache line.
const channelCapacity = 4

// choice is the branch discriminator written by ChooseLeft/ChooseRight.
// It travels on the same queue as payloads, so branch selection and
// payload delivery share one ordering.
type choice bool

// chooseLeft and chooseRight are pre-boxed discriminators,
// avoiding a heap escape per selection.
var (
	chooseLeft  any = choice(true)
	chooseRight any = choice(false)
)

// channel is the single-use transport shared by the two parties of one
// session. Each direction is a single-producer single-consumer bounded
// queue; finished counts Close calls and aborts.
type channel struct {
	ab       lfq.SPSC[any]
	ba       lfq.SPSC[any]
	finished atomix.Uint32
	serial   Serial

	a port
	b port
}

// port is one party's view of a channel.
type port struct {
	ch     *channel
	sendQ  *lfq.SPSC[any]
	recvQ  *lfq.SPSC[any]
	slot   any
	closed atomix.Bool
}

// newChannel allocates a channel and both of its ports in one allocation.
func newChannel() *channel {
	ch := &channel{serial: nextSerial()}
	ch.ab.Init(channelCapacity)
	ch.ba.Init(channelCapacity)
	ch.a = port{ch: ch, sendQ: &ch.ab, recvQ: &ch.ba}
	ch.b = port{ch: ch, sendQ: &ch.ba, recvQ: &ch.ab}
	return ch
}

// party names the side of the channel p belongs to, for diagnostics.
func (p *port) party() string {
	if p == &p.ch.a {
		return "a"
	}
	return "b"
}

// finish marks the channel finished. Safe to call from either party.
func (ch *channel) finish() {
	ch.finished.Add(1)
}

// close records that p's party reached Close and finishes the channel.
func (p *port) close() {
	p.closed.Store(true)
	p.ch.finish()
}

// unclosed returns the first party that has not reached Close, or "".
func (ch *channel) unclosed() string {
	for _, p := range [...]*port{&ch.a, &ch.b} {
		if !p.closed.Load() {
			return p.party()
		}
	}
	return ""
}

func (ch *channel) isFinished() bool {
	return ch.finished.Load() != 0
}

// trySend enqueues v without blocking.
// Returns iox.ErrWouldBlock when the queue is full and ErrFinished once
// the channel has been finished by either party.
func (p *port) trySend(v any) error {
	if p.ch.isFinished() {
		return ErrFinished
	}
	p.slot = v
	return p.sendQ.Enqueue(&p.slot)
}

// tryRecv dequeues a value without blocking.
// Values buffered before a finish are still delivered; once the channel is
// finished and drained it returns ErrFinished, because no value can arrive.
func (p *port) tryRecv() (any, error) {
	v, err := p.recvQ.Dequeue()
	if err == nil {
		return v, nil
	}
	if p.ch.isFinished() {
		// The peer enqueues before it finishes; look once more.
		if v, err = p.recvQ.Dequeue(); err == nil {
			return v, nil
		}
		return nil, ErrFinished
	}
	return nil, err
}

// send blocks until v is buffered, backing off on iox.ErrWouldBlock.
// A finished channel is a protocol violation.
func (p *port) send(op string, v any) {
	var bo iox.Backoff
	for {
		err := p.trySend(v)
		if err == nil {
			return
		}
		if !iox.IsWouldBlock(err) {
			violate(op, p.ch.serial, "", err)
		}
		bo.Wait()
	}
}

// recv blocks until a value is available, backing off on iox.ErrWouldBlock.
// A finished and drained channel is a protocol violation.
func (p *port) recv(op string) any {
	var bo iox.Backoff
	for {
		v, err := p.tryRecv()
		if err == nil {
			return v
		}
		if !iox.IsWouldBlock(err) {
			violate(op, p.ch.serial, "", err)
		}
		bo.Wait()
	}
}

// recvChoice blocks for a branch discriminator.
func (p *port) recvChoice(op string) bool {
	v := p.recv(op)
	c, ok := v.(choice)
	if !ok {
		violate(op, p.ch.serial, "", payloadError(reflect.TypeFor[choice](), v))
	}
	return bool(c)
}
