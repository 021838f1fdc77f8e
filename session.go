// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// duals caches the duality check of each (S, D) state-type pair.
var duals sync.Map // [2]reflect.Type → error

// checkDual verifies once per pair that D is the dual of S.
func checkDual[S State[S], D State[D]]() error {
	key := [2]reflect.Type{reflect.TypeFor[S](), reflect.TypeFor[D]()}
	if err, ok := duals.Load(key); ok {
		if err == nil {
			return nil
		}
		return err.(error)
	}
	var err error
	s, d := Describe[S](), Describe[D]()
	if !s.Dual().Equal(d) {
		err = fmt.Errorf("%w: %s and %s", ErrNotDual, s, d)
	}
	duals.Store(key, err)
	return err
}

// Create runs a session between two bodies.
//
// It allocates one channel, binds a to an endpoint at state S and b to an
// endpoint at state D, runs both bodies concurrently, and returns once
// both have returned. D must be the dual of S; otherwise Create panics
// with ErrNotDual before either body starts.
//
// If a body panics, the channel is finished so that the peer traps
// instead of waiting forever, and Create re-panics with the first panic
// value once both bodies are done. Any later panic, such as the peer's
// ErrFinished trap, is dropped.
//
// Both endpoints must reach Close by the time both bodies have returned;
// otherwise Create panics with ErrProtocol naming the unclosed party. An
// endpoint delegated to another session counts once its new owner closes
// it, so the delegate must close it within the bodies' lifetime. A body
// that returns without reaching Close while its peer still waits on it
// leaves the peer suspended.
//
//	type Server = duplex.Recv[int, duplex.Send[int, duplex.Close]]
//	type Client = duplex.Send[int, duplex.Recv[int, duplex.Close]]
//
//	duplex.Create(func(s Server) {
//		n, reply := s.Recv()
//		reply.Send(n + 1).Close()
//	}, func(c Client) {
//		n, end := c.Send(42).Recv()
//		end.Close()
//		fmt.Println(n) // 43
//	})
func Create[S State[S], D State[D]](a func(S), b func(D)) {
	if err := checkDual[S, D](); err != nil {
		violate("Create", 0, Describe[S]().String(), err)
	}
	ch := newChannel()
	logger().Debug("session created",
		zap.Uint32("serial", ch.serial),
		zap.Stringer("protocol", Describe[S]()),
	)

	var (
		wg    sync.WaitGroup
		once  sync.Once
		fault any
	)
	guard := func(body func()) {
		defer func() {
			if r := recover(); r != nil {
				once.Do(func() { fault = r })
				ch.finish()
			}
		}()
		body()
	}
	wg.Go(func() {
		guard(func() {
			var s S
			a(s.bind(&ch.a))
		})
	})
	wg.Go(func() {
		guard(func() {
			var d D
			b(d.bind(&ch.b))
		})
	})
	wg.Wait()

	if fault != nil {
		logger().Debug("session failed", zap.Uint32("serial", ch.serial), zap.Any("panic", fault))
		panic(fault)
	}
	if party := ch.unclosed(); party != "" {
		violate("Create", ch.serial, Describe[S]().String(), errUnclosed(party))
	}
	logger().Debug("session finished", zap.Uint32("serial", ch.serial))
}
