// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/duplex"
	"code.hybscloud.com/kont"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// execExpr drives a program to completion on pe via Step+Advance loop.
// Retries on iox.ErrWouldBlock (peer not ready yet).
// Used by stepping tests to exercise the non-blocking path.
func execExpr[R any](pe *duplex.Peer, program kont.Expr[R]) R {
	result, susp := duplex.Step[R](program)
	for susp != nil {
		var err error
		result, susp, err = duplex.Advance(pe, susp)
		if err != nil {
			continue
		}
	}
	return result
}

// mustViolate runs f and fails unless it panics with a *duplex.Violation
// wrapping target. It returns the violation for further inspection.
func mustViolate(t *testing.T, target error, f func()) (v *duplex.Violation) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic wrapping %v", target)
		}
		var ok bool
		if v, ok = r.(*duplex.Violation); !ok {
			t.Fatalf("panic value %T(%v), want *duplex.Violation", r, r)
		}
		if !errors.Is(v, target) {
			t.Fatalf("violation %v does not wrap %v", v, target)
		}
	}()
	f()
	return nil
}

// observeLogs routes the global zap logger into an in-memory observer
// for the rest of the test.
func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	undo := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(undo)
	return logs
}
