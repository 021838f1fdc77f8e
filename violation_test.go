// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex_test

import (
	"errors"
	"strings"
	"testing"

	"code.hybscloud.com/duplex"
	"code.hybscloud.com/kont"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// advanceOnce steps program and dispatches its first effect on pe.
func advanceOnce[R any](pe *duplex.Peer, program kont.Expr[R]) {
	_, susp := duplex.Step[R](program)
	duplex.Advance(pe, susp)
}

func TestViolationWrongOperation(t *testing.T) {
	a, _ := duplex.NewPeers(duplex.SendOf[int](duplex.End()))
	v := mustViolate(t, duplex.ErrProtocol, func() {
		advanceOnce(a, duplex.ExprRecvBind(func(n int) kont.Expr[int] {
			return duplex.ExprCloseDone(n)
		}))
	})
	if v.Op != "Recv" {
		t.Fatalf("op got %q, want Recv", v.Op)
	}
	if v.State != "!int.end" {
		t.Fatalf("state got %q, want !int.end", v.State)
	}
	if v.Serial != a.Serial() {
		t.Fatalf("serial got %d, want %d", v.Serial, a.Serial())
	}
}

func TestViolationPayloadMismatch(t *testing.T) {
	a, b := duplex.NewPeers(duplex.SendOf[int](duplex.End()))
	mustViolate(t, duplex.ErrPayload, func() {
		advanceOnce(a, duplex.ExprSendThen("forty-two", duplex.ExprCloseDone(struct{}{})))
	})
	mustViolate(t, duplex.ErrPayload, func() {
		advanceOnce(b, duplex.ExprRecvBind(func(s string) kont.Expr[string] {
			return duplex.ExprCloseDone(s)
		}))
	})
}

func TestViolationSelectOnOffer(t *testing.T) {
	a, _ := duplex.NewPeers(duplex.OfferOf(duplex.End(), duplex.End()))
	mustViolate(t, duplex.ErrProtocol, func() {
		advanceOnce(a, duplex.ExprSelectLThen(duplex.ExprCloseDone(struct{}{})))
	})
	mustViolate(t, duplex.ErrProtocol, func() {
		advanceOnce(a, duplex.ExprSelectRThen(duplex.ExprCloseDone(struct{}{})))
	})
}

func TestViolationCloseTooEarly(t *testing.T) {
	a, _ := duplex.NewPeers(duplex.SendOf[int](duplex.End()))
	mustViolate(t, duplex.ErrProtocol, func() {
		advanceOnce(a, duplex.ExprCloseDone(struct{}{}))
	})
}

func TestViolationAfterClose(t *testing.T) {
	a, _ := duplex.NewPeers(duplex.End())
	execExpr(a, duplex.ExprCloseDone(struct{}{}))

	v := mustViolate(t, duplex.ErrProtocol, func() {
		advanceOnce(a, duplex.ExprSendThen(1, duplex.ExprCloseDone(struct{}{})))
	})
	if !strings.Contains(v.Error(), "after Close") {
		t.Fatalf("error %q does not mention Close", v.Error())
	}
	if v.State != "closed" {
		t.Fatalf("state got %q, want closed", v.State)
	}
}

func TestViolationCheckedBeforeTransport(t *testing.T) {
	// A rejected operation leaves both state and queue untouched.
	a, b := duplex.NewPeers(duplex.SendOf[int](duplex.End()))
	mustViolate(t, duplex.ErrPayload, func() {
		advanceOnce(a, duplex.ExprSendThen(int64(1), duplex.ExprCloseDone(struct{}{})))
	})
	if a.State().Kind() != duplex.KindSend {
		t.Fatalf("state got %s, want !int.end", a.State())
	}
	_, susp := duplex.Step[int](duplex.ExprRecvBind(func(n int) kont.Expr[int] {
		return duplex.ExprCloseDone(n)
	}))
	if _, _, err := duplex.Advance(b, susp); err == nil {
		t.Fatal("rejected value reached the peer")
	}
}

func TestViolationError(t *testing.T) {
	v := &duplex.Violation{Op: "Send", Serial: 7, State: "?int.end", Err: duplex.ErrProtocol}
	want := "duplex: operation not permitted by protocol state (op Send, session 7, state ?int.end)"
	if got := v.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(v, duplex.ErrProtocol) {
		t.Fatal("violation does not unwrap to its sentinel")
	}
	v.State = ""
	want = "duplex: operation not permitted by protocol state (op Send, session 7)"
	if got := v.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestViolationLogged(t *testing.T) {
	logs := observeLogs(t)
	a, _ := duplex.NewPeers(duplex.RecvOf[int](duplex.End()))
	mustViolate(t, duplex.ErrProtocol, func() {
		advanceOnce(a, duplex.ExprSendThen(1, duplex.ExprCloseDone(struct{}{})))
	})

	entries := logs.FilterMessage("protocol violation").AllUntimed()
	if len(entries) != 1 {
		t.Fatalf("logged %d violations, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.ErrorLevel {
		t.Fatalf("level got %v, want error", e.Level)
	}
	if e.LoggerName != "duplex" {
		t.Fatalf("logger got %q, want duplex", e.LoggerName)
	}
	fields := e.ContextMap()
	if fields["op"] != "Send" {
		t.Fatalf("op field got %v, want Send", fields["op"])
	}
	if fields["state"] != "?int.end" {
		t.Fatalf("state field got %v, want ?int.end", fields["state"])
	}
}

func TestSessionLifecycleLogged(t *testing.T) {
	skipRace(t)
	logs := observeLogs(t)

	var serial duplex.Serial
	duplex.Create(func(c duplex.Close) {
		serial = c.Serial()
		c.Close()
	}, func(c duplex.Close) {
		c.Close()
	})

	for _, msg := range []string{"session created", "session finished"} {
		entries := logs.FilterMessage(msg).FilterField(zap.Uint32("serial", serial)).AllUntimed()
		if len(entries) != 1 {
			t.Fatalf("%q logged %d times, want 1", msg, len(entries))
		}
	}
	if n := logs.FilterMessage("endpoint closed").Len(); n != 2 {
		t.Fatalf("endpoint closed logged %d times, want 2", n)
	}
}

func TestRecvNilInterfacePayload(t *testing.T) {
	skipRace(t)
	p := duplex.SendOf[error](duplex.SendOf[any](duplex.End()))
	sender := duplex.SendThen[error](nil, duplex.SendThen[any](nil, duplex.CloseDone(struct{}{})))
	receiver := duplex.RecvBind(func(err error) kont.Eff[[2]any] {
		return duplex.RecvBind(func(v any) kont.Eff[[2]any] {
			return duplex.CloseDone([2]any{err, v})
		})
	})
	_, got := duplex.Run[struct{}, [2]any](p, sender, receiver)
	if got != [2]any{} {
		t.Fatalf("got %v, want two nil values", got)
	}
}

func TestExecUnclosedPanics(t *testing.T) {
	a, b := duplex.NewPeers(duplex.SendOf[int](duplex.End()))
	v := mustViolate(t, duplex.ErrProtocol, func() {
		duplex.Exec(a, duplex.SendThen(1, kont.Pure(struct{}{})))
	})
	if v.Op != "Exec" || v.State != "end" {
		t.Fatalf("violation got op %q state %q, want Exec at end", v.Op, v.State)
	}

	var got int
	v = mustViolate(t, duplex.ErrProtocol, func() {
		duplex.ExecExpr(b, duplex.ExprRecvBind(func(n int) kont.Expr[int] {
			got = n
			return kont.ExprReturn(n)
		}))
	})
	if got != 1 {
		t.Fatalf("received %d, want 1", got)
	}
	if !strings.Contains(v.Error(), "party b returned without Close") {
		t.Fatalf("violation %q does not name party b", v)
	}
}

func TestExecStopsMidProtocolPanics(t *testing.T) {
	a, _ := duplex.NewPeers(duplex.SendOf[int](duplex.End()))
	v := mustViolate(t, duplex.ErrProtocol, func() {
		duplex.Exec(a, kont.Pure(0))
	})
	if v.State != "!int.end" {
		t.Fatalf("state got %q, want !int.end", v.State)
	}
}

func TestRunUnclosedPanics(t *testing.T) {
	skipRace(t)
	p := duplex.SendOf[int](duplex.End())
	v := mustViolate(t, duplex.ErrProtocol, func() {
		duplex.Run[struct{}, int](p,
			duplex.SendThen(1, kont.Pure(struct{}{})),
			duplex.RecvBind(func(n int) kont.Eff[int] {
				return duplex.CloseDone(n)
			}),
		)
	})
	if v.Op != "Run" || !strings.Contains(v.Error(), "party a") {
		t.Fatalf("violation %q, want Run naming party a", v)
	}

	mustViolate(t, duplex.ErrProtocol, func() {
		duplex.RunExpr[struct{}, struct{}](duplex.End(),
			duplex.ExprCloseDone(struct{}{}),
			kont.ExprReturn(struct{}{}),
		)
	})
}
