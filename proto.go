// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex

import (
	"reflect"
	"strconv"
	"strings"
)

// Kind identifies one of the five protocol combinators.
type Kind uint8

const (
	KindClose Kind = iota
	KindSend
	KindRecv
	KindChoose
	KindOffer

	// kindHole marks a Rec placeholder that has not been tied yet.
	kindHole
)

// String returns the combinator name.
func (k Kind) String() string {
	switch k {
	case KindClose:
		return "Close"
	case KindSend:
		return "Send"
	case KindRecv:
		return "Recv"
	case KindChoose:
		return "Choose"
	case KindOffer:
		return "Offer"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// node is one protocol state. Send/Recv use next only;
// Choose/Offer use next as the left branch and alt as the right branch.
// Nodes are immutable once constructed and may be shared or cyclic.
type node struct {
	kind    Kind
	payload reflect.Type
	next    *node
	alt     *node
}

// closeNode is shared by every Close descriptor.
var closeNode = &node{kind: KindClose}

// Proto is a runtime protocol descriptor: a directed state machine over
// the Close, Send, Recv, Choose and Offer combinators.
//
// Proto values are immutable and compare with Equal, not ==.
// The zero Proto is invalid.
type Proto struct {
	n *node
}

// End returns the terminal Close state.
func End() Proto {
	return Proto{closeNode}
}

// SendOf returns Send(T, next): send a T, then continue as next.
func SendOf[T any](next Proto) Proto {
	return Proto{&node{kind: KindSend, payload: reflect.TypeFor[T](), next: next.must()}}
}

// RecvOf returns Recv(T, next): receive a T, then continue as next.
func RecvOf[T any](next Proto) Proto {
	return Proto{&node{kind: KindRecv, payload: reflect.TypeFor[T](), next: next.must()}}
}

// ChooseOf returns Choose(left, right): this party picks the branch.
func ChooseOf(left, right Proto) Proto {
	return Proto{&node{kind: KindChoose, next: left.must(), alt: right.must()}}
}

// OfferOf returns Offer(left, right): the peer picks, this party reacts.
func OfferOf(left, right Proto) Proto {
	return Proto{&node{kind: KindOffer, next: left.must(), alt: right.must()}}
}

// Rec builds a recursive protocol. f receives a reference to the protocol
// being defined and must return a state that reaches it only through at
// least one combinator. self is a placeholder until Rec returns: it may
// be embedded but not dualized.
//
//	stream := duplex.Rec(func(self duplex.Proto) duplex.Proto {
//		return duplex.ChooseOf(duplex.SendOf[int](self), duplex.End())
//	})
func Rec(f func(self Proto) Proto) Proto {
	hole := &node{kind: kindHole}
	body := f(Proto{hole}).must()
	if body == hole || body.kind == kindHole {
		panic("duplex: unguarded recursion in Rec")
	}
	*hole = *body
	return Proto{hole}
}

func (p Proto) must() *node {
	if p.n == nil {
		panic("duplex: zero Proto")
	}
	return p.n
}

// IsZero reports whether p is the invalid zero descriptor.
func (p Proto) IsZero() bool { return p.n == nil }

// Kind returns the combinator of the current state.
func (p Proto) Kind() Kind { return p.must().kind }

// Payload returns the message type of a Send or Recv state, or nil.
func (p Proto) Payload() reflect.Type { return p.must().payload }

// Next returns the continuation of a Send or Recv state.
// For Choose and Offer it is the left branch.
func (p Proto) Next() Proto { return Proto{p.must().next} }

// Left returns the left branch of a Choose or Offer state.
func (p Proto) Left() Proto { return Proto{p.must().next} }

// Right returns the right branch of a Choose or Offer state.
func (p Proto) Right() Proto { return Proto{p.must().alt} }

// Dual returns the complementary protocol: Send and Recv swap, Choose and
// Offer swap, Close is self-dual. Dual is an involution up to Equal.
func (p Proto) Dual() Proto {
	return Proto{dualNode(p.must(), make(map[*node]*node))}
}

func dualNode(n *node, seen map[*node]*node) *node {
	switch n.kind {
	case KindClose:
		return n
	case kindHole:
		panic("duplex: unguarded recursion in Rec")
	}
	if d, ok := seen[n]; ok {
		return d
	}
	d := &node{payload: n.payload}
	seen[n] = d
	switch n.kind {
	case KindSend:
		d.kind = KindRecv
	case KindRecv:
		d.kind = KindSend
	case KindChoose:
		d.kind = KindOffer
	case KindOffer:
		d.kind = KindChoose
	}
	d.next = dualNode(n.next, seen)
	if n.alt != nil {
		d.alt = dualNode(n.alt, seen)
	}
	return d
}

// Equal reports whether p and q describe the same protocol.
// Recursive descriptors are compared up to unfolding.
func (p Proto) Equal(q Proto) bool {
	return equalNode(p.n, q.n, make(map[[2]*node]struct{}))
}

func equalNode(a, b *node, assumed map[[2]*node]struct{}) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	key := [2]*node{a, b}
	if _, ok := assumed[key]; ok {
		return true
	}
	assumed[key] = struct{}{}
	if a.kind != b.kind || a.payload != b.payload {
		return false
	}
	return equalNode(a.next, b.next, assumed) && equalNode(a.alt, b.alt, assumed)
}

// String renders p in the usual session-type notation:
// "!T." sends, "?T." receives, "+{l, r}" chooses, "&{l, r}" offers,
// "end" closes, and "rec tN.… tN" marks recursion.
//
//	!int.?int.end
func (p Proto) String() string {
	if p.n == nil {
		return "<zero>"
	}
	pr := printer{labels: make(map[*node]int), onPath: make(map[*node]bool)}
	pr.findLoops(p.n)
	pr.onPath = make(map[*node]bool)
	pr.write(p.n)
	return pr.b.String()
}

type printer struct {
	b      strings.Builder
	labels map[*node]int
	onPath map[*node]bool
	done   map[*node]bool
}

// findLoops labels every node that is reached again while still on the
// current path.
func (pr *printer) findLoops(n *node) {
	if n == nil || n.kind == KindClose {
		return
	}
	if pr.onPath[n] {
		if _, ok := pr.labels[n]; !ok {
			pr.labels[n] = len(pr.labels) + 1
		}
		return
	}
	if pr.done == nil {
		pr.done = make(map[*node]bool)
	}
	if pr.done[n] {
		return
	}
	pr.onPath[n] = true
	pr.findLoops(n.next)
	pr.findLoops(n.alt)
	pr.onPath[n] = false
	pr.done[n] = true
}

func (pr *printer) write(n *node) {
	label, looped := pr.labels[n]
	if looped && pr.onPath[n] {
		pr.b.WriteString("t")
		pr.b.WriteString(strconv.Itoa(label))
		return
	}
	if looped {
		pr.b.WriteString("rec t")
		pr.b.WriteString(strconv.Itoa(label))
		pr.b.WriteString(".")
	}
	pr.onPath[n] = true
	switch n.kind {
	case KindClose:
		pr.b.WriteString("end")
	case KindSend, KindRecv:
		if n.kind == KindSend {
			pr.b.WriteString("!")
		} else {
			pr.b.WriteString("?")
		}
		pr.b.WriteString(n.payload.String())
		pr.b.WriteString(".")
		pr.write(n.next)
	case KindChoose, KindOffer:
		if n.kind == KindChoose {
			pr.b.WriteString("+{")
		} else {
			pr.b.WriteString("&{")
		}
		pr.write(n.next)
		pr.b.WriteString(", ")
		pr.write(n.alt)
		pr.b.WriteString("}")
	default:
		pr.b.WriteString("?hole")
	}
	pr.onPath[n] = false
}
