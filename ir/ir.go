// Package ir builds and optimizes the intermediate representation the
// emitter compiles from.
package ir

import (
	"fmt"

	"github.com/Urethramancer/bfjit/brainfuck"
)

// Link is an index into an IrCode's backing slice, or NoLink at the end
// of a chain. Optimization rewires links rather than deleting nodes, so
// fused-away nodes stay in the slice but become unreachable.
type Link = int

// NoLink marks the end of a chain.
const NoLink Link = -1

// Kind identifies which of IrOp's fields are meaningful.
type Kind int

const (
	Noop Kind = iota
	Right
	Left
	Add
	Sub
	SetIndirect
	MulCopy
	Write
	Read
	JumpIfZero
	JumpIfNotZero
)

func (k Kind) String() string {
	switch k {
	case Noop:
		return "Noop"
	case Right:
		return "Right"
	case Left:
		return "Left"
	case Add:
		return "Add"
	case Sub:
		return "Sub"
	case SetIndirect:
		return "SetIndirect"
	case MulCopy:
		return "MulCopy"
	case Write:
		return "Write"
	case Read:
		return "Read"
	case JumpIfZero:
		return "JumpIfZero"
	case JumpIfNotZero:
		return "JumpIfNotZero"
	default:
		return "Unknown"
	}
}

// IrOp is one node in the program graph. Which fields apply depends on
// Kind:
//
//	Right, Left, Add, Sub, SetIndirect  -> Value
//	MulCopy                             -> Offset, Value (factor)
//	JumpIfZero                          -> Target (one past the matching ']')
//	JumpIfNotZero                       -> Target (the matching '[')
//	everything                          -> Next
type IrOp struct {
	Kind   Kind
	Next   Link
	Target Link
	Value  uint8
	Offset int8
}

// New builds the identity IR chain for program: one node per instruction,
// with JumpIfZero/JumpIfNotZero targets resolved to the instruction right
// after the matching bracket (forward) or the bracket itself (backward),
// matching the original source semantics exactly.
func New(program *brainfuck.Program) *IrCode {
	ops := make([]IrOp, len(program.Instructions))

	for idx, op := range program.Instructions {
		isLast := idx == len(program.Instructions)-1
		next := idx + 1
		if isLast {
			next = NoLink
		}

		switch op {
		case brainfuck.IncrementPtr:
			ops[idx] = IrOp{Kind: Right, Next: next, Value: 1}
		case brainfuck.DecrementPtr:
			ops[idx] = IrOp{Kind: Left, Next: next, Value: 1}
		case brainfuck.IncrementMemory:
			ops[idx] = IrOp{Kind: Add, Next: next, Value: 1}
		case brainfuck.DecrementMemory:
			ops[idx] = IrOp{Kind: Sub, Next: next, Value: 1}
		case brainfuck.ReadByte:
			ops[idx] = IrOp{Kind: Read, Next: next}
		case brainfuck.WriteByte:
			ops[idx] = IrOp{Kind: Write, Next: next}
		case brainfuck.JumpForward:
			ops[idx] = IrOp{Kind: JumpIfZero, Next: next, Target: program.FindMatchingJumpEnd(idx) + 1}
		case brainfuck.JumpBackward:
			ops[idx] = IrOp{Kind: JumpIfNotZero, Next: next, Target: program.FindMatchingJumpStart(idx)}
		default:
			panic(fmt.Sprintf("unhandled brainfuck op %v", op))
		}
	}

	return &IrCode{ops: ops}
}

// IrCode is a graph of IrOp nodes threaded together by Next links,
// rooted at index 0.
type IrCode struct {
	ops []IrOp
}

// Ops exposes the backing slice, including nodes unreachable after
// optimization. Used by the emitter's label-rewrite pass and by irdump.
func (c *IrCode) Ops() []IrOp { return c.ops }

// At returns the node at idx, panicking if idx is out of range — an
// out-of-range index means the caller handed us a corrupt link, which is
// a programmer error, not a recoverable one.
func (c *IrCode) At(idx int) IrOp {
	if idx < 0 || idx >= len(c.ops) {
		panic(fmt.Sprintf("ir: link %d out of range (len %d)", idx, len(c.ops)))
	}
	return c.ops[idx]
}

// Len walks the live chain from index 0 and counts its nodes. O(n).
func (c *IrCode) Len() int {
	idx := 0
	n := 0
	for {
		n++
		cur := c.At(idx)
		if cur.Next == NoLink {
			return n
		}
		idx = cur.Next
	}
}

// Iter walks the live chain from index 0, yielding each node in order.
func (c *IrCode) Iter(yield func(IrOp) bool) {
	idx := 0
	for idx != NoLink {
		if idx >= len(c.ops) {
			return
		}
		cur := c.ops[idx]
		if !yield(cur) {
			return
		}
		idx = cur.Next
	}
}
