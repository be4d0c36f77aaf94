package ir

import "math"

// findReplacement decides what node should live at currentIdx once its
// neighbors are inspected. Callers install the returned result at
// currentIdx themselves, which keeps optimizeOnce free to run the same
// lookup against the not-yet-rewritten slice. The one exception is
// findMulCopyReplacement, which also writes its companion SetIndirect
// node directly — folding six nodes into two needs a second slot, and
// there's nowhere else to put it.
func (c *IrCode) findReplacement(currentIdx int) IrOp {
	current := c.At(currentIdx)
	if current.Next == NoLink {
		return current
	}
	next := c.At(current.Next)
	subsequentLink := next.Next

	if subsequentLink != NoLink {
		subsequent := c.At(subsequentLink)
		if replacement, ok := clearLoopFusion(current, next, subsequent); ok {
			return replacement
		}
	}

	if replacement, ok := c.findMulCopyReplacement(currentIdx); ok {
		return replacement
	}

	return twoNodeFusion(current, next)
}

// findMulCopyReplacement recognizes the `[->+<]`-style transfer loop —
// decrement the current cell, step to an offset, add the same amount
// there, step back, until the current cell hits zero — and collapses
// it to a MulCopy reading the cell's value followed by a SetIndirect
// that zeroes it. MulCopy must read before SetIndirect clears, so the
// two replace the loop's first two nodes in that order: the JumpIfZero
// slot becomes MulCopy, and the Sub(1) slot right after it becomes the
// SetIndirect, its Next repointed past the loop.
func (c *IrCode) findMulCopyReplacement(currentIdx int) (IrOp, bool) {
	current := c.At(currentIdx)
	if current.Kind != JumpIfZero {
		return IrOp{}, false
	}

	subIdx := current.Next
	sub := c.At(subIdx)
	if sub.Kind != Sub || sub.Value != 1 || sub.Next == NoLink {
		return IrOp{}, false
	}

	move := c.At(sub.Next)
	if (move.Kind != Right && move.Kind != Left) || move.Next == NoLink {
		return IrOp{}, false
	}

	add := c.At(move.Next)
	if add.Kind != Add || add.Next == NoLink {
		return IrOp{}, false
	}

	back := c.At(add.Next)
	oppositeDirection := (move.Kind == Right && back.Kind == Left) || (move.Kind == Left && back.Kind == Right)
	if !oppositeDirection || back.Value != move.Value || back.Next == NoLink {
		return IrOp{}, false
	}

	closeNode := c.At(back.Next)
	if closeNode.Kind != JumpIfNotZero {
		return IrOp{}, false
	}

	offset := int8(move.Value)
	if move.Kind == Left {
		offset = -offset
	}

	c.ops[subIdx] = IrOp{Kind: SetIndirect, Next: closeNode.Next, Value: 0}
	return IrOp{Kind: MulCopy, Next: subIdx, Value: add.Value, Offset: offset}, true
}

// clearLoopFusion recognizes `[-]`/`[+]` — a loop that unconditionally
// zeroes the current cell — and collapses it to a single SetIndirect.
func clearLoopFusion(current, next, subsequent IrOp) (IrOp, bool) {
	if current.Kind != JumpIfZero || subsequent.Kind != JumpIfNotZero {
		return IrOp{}, false
	}
	if next.Value != 1 {
		return IrOp{}, false
	}
	if next.Kind != Sub && next.Kind != Add {
		return IrOp{}, false
	}
	return IrOp{Kind: SetIndirect, Next: subsequent.Next, Value: 0}, true
}

// twoNodeFusion merges adjacent pointer-move or arithmetic nodes. Where
// the original Brainfuck JIT this is grounded on collapsed Right/Left
// (and Add/Sub) pairs with plain unsigned subtraction — silently
// underflowing whenever the second operand exceeded the first — this
// picks the result kind by the sign of the true (signed) difference.
func twoNodeFusion(current, next IrOp) IrOp {
	far := next.Next

	switch {
	case current.Kind == Right && next.Kind == Right:
		return IrOp{Kind: Right, Next: far, Value: current.Value + next.Value}
	case current.Kind == Right && next.Kind == Left:
		return signedPointerFusion(current.Value, next.Value, far)
	case current.Kind == Left && next.Kind == Right:
		return signedPointerFusion(next.Value, current.Value, far)
	case current.Kind == Left && next.Kind == Left:
		return IrOp{Kind: Left, Next: far, Value: current.Value + next.Value}

	case current.Kind == Add && next.Kind == Add:
		return IrOp{Kind: Add, Next: far, Value: current.Value + next.Value}
	case current.Kind == Add && next.Kind == Sub:
		return signedArithFusion(current.Value, next.Value, far)
	case current.Kind == Sub && next.Kind == Add:
		return signedArithFusion(next.Value, current.Value, far)
	case current.Kind == Sub && next.Kind == Sub:
		return IrOp{Kind: Sub, Next: far, Value: current.Value + next.Value}

	case current.Kind == SetIndirect && next.Kind == Add:
		return IrOp{Kind: SetIndirect, Next: far, Value: current.Value + next.Value}
	case current.Kind == SetIndirect && next.Kind == Sub:
		return IrOp{Kind: SetIndirect, Next: far, Value: current.Value - next.Value}
	case (current.Kind == Add || current.Kind == Sub) && next.Kind == SetIndirect:
		return IrOp{Kind: SetIndirect, Next: far, Value: next.Value}
	case current.Kind == SetIndirect && next.Kind == SetIndirect:
		return IrOp{Kind: SetIndirect, Next: far, Value: next.Value}

	default:
		return current
	}
}

// signedPointerFusion resolves a Right(right)/Left(left) pair to a
// single Right or Left node carrying the signed net displacement.
func signedPointerFusion(right, left uint8, far Link) IrOp {
	diff := int(right) - int(left)
	if diff >= 0 {
		return IrOp{Kind: Right, Next: far, Value: uint8(diff)}
	}
	return IrOp{Kind: Left, Next: far, Value: uint8(-diff)}
}

// signedArithFusion resolves an Add(add)/Sub(sub) pair to a single Add
// or Sub node carrying the signed net delta.
func signedArithFusion(add, sub uint8, far Link) IrOp {
	diff := int(add) - int(sub)
	if diff >= 0 {
		return IrOp{Kind: Add, Next: far, Value: uint8(diff)}
	}
	return IrOp{Kind: Sub, Next: far, Value: uint8(-diff)}
}

// optimizeOnce applies findReplacement across the whole live chain and
// returns the number of nodes it visited.
func (c *IrCode) optimizeOnce() int {
	idx := 0
	length := 0

	for idx != math.MaxInt {
		replacement := c.findReplacement(idx)
		nextIdx := replacement.Next
		if nextIdx == NoLink {
			nextIdx = math.MaxInt
		}
		c.ops[idx] = replacement
		idx = nextIdx
		length++
	}

	return length
}

// Optimize runs the peephole passes to a fixed point: each pass can only
// shrink the live chain or leave it unchanged, so iteration stops the
// first time a pass fails to shrink it further.
func (c *IrCode) Optimize() {
	old := c.optimizeOnce()
	for {
		n := c.optimizeOnce()
		if n >= old {
			return
		}
		old = n
	}
}
