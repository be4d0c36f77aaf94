// Package irdump renders an IrCode's live chain as text, for the CLI's
// --dump-ir flag.
package irdump

import (
	"fmt"
	"strings"

	"github.com/Urethramancer/bfjit/ir"
)

// Dump walks code's live chain in order and returns one line per node.
func Dump(code *ir.IrCode) string {
	var b strings.Builder
	b.WriteString("IrCode {\n")
	for op := range code.Iter {
		fmt.Fprintf(&b, "\t%s\n", describe(op))
	}
	b.WriteString("}\n")
	return b.String()
}

func describe(op ir.IrOp) string {
	switch op.Kind {
	case ir.Right, ir.Left, ir.Add, ir.Sub, ir.SetIndirect:
		return fmt.Sprintf("%s(%d)", op.Kind, op.Value)
	case ir.MulCopy:
		return fmt.Sprintf("MulCopy(offset=%d, factor=%d)", op.Offset, op.Value)
	case ir.JumpIfZero, ir.JumpIfNotZero:
		return fmt.Sprintf("%s(target=%d)", op.Kind, op.Target)
	default:
		return op.Kind.String()
	}
}
