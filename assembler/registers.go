// Package assembler encodes x86-64 machine code directly into a fixed
// byte buffer using the MS x64 calling convention, with a two-pass label
// scheme for forward branches.
package assembler

// Register is a 64-bit general-purpose x86-64 register.
type Register uint8

const (
	RAX Register = 0
	RCX Register = 1
	RDX Register = 2
	RBX Register = 3
	RSP Register = 4
	RBP Register = 5
	RSI Register = 6
	RDI Register = 7
	R8  Register = 8
	R9  Register = 9
	R10 Register = 10
	R11 Register = 11
	R12 Register = 12
	R13 Register = 13
	R14 Register = 14
	R15 Register = 15
)

// IsExtended reports whether reg needs a REX extension bit to encode
// (R8-R15).
func (reg Register) IsExtended() bool {
	return reg > 7
}

// Bits returns the 3-bit field value used in ModRM/opcode encodings —
// the REX extension bit supplies the missing high bit for R8-R15.
func (reg Register) Bits() byte {
	return byte(reg) & 7
}

// rex is a REX prefix byte, built up from the flag bits below.
type rex byte

const (
	rexBase rex = 0b0100_0000
	rexB    rex = rexBase | 0b0001 // extends ModRM.rm / SIB.base / opcode reg
	rexX    rex = rexBase | 0b0010 // extends SIB.index
	rexR    rex = rexBase | 0b0100 // extends ModRM.reg
	rexW    rex = rexBase | 0b1000 // 64-bit operand size
)

func (r rex) with(other rex) rex {
	return r | (other &^ rexBase) | rexBase
}
