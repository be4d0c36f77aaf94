package assembler

// Assembler emits x86-64 machine code into a fixed-size buffer using a
// cursor (Addr), so a label's target bytes can be re-emitted in place
// once a forward branch's destination becomes known.
type Assembler struct {
	Data   []byte
	Addr   int
	Labels map[string]int
}

// New wraps data for emission starting at offset 0.
func New(data []byte) *Assembler {
	return &Assembler{Data: data, Labels: make(map[string]int)}
}

func (a *Assembler) put(value byte) {
	a.Data[a.Addr] = value
	a.Addr++
}

func (a *Assembler) imm32(imm uint32) {
	a.put(byte(imm))
	a.put(byte(imm >> 8))
	a.put(byte(imm >> 16))
	a.put(byte(imm >> 24))
}

func (a *Assembler) imm64(imm uint64) {
	a.put(byte(imm))
	a.put(byte(imm >> 8))
	a.put(byte(imm >> 16))
	a.put(byte(imm >> 24))
	a.put(byte(imm >> 32))
	a.put(byte(imm >> 40))
	a.put(byte(imm >> 48))
	a.put(byte(imm >> 56))
}

func (a *Assembler) modRM(regOpcode, mod, rm byte) {
	a.put((mod << 6) | (regOpcode << 3) | rm)
}

func (a *Assembler) sib(base, scale, index byte) {
	a.put((scale << 6) | (index << 3) | base)
}

// memOperand emits the ModRM (+SIB, +disp8) bytes addressing [base+disp]
// with regField in the ModRM.reg position. RSP/R12 need an explicit SIB
// byte as base (rm=100 is the SIB escape); RBP/R13 need a forced disp8
// of 0 since mod=00 with rm=101 means RIP-relative, not [rbp].
func (a *Assembler) memOperand(regField byte, base Register, disp int8) {
	baseBits := base.Bits()
	needsSIB := baseBits == 0b100
	needsDisp := disp != 0 || baseBits == 0b101

	mod := byte(0b00)
	if needsDisp {
		mod = 0b01
	}
	rm := baseBits
	if needsSIB {
		rm = 0b100
	}

	a.modRM(regField, mod, rm)
	if needsSIB {
		a.sib(baseBits, 0, 0b100)
	}
	if needsDisp {
		a.put(byte(disp))
	}
}

/* instructions */

// Mov loads a 64-bit immediate into reg (movabs).
func (a *Assembler) Mov(reg Register, imm uint64) {
	r := rexW
	if reg.IsExtended() {
		r = r.with(rexB)
	}
	a.put(byte(r))
	a.put(0xB8 + reg.Bits())
	a.imm64(imm)
}

// Add adds a 32-bit sign-extended immediate to reg.
func (a *Assembler) Add(reg Register, imm uint32) {
	r := rexW
	if reg.IsExtended() {
		r = r.with(rexB)
	}
	a.put(byte(r))
	a.put(0x81)
	a.modRM(0, 0b11, reg.Bits())
	a.imm32(imm)
}

// Sub subtracts a 32-bit sign-extended immediate from reg.
func (a *Assembler) Sub(reg Register, imm uint32) {
	r := rexW
	if reg.IsExtended() {
		r = r.with(rexB)
	}
	a.put(byte(r))
	a.put(0x81)
	a.modRM(5, 0b11, reg.Bits())
	a.imm32(imm)
}

func (a *Assembler) op80(opcodeExt byte, memory Register, imm byte) {
	if memory.IsExtended() {
		a.put(byte(rexB))
	}
	a.put(0x80)
	a.memOperand(opcodeExt, memory, 0)
	a.put(imm)
}

// AddIndirect adds imm to the byte at [memory].
func (a *Assembler) AddIndirect(memory Register, imm byte) { a.op80(0, memory, imm) }

// SubIndirect subtracts imm from the byte at [memory].
func (a *Assembler) SubIndirect(memory Register, imm byte) { a.op80(5, memory, imm) }

// CmpIndirect compares the byte at [memory] against imm.
func (a *Assembler) CmpIndirect(memory Register, imm byte) { a.op80(7, memory, imm) }

// MovIndirect stores an immediate byte directly into [memory].
func (a *Assembler) MovIndirect(memory Register, imm byte) {
	if memory.IsExtended() {
		a.put(byte(rexB))
	}
	a.put(0xC6)
	a.memOperand(0, memory, 0)
	a.put(imm)
}

// MovToReg zero-extends the byte at [fromMemory] into to (movzx).
func (a *Assembler) MovToReg(to Register, fromMemory Register) {
	r := rexW
	if fromMemory.IsExtended() {
		r = r.with(rexB)
	}
	if to.IsExtended() {
		r = r.with(rexR)
	}
	a.put(byte(r))
	a.put(0x0F)
	a.put(0xB6)
	a.memOperand(to.Bits(), fromMemory, 0)
}

// MovToMemory stores the low byte of fromReg into [toMemory].
func (a *Assembler) MovToMemory(toMemory, fromReg Register) {
	a.MovToMemoryOffset(toMemory, fromReg, 0)
}

// MovToMemoryOffset stores the low byte of fromReg into [toMemory+offset].
func (a *Assembler) MovToMemoryOffset(toMemory, fromReg Register, offset int8) {
	var r rex
	if toMemory.IsExtended() {
		r = r.with(rexB)
	}
	if fromReg.IsExtended() {
		r = r.with(rexR)
	}
	if r != 0 {
		a.put(byte(r))
	}
	a.put(0x88)
	a.memOperand(fromReg.Bits(), toMemory, offset)
}

// Mul does an unsigned 64-bit multiply of RAX by reg, leaving the low
// 64 bits of the result in RAX.
func (a *Assembler) Mul(reg Register) {
	r := rexW
	if reg.IsExtended() {
		r = r.with(rexB)
	}
	a.put(byte(r))
	a.put(0xF7)
	a.modRM(4, 0b11, reg.Bits())
}

// Je emits a near jump-if-equal with the given rel32 displacement.
func (a *Assembler) Je(relativeAddr int32) {
	a.put(0x0F)
	a.put(0x84)
	a.imm32(uint32(relativeAddr))
}

// Jne emits a near jump-if-not-equal with the given rel32 displacement.
func (a *Assembler) Jne(relativeAddr int32) {
	a.put(0x0F)
	a.put(0x85)
	a.imm32(uint32(relativeAddr))
}

// JeLabel emits `je label`, computing the rel32 displacement against the
// label's already-recorded address. The label must have been recorded
// with Label before this call.
func (a *Assembler) JeLabel(label string) {
	addr, ok := a.Labels[label]
	if !ok {
		panic("assembler: label does not exist: " + label)
	}
	a.Je(int32(addr) - (int32(a.Addr) + 6))
}

// JneLabel emits `jne label`, see JeLabel.
func (a *Assembler) JneLabel(label string) {
	addr, ok := a.Labels[label]
	if !ok {
		panic("assembler: label does not exist: " + label)
	}
	a.Jne(int32(addr) - (int32(a.Addr) + 6))
}

// Label records the current cursor position under name.
func (a *Assembler) Label(name string) {
	a.Labels[name] = a.Addr
}

// Call does an indirect call through reg.
func (a *Assembler) Call(reg Register) {
	if reg.IsExtended() {
		a.put(byte(rexB))
	}
	a.put(0xFF)
	a.modRM(2, 0b11, reg.Bits())
}

// Push pushes reg.
func (a *Assembler) Push(reg Register) {
	if reg.IsExtended() {
		a.put(byte(rexB))
	}
	a.put(0x50 + reg.Bits())
}

// Pop pops into reg.
func (a *Assembler) Pop(reg Register) {
	if reg.IsExtended() {
		a.put(byte(rexB))
	}
	a.put(0x58 + reg.Bits())
}

// Ret emits a near return.
func (a *Assembler) Ret() {
	a.put(0xC3)
}
