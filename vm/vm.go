// Package vm turns optimized IR into running machine code: it owns the
// RWX buffer, the Brainfuck tape, and the register bindings the emitted
// code relies on.
package vm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/Urethramancer/bfjit/assembler"
	"github.com/Urethramancer/bfjit/brainfuck"
	"github.com/Urethramancer/bfjit/ir"
)

const (
	putcharReg = assembler.R12
	getcharReg = assembler.R13
	ptrReg     = assembler.R14
)

// IoFn holds the raw entry points the compiled program calls back into
// for '.' and ','. Std returns the pair wired to the process's real
// stdin/stdout.
type IoFn struct {
	PutcharPtr uint64
	GetcharPtr uint64
}

// Std binds IoFn to the trampolines that do a raw write(2)/read(2)
// against stdout/stdin.
func Std() IoFn {
	return IoFn{
		PutcharPtr: uint64(entryAddr(putcharTrampoline)),
		GetcharPtr: uint64(entryAddr(getcharTrampoline)),
	}
}

// Brainfuck owns one compiled program: its RWX code page and its tape.
type Brainfuck struct {
	code   []byte
	tape   [brainfuck.MaxMemory]byte
	closed bool
}

func newBrainfuck(size int) (*Brainfuck, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("vm: mmap: %w", err)
	}
	for i := range mem {
		mem[i] = 0xCC // INT3, so a stray jump into padding traps instead of running garbage
	}
	return &Brainfuck{code: mem}, nil
}

// Compile emits code, a two-pass-resolved program reading/writing its
// own tape and calling io for '.' and ','.
func Compile(code *ir.IrCode, io IoFn) (*Brainfuck, error) {
	length := code.Len()
	bf, err := newBrainfuck(256 + length*16)
	if err != nil {
		return nil, err
	}

	a := assembler.New(bf.code)

	a.Push(assembler.RBX)
	a.Push(putcharReg)
	a.Push(getcharReg)
	a.Push(ptrReg)
	a.Sub(assembler.RSP, 168) // one-time shadow space for every Write/Read call site below

	a.Mov(putcharReg, io.PutcharPtr)
	a.Mov(getcharReg, io.GetcharPtr)
	a.Mov(ptrReg, tapeAddr(bf))

	var depth int
	var idStack [4096]int

	for op := range code.Iter {
		switch op.Kind {
		case ir.Noop:
			// nothing to emit
		case ir.Right:
			a.Add(ptrReg, uint32(op.Value))
		case ir.Left:
			a.Sub(ptrReg, uint32(op.Value))
		case ir.Add:
			a.AddIndirect(ptrReg, op.Value)
		case ir.Sub:
			a.SubIndirect(ptrReg, op.Value)
		case ir.SetIndirect:
			a.MovIndirect(ptrReg, op.Value)
		case ir.MulCopy:
			a.MovToReg(assembler.RAX, ptrReg)
			a.Mov(assembler.RBX, uint64(op.Value))
			a.Mul(assembler.RBX)
			a.MovToMemoryOffset(ptrReg, assembler.RAX, op.Offset)
		case ir.Write:
			a.MovToReg(assembler.RCX, ptrReg)
			a.Call(putcharReg)
		case ir.Read:
			a.Call(getcharReg)
			a.MovToMemory(ptrReg, assembler.RAX)
		case ir.JumpIfZero:
			depth++
			idStack[depth]++
			a.Label(fmt.Sprintf("[%d_%d", depth, idStack[depth]))
			a.CmpIndirect(ptrReg, 0)
			a.Je(0x00AABBCC)
		case ir.JumpIfNotZero:
			a.CmpIndirect(ptrReg, 0)
			a.JneLabel(fmt.Sprintf("[%d_%d", depth, idStack[depth]))
			a.Label(fmt.Sprintf("]%d_%d", depth, idStack[depth]))
			depth--
		}
	}

	a.Add(assembler.RSP, 168)
	a.Pop(ptrReg)
	a.Pop(getcharReg)
	a.Pop(putcharReg)
	a.Pop(assembler.RBX)
	a.Ret()

	resolveForwardJumps(a)

	if err := unix.Mprotect(bf.code, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return nil, fmt.Errorf("vm: mprotect: %w", err)
	}

	return bf, nil
}

// resolveForwardJumps is the compiler's second pass: every JumpIfZero
// recorded the start of its cmp+je pair under a "[depth_id" label before
// the matching JumpIfNotZero's position was known. Now that it is, seek
// back to each one and re-emit the full pair — not just patch the rel32
// — since the label marks the pair's first byte, not the placeholder's.
func resolveForwardJumps(a *assembler.Assembler) {
	type fix struct {
		close string
		addr  int
	}
	var fixes []fix
	for k, v := range a.Labels {
		if len(k) > 0 && k[0] == '[' {
			fixes = append(fixes, fix{close: "]" + k[1:], addr: v})
		}
	}

	for _, f := range fixes {
		a.Addr = f.addr
		a.CmpIndirect(ptrReg, 0)
		a.JeLabel(f.close)
	}
}

// tapeAddr returns the tape's base address. Safe only because the
// current garbage collector never relocates heap objects; a compacting
// GC would invalidate every compiled program holding this address.
func tapeAddr(bf *Brainfuck) uint64 {
	return uint64(uintptr(unsafe.Pointer(&bf.tape[0])))
}

// Execute calls the compiled page. It does not change the page's
// permissions itself: Compile already flipped it to PROT_READ|PROT_EXEC.
func (bf *Brainfuck) Execute() {
	asCallable(bf.code)()
}

// Close unmaps the code page. The tape is ordinary Go memory and is
// reclaimed normally.
func (bf *Brainfuck) Close() error {
	if bf.closed {
		return nil
	}
	bf.closed = true
	return unix.Munmap(bf.code)
}
