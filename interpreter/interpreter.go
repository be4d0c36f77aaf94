// Package interpreter is a tree-walking reference implementation used to
// check the optimizer and emitter against known-good output; it never
// touches the IR or the emitted machine code.
package interpreter

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Urethramancer/bfjit/brainfuck"
)

// Interpreter walks a brainfuck.Program directly, one instruction at a
// time, against a fixed-size tape.
type Interpreter struct {
	ProgramCounter int
	MemoryPointer  int
	Program        *brainfuck.Program
	Memory         [brainfuck.MaxMemory]byte

	input  *bufio.Reader
	output io.Writer
}

// New builds an Interpreter reading from in and writing to out.
func New(program *brainfuck.Program, in io.Reader, out io.Writer) *Interpreter {
	return &Interpreter{
		Program: program,
		input:   bufio.NewReader(in),
		output:  out,
	}
}

// MemoryAt returns the tape byte at address.
func (v *Interpreter) MemoryAt(address int) byte {
	return v.Memory[address]
}

// Interpret runs the program to completion.
func (v *Interpreter) Interpret() error {
	for v.ProgramCounter < len(v.Program.Instructions) {
		switch v.Program.Instructions[v.ProgramCounter] {
		case brainfuck.IncrementPtr:
			v.MemoryPointer++
		case brainfuck.DecrementPtr:
			v.MemoryPointer--
		case brainfuck.IncrementMemory:
			v.Memory[v.MemoryPointer]++
		case brainfuck.DecrementMemory:
			v.Memory[v.MemoryPointer]--
		case brainfuck.ReadByte:
			b, err := v.readByte()
			if err != nil {
				return fmt.Errorf("interpreter: read: %w", err)
			}
			v.Memory[v.MemoryPointer] = b
		case brainfuck.WriteByte:
			if err := v.writeByte(v.MemoryAt(v.MemoryPointer)); err != nil {
				return fmt.Errorf("interpreter: write: %w", err)
			}
		case brainfuck.JumpForward:
			v.jumpForward()
		case brainfuck.JumpBackward:
			v.jumpBackward()
		}
		v.ProgramCounter++
	}
	return nil
}

func (v *Interpreter) readByte() (byte, error) {
	return v.input.ReadByte()
}

func (v *Interpreter) writeByte(b byte) error {
	_, err := v.output.Write([]byte{b})
	return err
}

func (v *Interpreter) jumpForward() {
	if v.MemoryAt(v.MemoryPointer) == 0 {
		v.ProgramCounter = v.Program.FindMatchingJumpEnd(v.ProgramCounter)
	}
}

func (v *Interpreter) jumpBackward() {
	if v.MemoryAt(v.MemoryPointer) != 0 {
		// land one before the matching '[' so the outer loop's
		// ProgramCounter++ puts us back on it.
		v.ProgramCounter = v.Program.FindMatchingJumpStart(v.ProgramCounter) - 1
	}
}
