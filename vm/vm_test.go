package vm

import (
	"bytes"
	"io"
	"os"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/Urethramancer/bfjit/brainfuck"
	"github.com/Urethramancer/bfjit/ir"
)

// runCapturingStdout compiles and runs src with fd 1 dup2'd to a pipe,
// since the JIT's callback writes with a raw syscall against fd 1
// rather than through os.Stdout.
func runCapturingStdout(t *testing.T, src string) []byte {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()

	savedStdout, err := unix.Dup(1)
	if err != nil {
		t.Fatalf("dup: %v", err)
	}
	if err := unix.Dup2(int(w.Fd()), 1); err != nil {
		t.Fatalf("dup2: %v", err)
	}

	code := ir.New(brainfuck.FromString(src))
	code.Optimize()
	bf, err := Compile(code, Std())
	if err != nil {
		w.Close()
		unix.Dup2(savedStdout, 1)
		t.Fatalf("compile: %v", err)
	}

	bf.Execute()

	w.Close()
	unix.Dup2(savedStdout, 1)
	unix.Close(savedStdout)

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read captured stdout: %v", err)
	}
	if err := bf.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return out
}

func TestCompileAndExecuteWritesByte(t *testing.T) {
	got := runCapturingStdout(t, "++++++++[>++++++++<-]>+.")
	want := []byte{65} // 8*8+1 = 65 = 'A'
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// This program's inner loop is a MulCopy transfer: cell 0 (8) is drained
// into cell 1 at a factor of 7, landing on 56 -- the ASCII digit '8'.
func TestCompileAndExecuteMulCopyLoop(t *testing.T) {
	got := runCapturingStdout(t, "++++++++[->+++++++<]>.")
	want := []byte("8")
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCompileAndExecuteReadsByte(t *testing.T) {
	code := ir.New(brainfuck.FromString(",."))
	code.Optimize()
	bf, err := Compile(code, Std())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer bf.Close()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	if _, err := w.Write([]byte{'Z'}); err != nil {
		t.Fatalf("write stdin: %v", err)
	}
	w.Close()

	savedStdin, err := unix.Dup(0)
	if err != nil {
		t.Fatalf("dup: %v", err)
	}
	if err := unix.Dup2(int(r.Fd()), 0); err != nil {
		t.Fatalf("dup2: %v", err)
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer outR.Close()
	savedStdout, err := unix.Dup(1)
	if err != nil {
		t.Fatalf("dup: %v", err)
	}
	if err := unix.Dup2(int(outW.Fd()), 1); err != nil {
		t.Fatalf("dup2: %v", err)
	}

	bf.Execute()

	outW.Close()
	unix.Dup2(savedStdout, 1)
	unix.Close(savedStdout)
	unix.Dup2(savedStdin, 0)
	unix.Close(savedStdin)

	out, err := io.ReadAll(outR)
	if err != nil {
		t.Fatalf("read captured stdout: %v", err)
	}
	if !bytes.Equal(out, []byte{'Z'}) {
		t.Fatalf("got %q, want %q", out, []byte{'Z'})
	}
}
