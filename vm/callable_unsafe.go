package vm

import "unsafe"

// A Go func value is a pointer to a funcval whose first word is the
// function's entry PC. entryAddr and asCallable use that layout in
// opposite directions: one reads the PC out of a real Go function, the
// other builds a fake funcval pointing at a PC we own.
type funcval struct {
	entry uintptr
}

// entryAddr returns f's machine code entry point.
func entryAddr(f func()) uintptr {
	return (*(**funcval)(unsafe.Pointer(&f))).entry
}

// asCallable turns the first byte of code into a callable func() by
// constructing a funcval that points at it. code must outlive every call
// through the returned value and must not be moved — the Brainfuck RWX
// mapping never moves once allocated.
func asCallable(code []byte) func() {
	fv := &funcval{entry: uintptr(unsafe.Pointer(&code[0]))}
	return *(*func())(unsafe.Pointer(&fv))
}
