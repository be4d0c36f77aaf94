package vm

// putcharTrampoline and getcharTrampoline are implemented in
// trampoline_amd64.s. They are only ever entered as raw code addresses
// embedded into JIT-compiled machine code (see entryAddr) — calling
// either of them as an ordinary Go function is meaningless, since
// neither honors Go's argument-passing convention.
func putcharTrampoline()
func getcharTrampoline()
