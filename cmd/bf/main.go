// Command bf compiles and runs a Brainfuck source file, either through
// the reference interpreter or through the optimizing x86-64 JIT.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/grimdork/climate"

	"github.com/Urethramancer/bfjit/brainfuck"
	"github.com/Urethramancer/bfjit/interpreter"
	"github.com/Urethramancer/bfjit/ir"
	"github.com/Urethramancer/bfjit/irdump"
	"github.com/Urethramancer/bfjit/vm"
)

// Config is the CLI's flag surface.
type Config struct {
	Source     string `flag:"source" usage:"path to a Brainfuck source file" arg:"1"`
	Mode       string `flag:"mode" default:"jit" usage:"interpret or jit"`
	NoOptimize bool   `flag:"no-optimize" usage:"skip the peephole optimizer"`
	DumpIR     bool   `flag:"dump-ir" usage:"print the IR chain to stderr before running"`
}

func main() {
	log.SetFlags(0)

	var cfg Config
	app := climate.New("bf", "compiles and runs Brainfuck programs")
	if err := app.Parse(&cfg, os.Args[1:]); err != nil {
		log.Fatalf("bf: %v", err)
	}
	if cfg.Source == "" {
		log.Fatalf("bf: missing source file")
	}

	src, err := os.ReadFile(cfg.Source)
	if err != nil {
		log.Fatalf("bf: %v", err)
	}
	program := brainfuck.FromString(string(src))

	switch cfg.Mode {
	case "interpret":
		runInterpreter(program)
	case "jit", "":
		runJIT(program, cfg)
	default:
		log.Fatalf("bf: unknown mode %q (want interpret or jit)", cfg.Mode)
	}
}

func runInterpreter(program *brainfuck.Program) {
	v := interpreter.New(program, os.Stdin, os.Stdout)
	start := time.Now()
	if err := v.Interpret(); err != nil {
		log.Fatalf("bf: %v", err)
	}
	log.Printf("interpreted in %s", time.Since(start))
}

func runJIT(program *brainfuck.Program, cfg Config) {
	code := ir.New(program)

	if !cfg.NoOptimize {
		start := time.Now()
		code.Optimize()
		log.Printf("optimized in %s", time.Since(start))
	}

	if cfg.DumpIR {
		fmt.Fprint(os.Stderr, irdump.Dump(code))
	}

	compileStart := time.Now()
	bf, err := vm.Compile(code, vm.Std())
	if err != nil {
		log.Fatalf("bf: %v", err)
	}
	defer bf.Close()
	log.Printf("compiled in %s", time.Since(compileStart))

	execStart := time.Now()
	bf.Execute()
	log.Printf("executed in %s", time.Since(execStart))
}
