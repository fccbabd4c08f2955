// bropt - an optimizing Brainfuck interpreter
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/bropt/compiler"
	"github.com/chazu/bropt/manifest"
	"github.com/chazu/bropt/vm"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("bropt")

func main() {
	length := flag.Int("length", 0, "Number of cells in the memory tape (default 65536)")
	flush := flag.Bool("flush", false, "Flush stdout after each output instruction")
	verbose := flag.Bool("v", false, "Verbose output")
	dump := flag.Bool("dump", false, "Print the compiled program instead of running it")
	noCache := flag.Bool("no-cache", false, "Bypass the program cache")
	outFile := flag.String("o", "", "Write the compiled program to a file instead of running it")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bropt [options] FILE\n\n")
		fmt.Fprintf(os.Stderr, "Compiles and runs a Brainfuck program. A FILE ending in .bfc is a\n")
		fmt.Fprintf(os.Stderr, "precompiled program and runs without recompilation.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  bropt mandelbrot.b             # Compile and run\n")
		fmt.Fprintf(os.Stderr, "  bropt -length 30000 prog.b     # Smaller tape\n")
		fmt.Fprintf(os.Stderr, "  bropt -dump prog.b             # Show the optimized instruction stream\n")
		fmt.Fprintf(os.Stderr, "  bropt -o prog.bfc prog.b       # Precompile\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	file := flag.Arg(0)

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	// Manifest values apply where flags are unset.
	m, err := manifest.FindAndLoad(filepath.Dir(file))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		m = manifest.Default()
	} else {
		log.Debugf("loaded manifest from %s", m.Dir)
	}
	tapeLength := m.Tape.Length
	if *length > 0 {
		tapeLength = *length
	}
	flushOutput := m.Output.Flush || *flush

	prog, err := loadProgram(file, m, *noCache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Infof("program: %d instructions, headroom %d", prog.Len(), prog.Headroom())

	if *dump {
		fmt.Print(prog.Disassemble())
		os.Exit(0)
	}

	if *outFile != "" {
		data, err := vm.MarshalProgram(prog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*outFile, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		log.Infof("wrote %d bytes to %s", len(data), *outFile)
		os.Exit(0)
	}

	engine := vm.NewEngine(prog, tapeLength, os.Stdin, os.Stdout, flushOutput)
	if err := engine.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadProgram produces an encoded program for the given file: directly
// for precompiled .bfc files, via the cache when enabled, compiling
// from source otherwise.
func loadProgram(file string, m *manifest.Manifest, noCache bool) (*vm.Program, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", file, err)
	}

	if strings.HasSuffix(file, ".bfc") {
		return vm.UnmarshalProgram(src)
	}

	if m.Cache.Enabled && !noCache {
		return compileCached(file, src, m.Cache.Path)
	}
	return compiler.Compile(src)
}

// compileCached consults the program store before compiling and
// records a fresh compile for next time. Cache failures degrade to a
// plain compile rather than failing the run.
func compileCached(file string, src []byte, cachePath string) (*vm.Program, error) {
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		log.Warningf("cannot create cache directory: %v", err)
		return compiler.Compile(src)
	}
	store, err := vm.OpenProgramStore(cachePath)
	if err != nil {
		log.Warningf("cannot open program cache: %v", err)
		return compiler.Compile(src)
	}
	defer store.Close()

	hash := vm.HashSource(src)
	prog, err := store.Get(hash)
	if err == nil {
		log.Debugf("cache hit for %s", file)
		return prog, nil
	}
	if !errors.Is(err, vm.ErrProgramNotFound) {
		log.Warningf("program cache read failed: %v", err)
	}

	prog, err = compiler.Compile(src)
	if err != nil {
		return nil, err
	}
	if err := store.Put(hash, filepath.Base(file), prog); err != nil {
		log.Warningf("program cache write failed: %v", err)
	}
	return prog, nil
}
