package compiler

import (
	"github.com/chazu/bropt/vm"
)

// ---------------------------------------------------------------------------
// Compile: full pipeline from source bytes to an encoded program
// ---------------------------------------------------------------------------

// Compile validates, optimizes, and encodes Brainfuck source. The
// returned program is ready for a vm.Engine; a *CompileError reports
// the first bracket mismatch with its source position.
func Compile(src []byte) (*vm.Program, error) {
	prims, err := Scan(src)
	if err != nil {
		return nil, err
	}
	prog := Lift(prims)
	prog = Optimize(prog)
	return Encode(prog), nil
}
