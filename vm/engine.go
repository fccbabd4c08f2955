package vm

import (
	"bufio"
	"fmt"
	"io"
)

// ---------------------------------------------------------------------------
// RuntimeFault
// ---------------------------------------------------------------------------

// RuntimeFault reports a tape access outside [0, length). The run
// aborts immediately; the tape has no transactional semantics, so no
// rollback is attempted.
type RuntimeFault struct {
	IP   int // index of the faulting instruction
	Cell int // out-of-range tape index
}

func (f *RuntimeFault) Error() string {
	return fmt.Sprintf("tape index %d out of range at instruction %d", f.Cell, f.IP)
}

// ---------------------------------------------------------------------------
// Engine: tape-based execution engine
// ---------------------------------------------------------------------------

// DefaultTapeLength is the tape size used when the caller does not
// override it.
const DefaultTapeLength = 65536

// Engine executes an encoded program over a fixed-length tape of byte
// cells. Each engine owns its tape, pointer, and instruction index
// exclusively; concurrent runs need one engine each and no further
// synchronization.
type Engine struct {
	prog  *Program
	tape  []byte
	dp    int
	in    *bufio.Reader
	out   *bufio.Writer
	flush bool
}

// NewEngine creates an engine with a zeroed tape of the given length
// (DefaultTapeLength if length <= 0). The pointer starts at the
// program's headroom index so multiply targets left of the starting
// cell stay in range. When flush is set the output sink is flushed
// after every emitted byte.
func NewEngine(prog *Program, length int, in io.Reader, out io.Writer, flush bool) *Engine {
	if length <= 0 {
		length = DefaultTapeLength
	}
	return &Engine{
		prog:  prog,
		tape:  make([]byte, length),
		dp:    prog.Headroom(),
		in:    bufio.NewReader(in),
		out:   bufio.NewWriter(out),
		flush: flush,
	}
}

// Pointer returns the current tape pointer.
func (e *Engine) Pointer() int {
	return e.dp
}

// Peek returns the cell at index i.
func (e *Engine) Peek(i int) byte {
	return e.tape[i]
}

// Poke stores v into the cell at index i. Intended for tests and
// inspection; programs mutate the tape only through instructions.
func (e *Engine) Poke(i int, v byte) {
	e.tape[i] = v
}

// Run dispatches encoded instructions until the stream is exhausted.
// Cell arithmetic wraps modulo 256. A pointer moved outside the tape
// aborts with a *RuntimeFault. Buffered output is flushed before
// returning.
func (e *Engine) Run() error {
	code := e.prog.Code
	tape := e.tape
	dp := e.dp

	// A tape shorter than the program's headroom puts the starting
	// pointer out of range before the first instruction.
	if dp >= len(tape) {
		return &RuntimeFault{IP: 0, Cell: dp}
	}

	fault := func(ip, cell int) error {
		e.dp = dp
		e.out.Flush()
		return &RuntimeFault{IP: ip, Cell: cell}
	}

	for ip := 0; ip < len(code); ip++ {
		in := &code[ip]

		switch in.Op {
		case OpShiftInc:
			dp += int(in.Arg)
			if dp < 0 || dp >= len(tape) {
				return fault(ip, dp)
			}
			tape[dp] += in.Inc
			dp += int(in.Delta)
			if dp < 0 || dp >= len(tape) {
				return fault(ip, dp)
			}

		case OpOutput:
			dp += int(in.Arg)
			if dp < 0 || dp >= len(tape) {
				return fault(ip, dp)
			}
			e.out.WriteByte(tape[dp])
			if e.flush {
				if err := e.out.Flush(); err != nil {
					e.dp = dp
					return fmt.Errorf("engine: write output: %w", err)
				}
			}
			tape[dp] += in.Inc
			dp += int(in.Delta)
			if dp < 0 || dp >= len(tape) {
				return fault(ip, dp)
			}

		case OpInput:
			dp += int(in.Arg)
			if dp < 0 || dp >= len(tape) {
				return fault(ip, dp)
			}
			if b, err := e.in.ReadByte(); err == nil {
				tape[dp] = b
			}
			// End of input leaves the cell unchanged.
			tape[dp] += in.Inc
			dp += int(in.Delta)
			if dp < 0 || dp >= len(tape) {
				return fault(ip, dp)
			}

		case OpSet:
			dp += int(in.Arg)
			if dp < 0 || dp >= len(tape) {
				return fault(ip, dp)
			}
			tape[dp] = in.Inc
			dp += int(in.Delta)
			if dp < 0 || dp >= len(tape) {
				return fault(ip, dp)
			}

		case OpMul:
			if tape[dp] != 0 {
				pos := dp + int(in.Arg)
				if pos < 0 || pos >= len(tape) {
					return fault(ip, pos)
				}
				tape[pos] += tape[dp] * in.Inc
			}

		case OpMulZero:
			if tape[dp] != 0 {
				pos := dp + int(in.Arg)
				if pos < 0 || pos >= len(tape) {
					return fault(ip, pos)
				}
				tape[pos] += tape[dp] * in.Inc
				tape[dp] = 0
			}
			dp += int(in.Delta)
			if dp < 0 || dp >= len(tape) {
				return fault(ip, dp)
			}

		case OpSeek:
			for tape[dp] != 0 {
				dp += int(in.Arg)
				if dp < 0 || dp >= len(tape) {
					return fault(ip, dp)
				}
			}
			dp += int(in.Delta)
			if dp < 0 || dp >= len(tape) {
				return fault(ip, dp)
			}
			tape[dp] += in.Inc

		case OpSkip:
			for tape[dp] != 0 {
				pos := dp + int(in.Delta)
				if pos < 0 || pos >= len(tape) {
					return fault(ip, pos)
				}
				tape[pos] += in.Inc
				dp += int(in.Arg)
				if dp < 0 || dp >= len(tape) {
					return fault(ip, dp)
				}
			}

		case OpOpen:
			if tape[dp] == 0 {
				ip = int(in.Arg)
			} else {
				tape[dp] += in.Inc
				dp += int(in.Delta)
				if dp < 0 || dp >= len(tape) {
					return fault(ip, dp)
				}
			}

		case OpClose:
			if tape[dp] != 0 {
				ip = int(in.Arg)
				tape[dp] += in.Inc
				dp += int(in.Delta)
				if dp < 0 || dp >= len(tape) {
					return fault(ip, dp)
				}
			}
		}
	}

	e.dp = dp
	if err := e.out.Flush(); err != nil {
		return fmt.Errorf("engine: flush output: %w", err)
	}
	return nil
}
