package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single encoded instruction kind.
type Opcode byte

const (
	// OpShiftInc moves the pointer by Arg, adds Inc to the cell, then
	// moves the pointer by Delta.
	OpShiftInc Opcode = iota
	// OpOutput moves the pointer by Arg, emits the cell, adds Inc,
	// then moves the pointer by Delta.
	OpOutput
	// OpInput moves the pointer by Arg, reads one byte into the cell
	// (end of input leaves it unchanged), adds Inc, then moves the
	// pointer by Delta.
	OpInput
	// OpSet moves the pointer by Arg, stores Inc into the cell, then
	// moves the pointer by Delta.
	OpSet
	// OpMul adds cell*Inc into the cell at offset Arg when the current
	// cell is nonzero. The pointer does not move.
	OpMul
	// OpMulZero is OpMul followed by zeroing the current cell, then a
	// pointer move by Delta.
	OpMulZero
	// OpSeek advances the pointer by Arg until the cell is zero, then
	// moves by Delta and adds Inc to the final cell.
	OpSeek
	// OpSkip, while the cell is nonzero, adds Inc to the cell at
	// offset Delta and advances the pointer by Arg.
	OpSkip
	// OpOpen jumps to Arg (its matching OpClose) when the cell is
	// zero; otherwise adds Inc and moves by Delta before entering the
	// loop body.
	OpOpen
	// OpClose jumps back to Arg (its matching OpOpen) when the cell is
	// nonzero, re-applying Inc and Delta; otherwise falls through.
	OpClose
)

var opcodeNames = map[Opcode]string{
	OpShiftInc: "SHIFT_INC",
	OpOutput:   "OUTPUT",
	OpInput:    "INPUT",
	OpSet:      "SET",
	OpMul:      "MUL",
	OpMulZero:  "MUL_ZERO",
	OpSeek:     "SEEK",
	OpSkip:     "SKIP",
	OpOpen:     "OPEN",
	OpClose:    "CLOSE",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_%02X", byte(op))
}

// ---------------------------------------------------------------------------
// Encoded instructions
// ---------------------------------------------------------------------------

// Inst is one encoded instruction: an opcode plus the fused operands
// the engine needs. Arg doubles as a signed cell offset, a scan
// stride, or an absolute jump target depending on the opcode; Inc is a
// fused byte delta (or the stored value for OpSet, or the multiplier
// for OpMul/OpMulZero); Delta is a fused trailing pointer shift (or
// the delta cell offset for OpSkip). Instructions are fixed-size and
// stored in a flat slice so the instruction pointer is a plain index.
type Inst struct {
	Op    Opcode
	Arg   int32
	Inc   byte
	Delta int16
}

func (in Inst) String() string {
	return fmt.Sprintf("%s arg=%d inc=%d delta=%d", in.Op, in.Arg, in.Inc, in.Delta)
}

// Program is an immutable encoded instruction stream with all loop
// targets resolved to absolute indices. It is owned by the engine
// instance that runs it; the same Program may back several engines
// since nothing mutates it after Build.
type Program struct {
	Code []Inst
}

// Len returns the number of encoded instructions.
func (p *Program) Len() int {
	return len(p.Code)
}

// Headroom returns the largest back-reaching multiply offset in the
// program. An engine positions its pointer this many cells into the
// tape at start so that multiply targets to the left of the starting
// cell stay in range.
func (p *Program) Headroom() int {
	headroom := 0
	for _, in := range p.Code {
		switch in.Op {
		case OpMul, OpMulZero:
			if off := int(-in.Arg); off > headroom {
				headroom = off
			}
		}
	}
	return headroom
}

// Disassemble returns a line-per-instruction listing of the program.
func (p *Program) Disassemble() string {
	var sb strings.Builder
	for i, in := range p.Code {
		fmt.Fprintf(&sb, "%04d  %s", i, in.Op)
		switch in.Op {
		case OpOpen, OpClose:
			fmt.Fprintf(&sb, " -> %04d", in.Arg)
			if in.Inc != 0 || in.Delta != 0 {
				fmt.Fprintf(&sb, " inc=%d delta=%d", in.Inc, in.Delta)
			}
		case OpMul:
			fmt.Fprintf(&sb, " offset=%d factor=%d", in.Arg, in.Inc)
		case OpMulZero:
			fmt.Fprintf(&sb, " offset=%d factor=%d delta=%d", in.Arg, in.Inc, in.Delta)
		case OpSkip:
			fmt.Fprintf(&sb, " stride=%d inc=%d at=%d", in.Arg, in.Inc, in.Delta)
		case OpSeek:
			fmt.Fprintf(&sb, " stride=%d delta=%d inc=%d", in.Arg, in.Delta, in.Inc)
		default:
			fmt.Fprintf(&sb, " arg=%d inc=%d delta=%d", in.Arg, in.Inc, in.Delta)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// ProgramBuilder: helper for constructing encoded programs
// ---------------------------------------------------------------------------

// ProgramBuilder accumulates encoded instructions and resolves loop
// targets to absolute indices. Encoding is deterministic: identical
// input always yields an identical instruction stream.
type ProgramBuilder struct {
	code  []Inst
	opens []int // indices of unmatched OpOpen instructions
}

// NewProgramBuilder creates an empty builder.
func NewProgramBuilder() *ProgramBuilder {
	return &ProgramBuilder{
		code: make([]Inst, 0, 64),
	}
}

// Len returns the number of instructions emitted so far.
func (b *ProgramBuilder) Len() int {
	return len(b.code)
}

// Emit appends an instruction.
func (b *ProgramBuilder) Emit(op Opcode, arg int32, inc byte, delta int16) {
	b.code = append(b.code, Inst{Op: op, Arg: arg, Inc: inc, Delta: delta})
}

// Open appends an OpOpen with an unresolved target.
func (b *ProgramBuilder) Open(inc byte, delta int16) {
	b.opens = append(b.opens, len(b.code))
	b.code = append(b.code, Inst{Op: OpOpen, Inc: inc, Delta: delta})
}

// Close appends an OpClose and patches the matching OpOpen so both
// carry absolute jump targets.
func (b *ProgramBuilder) Close(inc byte, delta int16) {
	if len(b.opens) == 0 {
		panic("bytecode: Close without matching Open")
	}
	open := b.opens[len(b.opens)-1]
	b.opens = b.opens[:len(b.opens)-1]
	b.code[open].Arg = int32(len(b.code))
	b.code = append(b.code, Inst{Op: OpClose, Arg: int32(open), Inc: inc, Delta: delta})
}

// Build finalizes the program. It panics on unbalanced loops, which
// the validator has already ruled out for any scanned source.
func (b *ProgramBuilder) Build() *Program {
	if len(b.opens) != 0 {
		panic("bytecode: Build with unmatched Open")
	}
	return &Program{Code: b.code}
}
