package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Primitive instructions for the Brainfuck scanner
// ---------------------------------------------------------------------------

// PrimType represents one of the eight primitive instructions.
type PrimType int

const (
	PrimIncCell   PrimType = iota // +
	PrimDecCell                   // -
	PrimMoveRight                 // >
	PrimMoveLeft                  // <
	PrimOutput                    // .
	PrimInput                     // ,
	PrimLoopStart                 // [
	PrimLoopEnd                   // ]
)

var primNames = map[PrimType]string{
	PrimIncCell:   "+",
	PrimDecCell:   "-",
	PrimMoveRight: ">",
	PrimMoveLeft:  "<",
	PrimOutput:    ".",
	PrimInput:     ",",
	PrimLoopStart: "[",
	PrimLoopEnd:   "]",
}

func (t PrimType) String() string {
	if name, ok := primNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Prim(%d)", t)
}

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Prim represents a primitive instruction with its source position.
// For PrimLoopStart and PrimLoopEnd, Match holds the index of the
// matching partner in the instruction list.
type Prim struct {
	Type  PrimType
	Pos   Position
	Match int
}

func (p Prim) String() string {
	switch p.Type {
	case PrimLoopStart, PrimLoopEnd:
		return fmt.Sprintf("%s(%d)", p.Type, p.Match)
	}
	return p.Type.String()
}

// instAlphabet maps recognized source bytes to primitive types. Every
// other byte is a comment.
var instAlphabet = map[byte]PrimType{
	'+': PrimIncCell,
	'-': PrimDecCell,
	'>': PrimMoveRight,
	'<': PrimMoveLeft,
	'.': PrimOutput,
	',': PrimInput,
	'[': PrimLoopStart,
	']': PrimLoopEnd,
}
