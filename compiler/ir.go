package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// IR: folded intermediate representation
// ---------------------------------------------------------------------------

// Node is the interface implemented by all IR nodes. The node set is
// closed: every optimizer pass consumes and produces exactly these
// kinds, so dispatch is an exhaustive type switch rather than a method
// on the node.
type Node interface {
	node() // marker method
	String() string
}

// AddConst adds a byte delta to the cell at a relative offset. The
// delta wraps modulo 256; -1 is represented as 255.
type AddConst struct {
	Offset int
	Delta  byte
}

func (n *AddConst) node() {}
func (n *AddConst) String() string {
	return fmt.Sprintf("add(%d, %d)", n.Offset, n.Delta)
}

// MovePointer shifts the tape pointer. The delta is an unwrapped
// signed integer.
type MovePointer struct {
	Delta int
}

func (n *MovePointer) node() {}
func (n *MovePointer) String() string {
	return fmt.Sprintf("move(%d)", n.Delta)
}

// Output emits the cell at a relative offset as one byte.
type Output struct {
	Offset int
}

func (n *Output) node() {}
func (n *Output) String() string {
	return fmt.Sprintf("out(%d)", n.Offset)
}

// Input reads one byte into the cell at a relative offset. End of
// input leaves the cell unchanged.
type Input struct {
	Offset int
}

func (n *Input) node() {}
func (n *Input) String() string {
	return fmt.Sprintf("in(%d)", n.Offset)
}

// SetConst assigns a constant to the cell at a relative offset.
// Produced by reset-idiom folding and reset hoisting.
type SetConst struct {
	Offset int
	Value  byte
}

func (n *SetConst) node() {}
func (n *SetConst) String() string {
	return fmt.Sprintf("set(%d, %d)", n.Offset, n.Value)
}

// MulTarget is one destination of a MulAdd: the source value times
// Factor is added into the cell at Offset.
type MulTarget struct {
	Offset int
	Factor byte
}

// MulAdd scales the current cell's value by each target's factor, adds
// it into each target cell, then zeroes the current cell. Produced by
// multiply-idiom folding; the source is always the cell at offset 0.
type MulAdd struct {
	Targets []MulTarget
}

func (n *MulAdd) node() {}
func (n *MulAdd) String() string {
	parts := make([]string, len(n.Targets))
	for i, t := range n.Targets {
		parts[i] = fmt.Sprintf("%d*%d", t.Offset, t.Factor)
	}
	return fmt.Sprintf("mul(%s)", strings.Join(parts, ", "))
}

// ScanZero advances the pointer by Stride until the cell under it is
// zero.
type ScanZero struct {
	Stride int
}

func (n *ScanZero) node() {}
func (n *ScanZero) String() string {
	return fmt.Sprintf("seek(%d)", n.Stride)
}

// ScanZeroWithDelta is ScanZero with a side effect: while the current
// cell is nonzero, Delta is added to the cell at DeltaOffset and the
// pointer advances by Stride. The final zero cell is never touched.
type ScanZeroWithDelta struct {
	Stride      int
	Delta       byte
	DeltaOffset int
}

func (n *ScanZeroWithDelta) node() {}
func (n *ScanZeroWithDelta) String() string {
	return fmt.Sprintf("skip(%d, %d@%d)", n.Stride, n.Delta, n.DeltaOffset)
}

// Loop is a loop body not (or not yet) reducible to a closed-form
// idiom. Stable means the body has zero net pointer movement and every
// nested loop is itself stable, so cell offsets observed at loop entry
// stay valid across iterations.
type Loop struct {
	Body   []Node
	Stable bool
}

func (n *Loop) node() {}
func (n *Loop) String() string {
	parts := make([]string, len(n.Body))
	for i, b := range n.Body {
		parts[i] = b.String()
	}
	flag := ""
	if n.Stable {
		flag = "!"
	}
	return fmt.Sprintf("loop%s[%s]", flag, strings.Join(parts, " "))
}

// ---------------------------------------------------------------------------
// Lifting primitives into IR
// ---------------------------------------------------------------------------

// Lift converts a validated primitive instruction list into the nested
// IR, one node per primitive, computing loop stability along the way.
// Scan has already guaranteed bracket balance.
func Lift(prims []Prim) []Node {
	body, _, _ := liftBlock(prims, 0)
	return body
}

// liftBlock lifts primitives starting at index i until the enclosing
// PrimLoopEnd (or end of input). Returns the body, whether it is
// stable, and the index just past the block.
func liftBlock(prims []Prim, i int) ([]Node, bool, int) {
	var body []Node
	delta := 0
	stable := true
	for i < len(prims) {
		switch prims[i].Type {
		case PrimIncCell:
			body = append(body, &AddConst{Delta: 1})
		case PrimDecCell:
			body = append(body, &AddConst{Delta: 255})
		case PrimMoveRight:
			body = append(body, &MovePointer{Delta: 1})
			delta++
		case PrimMoveLeft:
			body = append(body, &MovePointer{Delta: -1})
			delta--
		case PrimOutput:
			body = append(body, &Output{})
		case PrimInput:
			body = append(body, &Input{})
		case PrimLoopStart:
			inner, innerStable, next := liftBlock(prims, i+1)
			stable = stable && innerStable
			body = append(body, &Loop{Body: inner, Stable: innerStable})
			i = next
			continue
		case PrimLoopEnd:
			return body, stable && delta == 0, i + 1
		}
		i++
	}
	return body, stable && delta == 0, i
}
