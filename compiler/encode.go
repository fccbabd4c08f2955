package compiler

import (
	"github.com/chazu/bropt/vm"
)

// ---------------------------------------------------------------------------
// Encoder: IR to dense instruction stream
// ---------------------------------------------------------------------------

// Encode walks the optimized IR once and emits one encoded instruction
// per node into a flat stream, resolving loop targets to absolute
// indices. Trailing AddConst/MovePointer nodes are fused into the
// preceding instruction's Inc/Delta operands so the engine pays for
// them inside an instruction it is already executing.
func Encode(prog []Node) *vm.Program {
	b := vm.NewProgramBuilder()
	encodeBlock(b, &nodeCursor{nodes: prog})
	return b.Build()
}

// nodeCursor is a peekable iterator over a node list.
type nodeCursor struct {
	nodes []Node
	i     int
}

func (c *nodeCursor) next() Node {
	if c.i >= len(c.nodes) {
		return nil
	}
	n := c.nodes[c.i]
	c.i++
	return n
}

func (c *nodeCursor) peek() Node {
	if c.i >= len(c.nodes) {
		return nil
	}
	return c.nodes[c.i]
}

// pickInc consumes an immediately following AddConst at offset 0 and
// returns its delta for fusion, or 0.
func pickInc(c *nodeCursor) byte {
	if a, ok := c.peek().(*AddConst); ok && a.Offset == 0 {
		c.i++
		return a.Delta
	}
	return 0
}

// pickShift consumes an immediately following MovePointer that fits in
// an int16 operand and returns its delta for fusion, or 0.
func pickShift(c *nodeCursor) int16 {
	if m, ok := c.peek().(*MovePointer); ok && fitsInt16(m.Delta) {
		c.i++
		return int16(m.Delta)
	}
	return 0
}

func encodeBlock(b *vm.ProgramBuilder, c *nodeCursor) {
	for {
		n := c.next()
		if n == nil {
			return
		}
		switch node := n.(type) {
		case *AddConst:
			encodeAt(b, vm.OpShiftInc, node.Offset, node.Delta, c)

		case *MovePointer:
			// A pointer move becomes the pre-shift operand of whatever
			// follows it.
			switch c.peek().(type) {
			case *SetConst:
				set := c.next().(*SetConst)
				if set.Offset == 0 {
					inc := set.Value + pickInc(c)
					b.Emit(vm.OpSet, int32(node.Delta), inc, pickShift(c))
				} else {
					b.Emit(vm.OpShiftInc, int32(node.Delta), 0, 0)
					encodeAt(b, vm.OpSet, set.Offset, set.Value, c)
				}
			case *Output:
				c.next()
				b.Emit(vm.OpOutput, int32(node.Delta), pickInc(c), pickShift(c))
			case *Input:
				c.next()
				b.Emit(vm.OpInput, int32(node.Delta), pickInc(c), pickShift(c))
			default:
				b.Emit(vm.OpShiftInc, int32(node.Delta), pickInc(c), pickShift(c))
			}

		case *Output:
			encodeAt(b, vm.OpOutput, node.Offset, pickInc(c), c)

		case *Input:
			encodeAt(b, vm.OpInput, node.Offset, pickInc(c), c)

		case *SetConst:
			if node.Offset == 0 {
				inc := node.Value + pickInc(c)
				b.Emit(vm.OpSet, 0, inc, pickShift(c))
			} else {
				encodeAt(b, vm.OpSet, node.Offset, node.Value, c)
			}

		case *MulAdd:
			for i, t := range node.Targets {
				if i < len(node.Targets)-1 {
					b.Emit(vm.OpMul, int32(t.Offset), t.Factor, 0)
				} else {
					b.Emit(vm.OpMulZero, int32(t.Offset), t.Factor, pickShift(c))
				}
			}

		case *ScanZero:
			delta := pickShift(c)
			inc := pickInc(c)
			b.Emit(vm.OpSeek, int32(node.Stride), inc, delta)

		case *ScanZeroWithDelta:
			b.Emit(vm.OpSkip, int32(node.Stride), node.Delta, int16(node.DeltaOffset))

		case *Loop:
			body := &nodeCursor{nodes: node.Body}
			inc := pickInc(body)
			delta := pickShift(body)
			b.Open(inc, delta)
			encodeBlock(b, body)
			b.Close(inc, delta)
		}
	}
}

// encodeAt emits an offset-addressed instruction without a net pointer
// move: the offset becomes the pre-shift and the compensating shift is
// folded into the trailing Delta (merged with any fused MovePointer).
func encodeAt(b *vm.ProgramBuilder, op vm.Opcode, offset int, inc byte, c *nodeCursor) {
	back := -offset
	if m, ok := c.peek().(*MovePointer); ok && fitsInt16(back+m.Delta) {
		c.i++
		back += m.Delta
	}
	if fitsInt16(back) {
		b.Emit(op, int32(offset), inc, int16(back))
		return
	}
	// Offset too large for the fused operand: compensate explicitly.
	b.Emit(op, int32(offset), inc, 0)
	b.Emit(vm.OpShiftInc, int32(-offset), 0, 0)
}
