package compiler

import (
	"reflect"
	"sort"
)

// ---------------------------------------------------------------------------
// Optimizer: fixed pipeline of semantics-preserving passes
// ---------------------------------------------------------------------------

// maxRounds bounds the fixpoint driver. Each round strictly shrinks or
// leaves the program unchanged in practice; the cap guarantees
// termination regardless.
const maxRounds = 8

// Optimize runs the pass pipeline to a fixpoint, then applies the
// final skip-loop fold. Every pass is a pure function over the node
// list: it must produce byte-identical output for byte-identical input
// when executed against the unfolded primitive semantics.
func Optimize(prog []Node) []Node {
	for round := 0; round < maxRounds; round++ {
		next := compress(prog)
		next = foldSimpleLoops(next)
		next = foldMulLoops(next)
		next = eliminateDeadStores(next)
		next = eliminateDeadStores(next)
		next = hoistResets(next)
		if nodesEqual(next, prog) {
			prog = next
			break
		}
		prog = next
	}

	// Skip folding runs once, last: a skip loop's body shape is only
	// final after the other folds have settled.
	prog = compress(prog)
	prog = foldSimpleLoops(prog)
	prog = foldMulLoops(prog)
	prog = foldSkipLoops(prog)
	return prog
}

func nodesEqual(a, b []Node) bool {
	return reflect.DeepEqual(a, b)
}

// ---------------------------------------------------------------------------
// Pass 1: run-length compression
// ---------------------------------------------------------------------------

// compress merges consecutive AddConst nodes at the same offset and
// consecutive MovePointer nodes, dropping merged nodes that sum to
// zero. Cell deltas wrap modulo 256 (a byte); pointer deltas are
// unwrapped signed integers.
func compress(body []Node) []Node {
	out := make([]Node, 0, len(body))
	for i := 0; i < len(body); i++ {
		switch n := body[i].(type) {
		case *AddConst:
			delta := n.Delta
			for i+1 < len(body) {
				next, ok := body[i+1].(*AddConst)
				if !ok || next.Offset != n.Offset {
					break
				}
				delta += next.Delta
				i++
			}
			if delta != 0 {
				out = append(out, &AddConst{Offset: n.Offset, Delta: delta})
			}
		case *MovePointer:
			delta := n.Delta
			for i+1 < len(body) {
				next, ok := body[i+1].(*MovePointer)
				if !ok {
					break
				}
				delta += next.Delta
				i++
			}
			if delta != 0 {
				out = append(out, &MovePointer{Delta: delta})
			}
		case *Loop:
			out = append(out, &Loop{Body: compress(n.Body), Stable: n.Stable})
		default:
			out = append(out, body[i])
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Pass 2a: reset and zero-seek idioms
// ---------------------------------------------------------------------------

// foldSimpleLoops replaces single-instruction loop bodies with their
// closed forms, innermost loops first:
//
//	[AddConst(0, d)] with d invertible mod 256  ->  SetConst(0, 0)
//	[MovePointer(d)]                            ->  ScanZero(d)
//
// The invertibility condition (gcd(d, 256) == 1, i.e. d odd) is what
// guarantees the loop reaches zero from any starting value.
func foldSimpleLoops(body []Node) []Node {
	out := make([]Node, 0, len(body))
	for _, n := range body {
		loop, ok := n.(*Loop)
		if !ok {
			out = append(out, n)
			continue
		}
		inner := foldSimpleLoops(loop.Body)
		if len(inner) == 1 {
			switch single := inner[0].(type) {
			case *AddConst:
				if single.Offset == 0 && single.Delta%2 == 1 {
					out = append(out, &SetConst{Offset: 0, Value: 0})
					continue
				}
			case *MovePointer:
				out = append(out, &ScanZero{Stride: single.Delta})
				continue
			}
		}
		out = append(out, &Loop{Body: inner, Stable: loop.Stable})
	}
	return out
}

// ---------------------------------------------------------------------------
// Pass 2b: multi-target constant-multiply idiom
// ---------------------------------------------------------------------------

// foldMulLoops replaces stable loops whose bodies consist solely of
// AddConst and MovePointer nodes, with a net delta of -1 at the loop
// cell, by a single MulAdd. The loop cell counts down once per
// iteration, so each other touched cell accumulates its per-iteration
// delta times the starting value of the loop cell.
func foldMulLoops(body []Node) []Node {
	out := make([]Node, 0, len(body))
	for _, n := range body {
		loop, ok := n.(*Loop)
		if !ok {
			out = append(out, n)
			continue
		}
		inner := foldMulLoops(loop.Body)
		if loop.Stable && allArithmetic(inner) {
			ptr := 0
			changes := map[int]byte{0: 0}
			for _, in := range inner {
				switch a := in.(type) {
				case *AddConst:
					changes[ptr+a.Offset] += a.Delta
				case *MovePointer:
					ptr += a.Delta
				}
			}
			if changes[0] == 255 {
				offsets := make([]int, 0, len(changes))
				for off, factor := range changes {
					if off != 0 && factor != 0 {
						offsets = append(offsets, off)
					}
				}
				sort.Ints(offsets)
				if len(offsets) == 0 {
					out = append(out, &SetConst{Offset: 0, Value: 0})
					continue
				}
				targets := make([]MulTarget, len(offsets))
				for i, off := range offsets {
					targets[i] = MulTarget{Offset: off, Factor: changes[off]}
				}
				out = append(out, &MulAdd{Targets: targets})
				continue
			}
		}
		out = append(out, &Loop{Body: inner, Stable: loop.Stable})
	}
	return out
}

func allArithmetic(body []Node) bool {
	for _, n := range body {
		switch n.(type) {
		case *AddConst, *MovePointer:
		default:
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Pass 2c: zero-seeking idiom with side effect
// ---------------------------------------------------------------------------

// foldSkipLoops replaces loops whose bodies consist of pointer moves
// and exactly one AddConst with a ScanZeroWithDelta: the delta is
// applied at its offset relative to the iteration start, then the
// pointer advances by the body's net movement, until the cell under
// the pointer at iteration start is zero.
func foldSkipLoops(body []Node) []Node {
	out := make([]Node, 0, len(body))
	for _, n := range body {
		loop, ok := n.(*Loop)
		if !ok {
			out = append(out, n)
			continue
		}
		inner := foldSkipLoops(loop.Body)

		ptr := 0
		incSeen := false
		var incDelta byte
		incOffset := 0
		valid := true
		for _, in := range inner {
			switch a := in.(type) {
			case *MovePointer:
				ptr += a.Delta
			case *AddConst:
				if incSeen {
					valid = false
				} else {
					incSeen = true
					incDelta = a.Delta
					incOffset = ptr + a.Offset
				}
			default:
				valid = false
			}
			if !valid {
				break
			}
		}
		if valid && incSeen && fitsInt16(incOffset) {
			out = append(out, &ScanZeroWithDelta{Stride: ptr, Delta: incDelta, DeltaOffset: incOffset})
			continue
		}
		out = append(out, &Loop{Body: inner, Stable: loop.Stable})
	}
	return out
}

func fitsInt16(v int) bool {
	return v >= -32768 && v <= 32767
}

// ---------------------------------------------------------------------------
// Pass 3: redundant-store elimination
// ---------------------------------------------------------------------------

// eliminateDeadStores removes writes that are overwritten before any
// read. Offsets are only trackable across iterations inside stable
// loop bodies, so elimination operates there; elsewhere the pass just
// recurses.
func eliminateDeadStores(body []Node) []Node {
	return deadStoreBlock(body, false)
}

func deadStoreBlock(body []Node, stable bool) []Node {
	if !stable {
		out := make([]Node, 0, len(body))
		for _, n := range body {
			if loop, ok := n.(*Loop); ok {
				out = append(out, &Loop{Body: deadStoreBlock(loop.Body, loop.Stable), Stable: loop.Stable})
			} else {
				out = append(out, n)
			}
		}
		return out
	}

	// Backwards scan. overwritten holds cell offsets whose current
	// value is replaced later in the body without an intervening read;
	// a write landing on such an offset is dead.
	overwritten := make(map[int]bool)
	ptr := 0
	kept := make([]Node, 0, len(body))
	for i := len(body) - 1; i >= 0; i-- {
		switch n := body[i].(type) {
		case *MovePointer:
			ptr -= n.Delta
			kept = append(kept, n)

		case *SetConst:
			key := ptr + n.Offset
			if overwritten[key] {
				continue // dead store
			}
			overwritten[key] = true
			kept = append(kept, n)

		case *AddConst:
			// Read-modify-write: dead if the result is replaced, but
			// it never shadows an earlier write itself.
			if overwritten[ptr+n.Offset] {
				continue
			}
			kept = append(kept, n)

		case *Input:
			overwritten[ptr+n.Offset] = true
			kept = append(kept, n)

		case *Output:
			delete(overwritten, ptr+n.Offset)
			kept = append(kept, n)

		case *MulAdd:
			// The source cell is read, so earlier writes to it are
			// live. Targets whose result is replaced later drop out.
			delete(overwritten, ptr)
			targets := make([]MulTarget, 0, len(n.Targets))
			for _, t := range n.Targets {
				if !overwritten[ptr+t.Offset] {
					targets = append(targets, t)
				}
			}
			if len(targets) == 0 {
				kept = append(kept, &SetConst{Offset: 0, Value: 0})
			} else {
				kept = append(kept, &MulAdd{Targets: targets})
			}

		case *ScanZero, *ScanZeroWithDelta:
			// Pointer position is unknown afterwards; start over.
			overwritten = make(map[int]bool)
			kept = append(kept, n)

		case *Loop:
			overwritten = make(map[int]bool)
			kept = append(kept, &Loop{Body: deadStoreBlock(n.Body, n.Stable), Stable: n.Stable})

		default:
			kept = append(kept, body[i])
		}
	}

	// Un-reverse.
	for l, r := 0, len(kept)-1; l < r; l, r = l+1, r-1 {
		kept[l], kept[r] = kept[r], kept[l]
	}
	return kept
}

// ---------------------------------------------------------------------------
// Pass 4: reset hoisting
// ---------------------------------------------------------------------------

// hoistResets lifts per-iteration SetConst nodes out of stable loop
// bodies when no other instruction in the body depends on the affected
// cell. The loop is rewrapped so the lifted stores still run exactly
// once after the final iteration, and never when the loop body never
// runs:
//
//	[ body-with-set ]  ->  [ [ body-without-set ] set ... ]
//
// The outer wrapper re-tests the same cell the inner loop exits on, so
// it makes exactly one pass over the lifted stores.
func hoistResets(body []Node) []Node {
	out := make([]Node, 0, len(body))
	for _, n := range body {
		loop, ok := n.(*Loop)
		if !ok {
			out = append(out, n)
			continue
		}
		inner := hoistResets(loop.Body)
		if !loop.Stable || !hoistable(inner) {
			out = append(out, &Loop{Body: inner, Stable: loop.Stable})
			continue
		}

		// Cells that are read anywhere in the body, or written by an
		// instruction that must observe the set, pin the set in place.
		// Offset 0 is the loop condition and is always pinned.
		pinned := map[int]bool{0: true}
		ptr := 0
		for _, in := range inner {
			switch a := in.(type) {
			case *MovePointer:
				ptr += a.Delta
			case *Output:
				pinned[ptr+a.Offset] = true
			case *MulAdd:
				pinned[ptr] = true
			}
		}

		seq := make([]Node, 0, len(inner))
		var lifted []*SetConst
		ptr = 0
		for i := len(inner) - 1; i >= 0; i-- {
			switch a := inner[i].(type) {
			case *MovePointer:
				ptr -= a.Delta
				seq = append(seq, a)
			case *SetConst:
				key := ptr + a.Offset
				if !pinned[key] {
					lifted = append(lifted, &SetConst{Offset: key, Value: a.Value})
				} else {
					seq = append(seq, a)
				}
			case *AddConst:
				pinned[ptr+a.Offset] = true
				seq = append(seq, a)
			case *Input:
				pinned[ptr+a.Offset] = true
				seq = append(seq, a)
			case *MulAdd:
				for _, t := range a.Targets {
					pinned[ptr+t.Offset] = true
				}
				seq = append(seq, a)
			case *Output:
				seq = append(seq, a)
			}
		}
		for l, r := 0, len(seq)-1; l < r; l, r = l+1, r-1 {
			seq[l], seq[r] = seq[r], seq[l]
		}

		if len(lifted) == 0 {
			out = append(out, &Loop{Body: seq, Stable: loop.Stable})
			continue
		}
		wrapped := make([]Node, 0, 1+len(lifted))
		wrapped = append(wrapped, &Loop{Body: seq, Stable: loop.Stable})
		for _, s := range lifted {
			wrapped = append(wrapped, s)
		}
		out = append(out, &Loop{Body: wrapped, Stable: true})
	}
	return out
}

// hoistable reports whether a body's offsets are fully trackable: no
// nested loops or scans, whose pointer movement is data-dependent.
func hoistable(body []Node) bool {
	for _, n := range body {
		switch n.(type) {
		case *Loop, *ScanZero, *ScanZeroWithDelta:
			return false
		}
	}
	return true
}
