package compiler

import (
	"testing"
)

// optimizeSource is a test helper running the full scan/lift/optimize
// front end.
func optimizeSource(t *testing.T, src string) []Node {
	t.Helper()
	prims, err := Scan([]byte(src))
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	return Optimize(Lift(prims))
}

func TestCompressRunLength(t *testing.T) {
	prog := optimizeSource(t, "+++++")
	if len(prog) != 1 {
		t.Fatalf("got %d nodes, want 1", len(prog))
	}
	add, ok := prog[0].(*AddConst)
	if !ok || add.Delta != 5 {
		t.Errorf("node = %s, want add(0, 5)", prog[0])
	}
}

func TestCompressCancellation(t *testing.T) {
	prog := optimizeSource(t, "+->><<")
	if len(prog) != 0 {
		t.Errorf("got %d nodes, want 0: %v", len(prog), prog)
	}
}

func TestCompressPointerRun(t *testing.T) {
	prog := compress([]Node{
		&MovePointer{Delta: 1},
		&MovePointer{Delta: 1},
		&MovePointer{Delta: -3},
	})
	if len(prog) != 1 {
		t.Fatalf("got %d nodes, want 1", len(prog))
	}
	mv, ok := prog[0].(*MovePointer)
	if !ok || mv.Delta != -1 {
		t.Errorf("node = %s, want move(-1)", prog[0])
	}
}

func TestFoldResetIdiom(t *testing.T) {
	prog := optimizeSource(t, "[-]")
	if len(prog) != 1 {
		t.Fatalf("got %d nodes, want 1", len(prog))
	}
	set, ok := prog[0].(*SetConst)
	if !ok || set.Offset != 0 || set.Value != 0 {
		t.Errorf("node = %s, want set(0, 0)", prog[0])
	}
}

func TestFoldResetIdiomOddOnly(t *testing.T) {
	// [--] does not terminate from odd starting values; the delta is
	// not invertible mod 256 and the loop must survive folding.
	prog := optimizeSource(t, "[--]")
	if len(prog) != 1 {
		t.Fatalf("got %d nodes, want 1", len(prog))
	}
	if _, ok := prog[0].(*Loop); !ok {
		t.Errorf("node = %s, want a loop", prog[0])
	}
}

func TestFoldTripleDecrementReset(t *testing.T) {
	// Any odd delta reaches zero from any starting value.
	prog := optimizeSource(t, "[---]")
	if len(prog) != 1 {
		t.Fatalf("got %d nodes, want 1", len(prog))
	}
	if _, ok := prog[0].(*SetConst); !ok {
		t.Errorf("node = %s, want set(0, 0)", prog[0])
	}
}

func TestFoldScanZero(t *testing.T) {
	prog := optimizeSource(t, "[>>]")
	if len(prog) != 1 {
		t.Fatalf("got %d nodes, want 1", len(prog))
	}
	scan, ok := prog[0].(*ScanZero)
	if !ok || scan.Stride != 2 {
		t.Errorf("node = %s, want seek(2)", prog[0])
	}
}

func TestFoldScanZeroWithDelta(t *testing.T) {
	prog := optimizeSource(t, "[->]")
	if len(prog) != 1 {
		t.Fatalf("got %d nodes, want 1", len(prog))
	}
	skip, ok := prog[0].(*ScanZeroWithDelta)
	if !ok {
		t.Fatalf("node = %s, want a skip", prog[0])
	}
	if skip.Stride != 1 || skip.Delta != 255 || skip.DeltaOffset != 0 {
		t.Errorf("skip = %s, want skip(1, 255@0)", skip)
	}
}

func TestFoldScanZeroWithDeltaOffset(t *testing.T) {
	// The increment lands two cells ahead of each visited cell.
	prog := optimizeSource(t, "[>>+<<>]")
	if len(prog) != 1 {
		t.Fatalf("got %d nodes, want 1", len(prog))
	}
	skip, ok := prog[0].(*ScanZeroWithDelta)
	if !ok {
		t.Fatalf("node = %s, want a skip", prog[0])
	}
	if skip.Stride != 1 || skip.Delta != 1 || skip.DeltaOffset != 2 {
		t.Errorf("skip = %s, want skip(1, 1@2)", skip)
	}
}

func TestFoldMulIdiom(t *testing.T) {
	prog := optimizeSource(t, "[->+>++<<]")
	if len(prog) != 1 {
		t.Fatalf("got %d nodes, want 1: %v", len(prog), prog)
	}
	mul, ok := prog[0].(*MulAdd)
	if !ok {
		t.Fatalf("node = %s, want a mul", prog[0])
	}
	if len(mul.Targets) != 2 {
		t.Fatalf("got %d targets, want 2", len(mul.Targets))
	}
	if mul.Targets[0] != (MulTarget{Offset: 1, Factor: 1}) {
		t.Errorf("target 0 = %+v, want offset 1 factor 1", mul.Targets[0])
	}
	if mul.Targets[1] != (MulTarget{Offset: 2, Factor: 2}) {
		t.Errorf("target 1 = %+v, want offset 2 factor 2", mul.Targets[1])
	}
}

func TestFoldMulBackwardTarget(t *testing.T) {
	prog := optimizeSource(t, "[-<++>]")
	if len(prog) != 1 {
		t.Fatalf("got %d nodes, want 1", len(prog))
	}
	mul, ok := prog[0].(*MulAdd)
	if !ok {
		t.Fatalf("node = %s, want a mul", prog[0])
	}
	if len(mul.Targets) != 1 || mul.Targets[0] != (MulTarget{Offset: -1, Factor: 2}) {
		t.Errorf("targets = %v, want [offset -1 factor 2]", mul.Targets)
	}
}

func TestFoldMulRequiresStability(t *testing.T) {
	// Net pointer movement in the body rules out the multiply fold.
	prog := optimizeSource(t, "[->+]")
	for _, n := range prog {
		if _, ok := n.(*MulAdd); ok {
			t.Errorf("unstable loop folded to %s", n)
		}
	}
}

func TestDeadStoreElimination(t *testing.T) {
	// Inside the stable outer loop, the increments into cell 1 are
	// overwritten by the reset before anything reads them.
	prims, err := Scan([]byte("[>+++[-]<-]"))
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	prog := compress(Lift(prims))
	prog = foldSimpleLoops(prog)
	prog = eliminateDeadStores(prog)

	loop, ok := prog[0].(*Loop)
	if !ok {
		t.Fatalf("node = %s, want a loop", prog[0])
	}
	for _, n := range loop.Body {
		if add, ok := n.(*AddConst); ok && add.Delta == 3 {
			t.Errorf("dead store survived: %s in %s", add, loop)
		}
	}
}

func TestHoistResets(t *testing.T) {
	prims, err := Scan([]byte("[>[-]<-]"))
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	prog := compress(Lift(prims))
	prog = foldSimpleLoops(prog)
	prog = hoistResets(prog)

	// The per-iteration reset of cell 1 is lifted into a wrapper that
	// runs it once after the loop.
	wrapper, ok := prog[0].(*Loop)
	if !ok {
		t.Fatalf("node = %s, want a loop", prog[0])
	}
	if len(wrapper.Body) != 2 {
		t.Fatalf("wrapper body = %s, want inner loop + lifted set", wrapper)
	}
	if _, ok := wrapper.Body[0].(*Loop); !ok {
		t.Errorf("wrapper body[0] = %s, want inner loop", wrapper.Body[0])
	}
	set, ok := wrapper.Body[1].(*SetConst)
	if !ok || set.Offset != 1 || set.Value != 0 {
		t.Errorf("wrapper body[1] = %s, want set(1, 0)", wrapper.Body[1])
	}
}

func TestHoistKeepsReadResets(t *testing.T) {
	// Cell 1 is printed each iteration; its reset cannot move.
	prims, err := Scan([]byte("[>[-].<-]"))
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	prog := compress(Lift(prims))
	prog = foldSimpleLoops(prog)
	prog = hoistResets(prog)

	loop := prog[0].(*Loop)
	for _, n := range loop.Body {
		if _, ok := n.(*Loop); ok {
			t.Fatalf("reset was hoisted out of a loop that reads it: %s", loop)
		}
	}
}

func TestOptimizeFixpoint(t *testing.T) {
	sources := []string{
		"+++++[>++++[>+<-]<-]>>.",
		"[->+>++<<]",
		"[>[-]<-]",
		"[>>]+[->]",
		"++[-->++]",
	}
	for _, src := range sources {
		prims, err := Scan([]byte(src))
		if err != nil {
			t.Fatalf("%q: scan error: %v", src, err)
		}
		once := Optimize(Lift(prims))
		twice := Optimize(once)
		if !nodesEqual(once, twice) {
			t.Errorf("%q: optimizer is not a fixpoint:\n once: %v\ntwice: %v", src, once, twice)
		}
	}
}

func TestEmptyLoopSurvives(t *testing.T) {
	// [] spins forever on a nonzero cell; it must not be folded away.
	prog := optimizeSource(t, "[]")
	if len(prog) != 1 {
		t.Fatalf("got %d nodes, want 1", len(prog))
	}
	if _, ok := prog[0].(*Loop); !ok {
		t.Errorf("node = %s, want a loop", prog[0])
	}
}
