package vm

import (
	"strings"
	"testing"
)

func TestBuilderPatchesLoopTargets(t *testing.T) {
	b := NewProgramBuilder()
	b.Open(0, 0)
	b.Emit(OpShiftInc, 0, 255, 0)
	b.Close(0, 0)
	prog := b.Build()

	if prog.Len() != 3 {
		t.Fatalf("program length = %d, want 3", prog.Len())
	}
	if got := prog.Code[0].Arg; got != 2 {
		t.Errorf("open target = %d, want 2", got)
	}
	if got := prog.Code[2].Arg; got != 0 {
		t.Errorf("close target = %d, want 0", got)
	}
}

func TestBuilderNestedLoops(t *testing.T) {
	b := NewProgramBuilder()
	b.Open(0, 0) // 0
	b.Open(0, 0) // 1
	b.Close(0, 0)
	b.Close(0, 0)
	prog := b.Build()

	if got := prog.Code[0].Arg; got != 3 {
		t.Errorf("outer open target = %d, want 3", got)
	}
	if got := prog.Code[1].Arg; got != 2 {
		t.Errorf("inner open target = %d, want 2", got)
	}
	if got := prog.Code[2].Arg; got != 1 {
		t.Errorf("inner close target = %d, want 1", got)
	}
	if got := prog.Code[3].Arg; got != 0 {
		t.Errorf("outer close target = %d, want 0", got)
	}
}

func TestBuilderCloseWithoutOpenPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic")
		}
	}()
	NewProgramBuilder().Close(0, 0)
}

func TestBuilderUnmatchedOpenPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic")
		}
	}()
	b := NewProgramBuilder()
	b.Open(0, 0)
	b.Build()
}

func TestHeadroom(t *testing.T) {
	b := NewProgramBuilder()
	b.Emit(OpMul, -5, 1, 0)
	b.Emit(OpMulZero, -2, 1, 0)
	b.Emit(OpMul, 3, 1, 0)
	if got := b.Build().Headroom(); got != 5 {
		t.Errorf("headroom = %d, want 5", got)
	}

	empty := NewProgramBuilder().Build()
	if got := empty.Headroom(); got != 0 {
		t.Errorf("empty headroom = %d, want 0", got)
	}
}

func TestDisassemble(t *testing.T) {
	b := NewProgramBuilder()
	b.Open(0, 0)
	b.Emit(OpShiftInc, 0, 255, 0)
	b.Close(0, 0)
	listing := b.Build().Disassemble()

	for _, want := range []string{"0000  OPEN -> 0002", "SHIFT_INC", "0002  CLOSE -> 0000"} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}
}
