package compiler

// ---------------------------------------------------------------------------
// Scanner: validator/tokenizer for Brainfuck source
// ---------------------------------------------------------------------------

// Scan tokenizes raw source bytes into a primitive instruction list.
// Any byte outside the eight-character instruction alphabet is a comment
// and is skipped. Brackets are verified to nest properly and each
// PrimLoopStart/PrimLoopEnd is cross-linked to its partner; the rest of
// the pipeline performs no further validation.
func Scan(src []byte) ([]Prim, error) {
	prims := make([]Prim, 0, len(src))
	var stack []int // indices of open PrimLoopStart entries

	line, col := 1, 1
	for offset := 0; offset < len(src); offset++ {
		ch := src[offset]
		pos := Position{Offset: offset, Line: line, Column: col}
		if ch == '\n' {
			line++
			col = 1
		} else {
			col++
		}

		t, ok := instAlphabet[ch]
		if !ok {
			continue
		}

		switch t {
		case PrimLoopStart:
			stack = append(stack, len(prims))
			prims = append(prims, Prim{Type: t, Pos: pos, Match: -1})

		case PrimLoopEnd:
			if len(stack) == 0 {
				return nil, &CompileError{Kind: UnmatchedCloseBracket, Pos: pos}
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			prims[open].Match = len(prims)
			prims = append(prims, Prim{Type: t, Pos: pos, Match: open})

		default:
			prims = append(prims, Prim{Type: t, Pos: pos})
		}
	}

	if len(stack) > 0 {
		// Report the innermost unclosed bracket first.
		open := stack[len(stack)-1]
		return nil, &CompileError{Kind: UnmatchedOpenBracket, Pos: prims[open].Pos}
	}
	return prims, nil
}
