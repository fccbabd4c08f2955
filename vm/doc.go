// Package vm executes encoded Brainfuck programs on a fixed-length
// byte tape.
//
// A Program is a flat slice of fixed-size Inst records with loop
// targets resolved to absolute indices, so the instruction pointer is a
// plain array index. Each Engine owns its tape, pointer, and I/O
// streams for one run; concurrent runs use one engine each.
//
// The package also provides the program wire format (canonical CBOR,
// versioned) and a SQLite-backed ProgramStore that caches compiled
// programs by the SHA-256 of their source.
package vm
