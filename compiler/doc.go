// Package compiler turns Brainfuck source into a dense instruction
// stream for the vm package.
//
// The pipeline has four stages:
//
//   - Scan: validates bracket nesting and tokenizes the eight-character
//     alphabet, cross-linking each bracket to its partner. Everything
//     else in the source is a comment.
//
//   - Lift: converts the primitive list into a nested IR of higher
//     level nodes, computing loop stability (zero net pointer movement)
//     along the way.
//
//   - Optimize: a fixpoint pipeline of semantics-preserving passes —
//     run-length compression, idiom folding (reset, zero-seek, skip,
//     constant multiply), dead-store elimination inside stable loop
//     bodies, and reset hoisting.
//
//   - Encode: flattens the IR into fixed-size instruction records with
//     absolute loop targets, fusing trailing increments and pointer
//     moves into the preceding record's operands.
//
// The contract across all four stages is semantic preservation: for any
// valid program and input stream, the encoded execution produces output
// byte-identical to walking the unfolded primitive list.
package compiler
