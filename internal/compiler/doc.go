// Package compiler is a bytecode assembler, not a parser: it builds
// heap.Template values one mnemonic at a time, the same instructions a
// hand-written test would encode with bytecode.Encode/EncodeBC/EncodeABC
// directly, but with named labels for jump targets and a deduplicating
// constant pool instead of manually counted PC offsets and indices. The
// real front end (lexer, parser, code generator translating source text
// into this instruction set) is out of scope; this package exists so
// cmd/duk and the rest of this repo's own tests have a way to produce a
// runnable Template from a short textual description of a program
// without hand-computing jump arithmetic each time.
package compiler
