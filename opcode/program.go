package opcode

import "errors"

// ErrUnterminatedProgram is returned when a program never reaches a STOP
// byte (0xFF) and also never simply runs off its own length — spec.md §4.1
// allows either halting condition, so this only fires when neither the byte
// nor an out-of-range pc can be produced, which in practice means an empty
// program.
var ErrUnterminatedProgram = errors.New("opcode: empty program")

// Program is the immutable byte sequence spec.md §3 and §6 describe:
// single-byte opcodes, PUSH carrying a one-byte immediate, CREATE carrying
// code_size inline bytes (a stack-dependent length, so Program cannot fully
// validate instruction boundaries ahead of execution — only the interpreter,
// which knows the runtime stack, can).
type Program struct {
	code []byte
}

// New wraps raw bytecode as a Program. It does not copy; callers must treat
// code as immutable and shared read-only thereafter, per spec.md's ownership
// model ("Program bytes are shared read-only by interpreter and circuit").
func New(code []byte) (*Program, error) {
	if len(code) == 0 {
		return nil, ErrUnterminatedProgram
	}
	return &Program{code: code}, nil
}

// Code returns the raw bytecode.
func (p *Program) Code() []byte {
	return p.code
}

// Len returns the program length in bytes.
func (p *Program) Len() int {
	return len(p.code)
}

// At returns the byte at index i, or STOP if i is at or beyond the program's
// end (spec.md §4.1: "pc reaching end of program terminates execution").
func (p *Program) At(i uint64) Op {
	if i >= uint64(len(p.code)) {
		return STOP
	}
	return Op(p.code[i])
}

// Immediate returns the one-byte PUSH immediate at pc+1. Callers must check
// pc+1 is in range first.
func (p *Program) Immediate(pc uint64) byte {
	return p.code[pc+1]
}

// InBounds reports whether i is a valid index into the program.
func (p *Program) InBounds(i uint64) bool {
	return i < uint64(len(p.code))
}

// Window returns a copy of code[offset:offset+size], used by SHA3/CREATE to
// read a byte window out of the program or memory. Returns an error if the
// window runs past the available length.
func Window(data []byte, offset, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	end := offset + size
	if end < offset || end > uint64(len(data)) {
		return nil, errors.New("opcode: window out of bounds")
	}
	out := make([]byte, size)
	copy(out, data[offset:end])
	return out, nil
}
