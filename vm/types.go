// Package vm is the reference interpreter (SYSTEM OVERVIEW component 3):
// stack, linear memory, key-value storage, program counter, gas, call
// frames, and event log, producing an execution trace and a final
// state-root per spec.md §4.1.
//
// Grounded on the teacher's zxvm.go (ZxVMInstance/ZxProgram/ZxExecutionResult
// shape) generalized to the richer opcode set, value model, and call-frame
// semantics spec.md §3-§4.1 require.
package vm

import "github.com/zkvm-core/zkvm/opcode"

// MaxStackDepth is the interpreter's fixed stack capacity, per spec.md §3.
const MaxStackDepth = 1024

// Kind tags a Value's active variant.
type Kind uint8

const (
	KindInt Kind = iota
	KindBool
	KindBytes
	KindAddress
	KindContract
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindBool:
		return "Bool"
	case KindBytes:
		return "Bytes"
	case KindAddress:
		return "Address"
	case KindContract:
		return "Contract"
	default:
		return "Unknown"
	}
}

// Contract is the KindContract payload: code, a 32-byte-keyed storage
// mapping, and a balance, per spec.md §3.
type Contract struct {
	Code    []byte
	Storage map[[32]byte]Value
	Balance uint64
}

// Clone returns a deep copy of the contract, since Value is passed by value
// on the stack and in memory/storage maps.
func (c *Contract) Clone() *Contract {
	if c == nil {
		return nil
	}
	code := make([]byte, len(c.Code))
	copy(code, c.Code)
	storage := make(map[[32]byte]Value, len(c.Storage))
	for k, v := range c.Storage {
		storage[k] = v.Clone()
	}
	return &Contract{Code: code, Storage: storage, Balance: c.Balance}
}

// Value is the VM's tagged sum type (spec.md §3): Int(i64), Bool(bool),
// Bytes(<=32 bytes), Address(32-byte identifier), or Contract.
type Value struct {
	Kind     Kind
	Int      int64
	Bool     bool
	Bytes    []byte // also backs KindAddress, always len==32 there
	Contract *Contract
}

// IntValue builds an Int value.
func IntValue(v int64) Value { return Value{Kind: KindInt, Int: v} }

// BoolValue builds a Bool value.
func BoolValue(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// BytesValue builds a Bytes value. b must be <= 32 bytes.
func BytesValue(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{Kind: KindBytes, Bytes: cp}
}

// AddressValue builds an Address value from a 32-byte identifier.
func AddressValue(addr [32]byte) Value {
	return Value{Kind: KindAddress, Bytes: addr[:]}
}

// ContractValue builds a Contract value.
func ContractValue(c *Contract) Value {
	return Value{Kind: KindContract, Contract: c}
}

// Clone returns a deep copy; contracts and byte slices do not alias.
func (v Value) Clone() Value {
	out := v
	if v.Bytes != nil {
		out.Bytes = make([]byte, len(v.Bytes))
		copy(out.Bytes, v.Bytes)
	}
	out.Contract = v.Contract.Clone()
	return out
}

// AsAddress reinterprets a 32-byte Bytes/Address value as a fixed array.
func (v Value) AsAddress() [32]byte {
	var out [32]byte
	copy(out[:], v.Bytes)
	return out
}

// AsUint64 truncates an Int value's low 64 bits as an unsigned index,
// used for memory/storage addressing.
func (v Value) AsUint64() uint64 {
	return uint64(v.Int)
}

// Truthy reports an EVM-style non-zero truthiness test used by JUMPI's
// condition operand, per spec.md §4.1.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	default:
		return len(v.Bytes) > 0
	}
}

// CallFrame is a single entry in the call stack, per spec.md §3.
type CallFrame struct {
	Caller     [32]byte
	Address    [32]byte
	Value      uint64
	GasLimit   uint64
	Code       []byte
	ReturnData []byte
}

// LogEntry is a single emitted event, per spec.md §3.
type LogEntry struct {
	Address [32]byte
	Topics  [][32]byte
	Data    []byte
}

// TraceStep records one executed instruction, per spec.md §3.
type TraceStep struct {
	Opcode          opcode.Op
	PCBefore        uint64
	StackSnapshot   []Value
	MemorySnapshot  map[uint64]Value
	GasCost         uint64
}

// ExecutionTrace is the ordered per-step record spec.md §3 defines, of
// length at most max_steps (the circuit's trace capacity — the interpreter
// itself is unbounded except by gas and program length).
type ExecutionTrace struct {
	Steps []TraceStep
}

// ExecutionContext is the interpreter's mutable state, per spec.md §3.
type ExecutionContext struct {
	Program        []byte
	Stack          []Value
	Memory         map[uint64]Value
	Storage        map[[32]byte]Value
	ProgramCounter uint64
	GasRemaining   uint64
	CallStack      []CallFrame
	StateRoot      [32]byte
	Logs           []LogEntry

	Trace   ExecutionTrace
	halted  bool
	stateRootSet bool
}

// NewContext creates a fresh execution context for program with the given
// initial gas budget. The context is created per spec.md's lifecycle note
// ("context is created per new(program)").
func NewContext(program []byte, gasLimit uint64) *ExecutionContext {
	return &ExecutionContext{
		Program:      program,
		Stack:        make([]Value, 0, 64),
		Memory:       make(map[uint64]Value),
		Storage:      make(map[[32]byte]Value),
		GasRemaining: gasLimit,
	}
}

// Halted reports whether execution has reached STOP or program end.
func (ctx *ExecutionContext) Halted() bool {
	return ctx.halted
}
