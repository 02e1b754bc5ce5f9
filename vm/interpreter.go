package vm

import (
	"fmt"

	"github.com/zkvm-core/zkvm/hash"
	"github.com/zkvm-core/zkvm/internal/zklog"
	"github.com/zkvm-core/zkvm/opcode"
)

// Execute runs ctx.Program from its current ProgramCounter to halt (STOP or
// end-of-program), per spec.md §4.1. It is fail-stop: the first error leaves
// ctx mutated only up through the last successfully completed step, and the
// failing opcode's gas is never debited.
//
// Execute is not reentrant on a single ExecutionContext from multiple
// goroutines; callers that need concurrent runs use one ExecutionContext per
// goroutine, per spec.md §5.
func (ctx *ExecutionContext) Execute() error {
	log := zklog.Logger("vm")
	for !ctx.halted {
		op := ctx.opcodeAt(ctx.ProgramCounter)
		entry := defaultJumpTable[op]
		if entry == nil {
			log.Warn().Uint64("pc", ctx.ProgramCounter).Uint8("op", uint8(op)).Msg("invalid opcode")
			return &InvalidOpcodeError{Op: byte(op), PC: ctx.ProgramCounter}
		}

		if ctx.GasRemaining < entry.gas {
			log.Warn().Uint64("pc", ctx.ProgramCounter).Msg("gas limit exceeded")
			return ErrGasLimitExceeded
		}
		if len(ctx.Stack) < entry.minStack {
			return ErrStackUnderflow
		}
		if len(ctx.Stack) > entry.maxStack {
			return ErrStackOverflow
		}

		pcBefore := ctx.ProgramCounter
		gasBefore, stackBefore := ctx.GasRemaining, ctx.Stack
		ctx.GasRemaining -= entry.gas

		if err := entry.execute(ctx); err != nil {
			// Undo the gas debit and any operand pops: a failing opcode leaves
			// no partial mutation behind.
			ctx.GasRemaining, ctx.Stack = gasBefore, stackBefore
			return err
		}
		if !entry.advancesPC {
			ctx.ProgramCounter++
		}

		ctx.recordStep(op, pcBefore, entry.gas)
		log.Trace().Uint64("pc", pcBefore).Str("op", op.String()).Msg("step")

		if op == opcode.STOP || !ctx.inProgramBounds(ctx.ProgramCounter) {
			ctx.halted = true
		}
	}
	ctx.finalize()
	return nil
}

// opcodeAt reads the opcode byte at pc, or STOP if pc is past the program's
// end, matching opcode.Program.At's end-of-program semantics.
func (ctx *ExecutionContext) opcodeAt(pc uint64) opcode.Op {
	if pc >= uint64(len(ctx.Program)) {
		return opcode.STOP
	}
	return opcode.Op(ctx.Program[pc])
}

func (ctx *ExecutionContext) inProgramBounds(pc uint64) bool {
	return pc < uint64(len(ctx.Program))
}

// recordStep appends a trace entry for the instruction that just ran,
// snapshotting the post-execution stack and memory, per spec.md §3.
func (ctx *ExecutionContext) recordStep(op opcode.Op, pcBefore uint64, gasCost uint64) {
	stackCopy := make([]Value, len(ctx.Stack))
	for i, v := range ctx.Stack {
		stackCopy[i] = v.Clone()
	}
	memCopy := make(map[uint64]Value, len(ctx.Memory))
	for k, v := range ctx.Memory {
		memCopy[k] = v.Clone()
	}
	ctx.Trace.Steps = append(ctx.Trace.Steps, TraceStep{
		Opcode:         op,
		PCBefore:       pcBefore,
		StackSnapshot:  stackCopy,
		MemorySnapshot: memCopy,
		GasCost:        gasCost,
	})
}

// finalize computes the byte-domain state root once execution halts. This is
// the collision-resistant Keccak commitment to storage/logs (spec.md §6);
// it is not interchangeable with the circuit's field-domain Poseidon root
// over the same logical state — see hash.StateHash's doc comment.
func (ctx *ExecutionContext) finalize() {
	if ctx.stateRootSet {
		return
	}
	ctx.StateRoot = hash.StateHash(canonicalStateBytes(ctx)...)
	ctx.stateRootSet = true
}

func (ctx *ExecutionContext) push(v Value) error {
	if len(ctx.Stack) >= MaxStackDepth {
		return ErrStackOverflow
	}
	ctx.Stack = append(ctx.Stack, v)
	return nil
}

func (ctx *ExecutionContext) pop() (Value, error) {
	n := len(ctx.Stack)
	if n == 0 {
		return Value{}, ErrStackUnderflow
	}
	v := ctx.Stack[n-1]
	ctx.Stack = ctx.Stack[:n-1]
	return v, nil
}

// --- opcode implementations ---

func opPush(ctx *ExecutionContext) error {
	pc := ctx.ProgramCounter
	if !ctx.inProgramBounds(pc + 1) {
		return &MemoryError{Detail: fmt.Sprintf("PUSH at pc=%d missing immediate byte", pc)}
	}
	imm := ctx.Program[pc+1]
	if err := ctx.push(IntValue(int64(imm))); err != nil {
		return err
	}
	ctx.ProgramCounter = pc + 2
	return nil
}

func opAdd(ctx *ExecutionContext) error {
	b, err := ctx.pop()
	if err != nil {
		return err
	}
	a, err := ctx.pop()
	if err != nil {
		return err
	}
	return ctx.push(IntValue(a.Int + b.Int))
}

func opMul(ctx *ExecutionContext) error {
	b, err := ctx.pop()
	if err != nil {
		return err
	}
	a, err := ctx.pop()
	if err != nil {
		return err
	}
	return ctx.push(IntValue(a.Int * b.Int))
}

// opStore pops (addr, value) — addr is right-most in the table and
// therefore popped first, per spec.md's stack convention.
func opStore(ctx *ExecutionContext) error {
	addr, err := ctx.pop()
	if err != nil {
		return err
	}
	value, err := ctx.pop()
	if err != nil {
		return err
	}
	ctx.Memory[addr.AsUint64()] = value
	return nil
}

// opLoad fails with a MemoryError when addr has no stored value, per
// spec.md's LOAD row ("fail if absent").
func opLoad(ctx *ExecutionContext) error {
	addr, err := ctx.pop()
	if err != nil {
		return err
	}
	v, ok := ctx.Memory[addr.AsUint64()]
	if !ok {
		return &MemoryError{Detail: fmt.Sprintf("LOAD: no value at address %d", addr.AsUint64())}
	}
	return ctx.push(v)
}

func opJump(ctx *ExecutionContext) error {
	dest, err := ctx.pop()
	if err != nil {
		return err
	}
	target := dest.AsUint64()
	if !ctx.inProgramBounds(target) {
		return ErrInvalidJumpDestination
	}
	ctx.ProgramCounter = target
	return nil
}

// opJumpi pops (dest, cond) — dest is right-most in the table and therefore
// popped first, per spec.md's stack convention.
func opJumpi(ctx *ExecutionContext) error {
	dest, err := ctx.pop()
	if err != nil {
		return err
	}
	cond, err := ctx.pop()
	if err != nil {
		return err
	}
	if !cond.Truthy() {
		ctx.ProgramCounter++
		return nil
	}
	target := dest.AsUint64()
	if !ctx.inProgramBounds(target) {
		return ErrInvalidJumpDestination
	}
	ctx.ProgramCounter = target
	return nil
}

func opEq(ctx *ExecutionContext) error {
	b, err := ctx.pop()
	if err != nil {
		return err
	}
	a, err := ctx.pop()
	if err != nil {
		return err
	}
	return ctx.push(BoolValue(a.Int == b.Int))
}

func opLt(ctx *ExecutionContext) error {
	b, err := ctx.pop()
	if err != nil {
		return err
	}
	a, err := ctx.pop()
	if err != nil {
		return err
	}
	return ctx.push(BoolValue(a.Int < b.Int))
}

func opGt(ctx *ExecutionContext) error {
	b, err := ctx.pop()
	if err != nil {
		return err
	}
	a, err := ctx.pop()
	if err != nil {
		return err
	}
	return ctx.push(BoolValue(a.Int > b.Int))
}

// opCreate pops (code_size, balance) — code_size is right-most in the table
// and therefore popped first, per spec.md's stack convention — then reads
// code_size bytes inline, immediately following the CREATE opcode in the
// calling program (spec.md §4.1/§6), and pushes (address, contract). The
// deployed contract's address is derived from the byte-domain hash of its
// code, since spec.md names no separate address-derivation scheme and this
// keeps address assignment deterministic and collision-resistant. CREATE
// manages its own program counter (advancesPC in the jump table) since the
// inline code bytes must be skipped, not reinterpreted as instructions.
func opCreate(ctx *ExecutionContext) error {
	codeSize, err := ctx.pop()
	if err != nil {
		return err
	}
	balance, err := ctx.pop()
	if err != nil {
		return err
	}
	pc := ctx.ProgramCounter
	size := codeSize.AsUint64()
	code, werr := opcode.Window(ctx.Program, pc+1, size)
	if werr != nil {
		return &ContractCreationError{Detail: werr.Error()}
	}
	addr := hash.StateHash(code)
	contract := &Contract{Code: code, Storage: make(map[[32]byte]Value), Balance: balance.AsUint64()}
	ctx.Storage[addr] = ContractValue(contract)
	if err := ctx.push(AddressValue(addr)); err != nil {
		return err
	}
	if err := ctx.push(ContractValue(contract)); err != nil {
		return err
	}
	ctx.ProgramCounter = pc + 1 + size
	return nil
}

// opCall pops (calleeAddress, value, gasLimit), pushes a CallFrame. Invoking
// the callee's code is out of scope for this opcode's own semantics (spec.md
// names no nested-execution contract); CALL only records the frame, with the
// value stored in it (no balance is moved), matching spec.md §3's CallFrame being a call-stack entry
// rather than a re-entrant interpreter loop.
func opCall(ctx *ExecutionContext) error {
	gasLimit, err := ctx.pop()
	if err != nil {
		return err
	}
	value, err := ctx.pop()
	if err != nil {
		return err
	}
	calleeAddr, err := ctx.pop()
	if err != nil {
		return err
	}
	if gasLimit.AsUint64() > ctx.GasRemaining {
		return ErrGasLimitExceeded
	}
	var caller [32]byte
	if len(ctx.CallStack) > 0 {
		caller = ctx.CallStack[len(ctx.CallStack)-1].Address
	}
	frame := CallFrame{
		Caller:   caller,
		Address:  calleeAddr.AsAddress(),
		Value:    value.AsUint64(),
		GasLimit: gasLimit.AsUint64(),
	}
	ctx.CallStack = append(ctx.CallStack, frame)
	return nil
}

func opReturn(ctx *ExecutionContext) error {
	size, err := ctx.pop()
	if err != nil {
		return err
	}
	offset, err := ctx.pop()
	if err != nil {
		return err
	}
	data, err := windowMemory(ctx, offset.AsUint64(), size.AsUint64())
	if err != nil {
		return &MemoryError{Detail: err.Error()}
	}
	if len(ctx.CallStack) > 0 {
		ctx.CallStack[len(ctx.CallStack)-1].ReturnData = data
	}
	ctx.halted = true
	return nil
}

// opSha3 pops (offset, size), hashes that memory window with the byte-domain
// Keccak commitment, and pushes the digest as a Bytes value. This is the
// ground-truth runtime result. The circuit has no SHA3 constraint: a SHA3
// step there only advances pc, and the memory window is not hashed with
// Poseidon in-circuit (see circuitStackWidth's doc comment in package
// circuit). A byte-domain digest is not interchangeable with a field-domain
// one, per spec.md §6's domain-separation note.
func opSha3(ctx *ExecutionContext) error {
	size, err := ctx.pop()
	if err != nil {
		return err
	}
	offset, err := ctx.pop()
	if err != nil {
		return err
	}
	data, werr := windowMemory(ctx, offset.AsUint64(), size.AsUint64())
	if werr != nil {
		return &MemoryError{Detail: werr.Error()}
	}
	digest := hash.StateHash(data)
	return ctx.push(BytesValue(digest[:]))
}

func opBalance(ctx *ExecutionContext) error {
	addr, err := ctx.pop()
	if err != nil {
		return err
	}
	key := addr.AsAddress()
	v, ok := ctx.Storage[key]
	if !ok || v.Kind != KindContract || v.Contract == nil {
		return ctx.push(IntValue(0))
	}
	return ctx.push(IntValue(int64(v.Contract.Balance)))
}

func opStop(ctx *ExecutionContext) error {
	ctx.halted = true
	return nil
}

// windowMemory reads size bytes starting at offset out of the sparse memory
// map, treating each slot as a little-endian-encoded i64 byte, for opcodes
// that need a contiguous byte window (RETURN, SHA3).
func windowMemory(ctx *ExecutionContext, offset, size uint64) ([]byte, error) {
	out := make([]byte, 0, size)
	for i := uint64(0); i < size; i++ {
		v, ok := ctx.Memory[offset+i]
		if !ok {
			out = append(out, 0)
			continue
		}
		out = append(out, byte(v.AsUint64()))
	}
	return out, nil
}
