package vm

import (
	"testing"

	"github.com/zkvm-core/zkvm/opcode"
)

func program(ops ...byte) []byte { return ops }

// Scenario A: PUSH 2, PUSH 3, ADD, STOP leaves 5 on the stack and halts
// cleanly with gas debited for exactly four instructions.
func TestScenarioA_PushAdd(t *testing.T) {
	p := program(byte(opcode.PUSH), 2, byte(opcode.PUSH), 3, byte(opcode.ADD), byte(opcode.STOP))
	ctx := NewContext(p, 1000)
	if err := ctx.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ctx.Halted() {
		t.Fatal("expected halted context")
	}
	if len(ctx.Stack) != 1 || ctx.Stack[0].Int != 5 {
		t.Fatalf("expected [5] on stack, got %+v", ctx.Stack)
	}
	wantGas := uint64(1000) - (opcode.GasPush*2 + opcode.GasAdd + opcode.GasStop)
	if ctx.GasRemaining != wantGas {
		t.Fatalf("gas remaining = %d, want %d", ctx.GasRemaining, wantGas)
	}
}

// Scenario B: STORE then LOAD round-trips a value through memory.
func TestScenarioB_StoreLoad(t *testing.T) {
	p := program(
		byte(opcode.PUSH), 7, // value
		byte(opcode.PUSH), 0, // address
		byte(opcode.STORE),
		byte(opcode.PUSH), 0,
		byte(opcode.LOAD),
		byte(opcode.STOP),
	)
	ctx := NewContext(p, 1000)
	if err := ctx.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Stack) != 1 || ctx.Stack[0].Int != 7 {
		t.Fatalf("expected [7] on stack, got %+v", ctx.Stack)
	}
}

// Scenario C: JUMP to a mid-program destination skips intervening opcodes.
func TestScenarioC_Jump(t *testing.T) {
	// layout: 0:PUSH 1:5(dest) 2:JUMP 3:PUSH 4:0xFF(unreachable marker) 5:PUSH(dest) 6:9 7:STOP
	p := program(
		byte(opcode.PUSH), 5,
		byte(opcode.JUMP),
		byte(opcode.PUSH), 0xFF, // never executed
		byte(opcode.PUSH), 9,
		byte(opcode.STOP),
	)
	ctx := NewContext(p, 1000)
	if err := ctx.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Stack) != 1 || ctx.Stack[0].Int != 9 {
		t.Fatalf("expected jump to skip the unreachable push, got %+v", ctx.Stack)
	}
}

// Scenario D: JUMPI with a false condition falls through instead of jumping.
// dest is right-most in the table and therefore popped first (top of
// stack), so it is pushed last.
func TestScenarioD_JumpiFallsThrough(t *testing.T) {
	p := program(
		byte(opcode.PUSH), 0, // condition: false
		byte(opcode.PUSH), 99, // dest (never taken)
		byte(opcode.JUMPI),
		byte(opcode.PUSH), 42,
		byte(opcode.STOP),
	)
	ctx := NewContext(p, 1000)
	if err := ctx.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Stack) != 1 || ctx.Stack[0].Int != 42 {
		t.Fatalf("expected fallthrough, got %+v", ctx.Stack)
	}
}

// JUMPI's true branch (cond != 0) takes the jump, skipping the fallthrough
// instruction entirely.
func TestJumpiTrueBranchTakesJump(t *testing.T) {
	// layout: 0:PUSH 1:1(cond) 2:PUSH 3:7(dest) 4:JUMPI 5:PUSH 6:0xFF(unreachable) 7:PUSH 8:42 9:STOP
	p := program(
		byte(opcode.PUSH), 1, // condition: true
		byte(opcode.PUSH), 7, // dest: the PUSH 42 below
		byte(opcode.JUMPI),
		byte(opcode.PUSH), 0xFF, // never executed
		byte(opcode.PUSH), 42,
		byte(opcode.STOP),
	)
	ctx := NewContext(p, 1000)
	if err := ctx.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Stack) != 1 || ctx.Stack[0].Int != 42 {
		t.Fatalf("expected jump to skip the unreachable push, got %+v", ctx.Stack)
	}
}

// Scenario E: an invalid jump destination fails stop, not a panic.
func TestScenarioE_InvalidJumpDestination(t *testing.T) {
	p := program(byte(opcode.PUSH), 200, byte(opcode.JUMP))
	ctx := NewContext(p, 1000)
	err := ctx.Execute()
	if err != ErrInvalidJumpDestination {
		t.Fatalf("expected ErrInvalidJumpDestination, got %v", err)
	}
}

// Scenario F: gas exhaustion stops execution before the offending opcode's
// gas is debited, and before it mutates the stack.
func TestScenarioF_GasExhaustion(t *testing.T) {
	p := program(byte(opcode.PUSH), 1, byte(opcode.PUSH), 2, byte(opcode.ADD), byte(opcode.STOP))
	// enough for both pushes, not enough for ADD.
	gas := opcode.GasPush*2 + 1
	ctx := NewContext(p, gas)
	err := ctx.Execute()
	if err != ErrGasLimitExceeded {
		t.Fatalf("expected ErrGasLimitExceeded, got %v", err)
	}
	if len(ctx.Stack) != 2 {
		t.Fatalf("ADD should not have mutated the stack, got %+v", ctx.Stack)
	}
	if ctx.GasRemaining != 1 {
		t.Fatalf("expected untouched remaining gas of 1, got %d", ctx.GasRemaining)
	}
}

func TestStackUnderflow(t *testing.T) {
	p := program(byte(opcode.ADD), byte(opcode.STOP))
	ctx := NewContext(p, 1000)
	if err := ctx.Execute(); err != ErrStackUnderflow {
		t.Fatalf("expected ErrStackUnderflow, got %v", err)
	}
}

func TestInvalidOpcode(t *testing.T) {
	p := program(0xFE)
	ctx := NewContext(p, 1000)
	err := ctx.Execute()
	ioe, ok := err.(*InvalidOpcodeError)
	if !ok {
		t.Fatalf("expected *InvalidOpcodeError, got %v (%T)", err, err)
	}
	if ioe.Op != 0xFE || ioe.PC != 0 {
		t.Fatalf("unexpected error detail: %+v", ioe)
	}
}

// property 4: state root is independent of storage map insertion order.
// state_root is defined over (sorted storage, logs) only — STORE/LOAD write
// to ctx.Memory, a distinct map spec.md §4.1 excludes from state_root — so
// this deploys two contracts via CREATE (which does populate ctx.Storage,
// keyed by the deployed code's hash) in opposite orders and checks the
// resulting roots agree.
func TestStateRootOrderInvariant(t *testing.T) {
	createBlock := func(balance, codeSize byte, code byte) []byte {
		return []byte{byte(opcode.PUSH), balance, byte(opcode.PUSH), codeSize, byte(opcode.CREATE), code}
	}
	a := createBlock(5, 1, 0xAA)
	b := createBlock(7, 1, 0xBB)

	combined1 := append(append(append([]byte{}, a...), b...), byte(opcode.STOP))
	combined2 := append(append(append([]byte{}, b...), a...), byte(opcode.STOP))
	p1 := program(combined1...)
	p2 := program(combined2...)

	ctx1 := NewContext(p1, 100000)
	ctx2 := NewContext(p2, 100000)
	if err := ctx1.Execute(); err != nil {
		t.Fatal(err)
	}
	if err := ctx2.Execute(); err != nil {
		t.Fatal(err)
	}
	if len(ctx1.Storage) != 2 || len(ctx2.Storage) != 2 {
		t.Fatalf("expected 2 deployed contracts each, got %d and %d", len(ctx1.Storage), len(ctx2.Storage))
	}
	if ctx1.StateRoot != ctx2.StateRoot {
		t.Fatal("state root should be independent of storage insertion order")
	}
}

func TestProgramEndTerminates(t *testing.T) {
	p := program(byte(opcode.PUSH), 1)
	ctx := NewContext(p, 1000)
	if err := ctx.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ctx.Halted() {
		t.Fatal("running off the end of the program should halt")
	}
}

func TestEstimateGasSumsTableCosts(t *testing.T) {
	p := program(byte(opcode.PUSH), 1, byte(opcode.PUSH), 2, byte(opcode.ADD), byte(opcode.STOP))
	gas, err := EstimateGas(p, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := opcode.GasPush*2 + opcode.GasAdd + opcode.GasStop
	if gas != want {
		t.Fatalf("estimated gas = %d, want %d", gas, want)
	}
}

func TestVerifyTraceDetectsMismatch(t *testing.T) {
	p := program(byte(opcode.PUSH), 1, byte(opcode.PUSH), 2, byte(opcode.ADD), byte(opcode.STOP))
	ctx := NewContext(p, 1000)
	if err := ctx.Execute(); err != nil {
		t.Fatal(err)
	}
	tampered := ctx.Trace
	tampered.Steps[0].GasCost = 999
	if err := VerifyTrace(p, 1000, tampered); err == nil {
		t.Fatal("expected mismatch to be detected")
	}
}

// spec.md §8 table, scenario A, run against the literal program bytes:
// stack top = Int(8), gas used = 3+3+5 = 11.
func TestSpecTableScenarioA(t *testing.T) {
	p := []byte{0x01, 0x05, 0x01, 0x03, 0x02, 0xFF}
	ctx := NewContext(p, 1000)
	if err := ctx.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Stack) != 1 || ctx.Stack[0].Int != 8 {
		t.Fatalf("expected [8] on stack, got %+v", ctx.Stack)
	}
	wantGas := uint64(1000 - 11)
	if ctx.GasRemaining != wantGas {
		t.Fatalf("gas remaining = %d, want %d", ctx.GasRemaining, wantGas)
	}
}

// spec.md §8 table, scenario C's literal bytes (`01 2A 04 00 01 37 04 01 05
// 00 05 01 02 FF`, lifted from original_source's vm_tests.rs) assume
// STORE/LOAD take a single stack operand plus an inline immediate address
// byte, the same way PUSH carries an inline immediate. spec.md §4.1/§6
// state twice, explicitly, that every opcode besides PUSH/CREATE takes its
// operands from the stack with no inline bytes — see DESIGN.md's
// resolution in favor of the stack-only convention. Running scenario C's
// literal bytes under this implementation's stack-only STORE/LOAD does not
// reproduce its documented outcome; it underflows at the first STORE, which
// finds only the pushed 0x2A on the stack where it needs two operands.
func TestSpecTableScenarioC_LiteralBytesUnderflowUnderStackSemantics(t *testing.T) {
	p := []byte{0x01, 0x2A, 0x04, 0x00, 0x01, 0x37, 0x04, 0x01, 0x05, 0x00, 0x05, 0x01, 0x02, 0xFF}
	ctx := NewContext(p, 1000)
	if err := ctx.Execute(); err != ErrStackUnderflow {
		t.Fatalf("expected ErrStackUnderflow under stack-only STORE/LOAD semantics, got %v", err)
	}
}

// Scenario C's documented outcome (stack top = Int(97), memory[0] = Int(42),
// memory[1] = Int(55)) reproduced with STORE/LOAD operands taken from the
// stack, per the chosen resolution above.
func TestSpecTableScenarioC_StackSemantics(t *testing.T) {
	p := program(
		byte(opcode.PUSH), 42, byte(opcode.PUSH), 0, byte(opcode.STORE),
		byte(opcode.PUSH), 55, byte(opcode.PUSH), 1, byte(opcode.STORE),
		byte(opcode.PUSH), 0, byte(opcode.LOAD),
		byte(opcode.PUSH), 1, byte(opcode.LOAD),
		byte(opcode.ADD),
		byte(opcode.STOP),
	)
	ctx := NewContext(p, 1000)
	if err := ctx.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Stack) != 1 || ctx.Stack[0].Int != 97 {
		t.Fatalf("expected [97] on stack, got %+v", ctx.Stack)
	}
	if ctx.Memory[0].Int != 42 || ctx.Memory[1].Int != 55 {
		t.Fatalf("unexpected memory state: %+v", ctx.Memory)
	}
}

// spec.md §8 table, scenario F: 1025 PUSHes overflow the 1024-entry stack.
func TestSpecTableScenarioF_StackOverflow(t *testing.T) {
	p := make([]byte, 0, 1025*2+1)
	for i := 0; i < 1025; i++ {
		p = append(p, byte(opcode.PUSH), 0x00)
	}
	p = append(p, byte(opcode.STOP))

	ctx := NewContext(p, 1_000_000)
	if err := ctx.Execute(); err != ErrStackOverflow {
		t.Fatalf("expected ErrStackOverflow, got %v", err)
	}
	if len(ctx.Stack) != MaxStackDepth {
		t.Fatalf("expected stack capped at %d entries before the overflowing push, got %d", MaxStackDepth, len(ctx.Stack))
	}
}

func TestOpEq(t *testing.T) {
	p := program(byte(opcode.PUSH), 7, byte(opcode.PUSH), 7, byte(opcode.EQ), byte(opcode.STOP))
	ctx := NewContext(p, 1000)
	if err := ctx.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Stack) != 1 || ctx.Stack[0].Kind != KindBool || !ctx.Stack[0].Bool {
		t.Fatalf("expected [true], got %+v", ctx.Stack)
	}
}

func TestOpLt(t *testing.T) {
	p := program(byte(opcode.PUSH), 3, byte(opcode.PUSH), 5, byte(opcode.LT), byte(opcode.STOP))
	ctx := NewContext(p, 1000)
	if err := ctx.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Stack) != 1 || !ctx.Stack[0].Bool {
		t.Fatalf("expected 3 < 5 = true, got %+v", ctx.Stack)
	}
}

func TestOpGt(t *testing.T) {
	p := program(byte(opcode.PUSH), 5, byte(opcode.PUSH), 3, byte(opcode.GT), byte(opcode.STOP))
	ctx := NewContext(p, 1000)
	if err := ctx.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Stack) != 1 || !ctx.Stack[0].Bool {
		t.Fatalf("expected 5 > 3 = true, got %+v", ctx.Stack)
	}
}

func TestOpCall(t *testing.T) {
	ctx := NewContext(program(byte(opcode.STOP)), 1000)
	addr := [32]byte{1, 2, 3}
	mustPush(t, ctx, AddressValue(addr))
	mustPush(t, ctx, IntValue(5))  // value
	mustPush(t, ctx, IntValue(40)) // gasLimit

	if err := opCall(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.CallStack) != 1 {
		t.Fatalf("expected one call frame, got %d", len(ctx.CallStack))
	}
	frame := ctx.CallStack[0]
	if frame.Address != addr || frame.Value != 5 || frame.GasLimit != 40 {
		t.Fatalf("unexpected call frame: %+v", frame)
	}
	if len(ctx.Stack) != 0 {
		t.Fatalf("expected stack drained, got %+v", ctx.Stack)
	}
}

func TestOpReturn(t *testing.T) {
	ctx := NewContext(program(byte(opcode.STOP)), 1000)
	ctx.CallStack = append(ctx.CallStack, CallFrame{})
	ctx.Memory[0] = IntValue(0xAB)
	ctx.Memory[1] = IntValue(0xCD)
	mustPush(t, ctx, IntValue(0)) // offset
	mustPush(t, ctx, IntValue(2)) // size

	if err := opReturn(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ctx.Halted() {
		t.Fatal("RETURN should halt execution")
	}
	want := []byte{0xAB, 0xCD}
	got := ctx.CallStack[len(ctx.CallStack)-1].ReturnData
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("return data = %v, want %v", got, want)
	}
}

func TestOpSha3(t *testing.T) {
	ctx := NewContext(program(byte(opcode.STOP)), 1000)
	ctx.Memory[0] = IntValue(1)
	ctx.Memory[1] = IntValue(2)
	mustPush(t, ctx, IntValue(0)) // offset
	mustPush(t, ctx, IntValue(2)) // size

	if err := opSha3(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Stack) != 1 || ctx.Stack[0].Kind != KindBytes || len(ctx.Stack[0].Bytes) != 32 {
		t.Fatalf("expected a 32-byte digest, got %+v", ctx.Stack)
	}
}

func TestOpBalance(t *testing.T) {
	ctx := NewContext(program(byte(opcode.STOP)), 1000)
	addr := [32]byte{9}
	ctx.Storage[addr] = ContractValue(&Contract{Balance: 77, Storage: make(map[[32]byte]Value)})
	mustPush(t, ctx, AddressValue(addr))

	if err := opBalance(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Stack) != 1 || ctx.Stack[0].Int != 77 {
		t.Fatalf("expected balance 77, got %+v", ctx.Stack)
	}
}

func TestOpBalanceMissingAddressIsZero(t *testing.T) {
	ctx := NewContext(program(byte(opcode.STOP)), 1000)
	mustPush(t, ctx, AddressValue([32]byte{42}))

	if err := opBalance(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Stack) != 1 || ctx.Stack[0].Int != 0 {
		t.Fatalf("expected zero balance for an unknown address, got %+v", ctx.Stack)
	}
}

// CREATE reads code_size bytes inline, immediately following the opcode,
// and advances pc past them; a trailing STOP placed right after the inline
// code must still be reached (not reinterpreted as code).
func TestOpCreate(t *testing.T) {
	code := []byte{byte(opcode.PUSH), 1, byte(opcode.STOP)}
	p := []byte{
		byte(opcode.PUSH), 5,              // balance
		byte(opcode.PUSH), byte(len(code)), // code_size
		byte(opcode.CREATE),
	}
	p = append(p, code...)
	p = append(p, byte(opcode.STOP))

	ctx := NewContext(p, 1_000_000)
	if err := ctx.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Stack) != 2 {
		t.Fatalf("expected [address, contract] on stack, got %+v", ctx.Stack)
	}
	addrValue, contractValue := ctx.Stack[0], ctx.Stack[1]
	if contractValue.Kind != KindContract || contractValue.Contract == nil {
		t.Fatalf("expected a contract value on top, got %+v", contractValue)
	}
	if contractValue.Contract.Balance != 5 {
		t.Fatalf("expected balance 5, got %d", contractValue.Contract.Balance)
	}
	if len(contractValue.Contract.Code) != len(code) {
		t.Fatalf("expected deployed code length %d, got %d", len(code), len(contractValue.Contract.Code))
	}
	stored, ok := ctx.Storage[addrValue.AsAddress()]
	if !ok || stored.Contract != contractValue.Contract {
		t.Fatal("expected the deployed contract to be recorded in storage under its address")
	}
}

func mustPush(t *testing.T, ctx *ExecutionContext, v Value) {
	t.Helper()
	if err := ctx.push(v); err != nil {
		t.Fatalf("push: %v", err)
	}
}
