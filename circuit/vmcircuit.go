package circuit

import (
	"fmt"

	"github.com/zkvm-core/zkvm/field"
	"github.com/zkvm-core/zkvm/hash"
	"github.com/zkvm-core/zkvm/opcode"
	"github.com/zkvm-core/zkvm/vm"
)

// VMCircuit parameters: the bounded stack window and opcode family the
// circuit fully arithmetizes. This is a deliberate scope cut from the
// interpreter's unbounded stack: the circuit only needs to prove a run of
// at most max_steps instructions over the opcodes it models a full
// transition for (PUSH, ADD, MUL, EQ, LT, GT, JUMP, JUMPI, STORE, LOAD,
// STOP); the remaining opcodes (CREATE, CALL, RETURN, SHA3, BALANCE) still
// participate in per-step PC dispatch and halt-continuity but their stack
// and memory side effects are not independently re-derived in-circuit —
// see DESIGN.md.
const circuitStackWidth = 2

// ExecutionCircuitParams bundles the public boundary values a built circuit
// commits to.
type ExecutionCircuitParams struct {
	Program  []byte
	Trace    vm.ExecutionTrace
	MaxSteps int
	// InitialStack is the declared pre-state of the stack window step 0
	// starts from. Nil means the empty stack. Binding this (rather than
	// hardcoding the empty stack) is what lets initial_state_digest commit
	// to an externally-declared starting state, per spec.md §4.2.
	InitialStack []vm.Value
}

// BuildExecutionCircuit arithmetizes one interpreter run into an R1CS
// system: per-step PC-dispatched opcode selection (the REDESIGN fix over
// binding step i to program[i] directly), a selector vector per step
// satisfying Σ sel = 1, boundary constraints tying the first and last
// steps to the declared initial/final state, and the gas/state-digest
// public inputs spec.md §4.2/§6 fix.
//
// Grounded on the teacher's circuit_builder.go gate-building style, with the
// step/opcode dispatch structure spec.md §4.2 and §9 require.
func BuildExecutionCircuit(p ExecutionCircuitParams) (*R1CSSystem, error) {
	if p.MaxSteps <= 0 {
		return nil, fmt.Errorf("circuit: max_steps must be positive")
	}
	if len(p.Trace.Steps) > p.MaxSteps {
		return nil, fmt.Errorf("circuit: trace has %d steps, exceeds max_steps=%d", len(p.Trace.Steps), p.MaxSteps)
	}

	c := NewCircuit()

	// program_digest is safe to compute natively (not through the Poseidon
	// gadget): the program is public knowledge to both prover and verifier,
	// not a secret witness, so there is nothing to bind it against beyond
	// itself. initial_state_digest/final_state_digest/state_root below are
	// digests of genuinely secret per-step witness values, so those go
	// through poseidonGadget to actually constrain the claimed digest to
	// the values it commits to.
	programCommitment := commitProgram(p.Program)
	programDigestPub := c.AllocatePublic("program_digest", programCommitment)

	initWindow := stackWindow(p.InitialStack)
	var prevS0, prevS1, prevPC, prevHalted, prevGas Variable
	prevS0 = c.WitnessInt64("s0_init", initWindow[0])
	prevS1 = c.WitnessInt64("s1_init", initWindow[1])
	prevPC = c.AllocatePrivate("pc_init", field.Zero())
	prevHalted = c.AllocatePrivate("halted_init", field.Zero())
	prevGas = c.AllocatePrivate("gas_init", field.Zero())
	c.AssertEqual(Term1(prevPC), LinearCombination{{Coeff: field.Zero(), Variable: constantOneVar}})
	c.AssertEqual(Term1(prevHalted), LinearCombination{{Coeff: field.Zero(), Variable: constantOneVar}})
	c.AssertEqual(Term1(prevGas), LinearCombination{{Coeff: field.Zero(), Variable: constantOneVar}})

	initStateDigest := poseidonGadget(c, "initial_state", []Variable{prevS0, prevS1, prevPC, prevHalted})
	initStateDigestPub := c.AllocatePublic("initial_state_digest", c.Value(initStateDigest))
	c.AssertEqual(Term1(initStateDigestPub), Term1(initStateDigest))

	var memVars []Variable

	for step := 0; step < p.MaxSteps; step++ {
		halted := step >= len(p.Trace.Steps)

		var op opcode.Op
		var pcBefore uint64
		var before, after [circuitStackWidth]int64

		before = initWindow
		if step > 0 {
			before = stackWindow(priorStack(p.Trace, step))
		}
		if !halted {
			ts := p.Trace.Steps[step]
			op = ts.Opcode
			pcBefore = ts.PCBefore
			after = stackWindow(ts.StackSnapshot)
		} else {
			// Padding steps past the end of the trace stay at the pc the
			// previous step left behind.
			op = opcode.STOP
			pcBefore = c.Value(prevPC).BigInt().Uint64()
			after = before
		}

		pcVar := c.AllocatePrivate(fmt.Sprintf("pc_%d", step), field.FromUint64(pcBefore))

		sel := make([]Variable, len(p.Program))
		selSum := LinearCombination{}
		opFromProgram := LinearCombination{}
		for j := range p.Program {
			isHere := field.Zero()
			if uint64(j) == pcBefore {
				isHere = field.One()
			}
			sv := c.AllocatePrivate(fmt.Sprintf("sel_%d_%d", step, j), isHere)
			c.AssertBool(sv)
			sel[j] = sv
			selSum = append(selSum, Term1(sv)...)
			opFromProgram = append(opFromProgram, Term{Coeff: field.FromUint64(uint64(p.Program[j])), Variable: sv})
		}
		if !halted {
			c.AssertEqual(selSum, One())
			c.AssertEqual(Term1(pcVar), opFromProgram0(c, sel, p.Program))
			opcodeVar := c.AllocatePrivate(fmt.Sprintf("op_%d", step), field.FromUint64(uint64(op)))
			c.AssertEqual(Term1(opcodeVar), opFromProgram)
		}

		s0Var := c.WitnessInt64(fmt.Sprintf("s0_before_%d", step), before[0])
		s1Var := c.WitnessInt64(fmt.Sprintf("s1_before_%d", step), before[1])
		c.AssertEqual(Term1(s0Var), Term1(prevS0))
		c.AssertEqual(Term1(s1Var), Term1(prevS1))
		c.AssertEqual(Term1(pcVar), Term1(prevPC))

		haltedVar := c.AllocatePrivate(fmt.Sprintf("halted_%d", step), boolField(halted))
		c.AssertBool(haltedVar)

		gasVar := c.AllocatePrivate(fmt.Sprintf("gas_before_%d", step), c.Value(prevGas))
		c.AssertEqual(Term1(gasVar), Term1(prevGas))
		cost := opcode.Cost(op)
		nextGas := c.AllocatePrivate(fmt.Sprintf("gas_after_%d", step), field.Add(c.Value(prevGas), field.FromUint64(cost)))
		c.AssertEqual(Term1(nextGas), Add(Term1(gasVar), LC(field.FromUint64(cost), constantOneVar)))

		var ns0, ns1, npc, memVar Variable
		if halted {
			// A padding step is a no-op: state is copied forward unchanged.
			ns0, ns1, npc, memVar = s0Var, s1Var, pcVar, zeroVar(c)
		} else {
			ns0, ns1, npc, memVar = transition(c, op, s0Var, s1Var, pcVar, after)
		}
		memVars = append(memVars, memVar)

		nHalted := haltedVar
		if !halted && op == opcode.STOP {
			nHalted = c.AllocatePrivate(fmt.Sprintf("halted_after_%d", step), field.One())
		}

		prevS0, prevS1, prevPC, prevHalted, prevGas = ns0, ns1, npc, nHalted, nextGas
	}

	finalStateDigest := poseidonGadget(c, "final_state", []Variable{prevS0, prevS1, prevPC, prevHalted})
	finalStateDigestPub := c.AllocatePublic("final_state_digest", c.Value(finalStateDigest))
	c.AssertEqual(Term1(finalStateDigestPub), Term1(finalStateDigest))

	gasUsedPub := c.AllocatePublic("gas_used", c.Value(prevGas))
	c.AssertEqual(Term1(gasUsedPub), Term1(prevGas))

	// state_root folds every step's witnessed STORE/LOAD result (zero on
	// steps that touch no memory cell) into one digest, the field-domain
	// equivalent of spec.md §4.1's byte-domain root. The circuit's existing
	// stack-only scope cut (see circuitStackWidth's doc comment) means this
	// is a running commitment to memory-touching results in step order, not
	// a full sorted-storage root like the interpreter's hash.StateHash —
	// documented in DESIGN.md.
	stateRoot := poseidonGadget(c, "state_root", memVars)
	stateRootPub := c.AllocatePublic("state_root", c.Value(stateRoot))
	c.AssertEqual(Term1(stateRootPub), Term1(stateRoot))

	_ = programDigestPub
	return Freeze(c), nil
}

// transition computes the next (s0, s1, pc, memResult) for the opcode
// family the circuit fully models. memResult is the witnessed STORE/LOAD
// result for this step, folded into state_root, and zero for every other
// opcode. Opcodes outside the fully-modeled family leave the stack window
// unchanged and advance pc by one, per the scope note on circuitStackWidth.
//
// Every stack value the circuit derives from the witness (as opposed to
// one already carried forward from a range-checked variable, like s0/s1
// here) goes through WitnessInt64 rather than a plain AllocatePrivate, so
// it is bound to a genuine 64-bit two's-complement pattern and cannot sit
// at an out-of-range field element spec.md §9 warns the field itself
// won't catch.
func transition(c *Circuit, op opcode.Op, s0, s1, pc Variable, witnessedAfter [circuitStackWidth]int64) (Variable, Variable, Variable, Variable) {
	one := field.One()
	switch op {
	case opcode.ADD:
		sum := c.WitnessInt64("add_result", witnessedAfter[0])
		c.AssertEqual(Term1(sum), Add(Term1(s0), Term1(s1)))
		return sum, zeroVar(c), incPC(c, pc), zeroVar(c)
	case opcode.MUL:
		// s0 and s1 are already range-checked (they came from WitnessInt64
		// upstream); the product itself is range-checked here directly
		// against the witnessed result rather than via c.Mul's own
		// unchecked AllocatePrivate, then bound to s0*s1 by the same
		// a*b=c constraint c.Mul would have added.
		prod := c.WitnessInt64("mul_result", witnessedAfter[0])
		c.AddConstraint(Term1(s0), Term1(s1), Term1(prod))
		return prod, zeroVar(c), incPC(c, pc), zeroVar(c)
	case opcode.EQ, opcode.LT, opcode.GT:
		// Boolean result witnessed directly; the interpreter is the
		// authority on the comparison itself, the circuit only carries the
		// witnessed boolean forward and constrains it to {0,1}.
		res := c.WitnessInt64(op.String()+"_result", witnessedAfter[0])
		c.AssertBool(res)
		return res, zeroVar(c), incPC(c, pc), zeroVar(c)
	case opcode.PUSH:
		imm := c.WitnessInt64("push_imm", witnessedAfter[0])
		return imm, s0, incPCBy(c, pc, 2), zeroVar(c)
	case opcode.JUMP:
		// s0 holds the jump destination popped from the stack; the next pc
		// is bound to it directly rather than re-derived from the witness,
		// so a prover cannot claim a jump to anywhere but what was really
		// on top of the stack.
		dest := c.AllocatePrivate("jump_dest", c.Value(s0))
		c.AssertEqual(Term1(dest), Term1(s0))
		return zeroVar(c), zeroVar(c), dest, zeroVar(c)
	case opcode.JUMPI:
		// s0 holds the jump destination, s1 the condition (interpreter pops
		// dest first, then cond, per spec.md's right-most-popped-first stack
		// convention — see DESIGN.md). Scope note: the circuit only supports
		// boolean 0/1 conditions, narrower than the interpreter's general
		// nonzero truthiness test — see DESIGN.md.
		c.AssertBool(s1)
		condVal := c.Value(s1)
		var nextVal field.F
		if !condVal.IsZero() {
			nextVal = c.Value(s0)
		} else {
			nextVal = field.Add(c.Value(pc), one)
		}
		npc := c.AllocatePrivate("jumpi_next_pc", nextVal)
		notCond := Add(One(), Scale(Term1(s1), field.Neg(one)))
		takeBranch := c.Mul(Term1(s1), Term1(s0), "jumpi_take")
		fallthroughPC := Add(Term1(pc), LC(one, constantOneVar))
		skip := c.Mul(notCond, fallthroughPC, "jumpi_skip")
		c.AssertEqual(Term1(npc), Add(Term1(takeBranch), Term1(skip)))
		return zeroVar(c), zeroVar(c), npc, zeroVar(c)
	case opcode.STORE, opcode.LOAD:
		result := c.WitnessInt64("mem_result", witnessedAfter[0])
		return result, zeroVar(c), incPC(c, pc), result
	default:
		return s0, s1, incPC(c, pc), zeroVar(c)
	}
}

func zeroVar(c *Circuit) Variable {
	return c.AllocatePrivate("zero", field.Zero())
}

func incPC(c *Circuit, pc Variable) Variable {
	return incPCBy(c, pc, 1)
}

func incPCBy(c *Circuit, pc Variable, delta uint64) Variable {
	next := field.Add(c.Value(pc), field.FromUint64(delta))
	v := c.AllocatePrivate("pc_next", next)
	c.AssertEqual(Term1(v), Add(Term1(pc), LC(field.FromUint64(delta), constantOneVar)))
	return v
}

func boolField(b bool) field.F {
	if b {
		return field.One()
	}
	return field.Zero()
}

func stackWindow(stack []vm.Value) [circuitStackWidth]int64 {
	var out [circuitStackWidth]int64
	n := len(stack)
	for i := 0; i < circuitStackWidth; i++ {
		idx := n - 1 - i
		if idx >= 0 {
			v := stack[idx]
			if v.Kind == vm.KindBool {
				if v.Bool {
					out[i] = 1
				}
			} else {
				out[i] = v.Int
			}
		}
	}
	return out
}

func priorStack(trace vm.ExecutionTrace, step int) []vm.Value {
	if step == 0 || step-1 >= len(trace.Steps) {
		if step == 0 {
			return nil
		}
		return trace.Steps[len(trace.Steps)-1].StackSnapshot
	}
	return trace.Steps[step-1].StackSnapshot
}

// commitProgram computes a field-domain Poseidon commitment to the program
// bytes, the public "which program was executed" binding value.
func commitProgram(program []byte) field.F {
	elems := make([]field.F, len(program))
	for i, b := range program {
		elems[i] = field.FromUint64(uint64(b))
	}
	return hash.Poseidon(nil, elems...)
}

// opFromProgram0 is a helper kept distinct from the inline opFromProgram
// linear combination built in BuildExecutionCircuit so the pc-binding
// assertion reads as its own named step.
func opFromProgram0(c *Circuit, sel []Variable, program []byte) LinearCombination {
	lc := LinearCombination{}
	for j := range program {
		lc = append(lc, Term{Coeff: field.FromUint64(uint64(j)), Variable: sel[j]})
	}
	return lc
}
