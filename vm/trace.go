package vm

import (
	"fmt"

	"github.com/zkvm-core/zkvm/internal/zklog"
)

// EstimateGas dry-runs program under gasLimit and returns the gas it would
// consume, without exposing the mutated context to the caller. Grounded on
// the teacher's zxvm.go EstimateGas: run a throwaway context, report the gas
// consumed on success or on a gas-related failure, and surface any other
// execution error unchanged.
func EstimateGas(program []byte, gasLimit uint64) (uint64, error) {
	ctx := NewContext(program, gasLimit)
	err := ctx.Execute()
	consumed := gasLimit - ctx.GasRemaining
	if err != nil && err != ErrGasLimitExceeded {
		return consumed, err
	}
	return consumed, nil
}

// VerifyTrace independently replays program and checks the resulting trace
// agrees step-for-step with recorded at PC, opcode, and stack/memory
// snapshot, returning the first disagreement found. This is a cheap
// sanity check complementary to circuit verification, not a substitute for
// it — grounded on the teacher's zxvm.go VerifyTrace.
func VerifyTrace(program []byte, gasLimit uint64, recorded ExecutionTrace) error {
	log := zklog.Logger("vm")
	ctx := NewContext(program, gasLimit)
	if err := ctx.Execute(); err != nil {
		return fmt.Errorf("vm: replay failed: %w", err)
	}
	if len(ctx.Trace.Steps) != len(recorded.Steps) {
		return fmt.Errorf("vm: trace length mismatch: replay=%d recorded=%d",
			len(ctx.Trace.Steps), len(recorded.Steps))
	}
	for i, got := range ctx.Trace.Steps {
		want := recorded.Steps[i]
		if got.PCBefore != want.PCBefore || got.Opcode != want.Opcode || got.GasCost != want.GasCost {
			log.Error().Int("step", i).Msg("trace disagreement")
			return fmt.Errorf("vm: trace step %d mismatch: got pc=%d op=%s gas=%d, want pc=%d op=%s gas=%d",
				i, got.PCBefore, got.Opcode, got.GasCost, want.PCBefore, want.Opcode, want.GasCost)
		}
		if !stacksEqual(got.StackSnapshot, want.StackSnapshot) {
			return fmt.Errorf("vm: trace step %d stack mismatch", i)
		}
		if !memoryEqual(got.MemorySnapshot, want.MemorySnapshot) {
			return fmt.Errorf("vm: trace step %d memory mismatch", i)
		}
	}
	return nil
}

func stacksEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func memoryEqual(a, b map[uint64]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		other, ok := b[k]
		if !ok || !valuesEqual(v, other) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt:
		return a.Int == b.Int
	case KindBool:
		return a.Bool == b.Bool
	case KindBytes, KindAddress:
		if len(a.Bytes) != len(b.Bytes) {
			return false
		}
		for i := range a.Bytes {
			if a.Bytes[i] != b.Bytes[i] {
				return false
			}
		}
		return true
	case KindContract:
		return a.Contract == b.Contract
	default:
		return false
	}
}
