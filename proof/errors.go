package proof

import "errors"

// Proof-system error taxonomy, per spec.md §7.
var (
	ErrSetup            = errors.New("proof: setup error")
	ErrProve             = errors.New("proof: prove error")
	ErrVerify            = errors.New("proof: verify error")
	ErrUnsatisfiedWitness = errors.New("proof: witness does not satisfy the circuit")
	ErrPublicInputMismatch = errors.New("proof: public input count mismatch")
)
