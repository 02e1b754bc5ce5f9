package circuit

import (
	"fmt"

	"github.com/zkvm-core/zkvm/field"
)

// SparseConstraint is one R1CS row: (A·z) * (B·z) = (C·z), where z is the
// full witness vector and A/B/C are sparse linear combinations over it.
// Grounded on the teacher's r1cs_solver.go SparseConstraint, retyped onto
// field.F.
type SparseConstraint struct {
	A, B, C LinearCombination
}

// R1CSSystem is a Circuit frozen for solving/verification: its constraint
// list plus the witness vector accumulated while the circuit was built.
type R1CSSystem struct {
	circuit *Circuit
}

// Freeze produces an R1CSSystem from a fully-built Circuit.
func Freeze(c *Circuit) *R1CSSystem {
	return &R1CSSystem{circuit: c}
}

// Witness returns the full witness vector (constant-1 wire, then public
// inputs, then private variables, in allocation order).
func (r *R1CSSystem) Witness() []field.F {
	return r.circuit.values
}

// PublicInputs returns the witnessed values of the public variables, in
// allocation order (indices 1..numPublic of the witness vector).
func (r *R1CSSystem) PublicInputs() []field.F {
	out := make([]field.F, r.circuit.numPublic)
	copy(out, r.circuit.values[1:1+r.circuit.numPublic])
	return out
}

// Verify checks every constraint is satisfied by the circuit's current
// witness: (A·z)*(B·z) == (C·z) for every row. This is the in-the-clear
// sanity check the proof layer's zk-SNARK replaces with a succinct
// pairing-based argument; Verify is what Prove runs first to refuse to
// produce a proof of a false statement.
func (r *R1CSSystem) Verify() error {
	for i, con := range r.circuit.constraints {
		left := r.circuit.Eval(con.A)
		right := r.circuit.Eval(con.B)
		out := r.circuit.Eval(con.C)
		if !field.Equal(field.Mul(left, right), out) {
			return &UnsatisfiedConstraintError{Index: i}
		}
	}
	return nil
}

// Stats summarizes circuit size for profiling against max_steps, grounded
// on the teacher's r1cs_solver.go Stats.
type Stats struct {
	Constraints  int
	Variables    int
	PublicInputs int
	PrivateVars  int
	Terms        int
}

// Stats computes size statistics for the frozen system.
func (r *R1CSSystem) Stats() Stats {
	terms := 0
	for _, con := range r.circuit.constraints {
		terms += len(con.A) + len(con.B) + len(con.C)
	}
	return Stats{
		Constraints:  len(r.circuit.constraints),
		Variables:    r.circuit.NumVariables(),
		PublicInputs: r.circuit.numPublic,
		PrivateVars:  r.circuit.numPrivate,
		Terms:        terms,
	}
}

// UnsatisfiedConstraintError names the first constraint row that fails to
// hold under the current witness.
type UnsatisfiedConstraintError struct {
	Index int
}

func (e *UnsatisfiedConstraintError) Error() string {
	return fmt.Sprintf("circuit: constraint unsatisfied at row %d", e.Index)
}
