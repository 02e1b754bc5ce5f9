// Package circuit is the arithmetized circuit (SYSTEM OVERVIEW component 4):
// an R1CS representation of one interpreter run, provable in zero knowledge.
//
// Grounded on the teacher's circuit_builder.go (Variable/LinearCombination/
// Term vocabulary and allocate/add/mul/assert-equal/assert-bool gate
// builders), retyped from math/big onto field.F and extended with the
// step-indexed, PC-dispatched opcode constraints spec.md §4.2 requires.
package circuit

import (
	"fmt"

	"github.com/zkvm-core/zkvm/field"
)

// Variable indexes one wire in the circuit's witness vector. Variable 0 is
// always the constant 1, per the standard R1CS convention the teacher's
// circuit_builder.go also uses.
type Variable int

const constantOneVar Variable = 0

// Term is one addend of a LinearCombination: coefficient * variable.
type Term struct {
	Coeff    field.F
	Variable Variable
}

// LinearCombination is a weighted sum of variables, the left/right/output
// operand type for every R1CS constraint.
type LinearCombination []Term

// Circuit accumulates variables and constraints before being frozen into an
// R1CSSystem. Public variables are, in witness order, the circuit's declared
// public inputs (spec.md §4.2's boundary values); private variables are
// everything else (per-step witnessed state).
type Circuit struct {
	numPublic   int
	numPrivate  int
	names       []string    // index by Variable, for diagnostics only
	values      []field.F   // index by Variable, the witness being built up
	constraints []SparseConstraint
}

// NewCircuit creates an empty circuit. Variable 0 (the constant 1) is
// allocated automatically.
func NewCircuit() *Circuit {
	c := &Circuit{}
	c.names = append(c.names, "one")
	c.values = append(c.values, field.One())
	return c
}

// AllocatePublic declares a new public input variable with its witnessed
// value. Public variables must be allocated, in order, before any private
// ones, so the resulting public-input vector is a contiguous prefix.
func (c *Circuit) AllocatePublic(name string, value field.F) Variable {
	v := Variable(len(c.names))
	c.names = append(c.names, name)
	c.values = append(c.values, value)
	c.numPublic++
	return v
}

// AllocatePrivate declares a new private witness variable with its
// witnessed value.
func (c *Circuit) AllocatePrivate(name string, value field.F) Variable {
	v := Variable(len(c.names))
	c.names = append(c.names, name)
	c.values = append(c.values, value)
	c.numPrivate++
	return v
}

// Value returns a variable's witnessed value.
func (c *Circuit) Value(v Variable) field.F {
	return c.values[v]
}

// Eval evaluates a linear combination against the current witness.
func (c *Circuit) Eval(lc LinearCombination) field.F {
	sum := field.Zero()
	for _, t := range lc {
		sum = field.Add(sum, field.Mul(t.Coeff, c.values[t.Variable]))
	}
	return sum
}

// NumVariables returns the total number of allocated variables, including
// the constant-1 wire.
func (c *Circuit) NumVariables() int {
	return len(c.names)
}

// NumPublic returns the number of public input variables.
func (c *Circuit) NumPublic() int { return c.numPublic }

// One returns the LinearCombination representing the constant 1.
func One() LinearCombination {
	return LinearCombination{{Coeff: field.One(), Variable: constantOneVar}}
}

// LC builds a single-term linear combination coeff*v.
func LC(coeff field.F, v Variable) LinearCombination {
	return LinearCombination{{Coeff: coeff, Variable: v}}
}

// Term1 builds a single-term linear combination with coefficient 1.
func Term1(v Variable) LinearCombination {
	return LC(field.One(), v)
}

// Add appends a+b into a single linear combination (no simplification of
// repeated variables; the R1CS solver treats duplicate terms additively).
func Add(a, b LinearCombination) LinearCombination {
	out := make(LinearCombination, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

// Scale multiplies every term's coefficient by k.
func Scale(lc LinearCombination, k field.F) LinearCombination {
	out := make(LinearCombination, len(lc))
	for i, t := range lc {
		out[i] = Term{Coeff: field.Mul(t.Coeff, k), Variable: t.Variable}
	}
	return out
}

// AddConstraint records a raw a*b=c constraint.
func (c *Circuit) AddConstraint(a, b, out LinearCombination) {
	c.constraints = append(c.constraints, SparseConstraint{A: a, B: b, C: out})
}

// Mul allocates a new private variable constrained and witnessed to equal
// a*b, the standard "multiplication gate" builder.
func (c *Circuit) Mul(a, b LinearCombination, name string) Variable {
	product := field.Mul(c.Eval(a), c.Eval(b))
	out := c.AllocatePrivate(name, product)
	c.AddConstraint(a, b, Term1(out))
	return out
}

// AssertEqual constrains a and b to be equal: (a-b)*1 = 0.
func (c *Circuit) AssertEqual(a, b LinearCombination) {
	diff := Add(a, Scale(b, field.Neg(field.One())))
	c.AddConstraint(diff, One(), LinearCombination{})
}

// AssertBool constrains v to be 0 or 1: v*(1-v) = 0.
func (c *Circuit) AssertBool(v Variable) {
	notV := Add(One(), Scale(Term1(v), field.Neg(field.One())))
	c.AddConstraint(Term1(v), notV, LinearCombination{})
}

// AssertZero constrains a linear combination to evaluate to zero.
func (c *Circuit) AssertZero(lc LinearCombination) {
	c.AddConstraint(lc, One(), LinearCombination{})
}

// String renders a variable's diagnostic name, or its raw index if
// out of range.
func (c *Circuit) String(v Variable) string {
	if int(v) < len(c.names) {
		return c.names[v]
	}
	return fmt.Sprintf("v%d", v)
}
