package circuit

import (
	"fmt"

	"github.com/zkvm-core/zkvm/hash"
)

// poseidonGadget arithmetizes hash.Poseidon directly as R1CS constraints:
// every round's S-box and MDS mixing is a real Mul/AssertEqual gate, so a
// digest exposed as a public input is bound to the variables it claims to
// commit to, rather than merely computed alongside the witness the way
// commitProgram is (safe there only because program bytes are public
// knowledge to begin with, not a secret witness). Mirrors
// hash.poseidonPermutation's round structure exactly so the in-circuit and
// out-of-circuit hashes agree bit for bit.
func poseidonGadget(c *Circuit, label string, inputs []Variable) Variable {
	params := hash.DefaultPoseidonParams()
	t := params.T
	rate := t - 1

	state := make([]LinearCombination, t)
	for i := range state {
		state[i] = LinearCombination{}
	}

	lcs := make([]LinearCombination, len(inputs))
	for i, v := range inputs {
		lcs[i] = Term1(v)
	}

	absorbed := false
	for i := 0; i < len(lcs); i += rate {
		end := i + rate
		if end > len(lcs) {
			end = len(lcs)
		}
		for j, lc := range lcs[i:end] {
			state[j+1] = Add(state[j+1], lc)
		}
		state = poseidonPermutationGadget(c, fmt.Sprintf("%s_%d", label, i), state, params)
		absorbed = true
	}
	if !absorbed {
		state = poseidonPermutationGadget(c, label+"_empty", state, params)
	}

	out := c.AllocatePrivate(label+"_digest", c.Eval(state[0]))
	c.AssertEqual(Term1(out), state[0])
	return out
}

// poseidonPermutationGadget is the in-circuit twin of hash.poseidonPermutation:
// same half-full/partial/half-full round split, same round-constant index
// progression, same MDS mix, but every S-box is a chain of Mul gates instead
// of a plain field multiplication.
func poseidonPermutationGadget(c *Circuit, label string, state []LinearCombination, p *hash.PoseidonParams) []LinearCombination {
	t := p.T
	half := p.FullRounds / 2
	rc := 0

	addRC := func(st []LinearCombination) []LinearCombination {
		out := make([]LinearCombination, t)
		for i := 0; i < t; i++ {
			out[i] = Add(st[i], LC(p.RoundConstants[rc], constantOneVar))
			rc++
		}
		return out
	}
	sbox := func(x LinearCombination, tag string) LinearCombination {
		x1 := c.AllocatePrivate(tag, c.Eval(x))
		c.AssertEqual(Term1(x1), x)
		x2 := c.Mul(Term1(x1), Term1(x1), tag+"_sq")
		x4 := c.Mul(Term1(x2), Term1(x2), tag+"_quad")
		x5 := c.Mul(Term1(x4), Term1(x1), tag+"_quint")
		return Term1(x5)
	}
	mds := func(st []LinearCombination) []LinearCombination {
		out := make([]LinearCombination, t)
		for i := 0; i < t; i++ {
			sum := LinearCombination{}
			for j := 0; j < t; j++ {
				sum = Add(sum, Scale(st[j], p.MDS[i][j]))
			}
			out[i] = sum
		}
		return out
	}

	for r := 0; r < half; r++ {
		state = addRC(state)
		for i := 0; i < t; i++ {
			state[i] = sbox(state[i], fmt.Sprintf("%s_f1_%d_%d", label, r, i))
		}
		state = mds(state)
	}
	for r := 0; r < p.PartialRounds; r++ {
		state = addRC(state)
		state[0] = sbox(state[0], fmt.Sprintf("%s_p_%d", label, r))
		state = mds(state)
	}
	for r := 0; r < half; r++ {
		state = addRC(state)
		for i := 0; i < t; i++ {
			state[i] = sbox(state[i], fmt.Sprintf("%s_f2_%d_%d", label, r, i))
		}
		state = mds(state)
	}
	return state
}
