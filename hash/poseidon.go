package hash

import (
	"math/big"

	"github.com/zkvm-core/zkvm/field"
)

// PoseidonParams holds the Poseidon round structure and constants.
// Default: t=3 (rate=2, capacity=1), 8 full rounds, 57 partial rounds —
// the same shape as the teacher's poseidon.go, ported from math/big onto
// field.F (BN254 scalar field via gnark-crypto).
type PoseidonParams struct {
	T              int
	FullRounds     int
	PartialRounds  int
	RoundConstants []field.F
	MDS            [][]field.F
}

var defaultPoseidonParams *PoseidonParams

// DefaultPoseidonParams returns the module-wide Poseidon parameterization.
func DefaultPoseidonParams() *PoseidonParams {
	if defaultPoseidonParams != nil {
		return defaultPoseidonParams
	}
	t := 3
	fullRounds := 8
	partialRounds := 57
	total := fullRounds + partialRounds

	defaultPoseidonParams = &PoseidonParams{
		T:              t,
		FullRounds:     fullRounds,
		PartialRounds:  partialRounds,
		RoundConstants: generateRoundConstants(t, total),
		MDS:            generateMDS(t),
	}
	return defaultPoseidonParams
}

// sbox computes x^5, the Poseidon S-box exponent for BN254.
func sbox(x field.F) field.F {
	x2 := field.Mul(x, x)
	x4 := field.Mul(x2, x2)
	return field.Mul(x4, x)
}

func mdsMul(state []field.F, mds [][]field.F) []field.F {
	t := len(state)
	out := make([]field.F, t)
	for i := 0; i < t; i++ {
		sum := field.Zero()
		for j := 0; j < t; j++ {
			sum = field.Add(sum, field.Mul(mds[i][j], state[j]))
		}
		out[i] = sum
	}
	return out
}

func poseidonPermutation(state []field.F, p *PoseidonParams) []field.F {
	t := p.T
	half := p.FullRounds / 2
	rc := 0

	for r := 0; r < half; r++ {
		for i := 0; i < t; i++ {
			state[i] = field.Add(state[i], p.RoundConstants[rc])
			rc++
		}
		for i := 0; i < t; i++ {
			state[i] = sbox(state[i])
		}
		state = mdsMul(state, p.MDS)
	}

	for r := 0; r < p.PartialRounds; r++ {
		for i := 0; i < t; i++ {
			state[i] = field.Add(state[i], p.RoundConstants[rc])
			rc++
		}
		state[0] = sbox(state[0])
		state = mdsMul(state, p.MDS)
	}

	for r := 0; r < half; r++ {
		for i := 0; i < t; i++ {
			state[i] = field.Add(state[i], p.RoundConstants[rc])
			rc++
		}
		for i := 0; i < t; i++ {
			state[i] = sbox(state[i])
		}
		state = mdsMul(state, p.MDS)
	}

	return state
}

// Poseidon hashes a sequence of field elements to a single field element
// using a sponge construction with rate T-1 and capacity 1. This is the
// SNARK-friendly hash of the field domain: the circuit computes its
// program_digest with it directly, and its gate-level twin
// (circuit.poseidonGadget) produces the state digests and the state_root
// public input. The circuit does not hash SHA3 memory windows with it.
func Poseidon(params *PoseidonParams, inputs ...field.F) field.F {
	if params == nil {
		params = DefaultPoseidonParams()
	}
	t := params.T
	rate := t - 1

	state := make([]field.F, t)
	for i := 0; i < len(inputs); i += rate {
		for j := 0; j < rate && i+j < len(inputs); j++ {
			state[j+1] = field.Add(state[j+1], inputs[i+j])
		}
		state = poseidonPermutation(state, params)
	}
	if len(inputs) == 0 {
		state = poseidonPermutation(state, params)
	}
	return state[0]
}

// Sponge is a stateful Poseidon sponge for variable-length absorb/squeeze
// use, mirroring the teacher's PoseidonSponge.
type Sponge struct {
	params *PoseidonParams
	state  []field.F
	buf    []field.F
	rate   int
}

// NewSponge creates a Poseidon sponge. A nil params uses DefaultPoseidonParams.
func NewSponge(params *PoseidonParams) *Sponge {
	if params == nil {
		params = DefaultPoseidonParams()
	}
	return &Sponge{
		params: params,
		state:  make([]field.F, params.T),
		rate:   params.T - 1,
	}
}

// Absorb feeds field elements into the sponge.
func (s *Sponge) Absorb(inputs ...field.F) {
	for _, in := range inputs {
		s.buf = append(s.buf, in)
		if len(s.buf) == s.rate {
			s.absorbBlock()
		}
	}
}

func (s *Sponge) absorbBlock() {
	for j := 0; j < len(s.buf); j++ {
		s.state[j+1] = field.Add(s.state[j+1], s.buf[j])
	}
	s.state = poseidonPermutation(s.state, s.params)
	s.buf = s.buf[:0]
}

// Squeeze extracts count field elements from the sponge.
func (s *Sponge) Squeeze(count int) []field.F {
	if len(s.buf) > 0 {
		s.absorbBlock()
	}
	out := make([]field.F, 0, count)
	for len(out) < count {
		for j := 1; j <= s.rate && len(out) < count; j++ {
			out = append(out, s.state[j])
		}
		if len(out) < count {
			s.state = poseidonPermutation(s.state, s.params)
		}
	}
	return out
}

// --- Deterministic parameter generation (matches teacher's derivation) ---

func generateRoundConstants(t, totalRounds int) []field.F {
	n := t * totalRounds
	out := make([]field.F, n)
	seed := new(big.Int).SetBytes([]byte("PoseidonBN254"))
	five := big.NewInt(5)
	mod := field.Modulus()
	for i := 0; i < n; i++ {
		val := new(big.Int).Add(seed, big.NewInt(int64(i)))
		val.Exp(val, five, mod)
		out[i] = field.FromBigInt(val)
	}
	return out
}

func generateMDS(t int) [][]field.F {
	mod := field.Modulus()
	mds := make([][]field.F, t)
	for i := 0; i < t; i++ {
		mds[i] = make([]field.F, t)
		for j := 0; j < t; j++ {
			sum := new(big.Int).Add(big.NewInt(int64(i)), big.NewInt(int64(t+j)))
			sum.Mod(sum, mod)
			inv := new(big.Int).ModInverse(sum, mod)
			if inv == nil {
				inv = big.NewInt(1)
			}
			mds[i][j] = field.FromBigInt(inv)
		}
	}
	return mds
}
