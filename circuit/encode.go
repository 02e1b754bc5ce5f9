package circuit

import (
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/zkvm-core/zkvm/field"
)

// WitnessInt64 allocates a private variable for the canonical field
// embedding of v (field.FromInt64) and range-checks it against the 64-bit
// two's-complement bit pattern of v, so a malicious witness cannot pass off
// an out-of-range field element as a valid i64 — the lack-of-wraparound gap
// spec.md §9's design note flags.
//
// The 64-bit pattern is split into two 32-bit limbs using
// github.com/holiman/uint256's canonical big-endian byte representation
// (the same library the teacher and WuEcho-DesignVM use for fixed-width
// integer handling), and each limb is bit-decomposed and asserted boolean,
// bounding it below 2^32.
func (c *Circuit) WitnessInt64(name string, v int64) Variable {
	fv := field.FromInt64(v)
	out := c.AllocatePrivate(name, fv)

	raw := uint64(v)
	u := new(uint256.Int).SetUint64(raw)
	b := u.Bytes32()
	hi := binary.BigEndian.Uint32(b[24:28])
	lo := binary.BigEndian.Uint32(b[28:32])

	loVar := c.AllocatePrivate(name+".lo", field.FromUint64(uint64(lo)))
	hiVar := c.AllocatePrivate(name+".hi", field.FromUint64(uint64(hi)))
	c.rangeCheckBits(loVar, lo, 32)
	hiBits := c.rangeCheckBits(hiVar, hi, 32)

	// out == lo + hi*2^32 - sign*2^64, where sign is the top bit of the
	// 64-bit pattern: the signed i64 the pattern encodes, which is exactly
	// field.FromInt64(v) (modulus-|v| for negative v).
	two32 := field.FromUint64(1 << 32)
	recombined := Add(Term1(loVar), Scale(Term1(hiVar), two32))
	recombined = Add(recombined, Scale(Term1(hiBits[31]), field.Neg(field.Mul(two32, two32))))
	c.AssertEqual(Term1(out), recombined)

	return out
}

// rangeCheckBits asserts v's witnessed value equals the little-endian bit
// sum of raw's low numBits bits, each individually constrained boolean, and
// returns the bit variables, least significant first.
func (c *Circuit) rangeCheckBits(v Variable, raw uint32, numBits int) []Variable {
	sum := LinearCombination{}
	bits := make([]Variable, numBits)
	for i := 0; i < numBits; i++ {
		bit := (raw >> uint(i)) & 1
		bv := c.AllocatePrivate("bit", field.FromUint64(uint64(bit)))
		c.AssertBool(bv)
		bits[i] = bv
		sum = append(sum, Term{Coeff: field.FromUint64(uint64(1) << uint(i)), Variable: bv})
	}
	c.AssertEqual(Term1(v), sum)
	return bits
}
