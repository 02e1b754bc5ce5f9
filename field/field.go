// Package field wraps the BN254 scalar field used by the circuit and proof
// layers. It is the prime-order field F of SYSTEM OVERVIEW component 1:
// add/mul/inverse plus the canonical integer embedding the circuit needs to
// carry i64 stack and memory values as witnesses.
//
// The teacher's circuit builder (circuit_builder.go, poseidon.go) performs
// this arithmetic directly on math/big.Int. Here it is backed by
// gnark-crypto's fr.Element, which is the real dependency those big.Int
// computations stand in for — see DESIGN.md for the rationale.
package field

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// F is a single element of the BN254 scalar field.
type F struct {
	e fr.Element
}

// Zero returns the additive identity.
func Zero() F { return F{} }

// One returns the multiplicative identity.
func One() F {
	var f F
	f.e.SetOne()
	return f
}

// Modulus returns the field's prime modulus.
func Modulus() *big.Int {
	return fr.Modulus()
}

// FromUint64 embeds a non-negative integer into the field.
func FromUint64(v uint64) F {
	var f F
	f.e.SetUint64(v)
	return f
}

// FromInt64 embeds a signed i64 into the field using the canonical map:
// non-negative values map to themselves, negative values map to
// modulus-|v| (two's-complement-style wraparound within the field). This is
// the "canonical integer-to-field map" spec.md §3 requires for VMState.
func FromInt64(v int64) F {
	var f F
	if v >= 0 {
		f.e.SetUint64(uint64(v))
		return f
	}
	f.e.SetUint64(uint64(-v))
	f.e.Neg(&f.e)
	return f
}

// FromBytes interprets a big-endian byte slice as a field element, reducing
// modulo the field's prime.
func FromBytes(b []byte) F {
	var f F
	f.e.SetBytes(b)
	return f
}

// FromBigInt reduces a big.Int into the field.
func FromBigInt(v *big.Int) F {
	var f F
	f.e.SetBigInt(v)
	return f
}

// Add returns a + b.
func Add(a, b F) F {
	var r F
	r.e.Add(&a.e, &b.e)
	return r
}

// Sub returns a - b.
func Sub(a, b F) F {
	var r F
	r.e.Sub(&a.e, &b.e)
	return r
}

// Mul returns a * b.
func Mul(a, b F) F {
	var r F
	r.e.Mul(&a.e, &b.e)
	return r
}

// Neg returns -a.
func Neg(a F) F {
	var r F
	r.e.Neg(&a.e)
	return r
}

// Inverse returns a^-1. Returns the zero element if a is zero (mirrors
// fr.Element's convention; callers must not rely on inverting zero).
func Inverse(a F) F {
	var r F
	r.e.Inverse(&a.e)
	return r
}

// Equal reports whether a and b represent the same residue.
func Equal(a, b F) bool {
	return a.e.Equal(&b.e)
}

// IsZero reports whether a is the additive identity.
func (f F) IsZero() bool {
	return f.e.IsZero()
}

// BigInt returns the canonical (non-Montgomery) big.Int residue.
func (f F) BigInt() *big.Int {
	var out big.Int
	f.e.BigInt(&out)
	return &out
}

// BytesBE returns the canonical 32-byte big-endian encoding.
func (f F) BytesBE() [32]byte {
	return f.e.Bytes()
}

// BytesLE returns the canonical 32-byte little-endian encoding, matching
// spec.md §6's "canonical little-endian representation of its integer
// residue" for public-input serialization.
func (f F) BytesLE() [32]byte {
	be := f.e.Bytes()
	var le [32]byte
	for i := range be {
		le[i] = be[31-i]
	}
	return le
}

// String renders the field element's decimal residue.
func (f F) String() string {
	return f.BigInt().String()
}
