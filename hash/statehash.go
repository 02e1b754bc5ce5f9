// Package hash provides the two hash functions SYSTEM OVERVIEW component 1
// names: a collision-resistant byte hash for state-root commitments
// (StateHash, used outside the circuit) and a SNARK-friendly hash used
// inside the circuit (Poseidon, in poseidon.go).
//
// The two are domain-separated per spec.md §6: StateHash lives in the byte
// domain, Poseidon lives in the field domain, and the two roots they produce
// are independent commitments to the same logical state — never
// interchangeable.
package hash

import (
	"golang.org/x/crypto/sha3"
)

// Size is the digest length of StateHash, in bytes.
const Size = 32

// StateHash computes the collision-resistant byte-domain digest used for
// interpreter state-roots and the proof binding digest. It is Keccak-256,
// the same construction the teacher's zxvm.go uses via go-ethereum's
// crypto.Keccak256 (itself a thin wrapper over golang.org/x/crypto/sha3).
func StateHash(data ...[]byte) [Size]byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	var out [Size]byte
	copy(out[:], d.Sum(nil))
	return out
}
