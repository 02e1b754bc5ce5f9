// Package proof is the proof system (SYSTEM OVERVIEW component 5): Groth16-
// style setup/prove/verify over BN254, a bounded proof cache, and a
// parallel batch verifier.
//
// Grounded on the teacher's pkg/proofs (groth16_verifier.go's pairing-
// product structure, proof_cache.go's LRU+TTL cache, batch_verifier.go's
// bounded worker pool), retargeted from the teacher's hand-rolled
// BLS12-381 precompile byte-munging onto direct gnark-crypto BN254 calls —
// see DESIGN.md for why.
package proof

import (
	"github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/zkvm-core/zkvm/field"
)

// VerifyingKey holds the BN254 Groth16-style verification key, named after
// the teacher's BLSGroth16VerifyingKey: e(-A,B)*e(Alpha,Beta)*e(IC,Gamma)*
// e(C,Delta) = 1.
type VerifyingKey struct {
	Alpha bn254.G1Affine
	Beta  bn254.G2Affine
	Gamma bn254.G2Affine
	Delta bn254.G2Affine
	IC    []bn254.G1Affine // IC[0] is the constant term, IC[1:] one per public input
}

// ProvingKey holds the scalars needed to construct a proof for the
// VerifyingKey it was generated alongside. A real Groth16 proving key
// encodes a circuit-specific CRS derived from a QAP reduction of the R1CS;
// this reference implementation's Setup instead keeps the toxic-waste
// scalars directly (see DESIGN.md's note on Prove/Setup scope).
type ProvingKey struct {
	Alpha, Beta, Gamma, Delta *field.F
	ICExponents               []field.F
	G1Gen                     bn254.G1Affine
	G2Gen                     bn254.G2Affine
}

// ProofData is a completed proof together with the public inputs it binds
// to and the binding digest used for cache lookups, per spec.md §3.
type ProofData struct {
	A             bn254.G1Affine
	B             bn254.G2Affine
	C             bn254.G1Affine
	PublicInputs  []field.F
	Hash          [32]byte
}
