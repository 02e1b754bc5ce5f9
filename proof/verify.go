package proof

import (
	"github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/zkvm-core/zkvm/field"
)

// Verify checks a ProofData against vk: recomputes the binding digest,
// consults cache (if non-nil) to short-circuit repeated verification of the
// same proof, and otherwise runs the BN254 pairing-product check
// e(-A,B)*e(Alpha,Beta)*e(IC,Gamma)*e(C,Delta) = 1, matching the teacher's
// groth16_verifier.go equation ported onto gnark-crypto's native BN254
// PairingCheck. Never panics on malformed input: returns (false, nil) for
// shape mismatches rather than an error, per spec.md §7 ("Verify never
// panics").
func Verify(vk *VerifyingKey, p *ProofData, cache *Cache) (bool, error) {
	if vk == nil || p == nil {
		return false, nil
	}
	if len(vk.IC) != len(p.PublicInputs)+1 {
		return false, nil
	}

	digest := bindingDigest(p)
	if digest != p.Hash {
		return false, nil
	}

	if cache != nil {
		if result, ok := cache.Lookup(digest); ok {
			return result, nil
		}
	}

	valid := verifyPairing(vk, p)

	if cache != nil {
		cache.Store(digest, valid, "")
	}
	return valid, nil
}

func verifyPairing(vk *VerifyingKey, p *ProofData) bool {
	icSum := computeIC(vk.IC, p.PublicInputs)

	var negA bn254.G1Affine
	negA.Neg(&p.A)

	P := []bn254.G1Affine{negA, vk.Alpha, icSum, p.C}
	Q := []bn254.G2Affine{p.B, vk.Beta, vk.Gamma, vk.Delta}

	ok, err := bn254.PairingCheck(P, Q)
	if err != nil {
		return false
	}
	return ok
}

// computeIC folds IC[0] + Σ IC[i+1]*publicInputs[i] into a single G1 point,
// the standard Groth16 "input accumulator" the teacher's g16ComputeIC also
// builds (there over BLS12-381 precompile calls, here via direct
// gnark-crypto group operations).
func computeIC(ic []bn254.G1Affine, publicInputs []field.F) bn254.G1Affine {
	sum := ic[0]
	for i, x := range publicInputs {
		term := scalarMulG1(ic[i+1], x)
		var next bn254.G1Affine
		next.Add(&sum, &term)
		sum = next
	}
	return sum
}
