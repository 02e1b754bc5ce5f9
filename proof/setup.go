package proof

import (
	"crypto/rand"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/zkvm-core/zkvm/field"
)

// Setup generates a ProvingKey/VerifyingKey pair sized for a circuit with
// numPublicInputs public variables (not counting the constant-1 wire),
// mirroring the teacher's groth16_verifier.go Setup reference: derive
// Alpha, Beta, Gamma, Delta and an IC vector sized to the public input
// count.
//
// This is a from-scratch BN254 reference implementation, not a production
// Groth16 trusted setup: a real setup binds the CRS to the circuit's QAP
// via a structured reference string ceremony, which is out of scope here
// (see DESIGN.md). What this Setup preserves is the pairing-equation
// contract Verify checks, over the real BN254 curve via gnark-crypto.
func Setup(numPublicInputs int) (*ProvingKey, *VerifyingKey, error) {
	if numPublicInputs < 0 {
		return nil, nil, fmt.Errorf("%w: negative public input count", ErrSetup)
	}

	_, _, g1Gen, g2Gen := bn254.Generators()

	alpha, err := randomScalar()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSetup, err)
	}
	beta, err := randomScalar()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSetup, err)
	}
	gamma, err := randomScalar()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSetup, err)
	}
	delta, err := randomScalar()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSetup, err)
	}

	icExponents := make([]field.F, numPublicInputs+1)
	icPoints := make([]bn254.G1Affine, numPublicInputs+1)
	for i := range icExponents {
		e, err := randomScalar()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrSetup, err)
		}
		icExponents[i] = e
		icPoints[i] = scalarMulG1(g1Gen, e)
	}

	var alphaG1 bn254.G1Affine
	alphaG1 = scalarMulG1(g1Gen, alpha)
	var betaG2, gammaG2, deltaG2 bn254.G2Affine
	betaG2 = scalarMulG2(g2Gen, beta)
	gammaG2 = scalarMulG2(g2Gen, gamma)
	deltaG2 = scalarMulG2(g2Gen, delta)

	pk := &ProvingKey{
		Alpha:       &alpha,
		Beta:        &beta,
		Gamma:       &gamma,
		Delta:       &delta,
		ICExponents: icExponents,
		G1Gen:       g1Gen,
		G2Gen:       g2Gen,
	}
	vk := &VerifyingKey{
		Alpha: alphaG1,
		Beta:  betaG2,
		Gamma: gammaG2,
		Delta: deltaG2,
		IC:    icPoints,
	}
	return pk, vk, nil
}

func randomScalar() (field.F, error) {
	n, err := rand.Int(rand.Reader, field.Modulus())
	if err != nil {
		return field.F{}, err
	}
	return field.FromBigInt(n), nil
}

func scalarMulG1(base bn254.G1Affine, s field.F) bn254.G1Affine {
	var out bn254.G1Affine
	out.ScalarMultiplication(&base, s.BigInt())
	return out
}

func scalarMulG2(base bn254.G2Affine, s field.F) bn254.G2Affine {
	var out bn254.G2Affine
	out.ScalarMultiplication(&base, s.BigInt())
	return out
}
