package utils

import (
	"hash"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

func MiMCHasher() hash.Hash {
	return mimc.NewMiMC()
}

// MiMCHash hashes each input as a sequence of field elements.
// Inputs are split into 32 bytes blocks and every block is reduced into fr
// before being written, so the result is the same as the in-circuit MiMC
// over the same elements.
func MiMCHash(ins ...[]byte) []byte {
	hasher := MiMCHasher()

	blockSize := hasher.Size()

	hasher.Reset()
	for _, in := range ins {
		for i := 0; i < len(in); i += blockSize {
			end := i + blockSize
			if end > len(in) {
				end = len(in)
			}

			// this value may be greater than the modulus; convert to fr.Element
			var elem fr.Element
			elem.SetBytes(in[i:end])
			if _, err := hasher.Write(elem.Marshal()); err != nil {
				panic(err)
			}
		}
	}
	return hasher.Sum(nil)
}

// FieldBytes returns the canonical 32 bytes big-endian encoding of v mod r.
func FieldBytes(v *big.Int) []byte {
	var elem fr.Element
	elem.SetBigInt(v)
	return elem.Marshal()
}

// FieldValue reduces v into the BN254 scalar field. Negative values wrap
// around the modulus.
func FieldValue(v *big.Int) *big.Int {
	ret := new(big.Int).Mod(v, fr.Modulus())
	return ret
}

// RandFieldBytes returns a uniformly random, canonical field element.
func RandFieldBytes() []byte {
	var elem fr.Element
	if _, err := elem.SetRandom(); err != nil {
		panic(err)
	}
	return elem.Marshal()
}

