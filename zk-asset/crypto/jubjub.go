package crypto

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/big"

	tedwards "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"golang.org/x/crypto/blake2s"
)

const (
	PubKeySize    = 32
	envelopeKDFSz = 44 // 32 bytes key | 12 bytes nonce
)

func NewKey() (*jubjub.PrivateKey, error) {
	return jubjub.GenerateKey(crand.Reader)
}

// PubFromBytes parses a compressed public key.
func PubFromBytes(bz []byte) (*jubjub.PublicKey, error) {
	if len(bz) != PubKeySize {
		return nil, fmt.Errorf("wrong public key size: expected(%d), got(%d)", PubKeySize, len(bz))
	}
	pub := new(jubjub.PublicKey)
	if _, err := pub.SetBytes(bz); err != nil {
		return nil, err
	}
	return pub, nil
}

// ECDHEComputeSharedSecret computes the ECDHE shared secret
// sharedSecret = privateKey * otherPublicKey
func ECDHEComputeSharedSecret(privateKey *jubjub.PrivateKey, otherPublicKey *jubjub.PublicKey) ([]byte, error) {
	// Verify the other public key is on the curve
	if !otherPublicKey.A.IsOnCurve() {
		return nil, errors.New("other public key is not on curve")
	}

	var sharedSecret tedwards.PointAffine

	// PrivateKey.Bytes() = [ pub(32) | scalar(32) | randSrc(32) ]
	scalarBytes := privateKey.Bytes()
	scalarBigInt := new(big.Int).SetBytes(scalarBytes[32:64])
	sharedSecret.ScalarMultiplication(&otherPublicKey.A, scalarBigInt)

	if !sharedSecret.IsOnCurve() {
		return nil, errors.New("computed shared secret is not on curve")
	}

	hasher, err := blake2s.New256(nil)
	if err != nil {
		return nil, err
	}
	ax := sharedSecret.X.Bytes()
	hasher.Write(ax[:])
	return hasher.Sum(nil), nil
}

// SaplingKDF derives a key stream of a specified length from a shared secret using BLAKE2s.
// This function follows the PRF^expand logic, similar to HKDF-Expand (RFC 5869),
// as defined in the Zcash Sapling specification.
func SaplingKDF(sharedSecret []byte, outputLen int) ([]byte, error) {
	if len(sharedSecret) != 32 {
		return nil, fmt.Errorf("sharedSecret must be 32 bytes")
	}

	personalization := []byte("Zcash_ExpandSeed")

	var keyStream []byte
	var counter byte = 1 // The counter must start at 1.
	for len(keyStream) < outputLen {
		h, err := blake2s.New256(personalization)
		if err != nil {
			return nil, fmt.Errorf("failed to create blake2s hash: %w", err)
		}
		h.Write(sharedSecret)
		h.Write([]byte{counter})

		keyStream = append(keyStream, h.Sum(nil)...)

		counter++
		if counter == 0 {
			return nil, errors.New("KDF counter overflow")
		}
	}

	return keyStream[:outputLen], nil
}
