package crypto

import (
	"crypto/cipher"
	"errors"
	"fmt"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"golang.org/x/crypto/chacha20poly1305"
)

var ErrShortEnvelope = errors.New("envelope is too short")

// SealEnvelope encrypts plaintext so that only the holder of the private key
// matching `to` can read it.
// The envelope layout is [ ephemeral public key(32) | ciphertext ].
func SealEnvelope(plaintext []byte, to *jubjub.PublicKey) ([]byte, error) {
	if to == nil {
		return nil, errors.New("no recipient key")
	}
	ephemeral, err := NewKey()
	if err != nil {
		return nil, err
	}
	shared, err := ECDHEComputeSharedSecret(ephemeral, to)
	if err != nil {
		return nil, err
	}
	kdf, err := SaplingKDF(shared, envelopeKDFSz)
	if err != nil {
		return nil, err
	}

	aead, err := envelopeAEAD(kdf)
	if err != nil {
		return nil, err
	}

	// the ephemeral key is authenticated as associated data
	epk := ephemeral.PublicKey.Bytes()
	ct := aead.Seal(nil, kdf[chacha20poly1305.KeySize:], plaintext, epk)
	return append(epk, ct...), nil
}

// OpenEnvelope reverses SealEnvelope with the recipient's private key.
func OpenEnvelope(envelope []byte, key *jubjub.PrivateKey) ([]byte, error) {
	if len(envelope) <= PubKeySize {
		return nil, ErrShortEnvelope
	}
	epk, err := PubFromBytes(envelope[:PubKeySize])
	if err != nil {
		return nil, fmt.Errorf("ephemeral key: %w", err)
	}
	shared, err := ECDHEComputeSharedSecret(key, epk)
	if err != nil {
		return nil, err
	}
	kdf, err := SaplingKDF(shared, envelopeKDFSz)
	if err != nil {
		return nil, err
	}
	aead, err := envelopeAEAD(kdf)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, kdf[chacha20poly1305.KeySize:], envelope[PubKeySize:], envelope[:PubKeySize])
	if err != nil {
		return nil, fmt.Errorf("open envelope: %w", err)
	}
	return plaintext, nil
}

// envelopeAEAD keys ChaCha20-Poly1305 with the first 32 bytes of kdf.
// The remaining 12 bytes are the nonce.
func envelopeAEAD(kdf []byte) (cipher.AEAD, error) {
	if len(kdf) != chacha20poly1305.KeySize+chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("envelope key stream: %d bytes", len(kdf))
	}
	return chacha20poly1305.New(kdf[:chacha20poly1305.KeySize])
}
