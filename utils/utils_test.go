package utils

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"
)

func TestMiMCHash(t *testing.T) {
	a := RandFieldBytes()
	b := RandFieldBytes()

	h0 := MiMCHash(a, b)
	h1 := MiMCHash(a, b)
	require.Equal(t, h0, h1)
	require.Len(t, h0, 32)

	h2 := MiMCHash(b, a)
	require.NotEqual(t, h0, h2)
}

func TestMiMCHash_ShortInput(t *testing.T) {
	// a short input is the same element as its left-padded form
	short := []byte{0x01, 0x02}
	padded := make([]byte, 32)
	padded[30], padded[31] = 0x01, 0x02
	require.Equal(t, MiMCHash(padded), MiMCHash(short))
}

func TestFieldValue(t *testing.T) {
	require.Equal(t, big.NewInt(10), FieldValue(big.NewInt(10)))

	neg := FieldValue(big.NewInt(-1))
	expected := new(big.Int).Sub(fr.Modulus(), big.NewInt(1))
	require.Equal(t, 0, expected.Cmp(neg))

	require.Len(t, FieldBytes(big.NewInt(-5)), 32)
}
