package types

import (
	"testing"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/kysee/zknote/zk-asset/crypto"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) *jubjub.PrivateKey {
	prv, err := crypto.NewKey()
	require.NoError(t, err)
	return prv
}

func TestNoteCommitment(t *testing.T) {
	prv := newTestKey(t)
	owner := common.HexToAddress("0x01")

	n0, err := MintNote(uint256.NewInt(100), &prv.PublicKey, owner, nil)
	require.NoError(t, err)
	require.Equal(t, NoteStatusPending, n0.Status)
	require.Nil(t, n0.Metadata)

	// same note, same hash
	require.Equal(t, n0.NoteHash(), n0.NoteHash())

	// a fresh salt gives a fresh hash for the same amount and key
	n1, err := MintNote(uint256.NewInt(100), &prv.PublicKey, owner, nil)
	require.NoError(t, err)
	require.NotEqual(t, n0.NoteHash(), n1.NoteHash())

	// the amount is bound by the commitment
	n2 := NoteFromSecret(n0.ToSecretNote(), owner, &prv.PublicKey)
	require.Equal(t, n0.NoteHash(), n2.NoteHash())
	n2.Amount = uint256.NewInt(101)
	require.NotEqual(t, n0.NoteHash(), n2.NoteHash())
}

func TestMintNote_Bounds(t *testing.T) {
	prv := newTestKey(t)
	_, err := MintNote(uint256.NewInt(1), nil, common.Address{}, nil)
	require.ErrorIs(t, err, ErrNoSpendingKey)

	_, err = MintNote(MaxNoteValue, &prv.PublicKey, common.Address{}, nil)
	require.ErrorIs(t, err, ErrNoteValue)
}

func TestMintNote_SealedGrants(t *testing.T) {
	owner := newTestKey(t)
	linked := newTestKey(t)
	auditor := newTestKey(t)
	ownerAddr := common.HexToAddress("0xa1")
	auditorAddr := common.HexToAddress("0xa2")

	grants := []*AccessGrant{
		{Address: ownerAddr, LinkedPublicKey: &linked.PublicKey},
		{Address: auditorAddr, LinkedPublicKey: &auditor.PublicKey},
		nil,
	}
	note, err := MintNote(uint256.NewInt(77), &owner.PublicKey, ownerAddr, grants)
	require.NoError(t, err)

	sealed, err := note.SealedGrants()
	require.NoError(t, err)
	require.Len(t, sealed, 2)

	env := note.ViewingKeyFor(auditorAddr)
	require.NotNil(t, env)
	plain, err := crypto.OpenEnvelope(env, auditor)
	require.NoError(t, err)

	sn, err := DecodeSecretNote(plain)
	require.NoError(t, err)
	require.Equal(t, uint64(77), sn.Balance.Uint64())
	require.Equal(t, note.Salt, sn.Salt)

	// the auditor's key cannot open the owner's envelope
	_, err = crypto.OpenEnvelope(note.ViewingKeyFor(ownerAddr), auditor)
	require.Error(t, err)

	require.Nil(t, note.ViewingKeyFor(common.HexToAddress("0xff")))
}

func TestMetadataPrefix(t *testing.T) {
	prv := newTestKey(t)
	note, err := MintNote(uint256.NewInt(5), &prv.PublicKey, common.Address{}, nil)
	require.NoError(t, err)
	note.Metadata = []byte("custom")

	exported := note.ExportMetadata()
	require.Len(t, exported, MetadataNoteDataLength+len("custom"))

	prefix, custom, err := SplitMetadata(exported)
	require.NoError(t, err)
	require.Equal(t, []byte("custom"), custom)
	require.Equal(t, NoteVersion, prefix[0])
	h := note.NoteHash()
	require.Equal(t, h[:], prefix[1+crypto.PubKeySize:])

	_, _, err = SplitMetadata(exported[:MetadataNoteDataLength-1])
	require.ErrorIs(t, err, ErrShortMetadata)
}

func TestSecretNoteRLP(t *testing.T) {
	sn := &SecretNote{
		Version: NoteVersion,
		Balance: uint256.NewInt(1_000_000),
		Salt:    []byte{0x01, 0x02},
		Memo:    []byte("memo"),
	}
	dec, err := DecodeSecretNote(sn.Bytes())
	require.NoError(t, err)
	require.Equal(t, sn, dec)

	_, err = DecodeSecretNote([]byte{0xff})
	require.Error(t, err)
}

func TestNoteStatusText(t *testing.T) {
	for _, s := range []NoteStatus{NoteStatusPending, NoteStatusSpendable, NoteStatusSpent} {
		txt, err := s.MarshalText()
		require.NoError(t, err)
		var back NoteStatus
		require.NoError(t, back.UnmarshalText(txt))
		require.Equal(t, s, back)
	}
	var s NoteStatus
	require.Error(t, s.UnmarshalText([]byte("locked")))
	require.Equal(t, "unknown", NoteStatusUnknown.String())
}
