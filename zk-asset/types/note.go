package types

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/kysee/zknote/utils"
	"github.com/kysee/zknote/zk-asset/crypto"
)

const (
	NoteVersion byte = 1

	// MetadataNoteDataLength is the length of the prefix the note store puts
	// in front of the application payload: [ version(1) | spending key(32) | note hash(32) ].
	MetadataNoteDataLength = 1 + crypto.PubKeySize + common.HashLength
)

// MaxNoteValue is the exclusive upper bound of a note amount. The join-split
// circuit range checks amounts to 128 bits.
var MaxNoteValue = new(uint256.Int).Lsh(uint256.NewInt(1), 128)

var ErrShortMetadata = errors.New("metadata is shorter than the note data prefix")

type NoteStatus uint8

const (
	NoteStatusUnknown NoteStatus = iota
	NoteStatusPending
	NoteStatusSpendable
	NoteStatusSpent
)

func (s NoteStatus) String() string {
	switch s {
	case NoteStatusPending:
		return "pending"
	case NoteStatusSpendable:
		return "spendable"
	case NoteStatusSpent:
		return "spent"
	}
	return "unknown"
}

func (s NoteStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *NoteStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*s = NoteStatusPending
	case "spendable":
		*s = NoteStatusSpendable
	case "spent":
		*s = NoteStatusSpent
	default:
		return fmt.Errorf("unknown note status: %q", text)
	}
	return nil
}

// ValueNote is a commitment to a hidden amount owned by a spending key.
// A reconstructed note is never mutated; new value is always carried by a
// freshly minted note.
type ValueNote struct {
	Version byte
	Owner   common.Address
	PubKey  *jubjub.PublicKey
	Amount  *uint256.Int
	Salt    []byte

	// Metadata is the application payload without the store's prefix.
	Metadata []byte
	Status   NoteStatus
}

// Commitment is MiMC(version, pub.X, pub.Y, amount, salt) over BN254 elements.
func (n *ValueNote) Commitment() []byte {
	ax := n.PubKey.A.X.Bytes()
	ay := n.PubKey.A.Y.Bytes()
	amt := n.Amount.Bytes32()
	return utils.MiMCHash(
		[]byte{n.Version},
		ax[:],
		ay[:],
		amt[:],
		n.Salt,
	)
}

func (n *ValueNote) NoteHash() common.Hash {
	return common.BytesToHash(n.Commitment())
}

// ExportMetadata returns the metadata as the note store keeps it.
func (n *ValueNote) ExportMetadata() []byte {
	h := n.NoteHash()
	bz := make([]byte, 0, MetadataNoteDataLength+len(n.Metadata))
	bz = append(bz, n.Version)
	bz = append(bz, n.PubKey.Bytes()...)
	bz = append(bz, h[:]...)
	return append(bz, n.Metadata...)
}

// SplitMetadata separates the store prefix from the application payload.
func SplitMetadata(metadata []byte) (prefix, custom []byte, err error) {
	if len(metadata) < MetadataNoteDataLength {
		return nil, nil, ErrShortMetadata
	}
	return metadata[:MetadataNoteDataLength], metadata[MetadataNoteDataLength:], nil
}

func (n *ValueNote) ToSecretNote() *SecretNote {
	return &SecretNote{
		Version: n.Version,
		Balance: n.Amount.Clone(),
		Salt:    bytes.Clone(n.Salt),
	}
}

// SealedGrants decodes the access grants carried in the metadata payload.
func (n *ValueNote) SealedGrants() ([]SealedGrant, error) {
	return DecodeSealedGrants(n.Metadata)
}

// ViewingKeyFor returns the viewing-key envelope sealed for addr, or nil.
func (n *ValueNote) ViewingKeyFor(addr common.Address) []byte {
	grants, err := n.SealedGrants()
	if err != nil {
		return nil
	}
	for _, g := range grants {
		if g.Address == addr {
			return g.Envelope
		}
	}
	return nil
}

// NoteFromSecret rebuilds the note described by a decrypted viewing key.
func NoteFromSecret(sn *SecretNote, owner common.Address, pubKey *jubjub.PublicKey) *ValueNote {
	return &ValueNote{
		Version: sn.Version,
		Owner:   owner,
		PubKey:  pubKey,
		Amount:  sn.Balance.Clone(),
		Salt:    bytes.Clone(sn.Salt),
	}
}

// SecretNote represents the plaintext data of a note that will be encrypted and sent to the recipient.
// It is analogous to the Note Plaintext structure in Zcash Sapling and is what
// a viewing key decrypts to.
type SecretNote struct {
	// Version indicates the format version of the note.
	Version byte

	// Balance is the amount of the asset represented by the note.
	Balance *uint256.Int

	// Salt is the random value (rcm) used to generate the note commitment.
	Salt []byte

	// Memo is an arbitrary message field that can be included in the transaction.
	Memo []byte
}

// Bytes returns the RLP-encoded representation of the SecretNote as a byte slice.
// It panics if the encoding fails.
func (sn *SecretNote) Bytes() []byte {
	b, err := rlp.EncodeToBytes(sn)
	if err != nil {
		panic(fmt.Sprintf("failed to RLP encode SecretNote: %v", err))
	}
	return b
}

// EncodeRLP implements the rlp.Encoder interface.
func (sn *SecretNote) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []interface{}{
		sn.Version,
		sn.Balance.ToBig(),
		sn.Salt,
		sn.Memo,
	})
}

// DecodeRLP implements the rlp.Decoder interface.
func (sn *SecretNote) DecodeRLP(s *rlp.Stream) error {
	var temp struct {
		Version byte
		Balance *big.Int // Decode into *big.Int first.
		Salt    []byte
		Memo    []byte
	}

	if err := s.Decode(&temp); err != nil {
		return err
	}

	balance, overflow := uint256.FromBig(temp.Balance)
	if overflow {
		return fmt.Errorf("balance value overflows uint256")
	}

	sn.Version = temp.Version
	sn.Balance = balance
	sn.Salt = temp.Salt
	sn.Memo = temp.Memo
	return nil
}

func DecodeSecretNote(bz []byte) (*SecretNote, error) {
	sn := new(SecretNote)
	if err := rlp.DecodeBytes(bz, sn); err != nil {
		return nil, err
	}
	return sn, nil
}
