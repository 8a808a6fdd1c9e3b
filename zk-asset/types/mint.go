package types

import (
	"errors"
	"fmt"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/kysee/zknote/utils"
	"github.com/kysee/zknote/zk-asset/crypto"
)

var (
	ErrNoSpendingKey = errors.New("no spending key")
	ErrNoteValue     = errors.New("note value out of range")
)

// MintNote creates a fresh note of amount for owner.
// The note's viewing key is sealed once per grant and the sealed grants
// become the note's metadata payload.
func MintNote(amount *uint256.Int, spendingKey *jubjub.PublicKey, owner common.Address, grants []*AccessGrant) (*ValueNote, error) {
	if spendingKey == nil {
		return nil, ErrNoSpendingKey
	}
	if amount == nil || amount.Cmp(MaxNoteValue) >= 0 {
		return nil, ErrNoteValue
	}

	note := &ValueNote{
		Version: NoteVersion,
		Owner:   owner,
		PubKey:  spendingKey,
		Amount:  amount.Clone(),
		Salt:    utils.RandFieldBytes(),
		Status:  NoteStatusPending,
	}

	viewingKey := note.ToSecretNote().Bytes()
	sealed := make([]SealedGrant, 0, len(grants))
	for _, g := range grants {
		if g == nil || g.LinkedPublicKey == nil {
			continue
		}
		env, err := crypto.SealEnvelope(viewingKey, g.LinkedPublicKey)
		if err != nil {
			return nil, fmt.Errorf("seal viewing key for %s: %w", g.Address.Hex(), err)
		}
		sealed = append(sealed, SealedGrant{Address: g.Address, Envelope: env})
	}

	metadata, err := EncodeSealedGrants(sealed)
	if err != nil {
		return nil, err
	}
	note.Metadata = metadata
	return note, nil
}
