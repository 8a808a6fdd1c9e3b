package types

import (
	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// AccountInfo is what the account registry knows about an address.
// A nil LinkedPublicKey means the account cannot receive a viewing-access grant.
type AccountInfo struct {
	Address           common.Address
	SpendingPublicKey *jubjub.PublicKey
	LinkedPublicKey   *jubjub.PublicKey
}

// Grant returns the account's own access grant, or nil without a linked key.
func (a *AccountInfo) Grant() *AccessGrant {
	if a == nil || a.LinkedPublicKey == nil {
		return nil
	}
	return &AccessGrant{
		Address:         a.Address,
		LinkedPublicKey: a.LinkedPublicKey,
	}
}

// AccessGrant lets Address decrypt the viewing key of an output note.
type AccessGrant struct {
	Address         common.Address
	LinkedPublicKey *jubjub.PublicKey
}

// MergeGrants builds the grant set of a group of notes minted to one recipient.
// Without caller supplied grants it is only the owner's grant (if any).
// Otherwise it is the union of userAccess and owner: absent entries are
// dropped and the first grant for an address wins.
func MergeGrants(userAccess []*AccessGrant, owner *AccessGrant) []*AccessGrant {
	if len(userAccess) == 0 {
		if owner == nil || owner.LinkedPublicKey == nil {
			return nil
		}
		return []*AccessGrant{owner}
	}

	all := make([]*AccessGrant, 0, len(userAccess)+1)
	all = append(all, userAccess...)
	all = append(all, owner)

	seen := make(map[common.Address]struct{}, len(all))
	merged := make([]*AccessGrant, 0, len(all))
	for _, g := range all {
		if g == nil || g.LinkedPublicKey == nil {
			continue
		}
		if _, ok := seen[g.Address]; ok {
			continue
		}
		seen[g.Address] = struct{}{}
		merged = append(merged, g)
	}
	return merged
}

// SealedGrant is an access grant carried in note metadata:
// the note's viewing key sealed to the grantee's linked key.
type SealedGrant struct {
	Address  common.Address
	Envelope []byte
}

func EncodeSealedGrants(grants []SealedGrant) ([]byte, error) {
	if len(grants) == 0 {
		return nil, nil
	}
	return rlp.EncodeToBytes(grants)
}

func DecodeSealedGrants(bz []byte) ([]SealedGrant, error) {
	if len(bz) == 0 {
		return nil, nil
	}
	var grants []SealedGrant
	if err := rlp.DecodeBytes(bz, &grants); err != nil {
		return nil, err
	}
	return grants, nil
}
