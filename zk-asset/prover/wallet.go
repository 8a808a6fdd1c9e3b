package prover

import (
	"fmt"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/kysee/zknote/zk-asset/crypto"
	"github.com/kysee/zknote/zk-asset/types"
)

// ViewingKeyDecrypter opens viewing-key envelopes sealed to its linked key.
type ViewingKeyDecrypter interface {
	DecryptViewingKey(envelope []byte) ([]byte, error)
}

// Wallet is the spending account: a spending key that owns notes and a
// linked key that reads them.
type Wallet struct {
	address     common.Address
	spendingKey *jubjub.PrivateKey
	linkedKey   *jubjub.PrivateKey
}

var _ ViewingKeyDecrypter = (*Wallet)(nil)

func NewWallet() (*Wallet, error) {
	spendingKey, err := crypto.NewKey()
	if err != nil {
		return nil, err
	}
	linkedKey, err := crypto.NewKey()
	if err != nil {
		return nil, err
	}
	return NewWalletFromKeys(spendingKey, linkedKey), nil
}

func NewWalletFromKeys(spendingKey, linkedKey *jubjub.PrivateKey) *Wallet {
	return &Wallet{
		address:     types.PubKeyAddress(&spendingKey.PublicKey),
		spendingKey: spendingKey,
		linkedKey:   linkedKey,
	}
}

func (w *Wallet) Address() common.Address {
	return w.address
}

func (w *Wallet) SpendingPublicKey() *jubjub.PublicKey {
	return &w.spendingKey.PublicKey
}

func (w *Wallet) LinkedPublicKey() *jubjub.PublicKey {
	if w.linkedKey == nil {
		return nil
	}
	return &w.linkedKey.PublicKey
}

// Account is how the wallet shows up in the account registry.
func (w *Wallet) Account() *types.AccountInfo {
	return &types.AccountInfo{
		Address:           w.address,
		SpendingPublicKey: w.SpendingPublicKey(),
		LinkedPublicKey:   w.LinkedPublicKey(),
	}
}

func (w *Wallet) DecryptViewingKey(envelope []byte) ([]byte, error) {
	if w.linkedKey == nil {
		return nil, fmt.Errorf("wallet %s has no linked key", w.address.Hex())
	}
	return crypto.OpenEnvelope(envelope, w.linkedKey)
}

// ReadNote decrypts the secret part of a note this wallet was granted access to.
func (w *Wallet) ReadNote(note *types.ValueNote) (*types.SecretNote, error) {
	envelope := note.ViewingKeyFor(w.address)
	if envelope == nil {
		return nil, fmt.Errorf("no viewing access to note %s", note.NoteHash().Hex())
	}
	plain, err := w.DecryptViewingKey(envelope)
	if err != nil {
		return nil, err
	}
	return types.DecodeSecretNote(plain)
}
