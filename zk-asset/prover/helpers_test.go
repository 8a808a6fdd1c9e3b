package prover

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/kysee/zknote/zk-asset/store"
	"github.com/kysee/zknote/zk-asset/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testAsset = common.HexToAddress("0xa55e7")

func newWallet(t *testing.T) *Wallet {
	w, err := NewWallet()
	require.NoError(t, err)
	return w
}

// ownNote mints a note of w readable by w.
func ownNote(t *testing.T, w *Wallet, amount uint64) *types.ValueNote {
	n, err := types.MintNote(uint256.NewInt(amount), w.SpendingPublicKey(), w.Address(),
		[]*types.AccessGrant{w.Account().Grant()})
	require.NoError(t, err)
	return n
}

func fundedLedger(t *testing.T, w *Wallet, amounts ...uint64) *store.Ledger {
	l := store.NewLedger(nil, zerolog.Nop())
	for _, a := range amounts {
		require.NoError(t, l.Mint(testAsset, ownNote(t, w, a)))
	}
	return l
}

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func sumOf(notes []*types.ValueNote) *uint256.Int {
	sum := new(uint256.Int)
	for _, n := range notes {
		sum.Add(sum, n.Amount)
	}
	return sum
}

// stubStore answers every pick with a fixed result.
type stubStore struct {
	res   store.PickResult
	err   error
	query store.PickQuery
	calls atomic.Int32
}

func (s *stubStore) PickNotes(_ context.Context, q store.PickQuery) (store.PickResult, error) {
	s.calls.Add(1)
	s.query = q
	return s.res, s.err
}

type stubProver struct {
	err   error
	calls atomic.Int32
}

func (p *stubProver) Prove(*types.JoinSplitProof) ([]byte, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return []byte("proof"), nil
}

// countingDecrypter records how many viewing keys it was asked to open.
type countingDecrypter struct {
	ViewingKeyDecrypter
	calls atomic.Int32
}

func (c *countingDecrypter) DecryptViewingKey(envelope []byte) ([]byte, error) {
	c.calls.Add(1)
	return c.ViewingKeyDecrypter.DecryptViewingKey(envelope)
}

var errResolver = errors.New("resolver down")

type failingResolver struct{}

func (failingResolver) BatchGetAccounts(context.Context, []common.Address) ([]*types.AccountInfo, error) {
	return nil, errResolver
}

func logBuffer() (*bytes.Buffer, zerolog.Logger) {
	buf := new(bytes.Buffer)
	return buf, zerolog.New(buf)
}
