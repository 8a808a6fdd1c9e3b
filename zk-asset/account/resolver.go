package account

import (
	"context"
	"sync"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/kysee/zknote/zk-asset/types"
)

// Resolver looks up the keys of a batch of accounts.
// The result is aligned with addrs; an unknown address yields an entry with
// nil keys, never a nil entry.
type Resolver interface {
	BatchGetAccounts(ctx context.Context, addrs []common.Address) ([]*types.AccountInfo, error)
}

// Registry is an in-memory Resolver.
type Registry struct {
	mtx      sync.RWMutex
	accounts map[common.Address]types.AccountInfo
}

var _ Resolver = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		accounts: make(map[common.Address]types.AccountInfo),
	}
}

// Register adds or replaces the keys of addr. Either key may be nil.
func (r *Registry) Register(addr common.Address, spending, linked *jubjub.PublicKey) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.accounts[addr] = types.AccountInfo{
		Address:           addr,
		SpendingPublicKey: spending,
		LinkedPublicKey:   linked,
	}
}

func (r *Registry) Remove(addr common.Address) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	delete(r.accounts, addr)
}

func (r *Registry) BatchGetAccounts(ctx context.Context, addrs []common.Address) ([]*types.AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mtx.RLock()
	defer r.mtx.RUnlock()

	ret := make([]*types.AccountInfo, len(addrs))
	for i, addr := range addrs {
		info, ok := r.accounts[addr]
		if !ok {
			info = types.AccountInfo{Address: addr}
		}
		ret[i] = &info
	}
	return ret, nil
}
