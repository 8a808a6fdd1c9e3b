package account

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kysee/zknote/zk-asset/types"
	cache "github.com/patrickmn/go-cache"
)

const (
	DefaultCacheTTL = 1 * time.Minute
	cleanupInterval = 2 * time.Minute
)

// CachedResolver remembers resolved accounts for a while.
// Accounts without a spending key are not cached; they may show up later.
type CachedResolver struct {
	next  Resolver
	cache *cache.Cache
}

var _ Resolver = (*CachedResolver)(nil)

func NewCachedResolver(next Resolver, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedResolver{
		next:  next,
		cache: cache.New(ttl, cleanupInterval),
	}
}

func (c *CachedResolver) BatchGetAccounts(ctx context.Context, addrs []common.Address) ([]*types.AccountInfo, error) {
	ret := make([]*types.AccountInfo, len(addrs))

	var (
		missing []common.Address
		at      []int
	)
	for i, addr := range addrs {
		if obj, found := c.cache.Get(addr.Hex()); found {
			info := obj.(types.AccountInfo)
			ret[i] = &info
			continue
		}
		missing = append(missing, addr)
		at = append(at, i)
	}
	if len(missing) == 0 {
		return ret, nil
	}

	resolved, err := c.next.BatchGetAccounts(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(resolved) != len(missing) {
		return nil, fmt.Errorf("resolver returned %d accounts for %d addresses", len(resolved), len(missing))
	}
	for j, info := range resolved {
		if info == nil {
			info = &types.AccountInfo{Address: missing[j]}
		}
		ret[at[j]] = info
		if info.SpendingPublicKey != nil {
			c.cache.SetDefault(missing[j].Hex(), *info)
		}
	}
	return ret, nil
}

// Forget drops addr from the cache, e.g. after a key rotation.
func (c *CachedResolver) Forget(addr common.Address) {
	c.cache.Delete(addr.Hex())
}

func (c *CachedResolver) Flush() {
	c.cache.Flush()
}
