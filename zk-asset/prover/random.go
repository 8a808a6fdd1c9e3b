package prover

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
	"sort"

	"github.com/holiman/uint256"
	"github.com/kysee/zknote/zk-asset/types"
)

// RandomSumArray splits total into count positive amounts that add up to
// total. The parts come from count-1 distinct cut points drawn uniformly
// from [1, total-1].
func RandomSumArray(total *uint256.Int, count int) ([]*uint256.Int, error) {
	if count <= 0 {
		return nil, types.NewApiError(types.ErrSplitAmount, fmt.Errorf("invalid note count: %d", count))
	}
	if total == nil {
		return nil, types.NewApiError(types.ErrSplitAmount, fmt.Errorf("no amount to split"))
	}
	if total.Lt(uint256.NewInt(uint64(count))) {
		return nil, types.NewApiError(types.ErrSplitAmount, fmt.Errorf("cannot split %s into %d positive notes", total.Dec(), count))
	}
	if count == 1 {
		return []*uint256.Int{total.Clone()}, nil
	}

	cuts, err := cutPoints(total, count-1)
	if err != nil {
		return nil, err
	}
	sort.Slice(cuts, func(i, j int) bool { return cuts[i].Lt(&cuts[j]) })

	ret := make([]*uint256.Int, count)
	prev := new(uint256.Int)
	for i := range cuts {
		ret[i] = new(uint256.Int).Sub(&cuts[i], prev)
		prev = &cuts[i]
	}
	ret[count-1] = new(uint256.Int).Sub(total, prev)
	return ret, nil
}

// cutPoints draws n distinct values from [1, total-1].
func cutPoints(total *uint256.Int, n int) ([]uint256.Int, error) {
	span := new(uint256.Int).SubUint64(total, 1)

	// A dense range is shuffled instead of sampled.
	if span.IsUint64() && span.Uint64() <= 2*uint64(n) {
		all := make([]uint256.Int, span.Uint64())
		for i := range all {
			all[i].SetUint64(uint64(i) + 1)
		}
		for i := 0; i < n; i++ {
			j, err := randBelow(uint64(len(all) - i))
			if err != nil {
				return nil, err
			}
			k := i + int(j)
			all[i], all[k] = all[k], all[i]
		}
		return all[:n], nil
	}

	bigSpan := span.ToBig()
	seen := make(map[uint256.Int]struct{}, n)
	ret := make([]uint256.Int, 0, n)
	for len(ret) < n {
		r, err := crand.Int(crand.Reader, bigSpan)
		if err != nil {
			return nil, err
		}
		var c uint256.Int
		c.SetFromBig(r)
		c.AddUint64(&c, 1)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		ret = append(ret, c)
	}
	return ret, nil
}

func randBelow(n uint64) (uint64, error) {
	r, err := crand.Int(crand.Reader, new(big.Int).SetUint64(n))
	if err != nil {
		return 0, err
	}
	return r.Uint64(), nil
}
