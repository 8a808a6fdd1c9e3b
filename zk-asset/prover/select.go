package prover

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/kysee/zknote/zk-asset/store"
	"github.com/kysee/zknote/zk-asset/types"
	"github.com/rs/zerolog"
)

// ResolveInputAmount returns the amount the input notes must cover.
// With transactions, their sum wins over amount; a disagreement is only
// worth a warning.
func ResolveInputAmount(amount *uint256.Int, split types.OutputSplit, logger zerolog.Logger) (*uint256.Int, error) {
	txs := types.TransactionsOf(split)
	if len(txs) == 0 {
		if amount == nil || amount.IsZero() {
			return nil, types.NewApiError(types.ErrInputAmount, errors.New("amount must be positive"))
		}
		return amount.Clone(), nil
	}

	sum := new(uint256.Int)
	for i, tx := range txs {
		if tx.Amount == nil || tx.Amount.IsZero() {
			return nil, types.NewApiError(types.ErrInputAmount, fmt.Errorf("transaction %d: amount must be positive", i))
		}
		if tx.To == (common.Address{}) {
			return nil, types.NewApiError(types.ErrInputAmount, fmt.Errorf("transaction %d: no recipient", i))
		}
		if _, overflow := sum.AddOverflow(sum, tx.Amount); overflow {
			return nil, types.NewApiError(types.ErrInputAmount, errors.New("transactions overflow"))
		}
	}

	if amount != nil && !amount.IsZero() && !amount.Eq(sum) {
		logger.Warn().
			Str("amount", amount.Dec()).
			Str("transactions", sum.Dec()).
			Msg("input amount does not match total transactions")
	}
	return sum, nil
}

// Selector picks the input notes of a join-split from the note store.
type Selector struct {
	store  store.Client
	logger zerolog.Logger
}

func NewSelector(client store.Client, logger zerolog.Logger) *Selector {
	return &Selector{store: client, logger: logger}
}

// Pick asks the store for notes covering q.Amount. Whatever the store
// returns is checked before anyone tries to decrypt it.
func (s *Selector) Pick(ctx context.Context, q store.PickQuery) ([]*store.NoteDescriptor, error) {
	if len(q.Fields) == 0 {
		q.Fields = store.AllFields
	}

	res, err := s.store.PickNotes(ctx, q)
	if err != nil {
		return nil, types.NewApiError(types.ErrPickStore, err)
	}
	if res.Error != nil {
		return nil, types.StorePassthrough(res.Error)
	}
	if len(res.Notes) == 0 {
		return nil, types.NewApiError(types.ErrPickEmpty, nil)
	}

	var notSpendable []common.Hash
	sum := new(uint256.Int)
	for _, d := range res.Notes {
		if err := d.Validate(); err != nil {
			return nil, types.NewApiError(types.ErrPickStore, err)
		}
		if d.Status != types.NoteStatusSpendable {
			notSpendable = append(notSpendable, d.NoteHash)
		}
		sum.Add(sum, d.Value)
	}
	if len(notSpendable) > 0 {
		return nil, types.NewApiError(types.ErrPickStatus, nil, notSpendable...)
	}
	if sum.Lt(q.Amount) {
		return nil, types.NewApiError(types.ErrPickInsufficient,
			fmt.Errorf("picked %s, required %s", sum.Dec(), q.Amount.Dec()))
	}

	s.logger.Debug().
		Int("notes", len(res.Notes)).
		Str("sum", sum.Dec()).
		Msg("input notes picked")
	return res.Notes, nil
}
