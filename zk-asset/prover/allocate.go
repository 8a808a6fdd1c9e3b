package prover

import (
	"context"
	"errors"
	"fmt"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/kysee/zknote/zk-asset/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// AllocateRequest carries everything the allocator needs to mint outputs.
type AllocateRequest struct {
	// Spender owns the input notes and receives the remainder.
	Spender *types.AccountInfo

	Required *uint256.Int
	Inputs   []*types.ValueNote

	Transactions []types.TransactionRequest
	Recipients   map[common.Address]*types.AccountInfo

	// DefaultCount applies to transactions without their own count.
	DefaultCount int
	UserAccess   []*types.AccessGrant
}

type Allocation struct {
	Remainder *types.ValueNote

	// Notes are the recipients' notes in transaction order.
	Notes []*types.ValueNote

	// Minted is the part of the required amount that went into Notes;
	// the rest leaves the pool as public value.
	Minted *uint256.Int
}

// Outputs is the output list of the join-split: remainder first.
func (a *Allocation) Outputs() []*types.ValueNote {
	outs := make([]*types.ValueNote, 0, len(a.Notes)+1)
	if a.Remainder != nil {
		outs = append(outs, a.Remainder)
	}
	return append(outs, a.Notes...)
}

type Allocator struct {
	logger zerolog.Logger
}

func NewAllocator(logger zerolog.Logger) *Allocator {
	return &Allocator{logger: logger}
}

func (a *Allocator) Allocate(ctx context.Context, req *AllocateRequest) (*Allocation, error) {
	if req.Spender == nil || req.Spender.SpendingPublicKey == nil {
		return nil, types.NewApiError(types.ErrAccountUnresolved, errors.New("spender has no spending key"))
	}

	inputSum := new(uint256.Int)
	for _, n := range req.Inputs {
		inputSum.Add(inputSum, n.Amount)
	}
	extra, underflow := new(uint256.Int).SubOverflow(inputSum, req.Required)
	if underflow {
		return nil, types.NewApiError(types.ErrPickInsufficient,
			fmt.Errorf("inputs %s, required %s", inputSum.Dec(), req.Required.Dec()))
	}

	ret := &Allocation{Minted: new(uint256.Int)}
	if !extra.IsZero() {
		remainder, err := types.MintNote(extra, req.Spender.SpendingPublicKey, req.Spender.Address,
			types.MergeGrants(nil, req.Spender.Grant()))
		if err != nil {
			return nil, types.NewApiError(types.ErrNoteMint, fmt.Errorf("remainder of %s: %w", extra.Dec(), err))
		}
		ret.Remainder = remainder
	}

	for i, tx := range req.Transactions {
		count := tx.NumberOfOutputNotes
		if count == 0 {
			count = req.DefaultCount
		}
		if count <= 0 {
			a.logger.Debug().
				Int("transaction", i).
				Str("to", tx.To.Hex()).
				Msg("no output note count, transaction skipped")
			continue
		}

		notes, err := a.mintTransaction(ctx, req, tx, count)
		if err != nil {
			return nil, err
		}
		ret.Notes = append(ret.Notes, notes...)
		ret.Minted.Add(ret.Minted, tx.Amount)
	}

	outSum := new(uint256.Int)
	for _, n := range ret.Outputs() {
		outSum.Add(outSum, n.Amount)
	}
	if want := new(uint256.Int).Add(extra, ret.Minted); !outSum.Eq(want) {
		return nil, types.NewApiError(types.ErrValueUnbalanced,
			fmt.Errorf("outputs %s, expected %s", outSum.Dec(), want.Dec()))
	}
	return ret, nil
}

func (a *Allocator) mintTransaction(ctx context.Context, req *AllocateRequest, tx types.TransactionRequest, count int) ([]*types.ValueNote, error) {
	values, err := RandomSumArray(tx.Amount, count)
	if err != nil {
		return nil, err
	}

	recipient := req.Recipients[tx.To]
	if recipient == nil {
		recipient = &types.AccountInfo{Address: tx.To}
	}
	grants := types.MergeGrants(req.UserAccess, recipient.Grant())

	spendingKey := recipient.SpendingPublicKey
	if spendingKey == nil {
		// The recipient has no spending key yet, so the notes are locked
		// to the spender's key.
		a.logger.Warn().
			Str("to", tx.To.Hex()).
			Msg("recipient has no spending key, minting to the spender's key")
		spendingKey = req.Spender.SpendingPublicKey
	}

	notes, err := mintNotes(ctx, values, spendingKey, tx.To, grants)
	if err != nil {
		return nil, types.NewApiError(types.ErrNoteMint, err)
	}
	return notes, nil
}

// mintNotes mints one note per value concurrently.
func mintNotes(ctx context.Context, values []*uint256.Int, spendingKey *jubjub.PublicKey, owner common.Address, grants []*types.AccessGrant) ([]*types.ValueNote, error) {
	notes := make([]*types.ValueNote, len(values))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range values {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := types.MintNote(v, spendingKey, owner, grants)
			if err != nil {
				return fmt.Errorf("mint note for %s: %w", owner.Hex(), err)
			}
			notes[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return notes, nil
}
