package prover

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/kysee/zknote/zk-asset/account"
	"github.com/kysee/zknote/zk-asset/circuit"
	"github.com/kysee/zknote/zk-asset/settings"
	"github.com/kysee/zknote/zk-asset/store"
	"github.com/kysee/zknote/zk-asset/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Engine turns a spend request into a proven join-split.
type Engine struct {
	store    store.Client
	accounts account.Resolver
	settings settings.Provider
	prover   circuit.Prover
	logger   zerolog.Logger
}

func NewEngine(client store.Client, accounts account.Resolver, provider settings.Provider, prover circuit.Prover, logger zerolog.Logger) *Engine {
	return &Engine{
		store:    client,
		accounts: accounts,
		settings: provider,
		prover:   prover,
		logger:   logger.With().Str("module", "prover").Logger(),
	}
}

// CreateNoteFromBalance spends notes of w to pay req.
//
// The store query, the recipients' account lookup and the default note count
// are fetched concurrently. Input notes are reconstructed with w's linked key,
// then outputs are minted and the join-split is proven.
func (e *Engine) CreateNoteFromBalance(ctx context.Context, w *Wallet, req *types.BalanceRequest) (*types.BalanceResult, error) {
	logger := e.logger.With().Str("request", uuid.NewString()).Logger()

	owner := w.Address()
	if req.Owner != (common.Address{}) && req.Owner != owner {
		return nil, types.NewApiError(types.ErrAccountUnresolved,
			fmt.Errorf("wallet %s cannot spend notes of %s", owner.Hex(), req.Owner.Hex()))
	}
	sender := req.Sender
	if sender == (common.Address{}) {
		sender = owner
	}
	publicOwner := req.PublicOwner
	if publicOwner == (common.Address{}) {
		publicOwner = owner
	}

	required, err := ResolveInputAmount(req.Amount, req.Split, logger)
	if err != nil {
		return nil, err
	}
	txs := types.TransactionsOf(req.Split)

	var (
		descs        []*store.NoteDescriptor
		recipients   map[common.Address]*types.AccountInfo
		defaultCount int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		descs, err = NewSelector(e.store, logger).Pick(gctx, store.PickQuery{
			Owner:         owner,
			Asset:         req.Asset,
			Amount:        required,
			NumberOfNotes: req.NumberOfInputNotes,
			Fields:        store.AllFields,
		})
		return err
	})
	if len(txs) > 0 {
		g.Go(func() error {
			var err error
			recipients, err = e.resolveRecipients(gctx, txs)
			return err
		})
		g.Go(func() error {
			if req.NumberOfOutputNotes != nil {
				defaultCount = *req.NumberOfOutputNotes
				return nil
			}
			var err error
			defaultCount, err = e.settings.NumberOfOutputNotes(gctx)
			if err != nil {
				return fmt.Errorf("number of output notes: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("create note from balance")
		return nil, err
	}

	inputs, err := NewReconstructor(w).Reconstruct(ctx, descs)
	if err != nil {
		logger.Error().Err(err).Msg("reconstruct input notes")
		return nil, err
	}

	alloc, err := NewAllocator(logger).Allocate(ctx, &AllocateRequest{
		Spender:      w.Account(),
		Required:     required,
		Inputs:       inputs,
		Transactions: txs,
		Recipients:   recipients,
		DefaultCount: defaultCount,
		UserAccess:   req.UserAccess,
	})
	if err != nil {
		return nil, err
	}

	// skipped transactions leave the pool along with the public amount
	publicValue := new(big.Int).Sub(required.ToBig(), alloc.Minted.ToBig())
	proof, proofHash, err := NewAssembler(e.prover, logger).Assemble(inputs, alloc.Outputs(), publicValue, sender, publicOwner)
	if err != nil {
		logger.Error().Err(err).Msg("assemble join-split")
		return nil, err
	}

	logger.Info().
		Str("owner", owner.Hex()).
		Str("amount", required.Dec()).
		Int("inputs", len(inputs)).
		Int("outputs", len(proof.OutputNotes)).
		Str("proofHash", proofHash.Hex()).
		Msg("note created from balance")

	return &types.BalanceResult{
		Proof:         proof,
		ProofHash:     proofHash,
		InputNotes:    inputs,
		OutputNotes:   alloc.Notes,
		RemainderNote: alloc.Remainder,
	}, nil
}

func (e *Engine) resolveRecipients(ctx context.Context, txs []types.TransactionRequest) (map[common.Address]*types.AccountInfo, error) {
	addrs := make([]common.Address, 0, len(txs))
	seen := make(map[common.Address]struct{}, len(txs))
	for _, tx := range txs {
		if _, ok := seen[tx.To]; ok {
			continue
		}
		seen[tx.To] = struct{}{}
		addrs = append(addrs, tx.To)
	}

	infos, err := e.accounts.BatchGetAccounts(ctx, addrs)
	if err != nil {
		return nil, types.NewApiError(types.ErrAccountUnresolved, err)
	}
	if len(infos) != len(addrs) {
		return nil, types.NewApiError(types.ErrAccountUnresolved,
			fmt.Errorf("resolver returned %d accounts for %d addresses", len(infos), len(addrs)))
	}

	ret := make(map[common.Address]*types.AccountInfo, len(addrs))
	for i, info := range infos {
		if info == nil {
			info = &types.AccountInfo{Address: addrs[i]}
		}
		ret[addrs[i]] = info
	}
	return ret, nil
}
