package main

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/kysee/zknote/zk-asset/account"
	"github.com/kysee/zknote/zk-asset/circuit"
	"github.com/kysee/zknote/zk-asset/prover"
	"github.com/kysee/zknote/zk-asset/settings"
	"github.com/kysee/zknote/zk-asset/store"
	"github.com/kysee/zknote/zk-asset/types"
	"github.com/spf13/cobra"
)

var demoAsset = common.HexToAddress("0x00000000000000000000000000000000000a55e7")

var (
	demoNotes   []uint
	demoAmount  uint64
	demoOutputs int
)

type demoAccount struct {
	Address     common.Address `json:"address"`
	SpendingKey string         `json:"spendingKey"`
	Balance     string         `json:"balance"`
}

type demoNote struct {
	NoteHash common.Hash    `json:"noteHash"`
	Owner    common.Address `json:"owner"`
}

type demoSummary struct {
	ProofHash   common.Hash        `json:"proofHash"`
	PublicValue string             `json:"publicValue"`
	Inputs      []demoNote         `json:"inputs"`
	Outputs     []demoNote         `json:"outputs"`
	Remainder   *demoNote          `json:"remainder,omitempty"`
	Accounts    []demoAccount      `json:"accounts"`
	Root        string             `json:"noteCommitmentsRoot"`
	Calldata    *circuit.ProofData `json:"calldata"`
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a seeded transfer through a proven join-split",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sys := circuit.NewSystem(logger)
		ledger := store.NewLedger(sys, logger)
		registry := account.NewRegistry()
		resolver := account.NewCachedResolver(registry, cfg.AccountCacheTTL)

		alice, err := prover.NewWallet()
		if err != nil {
			return err
		}
		bob, err := prover.NewWallet()
		if err != nil {
			return err
		}
		for _, w := range []*prover.Wallet{alice, bob} {
			registry.Register(w.Address(), w.SpendingPublicKey(), w.LinkedPublicKey())
		}

		for _, v := range demoNotes {
			note, err := types.MintNote(uint256.NewInt(uint64(v)), alice.SpendingPublicKey(), alice.Address(),
				[]*types.AccessGrant{alice.Account().Grant()})
			if err != nil {
				return err
			}
			if err := ledger.Mint(demoAsset, note); err != nil {
				return err
			}
		}

		req := &types.BalanceRequest{
			Asset: demoAsset,
			Split: types.ExplicitSplit{Transactions: []types.TransactionRequest{
				{Amount: uint256.NewInt(demoAmount), To: bob.Address()},
			}},
			NumberOfInputNotes: cfg.NumberOfInputNotes,
		}
		if cmd.Flags().Changed("outputs") {
			req.NumberOfOutputNotes = &demoOutputs
		}

		engine := prover.NewEngine(ledger, resolver, settings.NewStore(cfg), sys, logger)
		res, err := engine.CreateNoteFromBalance(ctx, alice, req)
		if err != nil {
			return err
		}
		if err := ledger.Apply(ctx, demoAsset, res.Proof); err != nil {
			return err
		}
		ledger.Settle()

		calldata, err := circuit.SolidityCalldata(res.Proof)
		if err != nil {
			return err
		}

		summary := demoSummary{
			ProofHash:   res.ProofHash,
			PublicValue: res.Proof.PublicValue.String(),
			Inputs:      demoNotesOf(res.InputNotes),
			Outputs:     demoNotesOf(res.OutputNotes),
			Root:        fmt.Sprintf("%x", ledger.NoteCommitmentsRoot()),
			Calldata:    calldata,
		}
		if res.RemainderNote != nil {
			summary.Remainder = &demoNotesOf([]*types.ValueNote{res.RemainderNote})[0]
		}
		for _, w := range []*prover.Wallet{alice, bob} {
			summary.Accounts = append(summary.Accounts, demoAccount{
				Address:     w.Address(),
				SpendingKey: types.EncodePubKey(w.SpendingPublicKey()),
				Balance:     ledger.Balance(demoAsset, w.Address()).Dec(),
			})
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func demoNotesOf(notes []*types.ValueNote) []demoNote {
	ret := make([]demoNote, len(notes))
	for i, n := range notes {
		ret[i] = demoNote{NoteHash: n.NoteHash(), Owner: n.Owner}
	}
	return ret
}

func init() {
	demoCmd.Flags().UintSliceVar(&demoNotes, "notes", []uint{40, 30}, "amounts of the spender's initial notes")
	demoCmd.Flags().Uint64Var(&demoAmount, "amount", 50, "amount to transfer")
	demoCmd.Flags().IntVar(&demoOutputs, "outputs", 0, "notes per recipient (default from settings)")
}
