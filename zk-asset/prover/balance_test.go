package prover

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kysee/zknote/zk-asset/account"
	"github.com/kysee/zknote/zk-asset/circuit"
	"github.com/kysee/zknote/zk-asset/settings"
	"github.com/kysee/zknote/zk-asset/store"
	"github.com/kysee/zknote/zk-asset/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type testEnv struct {
	wallet   *Wallet
	ledger   *store.Ledger
	registry *account.Registry
	settings *settings.Store
	prover   *stubProver
	engine   *Engine
}

func newTestEnv(t *testing.T, amounts ...uint64) *testEnv {
	w := newWallet(t)
	env := &testEnv{
		wallet:   w,
		ledger:   fundedLedger(t, w, amounts...),
		registry: account.NewRegistry(),
		settings: settings.NewStore(settings.Default()),
		prover:   &stubProver{},
	}
	env.register(w)
	env.engine = NewEngine(env.ledger, env.registry, env.settings, env.prover, zerolog.Nop())
	return env
}

func (env *testEnv) register(w *Wallet) {
	env.registry.Register(w.Address(), w.SpendingPublicKey(), w.LinkedPublicKey())
}

func TestEngine_NoOutputSplit(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := newTestEnv(t, 40, 30)
	ctx := context.Background()

	// Scenario A
	res, err := env.engine.CreateNoteFromBalance(ctx, env.wallet, &types.BalanceRequest{
		Asset:  testAsset,
		Amount: u(50),
		Split:  types.NoOutputSplit{},
	})
	require.NoError(t, err)
	require.Len(t, res.InputNotes, 2)
	require.Empty(t, res.OutputNotes)
	require.NotNil(t, res.RemainderNote)
	require.Equal(t, uint64(20), res.RemainderNote.Amount.Uint64())
	require.Equal(t, []*types.ValueNote{res.RemainderNote}, res.Proof.OutputNotes)
	require.Equal(t, int64(50), res.Proof.PublicValue.Int64())
	require.Equal(t, env.wallet.Address(), res.Proof.Sender)
	require.Equal(t, env.wallet.Address(), res.Proof.PublicOwner)

	h, err := res.Proof.Hash()
	require.NoError(t, err)
	require.Equal(t, h, res.ProofHash)

	require.NoError(t, env.ledger.Apply(ctx, testAsset, res.Proof))
	env.ledger.Settle()
	require.Equal(t, uint64(20), env.ledger.Balance(testAsset, env.wallet.Address()).Uint64())
	require.Equal(t, int64(50), env.ledger.PublicBalance(testAsset, env.wallet.Address()).Int64())
}

func TestEngine_Transfer(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := newTestEnv(t, 80, 50, 10)
	recipient := newWallet(t)
	auditor := newWallet(t)
	env.register(recipient)
	ctx := context.Background()

	sender := common.HexToAddress("0x5e4de4")
	res, err := env.engine.CreateNoteFromBalance(ctx, env.wallet, &types.BalanceRequest{
		Asset:  testAsset,
		Sender: sender,
		Split: types.ExplicitSplit{Transactions: []types.TransactionRequest{
			{Amount: u(100), To: recipient.Address()},
		}},
		UserAccess: []*types.AccessGrant{auditor.Account().Grant()},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, env.prover.calls.Load())

	// default count from settings
	require.Len(t, res.OutputNotes, settings.DefaultNumberOfOutputNotes)
	require.Equal(t, uint64(100), sumOf(res.OutputNotes).Uint64())
	require.Equal(t, uint64(30), res.RemainderNote.Amount.Uint64())
	require.Len(t, res.Proof.OutputNotes, settings.DefaultNumberOfOutputNotes+1)
	require.Zero(t, res.Proof.PublicValue.Sign())
	require.Equal(t, sender, res.Proof.Sender)

	// conservation
	require.Equal(t, sumOf(res.Proof.InputNotes), sumOf(res.Proof.OutputNotes))

	for _, n := range res.OutputNotes {
		_, err := auditor.ReadNote(n)
		require.NoError(t, err)
		_, err = env.wallet.ReadNote(n)
		require.Error(t, err)
	}

	require.NoError(t, env.ledger.Apply(ctx, testAsset, res.Proof))
	require.Equal(t, 3, env.ledger.Settle())

	// the recipient spends what it received
	res2, err := env.engine.CreateNoteFromBalance(ctx, recipient, &types.BalanceRequest{
		Asset:               testAsset,
		Amount:              u(100),
		Split:               types.ExplicitSplit{Transactions: []types.TransactionRequest{{Amount: u(100), To: env.wallet.Address()}}},
		NumberOfOutputNotes: intPtr(1),
	})
	require.NoError(t, err)
	require.Len(t, res2.OutputNotes, 1)
	require.Nil(t, res2.RemainderNote)
	require.NoError(t, env.ledger.Apply(ctx, testAsset, res2.Proof))
	env.ledger.Settle()
	require.True(t, env.ledger.Balance(testAsset, recipient.Address()).IsZero())
	require.Equal(t, uint64(130), env.ledger.Balance(testAsset, env.wallet.Address()).Uint64())
}

func TestEngine_AmountMismatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := newTestEnv(t, 100)
	recipient := newWallet(t)
	env.register(recipient)
	buf, logger := logBuffer()
	env.engine = NewEngine(env.ledger, env.registry, env.settings, env.prover, logger)

	// Scenario C
	res, err := env.engine.CreateNoteFromBalance(context.Background(), env.wallet, &types.BalanceRequest{
		Asset:  testAsset,
		Amount: u(50),
		Split: types.ExplicitSplit{Transactions: []types.TransactionRequest{
			{Amount: u(70), To: recipient.Address(), NumberOfOutputNotes: 1},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(70), sumOf(res.OutputNotes).Uint64())
	require.Equal(t, uint64(30), res.RemainderNote.Amount.Uint64())
	require.Contains(t, buf.String(), "does not match total transactions")
	require.Contains(t, buf.String(), `"request":`)
}

func TestEngine_SkippedTransaction(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := newTestEnv(t, 100)
	recipient := newWallet(t)
	env.register(recipient)
	env.settings.SetNumberOfOutputNotes(0)

	res, err := env.engine.CreateNoteFromBalance(context.Background(), env.wallet, &types.BalanceRequest{
		Asset: testAsset,
		Split: types.ExplicitSplit{Transactions: []types.TransactionRequest{
			{Amount: u(60), To: recipient.Address()},
			{Amount: u(10), To: recipient.Address(), NumberOfOutputNotes: 2},
		}},
	})
	require.NoError(t, err)
	require.Len(t, res.OutputNotes, 2)
	require.Equal(t, uint64(10), sumOf(res.OutputNotes).Uint64())
	require.Equal(t, uint64(30), res.RemainderNote.Amount.Uint64())

	// the skipped 60 leave the pool
	require.Equal(t, int64(60), res.Proof.PublicValue.Int64())
}

func TestEngine_StoreError(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := newTestEnv(t)
	ss := &stubStore{res: store.PickResult{Error: &types.StoreError{Message: "insufficient funds"}}}
	engine := NewEngine(ss, env.registry, env.settings, env.prover, zerolog.Nop())

	// Scenario D
	res, err := engine.CreateNoteFromBalance(context.Background(), env.wallet, &types.BalanceRequest{
		Asset:  testAsset,
		Amount: u(50),
	})
	require.Nil(t, res)
	require.ErrorIs(t, err, types.ErrPickStore)
	require.EqualError(t, err, "insufficient funds")
	require.EqualValues(t, 1, ss.calls.Load())
	require.Zero(t, env.prover.calls.Load())

	// nothing to spend
	_, err = env.engine.CreateNoteFromBalance(context.Background(), env.wallet, &types.BalanceRequest{
		Asset:  testAsset,
		Amount: u(50),
	})
	require.ErrorIs(t, err, types.ErrPickEmpty)
}

func TestEngine_Errors(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := newTestEnv(t, 100)
	recipient := newWallet(t)
	ctx := context.Background()
	pay := types.ExplicitSplit{Transactions: []types.TransactionRequest{{Amount: u(10), To: recipient.Address()}}}

	engine := NewEngine(env.ledger, failingResolver{}, env.settings, env.prover, zerolog.Nop())
	_, err := engine.CreateNoteFromBalance(ctx, env.wallet, &types.BalanceRequest{Asset: testAsset, Split: pay})
	require.ErrorIs(t, err, types.ErrAccountUnresolved)
	require.ErrorIs(t, err, errResolver)

	_, err = env.engine.CreateNoteFromBalance(ctx, env.wallet, &types.BalanceRequest{
		Asset: testAsset,
		Owner: recipient.Address(),
		Split: pay,
	})
	require.ErrorIs(t, err, types.ErrAccountUnresolved)

	_, err = env.engine.CreateNoteFromBalance(ctx, env.wallet, &types.BalanceRequest{Asset: testAsset})
	require.ErrorIs(t, err, types.ErrInputAmount)

	// another wallet cannot read the owner's notes
	stranger := newWallet(t)
	l := fundedLedger(t, env.wallet, 10)
	engine = NewEngine(l, env.registry, env.settings, env.prover, zerolog.Nop())
	_, err = engine.CreateNoteFromBalance(ctx, NewWalletFromKeys(env.wallet.spendingKey, stranger.linkedKey), &types.BalanceRequest{
		Asset:  testAsset,
		Amount: u(10),
	})
	require.ErrorIs(t, err, types.ErrViewingKeyRecover)

	ctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = env.engine.CreateNoteFromBalance(ctx, env.wallet, &types.BalanceRequest{Asset: testAsset, Split: pay})
	require.Error(t, err)
}

func TestEngine_ProveAndVerify(t *testing.T) {
	if testing.Short() {
		t.Skip("plonk setup is slow")
	}

	w := newWallet(t)
	sys := circuit.NewSystem(zerolog.Nop())
	l := store.NewLedger(sys, zerolog.Nop())
	for _, a := range []uint64{40, 30} {
		require.NoError(t, l.Mint(testAsset, ownNote(t, w, a)))
	}
	recipient := newWallet(t)
	reg := account.NewRegistry()
	reg.Register(recipient.Address(), recipient.SpendingPublicKey(), recipient.LinkedPublicKey())

	engine := NewEngine(l, reg, settings.NewStore(settings.Default()), sys, zerolog.Nop())
	res, err := engine.CreateNoteFromBalance(context.Background(), w, &types.BalanceRequest{
		Asset: testAsset,
		Split: types.ExplicitSplit{Transactions: []types.TransactionRequest{
			{Amount: u(45), To: recipient.Address()},
		}},
	})
	require.NoError(t, err)
	require.NoError(t, sys.Verify(res.Proof))
	require.NoError(t, l.Apply(context.Background(), testAsset, res.Proof))

	// replaying the same join-split is a double spend
	require.ErrorIs(t, l.Apply(context.Background(), testAsset, res.Proof), store.ErrNoteNotSpendable)
}

func intPtr(v int) *int {
	return &v
}
