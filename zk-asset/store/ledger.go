package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash"
	"math/big"
	"sort"
	"sync"

	"github.com/consensys/gnark-crypto/accumulator/merkletree"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/kysee/zknote/utils"
	"github.com/kysee/zknote/zk-asset/circuit"
	"github.com/kysee/zknote/zk-asset/types"
	"github.com/rs/zerolog"
)

var (
	ErrUnknownNote      = errors.New("unknown note")
	ErrNoteNotSpendable = errors.New("note is not spendable")
	ErrNoteExists       = errors.New("note already exists")
	ErrWrongAsset       = errors.New("note belongs to another asset")
	ErrPublicBalance    = errors.New("insufficient public balance")
)

// Store error codes handed back through PickResult.Error.
const (
	CodeInsufficient = "insufficient"
	CodeNoteCount    = "note.count"
)

type entry struct {
	asset      common.Address
	note       *types.ValueNote
	viewingKey []byte
	status     types.NoteStatus
}

type publicKey struct {
	asset, owner common.Address
}

// Ledger is an in-memory note store. All state changes happen under one lock,
// which is what keeps a note from being spent twice.
type Ledger struct {
	mtx      sync.RWMutex
	verifier circuit.Verifier
	logger   zerolog.Logger

	notes map[common.Hash]*entry
	order []common.Hash

	noteCommitmentsTree *merkletree.Tree
	noteCommitmentsRoot []byte
	noteCommitments     [][]byte

	publicBalances map[publicKey]*big.Int
}

var _ Client = (*Ledger)(nil)

// NewLedger returns an empty ledger. A nil verifier accepts every proof.
func NewLedger(verifier circuit.Verifier, logger zerolog.Logger) *Ledger {
	return &Ledger{
		verifier:            verifier,
		logger:              logger.With().Str("module", "ledger").Logger(),
		notes:               make(map[common.Hash]*entry),
		noteCommitmentsTree: merkletree.New(noteCommitmentHasher()),
		publicBalances:      make(map[publicKey]*big.Int),
	}
}

// Mint adds an already spendable note, e.g. the initial supply.
func (l *Ledger) Mint(asset common.Address, note *types.ValueNote) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.addNote(asset, note, types.NoteStatusSpendable)
}

func (l *Ledger) addNote(asset common.Address, note *types.ValueNote, status types.NoteStatus) error {
	h := note.NoteHash()
	if _, ok := l.notes[h]; ok {
		return fmt.Errorf("%w: %s", ErrNoteExists, h.Hex())
	}
	l.notes[h] = &entry{
		asset:      asset,
		note:       note,
		viewingKey: note.ViewingKeyFor(note.Owner),
		status:     status,
	}
	l.order = append(l.order, h)
	l.addNoteCommitment(h.Bytes())
	return nil
}

func (l *Ledger) addNoteCommitment(commitment []byte) int {
	l.noteCommitments = append(l.noteCommitments, commitment)
	l.noteCommitmentsTree.Push(commitment)
	l.noteCommitmentsRoot = l.noteCommitmentsTree.Root()

	return len(l.noteCommitments) - 1
}

func noteCommitmentHasher() hash.Hash {
	return utils.MiMCHasher()
}

func (l *Ledger) NoteCommitmentsRoot() []byte {
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	return bytes.Clone(l.noteCommitmentsRoot)
}

// NoteCommitmentProof proves that the note h was ever committed to the ledger.
func (l *Ledger) NoteCommitmentProof(h common.Hash) (root []byte, proofSet [][]byte, idx, numLeaves uint64, err error) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	var buf bytes.Buffer
	found := false
	for i, c := range l.noteCommitments {
		if !found && bytes.Equal(c, h.Bytes()) {
			idx = uint64(i)
			found = true
		}
		buf.Write(c)
	}
	if !found {
		err = fmt.Errorf("%w: %s", ErrUnknownNote, h.Hex())
		return
	}
	hasher := noteCommitmentHasher()
	root, proofSet, numLeaves, err = merkletree.BuildReaderProof(&buf, hasher, hasher.Size(), idx)
	return
}

// PickNotes selects spendable notes of q.Owner, largest first, until their sum
// reaches q.Amount. With q.NumberOfNotes > 0 exactly that many notes are picked.
func (l *Ledger) PickNotes(ctx context.Context, q PickQuery) (PickResult, error) {
	if err := ctx.Err(); err != nil {
		return PickResult{}, err
	}
	if q.Amount == nil || q.Amount.IsZero() {
		return PickResult{}, errors.New("pick amount must be positive")
	}

	l.mtx.RLock()
	defer l.mtx.RUnlock()

	var candidates []*entry
	for _, h := range l.order {
		e := l.notes[h]
		if e.status == types.NoteStatusSpendable && e.asset == q.Asset && e.note.Owner == q.Owner {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return PickResult{}, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].note.Amount.Gt(candidates[j].note.Amount)
	})

	var picked []*entry
	sum := new(uint256.Int)
	if q.NumberOfNotes > 0 {
		if len(candidates) < q.NumberOfNotes {
			return PickResult{Error: &types.StoreError{
				Code:    CodeNoteCount,
				Message: fmt.Sprintf("only %d notes available, %d requested", len(candidates), q.NumberOfNotes),
			}}, nil
		}
		picked = candidates[:q.NumberOfNotes]
		for _, e := range picked {
			sum.Add(sum, e.note.Amount)
		}
	} else {
		for _, e := range candidates {
			if !sum.Lt(q.Amount) {
				break
			}
			picked = append(picked, e)
			sum.Add(sum, e.note.Amount)
		}
	}
	if sum.Lt(q.Amount) {
		return PickResult{Error: &types.StoreError{Code: CodeInsufficient, Message: "insufficient funds"}}, nil
	}

	ret := PickResult{Notes: make([]*NoteDescriptor, len(picked))}
	for i, e := range picked {
		ret.Notes[i] = e.descriptor(q.Fields)
	}

	l.logger.Debug().
		Str("owner", q.Owner.Hex()).
		Str("amount", q.Amount.Dec()).
		Int("notes", len(picked)).
		Msg("notes picked")
	return ret, nil
}

func (e *entry) descriptor(fields []string) *NoteDescriptor {
	d := &NoteDescriptor{Owner: e.note.Owner}
	if wants(fields, FieldNoteHash) {
		d.NoteHash = e.note.NoteHash()
	}
	if wants(fields, FieldValue) {
		d.Value = e.note.Amount.Clone()
	}
	if wants(fields, FieldViewingKey) {
		d.ViewingKey = bytes.Clone(e.viewingKey)
	}
	if wants(fields, FieldMetadata) {
		d.Metadata = e.note.ExportMetadata()
	}
	if wants(fields, FieldStatus) {
		d.Status = e.status
	}
	return d
}

// Apply checks and records a join-split: the inputs become spent, the outputs
// pending, and the public value is credited to (or debited from) the public owner.
func (l *Ledger) Apply(ctx context.Context, asset common.Address, p *types.JoinSplitProof) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// a repeated note would be spent or created twice
	if err := p.CheckDistinct(); err != nil {
		return err
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	for _, n := range p.InputNotes {
		h := n.NoteHash()
		e, ok := l.notes[h]
		switch {
		case !ok:
			return fmt.Errorf("%w: %s", ErrUnknownNote, h.Hex())
		case e.asset != asset:
			return fmt.Errorf("%w: %s", ErrWrongAsset, h.Hex())
		case e.status != types.NoteStatusSpendable:
			return fmt.Errorf("%w: %s(%s)", ErrNoteNotSpendable, h.Hex(), e.status)
		}
	}
	for _, n := range p.OutputNotes {
		if _, ok := l.notes[n.NoteHash()]; ok {
			return fmt.Errorf("%w: %s", ErrNoteExists, n.NoteHash().Hex())
		}
	}

	pk := publicKey{asset: asset, owner: p.PublicOwner}
	public := new(big.Int)
	if b, ok := l.publicBalances[pk]; ok {
		public.Set(b)
	}
	if p.PublicValue != nil {
		public.Add(public, p.PublicValue)
	}
	if public.Sign() < 0 {
		return ErrPublicBalance
	}

	if l.verifier != nil {
		if err := l.verifier.Verify(p); err != nil {
			return fmt.Errorf("verify join-split: %w", err)
		}
	}

	for _, n := range p.InputNotes {
		l.notes[n.NoteHash()].status = types.NoteStatusSpent
	}
	for _, n := range p.OutputNotes {
		if err := l.addNote(asset, n, types.NoteStatusPending); err != nil {
			return err
		}
	}
	l.publicBalances[pk] = public

	l.logger.Info().
		Int("inputs", len(p.InputNotes)).
		Int("outputs", len(p.OutputNotes)).
		Str("publicValue", p.PublicValue.String()).
		Msg("join-split applied")
	return nil
}

// Settle turns every pending note spendable and returns how many changed.
func (l *Ledger) Settle() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	n := 0
	for _, e := range l.notes {
		if e.status == types.NoteStatusPending {
			e.status = types.NoteStatusSpendable
			n++
		}
	}
	return n
}

// Deposit credits public value that a later join-split can pull into the pool.
func (l *Ledger) Deposit(asset, owner common.Address, amount *big.Int) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	pk := publicKey{asset: asset, owner: owner}
	b, ok := l.publicBalances[pk]
	if !ok {
		b = new(big.Int)
		l.publicBalances[pk] = b
	}
	b.Add(b, amount)
}

func (l *Ledger) PublicBalance(asset, owner common.Address) *big.Int {
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	if b, ok := l.publicBalances[publicKey{asset: asset, owner: owner}]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (l *Ledger) NoteStatus(h common.Hash) types.NoteStatus {
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	if e, ok := l.notes[h]; ok {
		return e.status
	}
	return types.NoteStatusUnknown
}

// Balance sums the spendable notes of owner.
func (l *Ledger) Balance(asset, owner common.Address) *uint256.Int {
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	ret := uint256.NewInt(0)
	for _, e := range l.notes {
		if e.asset == asset && e.note.Owner == owner && e.status == types.NoteStatusSpendable {
			ret.Add(ret, e.note.Amount)
		}
	}
	return ret
}
