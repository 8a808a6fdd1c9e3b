package circuit

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"
	std_mimc "github.com/consensys/gnark/std/hash/mimc"
	"github.com/kysee/zknote/utils"
	"github.com/kysee/zknote/zk-asset/types"
)

// ValueBits is the range every note amount is checked against.
const ValueBits = 128

// JoinSplitCircuit proves that the input notes and the output notes open to
// their public note hashes and that sum(in) == sum(out) + PublicValue.
type JoinSplitCircuit struct {
	NoteVer frontend.Variable `gnark:",public"`

	InPubX       []frontend.Variable
	InPubY       []frontend.Variable
	InValues     []frontend.Variable
	InSalts      []frontend.Variable
	InNoteHashes []frontend.Variable `gnark:",public"`

	OutPubX       []frontend.Variable
	OutPubY       []frontend.Variable
	OutValues     []frontend.Variable
	OutSalts      []frontend.Variable
	OutNoteHashes []frontend.Variable `gnark:",public"`

	// PublicValue is reduced modulo the scalar field; negative values wrap.
	PublicValue frontend.Variable `gnark:",public"`
}

func newCircuit(nIn, nOut int) *JoinSplitCircuit {
	return &JoinSplitCircuit{
		InPubX:        make([]frontend.Variable, nIn),
		InPubY:        make([]frontend.Variable, nIn),
		InValues:      make([]frontend.Variable, nIn),
		InSalts:       make([]frontend.Variable, nIn),
		InNoteHashes:  make([]frontend.Variable, nIn),
		OutPubX:       make([]frontend.Variable, nOut),
		OutPubY:       make([]frontend.Variable, nOut),
		OutValues:     make([]frontend.Variable, nOut),
		OutSalts:      make([]frontend.Variable, nOut),
		OutNoteHashes: make([]frontend.Variable, nOut),
	}
}

func (cc *JoinSplitCircuit) Define(api frontend.API) error {
	hasher, err := std_mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	sumIn := cc.verifyNotes(api, &hasher, cc.InPubX, cc.InPubY, cc.InValues, cc.InSalts, cc.InNoteHashes)
	sumOut := cc.verifyNotes(api, &hasher, cc.OutPubX, cc.OutPubY, cc.OutValues, cc.OutSalts, cc.OutNoteHashes)

	// value conservation
	api.AssertIsEqual(sumIn, api.Add(sumOut, cc.PublicValue))
	return nil
}

func (cc *JoinSplitCircuit) verifyNotes(api frontend.API, hasher hash.FieldHasher, xs, ys, values, salts, noteHashes []frontend.Variable) frontend.Variable {
	sum := frontend.Variable(0)
	for i := range values {
		_ = api.ToBinary(values[i], ValueBits)

		hasher.Reset()
		hasher.Write(cc.NoteVer, xs[i], ys[i], values[i], salts[i])
		api.AssertIsEqual(noteHashes[i], hasher.Sum())

		sum = api.Add(sum, values[i])
	}
	return sum
}

// Assign builds the full witness assignment of a join-split.
func Assign(p *types.JoinSplitProof) (*JoinSplitCircuit, error) {
	cc, err := AssignPublic(p)
	if err != nil {
		return nil, err
	}
	for i, n := range p.InputNotes {
		cc.InPubX[i], cc.InPubY[i], cc.InValues[i], cc.InSalts[i] = privateNote(n)
	}
	for i, n := range p.OutputNotes {
		cc.OutPubX[i], cc.OutPubY[i], cc.OutValues[i], cc.OutSalts[i] = privateNote(n)
	}
	return cc, nil
}

// AssignPublic fills only the public inputs, which is what a verifier knows.
func AssignPublic(p *types.JoinSplitProof) (*JoinSplitCircuit, error) {
	cc := newCircuit(len(p.InputNotes), len(p.OutputNotes))
	cc.NoteVer = types.NoteVersion

	for i, n := range p.InputNotes {
		if err := checkNote(n); err != nil {
			return nil, fmt.Errorf("input note %d: %w", i, err)
		}
		cc.InNoteHashes[i] = new(big.Int).SetBytes(n.Commitment())
	}
	for i, n := range p.OutputNotes {
		if err := checkNote(n); err != nil {
			return nil, fmt.Errorf("output note %d: %w", i, err)
		}
		cc.OutNoteHashes[i] = new(big.Int).SetBytes(n.Commitment())
	}
	if err := p.CheckDistinct(); err != nil {
		return nil, err
	}

	pv := p.PublicValue
	if pv == nil {
		pv = new(big.Int)
	}
	cc.PublicValue = utils.FieldValue(pv)
	return cc, nil
}

func checkNote(n *types.ValueNote) error {
	if n == nil || n.PubKey == nil || n.Amount == nil {
		return fmt.Errorf("incomplete note")
	}
	if n.Version != types.NoteVersion {
		return fmt.Errorf("wrong note version: expected(%d), got(%d)", types.NoteVersion, n.Version)
	}
	if n.Amount.Cmp(types.MaxNoteValue) >= 0 {
		return types.ErrNoteValue
	}
	return nil
}

func privateNote(n *types.ValueNote) (x, y, value, salt frontend.Variable) {
	return n.PubKey.A.X.BigInt(new(big.Int)),
		n.PubKey.A.Y.BigInt(new(big.Int)),
		n.Amount.ToBig(),
		new(big.Int).SetBytes(n.Salt)
}
