package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// JoinSplitProof consumes InputNotes and creates OutputNotes.
// PublicValue is what leaves (> 0) or enters (< 0) the confidential pool,
// paid to or taken from PublicOwner.
type JoinSplitProof struct {
	InputNotes  []*ValueNote
	OutputNotes []*ValueNote
	Sender      common.Address
	PublicValue *big.Int
	PublicOwner common.Address
	ProofBytes  []byte
}

var ErrDuplicateNote = errors.New("duplicate note")

// CheckDistinct fails when a note hash shows up twice among the inputs and
// outputs. The circuit does not tie inputs to each other, so a repeated input
// would be counted twice.
func (p *JoinSplitProof) CheckDistinct() error {
	seen := make(map[common.Hash]struct{}, len(p.InputNotes)+len(p.OutputNotes))
	for _, notes := range [][]*ValueNote{p.InputNotes, p.OutputNotes} {
		for _, n := range notes {
			h := n.NoteHash()
			if _, ok := seen[h]; ok {
				return fmt.Errorf("%w: %s", ErrDuplicateNote, h.Hex())
			}
			seen[h] = struct{}{}
		}
	}
	return nil
}

// BalanceResult is what the engine hands back to the caller.
// OutputNotes are the recipients' notes; the remainder note only shows up in
// Proof.OutputNotes and RemainderNote.
type BalanceResult struct {
	Proof         *JoinSplitProof
	ProofHash     common.Hash
	InputNotes    []*ValueNote
	OutputNotes   []*ValueNote
	RemainderNote *ValueNote
}

var proofOutputsABI = abi.Arguments{
	{Name: "inputNotes", Type: mustABIType("bytes32[]")},
	{Name: "outputNotes", Type: mustABIType("bytes32[]")},
	{Name: "sender", Type: mustABIType("address")},
	{Name: "publicOwner", Type: mustABIType("address")},
	{Name: "publicValue", Type: mustABIType("int256")},
}

func mustABIType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

func noteHashes(notes []*ValueNote) [][32]byte {
	ret := make([][32]byte, len(notes))
	for i, n := range notes {
		ret[i] = n.NoteHash()
	}
	return ret
}

func (p *JoinSplitProof) InputValues() []*uint256.Int {
	return noteAmounts(p.InputNotes)
}

func (p *JoinSplitProof) OutputValues() []*uint256.Int {
	return noteAmounts(p.OutputNotes)
}

func noteAmounts(notes []*ValueNote) []*uint256.Int {
	ret := make([]*uint256.Int, len(notes))
	for i, n := range notes {
		ret[i] = n.Amount
	}
	return ret
}

// Outputs is the ABI encoding of the proof's public outputs.
func (p *JoinSplitProof) Outputs() ([]byte, error) {
	pv := p.PublicValue
	if pv == nil {
		pv = new(big.Int)
	}
	return proofOutputsABI.Pack(
		noteHashes(p.InputNotes),
		noteHashes(p.OutputNotes),
		p.Sender,
		p.PublicOwner,
		pv,
	)
}

// Hash is keccak256 over Outputs.
func (p *JoinSplitProof) Hash() (common.Hash, error) {
	outputs, err := p.Outputs()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(outputs), nil
}
