package circuit

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/zknote/utils"
	"github.com/kysee/zknote/zk-asset/types"
)

// ProofData is a join-split proof as the Solidity verifier takes it.
type ProofData struct {
	Proof string `json:"proof"`

	// PublicInputs are [noteVersion, inputNoteHashes..., outputNoteHashes..., publicValue].
	PublicInputs []string `json:"publicInputs"`
}

func SolidityCalldata(p *types.JoinSplitProof) (*ProofData, error) {
	if len(p.ProofBytes) == 0 {
		return nil, ErrNoProof
	}
	cc, err := AssignPublic(p)
	if err != nil {
		return nil, err
	}

	inputs := make([]string, 0, 2+len(cc.InNoteHashes)+len(cc.OutNoteHashes))
	inputs = append(inputs, fieldHex(big.NewInt(int64(types.NoteVersion))))
	for _, h := range cc.InNoteHashes {
		inputs = append(inputs, fieldHex(h.(*big.Int)))
	}
	for _, h := range cc.OutNoteHashes {
		inputs = append(inputs, fieldHex(h.(*big.Int)))
	}
	inputs = append(inputs, fieldHex(cc.PublicValue.(*big.Int)))

	return &ProofData{
		Proof:        hexutil.Encode(p.ProofBytes),
		PublicInputs: inputs,
	}, nil
}

func fieldHex(v *big.Int) string {
	return hexutil.Encode(utils.FieldBytes(v))
}
