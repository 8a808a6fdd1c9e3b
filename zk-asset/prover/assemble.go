package prover

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/kysee/zknote/zk-asset/circuit"
	"github.com/kysee/zknote/zk-asset/types"
	"github.com/rs/zerolog"
)

// PublicValue is sum(in) - sum(out). A positive value leaves the pool.
func PublicValue(inputValues, outputValues []*uint256.Int) *big.Int {
	return new(big.Int).Sub(sumBig(inputValues), sumBig(outputValues))
}

func sumBig(values []*uint256.Int) *big.Int {
	sum := new(big.Int)
	for _, v := range values {
		sum.Add(sum, v.ToBig())
	}
	return sum
}

// Assembler builds and proves a join-split.
type Assembler struct {
	prover circuit.Prover
	logger zerolog.Logger
}

func NewAssembler(prover circuit.Prover, logger zerolog.Logger) *Assembler {
	return &Assembler{prover: prover, logger: logger}
}

// Assemble returns the proven join-split and the keccak256 hash of its
// public outputs. publicValue is what the request moves out of the pool;
// the notes must balance against it.
func (a *Assembler) Assemble(inputs, outputs []*types.ValueNote, publicValue *big.Int, sender, publicOwner common.Address) (*types.JoinSplitProof, common.Hash, error) {
	if len(inputs) == 0 {
		return nil, common.Hash{}, types.NewApiError(types.ErrProofCreate, errors.New("no input notes"))
	}
	if publicValue == nil {
		return nil, common.Hash{}, types.NewApiError(types.ErrValueUnbalanced, errors.New("no public value"))
	}

	p := &types.JoinSplitProof{
		InputNotes:  inputs,
		OutputNotes: outputs,
		Sender:      sender,
		PublicValue: new(big.Int).Set(publicValue),
		PublicOwner: publicOwner,
	}

	// value conservation
	if got := PublicValue(p.InputValues(), p.OutputValues()); got.Cmp(p.PublicValue) != 0 {
		return nil, common.Hash{}, types.NewApiError(types.ErrValueUnbalanced,
			fmt.Errorf("inputs %s, outputs %s, public value %s",
				sumBig(p.InputValues()), sumBig(p.OutputValues()), p.PublicValue))
	}
	if err := p.CheckDistinct(); err != nil {
		return nil, common.Hash{}, types.NewApiError(types.ErrValueUnbalanced, err)
	}

	proofBytes, err := a.prover.Prove(p)
	if err != nil {
		return nil, common.Hash{}, types.NewApiError(types.ErrProofCreate, err)
	}
	p.ProofBytes = proofBytes

	h, err := p.Hash()
	if err != nil {
		return nil, common.Hash{}, types.NewApiError(types.ErrProofCreate, err)
	}

	a.logger.Debug().
		Int("inputs", len(inputs)).
		Int("outputs", len(outputs)).
		Str("publicValue", p.PublicValue.String()).
		Str("proofHash", h.Hex()).
		Msg("join-split assembled")
	return p, h, nil
}
