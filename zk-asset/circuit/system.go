package circuit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/test/unsafekzg"
	"github.com/kysee/zknote/zk-asset/types"
	"github.com/rs/zerolog"
)

// Prover turns a fully assembled join-split into proof bytes.
type Prover interface {
	Prove(p *types.JoinSplitProof) ([]byte, error)
}

// Verifier checks p.ProofBytes against the public part of p.
type Verifier interface {
	Verify(p *types.JoinSplitProof) error
}

var ErrNoProof = errors.New("no proof bytes")

type shape struct {
	in, out int
}

type keySet struct {
	ccs constraint.ConstraintSystem
	pk  plonk.ProvingKey
	vk  plonk.VerifyingKey
}

// System is a PLONK prover and verifier over BN254. Circuits are compiled and
// set up lazily, once per (inputs, outputs) shape.
type System struct {
	mtx    sync.Mutex
	keys   map[shape]*keySet
	logger zerolog.Logger
}

var _ Prover = (*System)(nil)
var _ Verifier = (*System)(nil)

func NewSystem(logger zerolog.Logger) *System {
	return &System{
		keys:   make(map[shape]*keySet),
		logger: logger.With().Str("module", "circuit").Logger(),
	}
}

func (s *System) keySetOf(nIn, nOut int) (*keySet, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	sh := shape{nIn, nOut}
	if ks, ok := s.keys[sh]; ok {
		return ks, nil
	}

	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, newCircuit(nIn, nOut))
	if err != nil {
		return nil, fmt.Errorf("compile join-split circuit(%d,%d): %w", nIn, nOut, err)
	}

	// todo: Use safe SRS generation
	srs, srsLagrange, err := unsafekzg.NewSRS(ccs)
	if err != nil {
		return nil, err
	}

	pk, vk, err := plonk.Setup(ccs, srs, srsLagrange)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("inputs", nIn).
		Int("outputs", nOut).
		Int("constraints", ccs.GetNbConstraints()).
		Msg("join-split circuit ready")

	ks := &keySet{ccs: ccs, pk: pk, vk: vk}
	s.keys[sh] = ks
	return ks, nil
}

func (s *System) Prove(p *types.JoinSplitProof) ([]byte, error) {
	assignment, err := Assign(p)
	if err != nil {
		return nil, err
	}
	ks, err := s.keySetOf(len(p.InputNotes), len(p.OutputNotes))
	if err != nil {
		return nil, err
	}

	wtn, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}

	proof, err := plonk.Prove(
		ks.ccs,
		ks.pk,
		wtn,
		backend.WithSolverOptions(
			solver.WithLogger(s.logger),
		),
	)
	if err != nil {
		return nil, err
	}

	bufProof := bytes.NewBuffer(nil)
	if _, err := proof.WriteTo(bufProof); err != nil {
		return nil, err
	}
	return bufProof.Bytes(), nil
}

func (s *System) Verify(p *types.JoinSplitProof) error {
	if len(p.ProofBytes) == 0 {
		return ErrNoProof
	}
	assignment, err := AssignPublic(p)
	if err != nil {
		return err
	}
	ks, err := s.keySetOf(len(p.InputNotes), len(p.OutputNotes))
	if err != nil {
		return err
	}

	proof := plonk.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(p.ProofBytes)); err != nil {
		return err
	}

	pubWtn, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return err
	}
	return plonk.Verify(proof, ks.vk, pubWtn)
}

// ExportSolidity writes the on-chain verifier of the (nIn, nOut) circuit.
func (s *System) ExportSolidity(w io.Writer, nIn, nOut int) error {
	ks, err := s.keySetOf(nIn, nOut)
	if err != nil {
		return err
	}
	return ks.vk.ExportSolidity(w)
}
