package prover

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kysee/zknote/zk-asset/crypto"
	"github.com/kysee/zknote/zk-asset/store"
	"github.com/kysee/zknote/zk-asset/types"
	"golang.org/x/sync/errgroup"
)

// Reconstructor turns picked descriptors back into spendable notes.
type Reconstructor struct {
	decrypter ViewingKeyDecrypter
}

func NewReconstructor(decrypter ViewingKeyDecrypter) *Reconstructor {
	return &Reconstructor{decrypter: decrypter}
}

// Reconstruct returns the notes in the order of descs. It is all or nothing:
// if any note fails, the error names every failing note.
func (r *Reconstructor) Reconstruct(ctx context.Context, descs []*store.NoteDescriptor) ([]*types.ValueNote, error) {
	notes := make([]*types.ValueNote, len(descs))
	errs := make([]error, len(descs))

	var g errgroup.Group
	for i, d := range descs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			notes[i], errs[i] = r.reconstruct(d)
			return nil
		})
	}
	_ = g.Wait()

	var (
		failed []common.Hash
		causes []error
	)
	for i, err := range errs {
		if err != nil {
			failed = append(failed, descs[i].NoteHash)
			causes = append(causes, fmt.Errorf("%s: %w", descs[i].NoteHash.Hex(), err))
		}
	}
	if len(failed) > 0 {
		return nil, types.NewApiError(types.ErrViewingKeyRecover, errors.Join(causes...), failed...)
	}
	return notes, nil
}

func (r *Reconstructor) reconstruct(d *store.NoteDescriptor) (*types.ValueNote, error) {
	prefix, custom, err := types.SplitMetadata(d.Metadata)
	if err != nil {
		return nil, err
	}
	pubKey, err := crypto.PubFromBytes(prefix[1 : 1+crypto.PubKeySize])
	if err != nil {
		return nil, fmt.Errorf("spending key: %w", err)
	}

	plain, err := r.decrypter.DecryptViewingKey(d.ViewingKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt viewing key: %w", err)
	}
	sn, err := types.DecodeSecretNote(plain)
	if err != nil {
		return nil, fmt.Errorf("decode viewing key: %w", err)
	}
	if sn.Version != prefix[0] {
		return nil, fmt.Errorf("wrong note version: expected(%d), got(%d)", prefix[0], sn.Version)
	}

	note := types.NoteFromSecret(sn, d.Owner, pubKey)
	note.Metadata = bytes.Clone(custom)
	note.Status = d.Status

	if !note.Amount.Eq(d.Value) {
		return nil, fmt.Errorf("value mismatch: store(%s), viewing key(%s)", d.Value.Dec(), note.Amount.Dec())
	}
	if h := note.NoteHash(); h != d.NoteHash {
		return nil, fmt.Errorf("note hash mismatch: got(%s)", h.Hex())
	}
	return note, nil
}
