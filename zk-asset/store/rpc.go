package store

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/kysee/zknote/zk-asset/types"
)

// Fields a caller can ask the store to fill in a NoteDescriptor.
const (
	FieldValue      = "value"
	FieldViewingKey = "decryptedViewingKey"
	FieldNoteHash   = "noteHash"
	FieldMetadata   = "metadata"
	FieldStatus     = "status"
)

var AllFields = []string{FieldValue, FieldViewingKey, FieldNoteHash, FieldMetadata, FieldStatus}

// Client is the note store as seen by the engine.
// PickNotes either returns notes, a structured store error, or neither.
// Locking the picked notes against a concurrent spend is up to the store.
type Client interface {
	PickNotes(ctx context.Context, q PickQuery) (PickResult, error)
}

type PickQuery struct {
	Owner         common.Address
	Asset         common.Address
	Amount        *uint256.Int
	NumberOfNotes int
	Fields        []string
}

type PickResult struct {
	Notes []*NoteDescriptor
	Error *types.StoreError
}

// NoteDescriptor is a note as the store hands it out.
// ViewingKey is the owner's sealed viewing key; Metadata still carries the
// store prefix.
type NoteDescriptor struct {
	NoteHash   common.Hash      `json:"noteHash"`
	Owner      common.Address   `json:"owner"`
	Value      *uint256.Int     `json:"value"`
	ViewingKey []byte           `json:"decryptedViewingKey"`
	Metadata   []byte           `json:"metadata"`
	Status     types.NoteStatus `json:"status"`
}

// Validate checks the fields the engine cannot work without.
func (d *NoteDescriptor) Validate() error {
	switch {
	case d == nil:
		return fmt.Errorf("nil note descriptor")
	case d.NoteHash == (common.Hash{}):
		return fmt.Errorf("note descriptor: missing %s", FieldNoteHash)
	case d.Value == nil:
		return fmt.Errorf("note descriptor %s: missing %s", d.NoteHash.Hex(), FieldValue)
	case len(d.ViewingKey) == 0:
		return fmt.Errorf("note descriptor %s: missing %s", d.NoteHash.Hex(), FieldViewingKey)
	case d.Metadata == nil:
		return fmt.Errorf("note descriptor %s: missing %s", d.NoteHash.Hex(), FieldMetadata)
	case d.Status == types.NoteStatusUnknown:
		return fmt.Errorf("note descriptor %s: missing %s", d.NoteHash.Hex(), FieldStatus)
	}
	return nil
}

func wants(fields []string, f string) bool {
	if len(fields) == 0 {
		return true
	}
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}
