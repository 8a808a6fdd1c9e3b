package types

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrorKind tags every fatal error of the engine so callers can tell them
// apart. A kind is itself an error, so errors.Is(err, ErrPickEmpty) works.
type ErrorKind string

const (
	ErrPickEmpty         ErrorKind = "note.pick.empty"
	ErrPickStore         ErrorKind = "note.pick.store"
	ErrPickStatus        ErrorKind = "note.pick.status"
	ErrPickInsufficient  ErrorKind = "note.pick.insufficient"
	ErrViewingKeyRecover ErrorKind = "note.viewingKey.recover"
	ErrInputAmount       ErrorKind = "input.amount.invalid"
	ErrSplitAmount       ErrorKind = "input.amount.split"
	ErrAccountUnresolved ErrorKind = "account.unresolved"
	ErrValueUnbalanced   ErrorKind = "proof.value.unbalanced"
	ErrProofCreate       ErrorKind = "proof.create"
	ErrNoteMint          ErrorKind = "note.mint"
)

func (k ErrorKind) Error() string { return string(k) }

// StoreError is the structured error payload of the note store.
type StoreError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *StoreError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

type ApiError struct {
	Kind ErrorKind

	// Notes names the notes the error is about.
	Notes []common.Hash

	// Store is set for a passthrough of the store's own error.
	Store *StoreError

	Err error
}

func NewApiError(kind ErrorKind, err error, notes ...common.Hash) *ApiError {
	return &ApiError{Kind: kind, Err: err, Notes: notes}
}

func StorePassthrough(se *StoreError) *ApiError {
	return &ApiError{Kind: ErrPickStore, Store: se}
}

func (e *ApiError) Error() string {
	if e.Store != nil {
		return e.Store.Error()
	}
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if len(e.Notes) > 0 {
		sb.WriteString(" notes=[")
		for i, h := range e.Notes {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(h.Hex())
		}
		sb.WriteString("]")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ApiError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Store != nil {
		return e.Store
	}
	return nil
}

func (e *ApiError) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// KindOf returns the kind of an engine error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var ae *ApiError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
