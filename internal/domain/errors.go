package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so the transport layer can translate it into
// a status without inspecting messages.
type ErrorKind string

const (
	KindValidation             ErrorKind = "VALIDATION"
	KindUnauthorized           ErrorKind = "UNAUTHORIZED"
	KindForbidden              ErrorKind = "FORBIDDEN"
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindInvalidState           ErrorKind = "INVALID_STATE"
	KindConflict               ErrorKind = "CONFLICT"
	KindPrecondition           ErrorKind = "PRECONDITION"
	KindUnavailable            ErrorKind = "UNAVAILABLE"
	KindStoreUnavailable       ErrorKind = "STORE_UNAVAILABLE"
	KindLedgerUnavailable      ErrorKind = "LEDGER_UNAVAILABLE"
	KindLedgerRejected         ErrorKind = "LEDGER_REJECTED"
	KindReconciliationRequired ErrorKind = "RECONCILIATION_REQUIRED"
	KindInternal               ErrorKind = "INTERNAL"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrPrecondition      = &Error{Kind: KindPrecondition}
	ErrUnavailable       = &Error{Kind: KindUnavailable}
	ErrStoreUnavailable  = &Error{Kind: KindStoreUnavailable}
	ErrLedgerUnavailable = &Error{Kind: KindLedgerUnavailable}
	ErrLedgerRejected    = &Error{Kind: KindLedgerRejected}
)

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// ReconciliationError reports a ledger transaction that was confirmed while
// the local agreement could not be persisted. The ledger side is never rolled
// back; operators reconcile by tx hash or by re-running finalize for the offer.
type ReconciliationError struct {
	OfferID   string
	ContentID string
	TxHash    string
	OnChainID uint64
	Err       error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("agreement for offer %s confirmed on ledger (tx %s, cid %s) but not recorded: %v",
		e.OfferID, e.TxHash, e.ContentID, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first classified error in err's chain.
// Unclassified errors are INTERNAL.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var re *ReconciliationError
	if errors.As(err, &re) {
		return KindReconciliationRequired
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
