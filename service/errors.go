package service

import (
	"errors"
	"net/http"
)

// Kind is the closed set of failures the referral backend reports to callers.
type Kind string

const (
	KindNotConfigured       Kind = "NOT_CONFIGURED"
	KindInvalidAddress      Kind = "INVALID_ADDRESS"
	KindInvalidAmount       Kind = "INVALID_AMOUNT"
	KindInvalidDeadline     Kind = "INVALID_DEADLINE"
	KindInvalidTxHash       Kind = "INVALID_TX_HASH"
	KindUnsupportedToken    Kind = "UNSUPPORTED_TOKEN"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindSelfReferral        Kind = "SELF_REFERRAL"
	KindInvalidCode         Kind = "INVALID_CODE"
	KindInvalidCodeFormat   Kind = "INVALID_CODE_FORMAT"
	KindCodeTaken           Kind = "CODE_TAKEN"
	KindWalletHasCode       Kind = "WALLET_HAS_CODE"
	KindUnverifiedSwap      Kind = "UNVERIFIED_SWAP"
	KindChainUnavailable    Kind = "CHAIN_UNAVAILABLE"
	KindStorageUnavailable  Kind = "STORAGE_UNAVAILABLE"
	KindSigningFailure      Kind = "SIGNING_FAILURE"
	KindInternal            Kind = "INTERNAL"
)

func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotConfigured, KindChainUnavailable:
		return http.StatusServiceUnavailable
	case KindInvalidCode:
		return http.StatusNotFound
	case KindStorageUnavailable, KindSigningFailure, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Error carries a Kind plus a client-safe Message. Err holds the internal cause
// and is only ever logged.
type Error struct {
	Kind    Kind
	Message string

	// set for KindInsufficientBalance
	Payable   string
	Requested string

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func storageError(err error) *Error {
	return &Error{Kind: KindStorageUnavailable, Message: "storage unavailable, please retry", Err: err}
}

// KindOf returns the Kind of err, or KindInternal for anything untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AsError unwraps err into *Error, wrapping untyped errors as KindInternal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}
