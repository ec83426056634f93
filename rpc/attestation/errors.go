package attestation

import (
	"errors"
	"strings"

	cst "github.com/nspcc-dev/payroll-contract/contracts/attestation/attestationconst"
)

// Errors returned by ParseFault for the exceptions thrown by the contract.
var (
	ErrUnauthorized      = errors.New(cst.ErrUnauthorized)
	ErrInvalidCommitment = errors.New(cst.ErrInvalidCommitment)
	ErrDuplicateClaim    = errors.New(cst.ErrDuplicateClaim)
	ErrDuplicateReceipt  = errors.New(cst.ErrDuplicateReceipt)
	ErrNonceReused       = errors.New(cst.ErrNonceReused)
	ErrInvalidNonce      = errors.New(cst.ErrInvalidNonce)
	ErrInvalidCaller     = errors.New(cst.ErrInvalidCaller)
)

var faults = []error{
	ErrUnauthorized,
	ErrInvalidCommitment,
	ErrDuplicateClaim,
	ErrDuplicateReceipt,
	ErrNonceReused,
	ErrInvalidNonce,
	ErrInvalidCaller,
}

// ParseFault returns the contract error matching the FAULT exception message
// or nil if the exception is not thrown by the contract. The message can be
// either the bare exception or a full VM error text (e.g. the one returned by
// a failed test invocation).
func ParseFault(exception string) error {
	if exception == "" {
		return nil
	}
	for _, err := range faults {
		if strings.Contains(exception, err.Error()) {
			return err
		}
	}
	return nil
}

// FaultError is returned when a transaction has been accepted but its
// execution FAULTed. It unwraps to the contract error if the exception is
// known.
type FaultError struct {
	Exception string
}

func (e *FaultError) Error() string {
	return "transaction FAULTed: " + e.Exception
}

func (e *FaultError) Unwrap() error {
	return ParseFault(e.Exception)
}
