package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
)

// CheckWitness checks witness of the passed account.
// It panics with the given message on fail.
func CheckWitness(account interop.Hash160, panicMsg string) {
	if !runtime.CheckWitness(account) {
		panic(panicMsg)
	}
}

// IsEmptyAccount returns true if account is either nil or has no bytes. Such
// values are used by callers to express "no account".
func IsEmptyAccount(account interop.Hash160) bool {
	return account == nil || len(account) == 0
}
