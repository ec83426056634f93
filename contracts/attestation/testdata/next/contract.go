// Package next is the next version of Payroll Attestation contract. It only
// reads the ledger left by the previous version and is used as an update
// target in tests.
package next

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/payroll-contract/common"
	cst "github.com/nspcc-dev/payroll-contract/contracts/attestation/attestationconst"
)

const version = common.Version + 1

const (
	ownerKey = cst.OwnerKey

	paymentPrefix = cst.PaymentPrefix
	receiptPrefix = cst.ReceiptPrefix
	noncePrefix   = cst.NoncePrefix
)

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	if !isUpdate {
		panic("only update is supported")
	}

	args := data.([]any)
	if args[len(args)-1].(int) != common.Version {
		panic(common.ErrVersionMismatch)
	}
}

func Owner() interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	return storage.Get(ctx, ownerKey).(interop.Hash160)
}

func GetPayment(claimID string) any {
	ctx := storage.GetReadOnlyContext()
	return common.GetSerialized(ctx, common.HashedKey(paymentPrefix, []byte(claimID)))
}

func GetReceipt(payrollID string) any {
	ctx := storage.GetReadOnlyContext()
	return common.GetSerialized(ctx, common.HashedKey(receiptPrefix, []byte(payrollID)))
}

func IsNonceUsed(authorizerID string, nonce int) bool {
	ctx := storage.GetReadOnlyContext()
	key := common.HashedKey(noncePrefix, []byte(authorizerID+cst.NonceSeparator+std.Itoa(nonce, 10)))
	return storage.Get(ctx, key) != nil
}

func Version() int {
	return version
}
