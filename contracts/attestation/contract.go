package attestation

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/math"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/payroll-contract/common"
	cst "github.com/nspcc-dev/payroll-contract/contracts/attestation/attestationconst"
)

type (
	// PaymentAttestation is a commitment to the off-chain payment details
	// of a single claim.
	PaymentAttestation struct {
		ClaimID      string
		ExecutionRef string
		// SHA-256 of the canonical payment preimage.
		Commitment []byte
		// Block time in milliseconds.
		Timestamp int
	}

	// ReceiptRecord is an outcome of a single payroll run. Only hashes are
	// stored, amounts never reach the chain.
	ReceiptRecord struct {
		PayrollID    string
		BatchHash    string
		AuthorizerID string
		Nonce        int
		ExecutorID   string
		// success | partial | failed
		Status     string
		TxRefsHash string
		// Block time in milliseconds.
		Timestamp int
	}
)

const (
	ownerKey         = cst.OwnerKey
	allowedCallerKey = cst.AllowedCallerKey

	paymentPrefix = cst.PaymentPrefix
	receiptPrefix = cst.ReceiptPrefix
	noncePrefix   = cst.NoncePrefix
)

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	ctx := storage.GetContext()

	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	tx := runtime.GetScriptContainer()
	storage.Put(ctx, ownerKey, tx.Sender)

	if data != nil {
		args := data.([]any)
		if len(args) > 0 && args[0] != nil {
			putAllowedCaller(ctx, args[0].(interop.Hash160))
		}
	}

	runtime.Log("payroll attestation contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by the contract owner.
func Update(script []byte, manifest []byte, data any) {
	ctx := storage.GetReadOnlyContext()
	checkOwner(ctx)

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, script, manifest, common.AppendVersion(data))
	runtime.Log("payroll attestation contract updated")
}

// Owner returns the account that deployed the contract. The owner is the only
// account allowed to change the allowed caller and to update the contract.
func Owner() interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	return storage.Get(ctx, ownerKey).(interop.Hash160)
}

// AllowedCaller returns the account allowed to record payments and receipts.
// Null means any account is allowed.
func AllowedCaller() interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	caller := storage.Get(ctx, allowedCallerKey)
	if caller == nil {
		return nil
	}
	return caller.(interop.Hash160)
}

// SetAllowedCaller replaces the account allowed to record payments and
// receipts. Null or empty caller lifts the restriction. It can be invoked only
// by the contract owner.
//
// It produces AllowedCallerChanged notification with an empty array when the
// restriction is lifted.
func SetAllowedCaller(caller interop.Hash160) {
	ctx := storage.GetContext()
	checkOwner(ctx)

	putAllowedCaller(ctx, caller)

	if common.IsEmptyAccount(caller) {
		runtime.Notify("AllowedCallerChanged", []byte{})
	} else {
		runtime.Notify("AllowedCallerChanged", []byte(caller))
	}
}

// RecordPayment saves a commitment to the payment made for the claim. Each
// claim can be attested only once, repeated calls fail even with the same
// arguments.
//
// Commitment must be a 32-byte SHA-256 digest of the canonical preimage:
// claimID, executionRef, amount, token symbol, token chain, recipient (may be
// empty) and a random hex nonce joined with '\n'.
//
// It produces PaymentRecorded notification.
func RecordPayment(claimID string, executionRef string, commitment []byte) {
	ctx := storage.GetContext()

	checkAllowedCaller(ctx)

	if commitment == nil || len(commitment) != cst.CommitmentSize {
		panic(cst.ErrInvalidCommitment)
	}

	key := common.HashedKey(paymentPrefix, []byte(claimID))
	if storage.Get(ctx, key) != nil {
		panic(cst.ErrDuplicateClaim)
	}

	common.SetSerialized(ctx, key, PaymentAttestation{
		ClaimID:      claimID,
		ExecutionRef: executionRef,
		Commitment:   commitment,
		Timestamp:    runtime.GetTime(),
	})

	runtime.Notify("PaymentRecorded", claimID, executionRef, commitment)
}

// GetPayment returns PaymentAttestation of the claim or Null if the claim
// has not been attested.
func GetPayment(claimID string) any {
	ctx := storage.GetReadOnlyContext()
	return common.GetSerialized(ctx, common.HashedKey(paymentPrefix, []byte(claimID)))
}

// RecordReceipt saves an outcome of the payroll run and spends the
// authorizer's nonce. Receipt can be recorded once per payroll: repeated
// payrollID fails. Nonce can be spent once per authorizer: it fails for any
// other payroll too.
//
// It produces ReceiptRecorded notification.
func RecordReceipt(payrollID, batchHash, authorizerID string, nonce int,
	executorID, status, txRefsHash string) {
	ctx := storage.GetContext()

	checkAllowedCaller(ctx)

	if nonce < 0 || nonce > maxNonce() {
		panic(cst.ErrInvalidNonce)
	}

	key := common.HashedKey(receiptPrefix, []byte(payrollID))
	if storage.Get(ctx, key) != nil {
		panic(cst.ErrDuplicateReceipt)
	}

	nKey := nonceKey(authorizerID, nonce)
	if storage.Get(ctx, nKey) != nil {
		panic(cst.ErrNonceReused)
	}

	common.SetSerialized(ctx, key, ReceiptRecord{
		PayrollID:    payrollID,
		BatchHash:    batchHash,
		AuthorizerID: authorizerID,
		Nonce:        nonce,
		ExecutorID:   executorID,
		Status:       status,
		TxRefsHash:   txRefsHash,
		Timestamp:    runtime.GetTime(),
	})
	storage.Put(ctx, nKey, payrollID)

	runtime.Notify("ReceiptRecorded", payrollID, authorizerID, nonce, status)
}

// GetReceipt returns ReceiptRecord of the payroll or Null if there is none.
func GetReceipt(payrollID string) any {
	ctx := storage.GetReadOnlyContext()
	return common.GetSerialized(ctx, common.HashedKey(receiptPrefix, []byte(payrollID)))
}

// IsNonceUsed checks whether the nonce has already been spent by the
// authorizer.
func IsNonceUsed(authorizerID string, nonce int) bool {
	ctx := storage.GetReadOnlyContext()
	return storage.Get(ctx, nonceKey(authorizerID, nonce)) != nil
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

func checkOwner(ctx storage.Context) {
	owner := storage.Get(ctx, ownerKey).(interop.Hash160)
	common.CheckWitness(owner, cst.ErrUnauthorized)
}

func checkAllowedCaller(ctx storage.Context) {
	caller := storage.Get(ctx, allowedCallerKey)
	if caller != nil {
		common.CheckWitness(caller.(interop.Hash160), cst.ErrUnauthorized)
	}
}

func putAllowedCaller(ctx storage.Context, caller interop.Hash160) {
	if common.IsEmptyAccount(caller) {
		storage.Delete(ctx, allowedCallerKey)
		return
	}

	if len(caller) != interop.Hash160Len {
		panic(cst.ErrInvalidCaller)
	}

	storage.Put(ctx, allowedCallerKey, caller)
}

// nonceKey derives a single storage key from the (authorizer, nonce) pair.
// Decimal nonce contains no separator characters, so the pair is always
// recoverable from the preimage.
func nonceKey(authorizerID string, nonce int) []byte {
	return common.HashedKey(noncePrefix, []byte(authorizerID+cst.NonceSeparator+std.Itoa(nonce, 10)))
}

func maxNonce() int {
	return math.Pow(2, 64) - 1
}
