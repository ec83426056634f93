// Package attestationconst contains constants shared by the Payroll
// Attestation contract and its off-chain clients.
package attestationconst

const (
	// CommitmentSize is the exact size of a payment commitment (SHA-256 digest).
	CommitmentSize = 32

	// NonceSeparator joins authorizer ID and decimal nonce into the nonce
	// ledger key.
	NonceSeparator = "::"
)

// Storage keys and key prefixes of the contract. Records are stored under
// prefix followed by SHA-256 of the record identifier.
const (
	OwnerKey         = 'o'
	AllowedCallerKey = 'a'

	PaymentPrefix = 'p'
	ReceiptPrefix = 'r'
	NoncePrefix   = 'n'
)

// Exception messages thrown by the contract.
const (
	// ErrUnauthorized is thrown when the invoking account fails the allowed
	// caller or owner check.
	ErrUnauthorized = "unauthorized"
	// ErrInvalidCommitment is thrown when commitment is not CommitmentSize bytes long.
	ErrInvalidCommitment = "invalid commitment"
	// ErrDuplicateClaim is thrown when an attestation for the claim already exists.
	ErrDuplicateClaim = "duplicate claim"
	// ErrDuplicateReceipt is thrown when a receipt for the payroll already exists.
	ErrDuplicateReceipt = "duplicate receipt"
	// ErrNonceReused is thrown when the authorizer nonce has already been spent.
	ErrNonceReused = "nonce reused"
	// ErrInvalidNonce is thrown when the nonce does not fit into 64-bit
	// unsigned integer.
	ErrInvalidNonce = "invalid nonce"
	// ErrInvalidCaller is thrown when the allowed caller is neither empty nor
	// a 20-byte account hash.
	ErrInvalidCaller = "invalid caller"
)

// Notification names.
const (
	PaymentRecordedEvent      = "PaymentRecorded"
	ReceiptRecordedEvent      = "ReceiptRecorded"
	AllowedCallerChangedEvent = "AllowedCallerChanged"
)
