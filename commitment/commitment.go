/*
Package commitment implements the payment commitment protocol used with
Payroll Attestation contract.

Payment details are never sent to the chain. Instead, the payer keeps the
plaintext preimage and records its SHA-256 digest. Later anyone holding the
preimage can recompute the digest and compare it with the recorded one:

	claimID \n executionRef \n amount \n tokenSymbol \n tokenChain \n recipientID \n nonceHex

Recipient may be empty. Nonce is a random lowercase hex string chosen by the
payer, it is unrelated to receipt nonces and must be kept together with the
rest of the preimage, a lost nonce makes the claim unverifiable.
*/
package commitment

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	cst "github.com/nspcc-dev/payroll-contract/contracts/attestation/attestationconst"
)

// Size is the commitment size in bytes.
const Size = cst.CommitmentSize

// DefaultNonceSize is the number of random bytes NewNonce is usually called with.
const DefaultNonceSize = 16

const separator = "\n"

var (
	// ErrInvalidLength is returned when the commitment is not Size bytes long.
	ErrInvalidLength = errors.New("invalid commitment length")
	// ErrMismatch is returned when the preimage does not match the commitment.
	ErrMismatch = errors.New("commitment mismatch")
)

var (
	amountRegexp = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
	// Any number of digits, whole bytes are not required.
	nonceRegexp  = regexp.MustCompile(`^[0-9a-f]+$`)
)

// Preimage is a plaintext payment description the commitment is computed from.
type Preimage struct {
	ClaimID      string
	ExecutionRef string
	// Amount is a decimal string, e.g. "100" or "12.50".
	Amount      string
	TokenSymbol string
	TokenChain  string
	// RecipientID is optional.
	RecipientID string
	NonceHex    string
}

// Bytes returns canonical preimage encoding.
func (p Preimage) Bytes() []byte {
	return []byte(strings.Join([]string{
		p.ClaimID,
		p.ExecutionRef,
		p.Amount,
		p.TokenSymbol,
		p.TokenChain,
		p.RecipientID,
		p.NonceHex,
	}, separator))
}

// Sum returns the commitment to the preimage.
func (p Preimage) Sum() [Size]byte {
	return hash.Sha256(p.Bytes())
}

// Verify checks that commitment was produced from p. Any difference is a
// mismatch, there is no partial matching.
func (p Preimage) Verify(commitment []byte) error {
	if len(commitment) != Size {
		return fmt.Errorf("%w: %d", ErrInvalidLength, len(commitment))
	}
	sum := p.Sum()
	if !bytes.Equal(sum[:], commitment) {
		return ErrMismatch
	}
	return nil
}

// Validate checks field formats. It doesn't check identifiers, they are
// opaque strings.
func (p Preimage) Validate() error {
	if !amountRegexp.MatchString(p.Amount) {
		return fmt.Errorf("invalid amount %q", p.Amount)
	}
	if p.NonceHex == "" {
		return errors.New("empty nonce")
	}
	if !nonceRegexp.MatchString(p.NonceHex) {
		return fmt.Errorf("nonce must be lowercase hex, got %q", p.NonceHex)
	}
	return nil
}

// NewNonce returns size random bytes encoded as lowercase hex.
func NewNonce(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("invalid nonce size %d", size)
	}
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("can't read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
