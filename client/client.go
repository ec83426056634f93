/*
Package client provides high-level access to Payroll Attestation contract for
payroll executors and auditors.

Client computes payment commitments locally, sends transactions through the
given Actor, waits for their acceptance and converts contract exceptions to
the errors of rpc/attestation package.
*/
package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/payroll-contract/commitment"
	"github.com/nspcc-dev/payroll-contract/rpc/attestation"
	"go.uber.org/zap"
)

// Receipt statuses accepted by RecordReceipt.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

var (
	// ErrNotFound is returned when requested record is missing.
	ErrNotFound = errors.New("not found")
	// ErrInvalidStatus is returned for receipt status other than StatusSuccess,
	// StatusPartial and StatusFailed.
	ErrInvalidStatus = errors.New("invalid receipt status")
)

// Actor is used by Client to read contract state and send transactions.
type Actor interface {
	attestation.Actor

	Wait(h util.Uint256, vub uint32, err error) (*state.AppExecResult, error)
}

// Payment is an on-chain payment attestation.
type Payment struct {
	ClaimID      string
	ExecutionRef string
	Commitment   []byte
	RecordedAt   time.Time
}

// Receipt is a payroll run outcome.
type Receipt struct {
	PayrollID    string
	BatchHash    string
	AuthorizerID string
	Nonce        uint64
	ExecutorID   string
	Status       string
	TxRefsHash   string
	// RecordedAt is set for receipts read from the chain only.
	RecordedAt time.Time
}

// Client is a Payroll Attestation contract client.
type Client struct {
	log      *zap.Logger
	actor    Actor
	contract *attestation.Contract
}

// New creates Client of the contract deployed at the given address.
func New(log *zap.Logger, a Actor, contract util.Uint160) *Client {
	return &Client{
		log:      log.With(zap.Stringer("contract", contract)),
		actor:    a,
		contract: attestation.New(a, contract),
	}
}

// RecordPayment records commitment to the payment described by the preimage.
// The preimage is not sent anywhere, caller must keep it (including the
// nonce) to be able to verify the payment later.
func (c *Client) RecordPayment(ctx context.Context, p commitment.Preimage) ([commitment.Size]byte, error) {
	if err := p.Validate(); err != nil {
		return [commitment.Size]byte{}, fmt.Errorf("invalid preimage: %w", err)
	}

	sum := p.Sum()

	err := c.await(ctx, func() (util.Uint256, uint32, error) {
		return c.contract.RecordPayment(p.ClaimID, p.ExecutionRef, sum[:])
	})
	if err != nil {
		return sum, fmt.Errorf("record payment %s: %w", p.ClaimID, err)
	}

	c.log.Info("payment recorded",
		zap.String("claim", p.ClaimID),
		zap.String("execution", p.ExecutionRef))

	return sum, nil
}

// Payment returns payment attestation of the claim. ErrNotFound is returned
// if the claim has not been attested.
func (c *Client) Payment(claimID string) (*Payment, error) {
	res, err := c.contract.GetPayment(claimID)
	if err != nil {
		return nil, fmt.Errorf("get payment %s: %w", claimID, err)
	}
	if res == nil {
		return nil, ErrNotFound
	}
	return &Payment{
		ClaimID:      res.ClaimID,
		ExecutionRef: res.ExecutionRef,
		Commitment:   res.Commitment,
		RecordedAt:   msToTime(res.Timestamp),
	}, nil
}

// VerifyPayment checks that the recorded commitment of the claim matches the
// preimage. Errors of commitment.Verify are returned on mismatch.
func (c *Client) VerifyPayment(p commitment.Preimage) (*Payment, error) {
	pm, err := c.Payment(p.ClaimID)
	if err != nil {
		return nil, err
	}
	if err := p.Verify(pm.Commitment); err != nil {
		return pm, fmt.Errorf("verify payment %s: %w", p.ClaimID, err)
	}
	return pm, nil
}

// RecordReceipt records payroll run outcome and spends authorizer's nonce.
// Nonce usage is checked before sending the transaction, ErrNonceReused of
// rpc/attestation package is returned if it's already spent.
func (c *Client) RecordReceipt(ctx context.Context, r Receipt) error {
	switch r.Status {
	case StatusSuccess, StatusPartial, StatusFailed:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
	}

	used, err := c.IsNonceUsed(r.AuthorizerID, r.Nonce)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("record receipt %s: %w", r.PayrollID, attestation.ErrNonceReused)
	}

	nonce := new(big.Int).SetUint64(r.Nonce)
	err = c.await(ctx, func() (util.Uint256, uint32, error) {
		return c.contract.RecordReceipt(r.PayrollID, r.BatchHash, r.AuthorizerID, nonce,
			r.ExecutorID, r.Status, r.TxRefsHash)
	})
	if err != nil {
		return fmt.Errorf("record receipt %s: %w", r.PayrollID, err)
	}

	c.log.Info("receipt recorded",
		zap.String("payroll", r.PayrollID),
		zap.String("authorizer", r.AuthorizerID),
		zap.Uint64("nonce", r.Nonce),
		zap.String("status", r.Status))

	return nil
}

// Receipt returns receipt of the payroll. ErrNotFound is returned if there is
// none.
func (c *Client) Receipt(payrollID string) (*Receipt, error) {
	res, err := c.contract.GetReceipt(payrollID)
	if err != nil {
		return nil, fmt.Errorf("get receipt %s: %w", payrollID, err)
	}
	if res == nil {
		return nil, ErrNotFound
	}
	if !res.Nonce.IsUint64() {
		return nil, fmt.Errorf("get receipt %s: invalid nonce %s", payrollID, res.Nonce)
	}
	return &Receipt{
		PayrollID:    res.PayrollID,
		BatchHash:    res.BatchHash,
		AuthorizerID: res.AuthorizerID,
		Nonce:        res.Nonce.Uint64(),
		ExecutorID:   res.ExecutorID,
		Status:       res.Status,
		TxRefsHash:   res.TxRefsHash,
		RecordedAt:   msToTime(res.Timestamp),
	}, nil
}

// IsNonceUsed checks whether the authorizer has already spent the nonce.
func (c *Client) IsNonceUsed(authorizerID string, nonce uint64) (bool, error) {
	used, err := c.contract.IsNonceUsed(authorizerID, new(big.Int).SetUint64(nonce))
	if err != nil {
		return false, fmt.Errorf("check nonce %d of %s: %w", nonce, authorizerID, err)
	}
	return used, nil
}

// Owner returns the contract owner.
func (c *Client) Owner() (util.Uint160, error) {
	return c.contract.Owner()
}

// AllowedCaller returns the account allowed to record payments and receipts.
// Nil means anyone can record.
func (c *Client) AllowedCaller() (*util.Uint160, error) {
	return c.contract.AllowedCaller()
}

// SetAllowedCaller replaces allowed caller, nil lifts the restriction. Actor
// must be the contract owner.
func (c *Client) SetAllowedCaller(ctx context.Context, caller *util.Uint160) error {
	err := c.await(ctx, func() (util.Uint256, uint32, error) {
		return c.contract.SetAllowedCaller(caller)
	})
	if err != nil {
		return fmt.Errorf("set allowed caller: %w", err)
	}

	if caller == nil {
		c.log.Info("allowed caller restriction lifted")
	} else {
		c.log.Info("allowed caller changed", zap.Stringer("caller", caller))
	}

	return nil
}

// await sends transaction and waits for its acceptance unless context is
// done first.
func (c *Client) await(ctx context.Context, send func() (util.Uint256, uint32, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h, vub, err := send()
	if err != nil {
		// Actor test-invokes the script before sending, so contract
		// exceptions usually show up here.
		if cErr := attestation.ParseFault(err.Error()); cErr != nil {
			return fmt.Errorf("%w: %w", cErr, err)
		}
		return err
	}

	c.log.Debug("transaction sent, waiting...", zap.Stringer("tx", h), zap.Uint32("vub", vub))

	type waitRes struct {
		res *state.AppExecResult
		err error
	}

	ch := make(chan waitRes, 1)
	go func() {
		res, err := c.actor.Wait(h, vub, nil)
		ch <- waitRes{res, err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return fmt.Errorf("wait for transaction %s: %w", h.StringLE(), r.err)
		}
		if r.res.VMState != vmstate.Halt {
			return &attestation.FaultError{Exception: r.res.FaultException}
		}
		return nil
	}
}

func msToTime(ms *big.Int) time.Time {
	if ms == nil || !ms.IsInt64() {
		return time.Time{}
	}
	return time.UnixMilli(ms.Int64())
}
