// Package attestation contains RPC wrappers for Payroll Attestation contract.
package attestation

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// PaymentAttestation is a contract-specific attestation.PaymentAttestation type used by its methods.
type PaymentAttestation struct {
	ClaimID      string
	ExecutionRef string
	Commitment   []byte
	Timestamp    *big.Int
}

// ReceiptRecord is a contract-specific attestation.ReceiptRecord type used by its methods.
type ReceiptRecord struct {
	PayrollID    string
	BatchHash    string
	AuthorizerID string
	Nonce        *big.Int
	ExecutorID   string
	Status       string
	TxRefsHash   string
	Timestamp    *big.Int
}

// PaymentRecordedEvent represents "PaymentRecorded" event emitted by the contract.
type PaymentRecordedEvent struct {
	ClaimID      string
	ExecutionRef string
	Commitment   []byte
}

// ReceiptRecordedEvent represents "ReceiptRecorded" event emitted by the contract.
type ReceiptRecordedEvent struct {
	PayrollID    string
	AuthorizerID string
	Nonce        *big.Int
	Status       string
}

// AllowedCallerChangedEvent represents "AllowedCallerChanged" event emitted by the contract.
type AllowedCallerChangedEvent struct {
	Caller []byte
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeRun(script []byte) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	SendRun(script []byte) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	actor Actor
	hash  util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, hash}
}

// AllowedCaller invokes `allowedCaller` method of contract. Nil result means
// recording is open to anyone.
func (c *ContractReader) AllowedCaller() (*util.Uint160, error) {
	item, err := unwrap.Item(c.invoker.Call(c.hash, "allowedCaller"))
	if err != nil {
		return nil, err
	}
	if isNull(item) {
		return nil, nil
	}
	u, err := itemToUint160(item)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetPayment invokes `getPayment` method of contract. Nil result means the
// claim has not been attested.
func (c *ContractReader) GetPayment(claimID string) (*PaymentAttestation, error) {
	return itemToPaymentAttestation(unwrap.Item(c.invoker.Call(c.hash, "getPayment", claimID)))
}

// GetReceipt invokes `getReceipt` method of contract. Nil result means there
// is no receipt for the payroll.
func (c *ContractReader) GetReceipt(payrollID string) (*ReceiptRecord, error) {
	return itemToReceiptRecord(unwrap.Item(c.invoker.Call(c.hash, "getReceipt", payrollID)))
}

// IsNonceUsed invokes `isNonceUsed` method of contract.
func (c *ContractReader) IsNonceUsed(authorizerID string, nonce *big.Int) (bool, error) {
	return unwrap.Bool(c.invoker.Call(c.hash, "isNonceUsed", authorizerID, nonce))
}

// Owner invokes `owner` method of contract.
func (c *ContractReader) Owner() (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "owner"))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// RecordPayment creates a transaction invoking `recordPayment` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) RecordPayment(claimID string, executionRef string, commitment []byte) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "recordPayment", claimID, executionRef, commitment)
}

// RecordPaymentTransaction creates a transaction invoking `recordPayment` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) RecordPaymentTransaction(claimID string, executionRef string, commitment []byte) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "recordPayment", claimID, executionRef, commitment)
}

// RecordPaymentUnsigned creates a transaction invoking `recordPayment` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) RecordPaymentUnsigned(claimID string, executionRef string, commitment []byte) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "recordPayment", nil, claimID, executionRef, commitment)
}

// RecordReceipt creates a transaction invoking `recordReceipt` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) RecordReceipt(payrollID string, batchHash string, authorizerID string, nonce *big.Int, executorID string, status string, txRefsHash string) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "recordReceipt", payrollID, batchHash, authorizerID, nonce, executorID, status, txRefsHash)
}

// RecordReceiptTransaction creates a transaction invoking `recordReceipt` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) RecordReceiptTransaction(payrollID string, batchHash string, authorizerID string, nonce *big.Int, executorID string, status string, txRefsHash string) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "recordReceipt", payrollID, batchHash, authorizerID, nonce, executorID, status, txRefsHash)
}

// RecordReceiptUnsigned creates a transaction invoking `recordReceipt` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) RecordReceiptUnsigned(payrollID string, batchHash string, authorizerID string, nonce *big.Int, executorID string, status string, txRefsHash string) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "recordReceipt", nil, payrollID, batchHash, authorizerID, nonce, executorID, status, txRefsHash)
}

// SetAllowedCaller creates a transaction invoking `setAllowedCaller` method of the contract.
// Nil caller lifts the restriction.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) SetAllowedCaller(caller *util.Uint160) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "setAllowedCaller", callerParam(caller))
}

// SetAllowedCallerTransaction creates a transaction invoking `setAllowedCaller` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) SetAllowedCallerTransaction(caller *util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "setAllowedCaller", callerParam(caller))
}

// SetAllowedCallerUnsigned creates a transaction invoking `setAllowedCaller` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) SetAllowedCallerUnsigned(caller *util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "setAllowedCaller", nil, callerParam(caller))
}

// Update creates a transaction invoking `update` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Update(script []byte, manifest []byte, data any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "update", script, manifest, data)
}

// UpdateTransaction creates a transaction invoking `update` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateTransaction(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "update", script, manifest, data)
}

// UpdateUnsigned creates a transaction invoking `update` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateUnsigned(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "update", nil, script, manifest, data)
}

// callerParam converts optional caller into invocation parameter: nil pointer
// must become untyped nil to be emitted as Null.
func callerParam(caller *util.Uint160) any {
	if caller == nil {
		return nil
	}
	return *caller
}

func isNull(item stackitem.Item) bool {
	_, ok := item.(stackitem.Null)
	return ok
}

func itemToUint160(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	u, err := util.Uint160DecodeBytesBE(b)
	if err != nil {
		return util.Uint160{}, err
	}
	return u, nil
}

func itemToString(item stackitem.Item) (string, error) {
	b, err := item.TryBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// itemToPaymentAttestation converts stack item into *PaymentAttestation.
// Null item is converted into nil.
func itemToPaymentAttestation(item stackitem.Item, err error) (*PaymentAttestation, error) {
	if err != nil {
		return nil, err
	}
	if isNull(item) {
		return nil, nil
	}
	var res = new(PaymentAttestation)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of PaymentAttestation from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *PaymentAttestation) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 4 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	res.ClaimID, err = itemToString(arr[index])
	if err != nil {
		return fmt.Errorf("field ClaimID: %w", err)
	}

	index++
	res.ExecutionRef, err = itemToString(arr[index])
	if err != nil {
		return fmt.Errorf("field ExecutionRef: %w", err)
	}

	index++
	res.Commitment, err = arr[index].TryBytes()
	if err != nil {
		return fmt.Errorf("field Commitment: %w", err)
	}

	index++
	res.Timestamp, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Timestamp: %w", err)
	}

	return nil
}

// itemToReceiptRecord converts stack item into *ReceiptRecord.
// Null item is converted into nil.
func itemToReceiptRecord(item stackitem.Item, err error) (*ReceiptRecord, error) {
	if err != nil {
		return nil, err
	}
	if isNull(item) {
		return nil, nil
	}
	var res = new(ReceiptRecord)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of ReceiptRecord from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *ReceiptRecord) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 8 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	res.PayrollID, err = itemToString(arr[index])
	if err != nil {
		return fmt.Errorf("field PayrollID: %w", err)
	}

	index++
	res.BatchHash, err = itemToString(arr[index])
	if err != nil {
		return fmt.Errorf("field BatchHash: %w", err)
	}

	index++
	res.AuthorizerID, err = itemToString(arr[index])
	if err != nil {
		return fmt.Errorf("field AuthorizerID: %w", err)
	}

	index++
	res.Nonce, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Nonce: %w", err)
	}

	index++
	res.ExecutorID, err = itemToString(arr[index])
	if err != nil {
		return fmt.Errorf("field ExecutorID: %w", err)
	}

	index++
	res.Status, err = itemToString(arr[index])
	if err != nil {
		return fmt.Errorf("field Status: %w", err)
	}

	index++
	res.TxRefsHash, err = itemToString(arr[index])
	if err != nil {
		return fmt.Errorf("field TxRefsHash: %w", err)
	}

	index++
	res.Timestamp, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Timestamp: %w", err)
	}

	return nil
}

// PaymentRecordedEventsFromApplicationLog retrieves a set of all emitted events
// with "PaymentRecorded" name from the provided [result.ApplicationLog].
func PaymentRecordedEventsFromApplicationLog(log *result.ApplicationLog) ([]*PaymentRecordedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*PaymentRecordedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "PaymentRecorded" {
				continue
			}
			event := new(PaymentRecordedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize PaymentRecordedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to PaymentRecordedEvent or
// returns an error if it's not possible to do to so.
func (e *PaymentRecordedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 3 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	e.ClaimID, err = itemToString(arr[index])
	if err != nil {
		return fmt.Errorf("field ClaimID: %w", err)
	}

	index++
	e.ExecutionRef, err = itemToString(arr[index])
	if err != nil {
		return fmt.Errorf("field ExecutionRef: %w", err)
	}

	index++
	e.Commitment, err = arr[index].TryBytes()
	if err != nil {
		return fmt.Errorf("field Commitment: %w", err)
	}

	return nil
}

// ReceiptRecordedEventsFromApplicationLog retrieves a set of all emitted events
// with "ReceiptRecorded" name from the provided [result.ApplicationLog].
func ReceiptRecordedEventsFromApplicationLog(log *result.ApplicationLog) ([]*ReceiptRecordedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*ReceiptRecordedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "ReceiptRecorded" {
				continue
			}
			event := new(ReceiptRecordedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize ReceiptRecordedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to ReceiptRecordedEvent or
// returns an error if it's not possible to do to so.
func (e *ReceiptRecordedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 4 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	e.PayrollID, err = itemToString(arr[index])
	if err != nil {
		return fmt.Errorf("field PayrollID: %w", err)
	}

	index++
	e.AuthorizerID, err = itemToString(arr[index])
	if err != nil {
		return fmt.Errorf("field AuthorizerID: %w", err)
	}

	index++
	e.Nonce, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Nonce: %w", err)
	}

	index++
	e.Status, err = itemToString(arr[index])
	if err != nil {
		return fmt.Errorf("field Status: %w", err)
	}

	return nil
}

// AllowedCallerChangedEventsFromApplicationLog retrieves a set of all emitted events
// with "AllowedCallerChanged" name from the provided [result.ApplicationLog].
func AllowedCallerChangedEventsFromApplicationLog(log *result.ApplicationLog) ([]*AllowedCallerChangedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*AllowedCallerChangedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "AllowedCallerChanged" {
				continue
			}
			event := new(AllowedCallerChangedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize AllowedCallerChangedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to AllowedCallerChangedEvent or
// returns an error if it's not possible to do to so.
func (e *AllowedCallerChangedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 1 {
		return errors.New("wrong number of structure elements")
	}

	var err error
	e.Caller, err = arr[0].TryBytes()
	if err != nil {
		return fmt.Errorf("field Caller: %w", err)
	}

	return nil
}
