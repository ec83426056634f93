package dump

import (
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	cst "github.com/nspcc-dev/payroll-contract/contracts/attestation/attestationconst"
	"github.com/nspcc-dev/payroll-contract/rpc/attestation"
)

// Ledger is a decoded storage of Payroll Attestation contract.
type Ledger struct {
	Owner util.Uint160
	// Nil if recording is open to anyone.
	AllowedCaller *util.Uint160

	Payments []attestation.PaymentAttestation
	Receipts []attestation.ReceiptRecord

	// SpentNonces maps hashed nonce ledger keys to the payroll that spent them.
	// The authorizer and nonce themselves are available from Receipts only.
	SpentNonces map[util.Uint256]string
}

// Ledger decodes storage of the named Payroll Attestation contract from the
// dump. Unknown storage keys are an error.
func (x *Reader) Ledger(name string) (*Ledger, error) {
	if _, ok := x.mStorage[name]; !ok {
		return nil, fmt.Errorf("no storage of contract '%s' in the dump", name)
	}

	var l = Ledger{SpentNonces: make(map[util.Uint256]string)}

	err := x.IterateContractStorage(name, func(key, value []byte) error {
		return l.decodeItem(key, value)
	})
	if err != nil {
		return nil, err
	}

	return &l, nil
}

type itemKind uint8

const (
	kindUnknown itemKind = iota
	kindOwner
	kindAllowedCaller
	kindPayment
	kindReceipt
	kindNonce
)

// storageItemKind classifies the key according to the contract storage layout.
func storageItemKind(key []byte) itemKind {
	if len(key) == 1 {
		switch key[0] {
		case cst.OwnerKey:
			return kindOwner
		case cst.AllowedCallerKey:
			return kindAllowedCaller
		}
		return kindUnknown
	}

	if len(key) != 1+util.Uint256Size {
		return kindUnknown
	}

	switch key[0] {
	case cst.PaymentPrefix:
		return kindPayment
	case cst.ReceiptPrefix:
		return kindReceipt
	case cst.NoncePrefix:
		return kindNonce
	}

	return kindUnknown
}

func (l *Ledger) decodeItem(key, value []byte) error {
	switch kind := storageItemKind(key); kind {
	case kindOwner, kindAllowedCaller:
		u, err := util.Uint160DecodeBytesBE(value)
		if err != nil {
			return fmt.Errorf("decode account under key '%c': %w", key[0], err)
		}

		if kind == kindOwner {
			l.Owner = u
		} else {
			l.AllowedCaller = &u
		}
	case kindNonce:
		h, err := util.Uint256DecodeBytesBE(key[1:])
		if err != nil {
			return err
		}
		l.SpentNonces[h] = string(value)
	case kindPayment:
		item, err := stackitem.Deserialize(value)
		if err != nil {
			return fmt.Errorf("deserialize payment under key %x: %w", key, err)
		}

		var p attestation.PaymentAttestation
		if err = p.FromStackItem(item); err != nil {
			return fmt.Errorf("decode payment under key %x: %w", key, err)
		}
		l.Payments = append(l.Payments, p)
	case kindReceipt:
		item, err := stackitem.Deserialize(value)
		if err != nil {
			return fmt.Errorf("deserialize receipt under key %x: %w", key, err)
		}

		var r attestation.ReceiptRecord
		if err = r.FromStackItem(item); err != nil {
			return fmt.Errorf("decode receipt under key %x: %w", key, err)
		}
		l.Receipts = append(l.Receipts, r)
	default:
		return fmt.Errorf("unexpected storage key %x", key)
	}

	return nil
}
