package dump

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// errMissingOwner is returned by Creator.Flush for ledgers without an owner.
var errMissingOwner = errors.New("ledger has no owner")

// Creator writes snapshots of Payroll Attestation ledgers. Output file format:
//
//	'<label>-<block>-contracts.json': JSON array of contracts' states
//	'<label>-<block>-storage.csv': CSV of ledger storage items
//
// Storage CSV are 'name,key,value' where name is the ledger name given to
// AddLedger and binary key-value are base64-encoded. Only keys of the ledger
// storage layout are accepted.
type Creator struct {
	dumpStreams

	contracts []dumpContractState
	ledgers   []*LedgerWriter

	storageItemsCSV *csv.Writer
}

// NewCreator returns Creator writing the snapshot into given directory. The
// snapshot is identified by specified ID. Resulting Creator should be closed
// when finished working with it.
//
// NewCreator fails if dump with provided ID already exists.
func NewCreator(dir string, id ID) (*Creator, error) {
	var res Creator

	err := initDumpStreams(&res.dumpStreams, dir, id, false)
	if err != nil {
		return nil, err
	}

	res.storageItemsCSV = csv.NewWriter(res.dumpStreams.storageItems)

	return &res, nil
}

// AddLedger adds state of the named Payroll Attestation contract to the
// snapshot and returns LedgerWriter for its storage. After all ledgers are
// written, they should be flushed via Flush method.
func (x *Creator) AddLedger(name string, st state.Contract) *LedgerWriter {
	x.contracts = append(x.contracts, dumpContractState{
		Name:  name,
		State: st,
	})

	w := &LedgerWriter{
		name: name,
		csv:  x.storageItemsCSV,
	}
	x.ledgers = append(x.ledgers, w)

	return w
}

// Flush flushes accumulated snapshot to the file system. Flush fails if any
// ledger lacks its owner: such storage was not written by an initialized
// contract.
func (x *Creator) Flush() error {
	for _, l := range x.ledgers {
		if !l.stats.HasOwner {
			return fmt.Errorf("ledger '%s': %w", l.name, errMissingOwner)
		}
	}

	jEnc := json.NewEncoder(x.dumpStreams.contracts)
	jEnc.SetIndent("", " ")

	err := jEnc.Encode(x.contracts)
	if err != nil {
		return fmt.Errorf("encode contract states to JSON: %w", err)
	}

	x.storageItemsCSV.Flush()

	err = x.storageItemsCSV.Error()
	if err != nil {
		return fmt.Errorf("flush CSV data: %w", err)
	}

	return nil
}

// Close releases underlying resources of the Creator and makes it unusable.
func (x *Creator) Close() {
	x.close()
}

// LedgerStats counts storage items written by LedgerWriter.
type LedgerStats struct {
	HasOwner         bool
	HasAllowedCaller bool

	Payments    int
	Receipts    int
	SpentNonces int
}

// LedgerWriter writes storage items of a single ledger into the snapshot.
type LedgerWriter struct {
	name  string
	csv   *csv.Writer
	stats LedgerStats
}

// Write checks the key against the ledger storage layout and saves the item.
// Owner and allowed caller values must be accounts, spent nonce values must
// name a payroll.
func (x *LedgerWriter) Write(key, value []byte) error {
	kind := storageItemKind(key)

	switch kind {
	case kindOwner, kindAllowedCaller:
		if len(value) != util.Uint160Size {
			return fmt.Errorf("invalid account length %d under key %x", len(value), key)
		}
	case kindNonce:
		if len(value) == 0 {
			return fmt.Errorf("missing payroll under nonce key %x", key)
		}
	case kindUnknown:
		return fmt.Errorf("unexpected storage key %x", key)
	}

	err := x.csv.Write([]string{
		x.name,
		_encoding.EncodeToString(key),
		_encoding.EncodeToString(value),
	})
	if err != nil {
		return fmt.Errorf("write storage item as CSV data: %w", err)
	}

	switch kind {
	case kindOwner:
		x.stats.HasOwner = true
	case kindAllowedCaller:
		x.stats.HasAllowedCaller = true
	case kindPayment:
		x.stats.Payments++
	case kindReceipt:
		x.stats.Receipts++
	case kindNonce:
		x.stats.SpentNonces++
	}

	return nil
}

// Stats returns counters of the items written so far.
func (x *LedgerWriter) Stats() LedgerStats {
	return x.stats
}
