package dump

import (
	"crypto/sha256"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	cst "github.com/nspcc-dev/payroll-contract/contracts/attestation/attestationconst"
	"github.com/nspcc-dev/payroll-contract/rpc/attestation"
	"github.com/stretchr/testify/require"
)

const contractName = "attestation"

func hashedKey(prefix byte, id string) []byte {
	h := sha256.Sum256([]byte(id))
	return append([]byte{prefix}, h[:]...)
}

func serialize(t *testing.T, items ...stackitem.Item) []byte {
	b, err := stackitem.Serialize(stackitem.NewStruct(items))
	require.NoError(t, err)
	return b
}

func writeTestDump(t *testing.T, dir string, id ID) (owner, caller util.Uint160) {
	owner, caller = util.Uint160{1, 2}, util.Uint160{3, 4}

	c, err := NewCreator(dir, id)
	require.NoError(t, err)
	defer c.Close()

	_nef, err := nef.NewFile([]byte{0x40})
	require.NoError(t, err)

	w := c.AddLedger(contractName, state.Contract{ContractBase: state.ContractBase{
		ID:       5,
		Hash:     util.Uint160{7},
		NEF:      *_nef,
		Manifest: *manifest.NewManifest("Payroll Attestation"),
	}})

	commitment := make([]byte, cst.CommitmentSize)
	items := []struct{ k, v []byte }{
		{[]byte{cst.OwnerKey}, owner.BytesBE()},
		{[]byte{cst.AllowedCallerKey}, caller.BytesBE()},
		{hashedKey(cst.PaymentPrefix, "c1"), serialize(t,
			stackitem.Make("c1"), stackitem.Make("e1"), stackitem.Make(commitment), stackitem.Make(1000))},
		{hashedKey(cst.ReceiptPrefix, "p1"), serialize(t,
			stackitem.Make("p1"), stackitem.Make("b1"), stackitem.Make("a1"), stackitem.Make(7),
			stackitem.Make("x1"), stackitem.Make("success"), stackitem.Make("t1"), stackitem.Make(2000))},
		{hashedKey(cst.NoncePrefix, "a1::7"), []byte("p1")},
	}
	for _, it := range items {
		require.NoError(t, w.Write(it.k, it.v))
	}
	require.Equal(t, LedgerStats{
		HasOwner:         true,
		HasAllowedCaller: true,
		Payments:         1,
		Receipts:         1,
		SpentNonces:      1,
	}, w.Stats())

	require.NoError(t, c.Flush())

	return owner, caller
}

func TestDumpRoundTrip(t *testing.T) {
	dir := t.TempDir()
	id := ID{Label: "private-net", Block: 42}

	owner, caller := writeTestDump(t, dir, id)

	_, err := NewCreator(dir, id)
	require.ErrorIs(t, err, os.ErrExist)

	r, err := Open(dir, id)
	require.NoError(t, err)

	var names []string
	r.IterateContractStates(func(name string, st state.Contract) {
		names = append(names, name)
		require.EqualValues(t, 5, st.ID)
		require.Equal(t, util.Uint160{7}, st.Hash)
		require.Equal(t, "Payroll Attestation", st.Manifest.Name)
	})
	require.Equal(t, []string{contractName}, names)

	l, err := r.Ledger(contractName)
	require.NoError(t, err)
	require.Equal(t, owner, l.Owner)
	require.Equal(t, &caller, l.AllowedCaller)
	require.Equal(t, []attestation.PaymentAttestation{{
		ClaimID:      "c1",
		ExecutionRef: "e1",
		Commitment:   make([]byte, cst.CommitmentSize),
		Timestamp:    big.NewInt(1000),
	}}, l.Payments)
	require.Len(t, l.Receipts, 1)
	require.Equal(t, "p1", l.Receipts[0].PayrollID)
	require.Equal(t, big.NewInt(7), l.Receipts[0].Nonce)
	require.Len(t, l.SpentNonces, 1)
	for _, payroll := range l.SpentNonces {
		require.Equal(t, "p1", payroll)
	}

	_, err = r.Ledger("unknown")
	require.Error(t, err)
}

func TestIterateDumps(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, IterateDumps(filepath.Join(dir, "missing"), func(ID, *Reader) error {
		t.Fatal("unexpected dump")
		return nil
	}))

	writeTestDump(t, dir, ID{Label: "net", Block: 20})
	writeTestDump(t, dir, ID{Label: "net", Block: 3})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("notes"), 0o600))

	var ids []ID
	require.NoError(t, IterateDumps(dir, func(id ID, r *Reader) error {
		ids = append(ids, id)
		_, err := r.Ledger(contractName)
		return err
	}))
	require.Equal(t, []ID{{Label: "net", Block: 3}, {Label: "net", Block: 20}}, ids)
}

func TestLedgerUnexpectedKey(t *testing.T) {
	var l = Ledger{SpentNonces: make(map[util.Uint256]string)}

	require.Error(t, l.decodeItem(nil, nil))
	require.Error(t, l.decodeItem([]byte{'x'}, nil))
	require.Error(t, l.decodeItem([]byte{cst.PaymentPrefix, 1}, nil))
	require.Error(t, l.decodeItem(hashedKey(cst.PaymentPrefix, "c"), []byte("garbage")))
}

func TestLedgerWriter(t *testing.T) {
	c, err := NewCreator(t.TempDir(), ID{Label: "net", Block: 1})
	require.NoError(t, err)
	defer c.Close()

	w := c.AddLedger(contractName, state.Contract{})

	for _, tc := range []struct {
		name       string
		key, value []byte
	}{
		{"empty key", nil, nil},
		{"unknown key", []byte{'x'}, []byte{1}},
		{"short hashed key", []byte{cst.PaymentPrefix, 1}, []byte{1}},
		{"short owner", []byte{cst.OwnerKey}, []byte{1, 2, 3}},
		{"short allowed caller", []byte{cst.AllowedCallerKey}, nil},
		{"nonce without payroll", hashedKey(cst.NoncePrefix, "a::1"), nil},
	} {
		require.Error(t, w.Write(tc.key, tc.value), tc.name)
	}
	require.Zero(t, w.Stats())

	require.NoError(t, w.Write(hashedKey(cst.NoncePrefix, "a::1"), []byte("p1")))
	require.ErrorIs(t, c.Flush(), errMissingOwner)
}

func TestIDFileName(t *testing.T) {
	var id ID
	require.NoError(t, id.decodeFileName("main-net-123-contracts.json"))
	require.Equal(t, ID{Label: "main-net", Block: 123}, id)

	require.NoError(t, id.decodeFileName("test-7-storage.csv"))
	require.Equal(t, ID{Label: "test", Block: 7}, id)

	require.Error(t, id.decodeFileName("test-7.txt"))
	require.Error(t, id.decodeFileName("7-contracts.json"))
	require.Error(t, id.decodeFileName("test-x-contracts.json"))
}
