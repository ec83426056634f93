package attestation

import (
	"errors"
	"math/big"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/stretchr/testify/require"
)

type testInvoker struct {
	method string
	params []any
	res    *result.Invoke
}

func (i *testInvoker) Call(_ util.Uint160, operation string, params ...any) (*result.Invoke, error) {
	i.method = operation
	i.params = params
	return i.res, nil
}

func halt(items ...stackitem.Item) *result.Invoke {
	return &result.Invoke{State: vmstate.Halt.String(), Stack: items}
}

func TestReaderGetPayment(t *testing.T) {
	commitment := make([]byte, 32)
	commitment[0] = 0xAB

	inv := &testInvoker{res: halt(stackitem.NewStruct([]stackitem.Item{
		stackitem.Make("claim-1"),
		stackitem.Make("exec-1"),
		stackitem.Make(commitment),
		stackitem.Make(1700000000000),
	}))}
	r := NewReader(inv, util.Uint160{1})

	p, err := r.GetPayment("claim-1")
	require.NoError(t, err)
	require.Equal(t, "getPayment", inv.method)
	require.Equal(t, []any{"claim-1"}, inv.params)
	require.Equal(t, &PaymentAttestation{
		ClaimID:      "claim-1",
		ExecutionRef: "exec-1",
		Commitment:   commitment,
		Timestamp:    big.NewInt(1700000000000),
	}, p)

	t.Run("missing", func(t *testing.T) {
		inv.res = halt(stackitem.Null{})
		p, err := r.GetPayment("claim-2")
		require.NoError(t, err)
		require.Nil(t, p)
	})

	t.Run("malformed", func(t *testing.T) {
		inv.res = halt(stackitem.NewStruct([]stackitem.Item{stackitem.Make("claim-1")}))
		_, err := r.GetPayment("claim-1")
		require.Error(t, err)
	})

	t.Run("fault", func(t *testing.T) {
		inv.res = &result.Invoke{State: vmstate.Fault.String(), FaultException: "boom"}
		_, err := r.GetPayment("claim-1")
		require.Error(t, err)
	})
}

func TestReaderGetReceipt(t *testing.T) {
	inv := &testInvoker{res: halt(stackitem.NewStruct([]stackitem.Item{
		stackitem.Make("p1"),
		stackitem.Make("batch"),
		stackitem.Make("auth"),
		stackitem.Make(7),
		stackitem.Make("exec"),
		stackitem.Make("success"),
		stackitem.Make("refs"),
		stackitem.Make(42),
	}))}
	r := NewReader(inv, util.Uint160{1})

	rec, err := r.GetReceipt("p1")
	require.NoError(t, err)
	require.Equal(t, &ReceiptRecord{
		PayrollID:    "p1",
		BatchHash:    "batch",
		AuthorizerID: "auth",
		Nonce:        big.NewInt(7),
		ExecutorID:   "exec",
		Status:       "success",
		TxRefsHash:   "refs",
		Timestamp:    big.NewInt(42),
	}, rec)

	inv.res = halt(stackitem.Null{})
	rec, err = r.GetReceipt("p2")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestReaderAllowedCaller(t *testing.T) {
	inv := &testInvoker{res: halt(stackitem.Null{})}
	r := NewReader(inv, util.Uint160{1})

	u, err := r.AllowedCaller()
	require.NoError(t, err)
	require.Nil(t, u)

	expected := util.Uint160{1, 2, 3}
	inv.res = halt(stackitem.Make(expected.BytesBE()))
	u, err = r.AllowedCaller()
	require.NoError(t, err)
	require.Equal(t, &expected, u)
}

func TestCallerParam(t *testing.T) {
	require.Nil(t, callerParam(nil))

	u := util.Uint160{9}
	require.Equal(t, u, callerParam(&u))
}

func TestEventsFromApplicationLog(t *testing.T) {
	_, err := PaymentRecordedEventsFromApplicationLog(nil)
	require.Error(t, err)

	log := &result.ApplicationLog{
		Executions: []state.Execution{{
			Events: []state.NotificationEvent{
				{
					Name: "PaymentRecorded",
					Item: stackitem.NewArray([]stackitem.Item{
						stackitem.Make("c1"), stackitem.Make("e1"), stackitem.Make([]byte{1}),
					}),
				},
				{
					Name: "ReceiptRecorded",
					Item: stackitem.NewArray([]stackitem.Item{
						stackitem.Make("p1"), stackitem.Make("a1"), stackitem.Make(5), stackitem.Make("failed"),
					}),
				},
				{
					Name: "AllowedCallerChanged",
					Item: stackitem.NewArray([]stackitem.Item{stackitem.Make([]byte{})}),
				},
			},
		}},
	}

	payments, err := PaymentRecordedEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Equal(t, []*PaymentRecordedEvent{{ClaimID: "c1", ExecutionRef: "e1", Commitment: []byte{1}}}, payments)

	receipts, err := ReceiptRecordedEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Equal(t, []*ReceiptRecordedEvent{{PayrollID: "p1", AuthorizerID: "a1", Nonce: big.NewInt(5), Status: "failed"}}, receipts)

	callers, err := AllowedCallerChangedEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Len(t, callers, 1)
	require.Empty(t, callers[0].Caller)
}

func TestParseFault(t *testing.T) {
	require.NoError(t, ParseFault(""))

	require.ErrorIs(t, ParseFault("nonce reused"), ErrNonceReused)
	require.ErrorIs(t, ParseFault(`at instruction 1010 (THROW): unhandled exception: "duplicate claim"`), ErrDuplicateClaim)
	require.ErrorIs(t, ParseFault("unhandled exception: \"unauthorized\""), ErrUnauthorized)

	require.NoError(t, ParseFault("something else"))
}

func TestFaultError(t *testing.T) {
	var err error = &FaultError{Exception: "at instruction 42 (THROW): unhandled exception: \"invalid nonce\""}
	require.ErrorIs(t, err, ErrInvalidNonce)
	require.False(t, errors.Is(err, ErrNonceReused))
	require.Contains(t, err.Error(), "FAULT")

	err = &FaultError{Exception: "gas limit exceeded"}
	for _, e := range faults {
		require.False(t, errors.Is(err, e))
	}
}
