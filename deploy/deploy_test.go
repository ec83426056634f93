package deploy

import (
	"context"
	"errors"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/payroll-contract/rpc/attestation"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testDeployer struct {
	calls int
	data  any
}

func (d *testDeployer) Deploy(_ *nef.File, _ *manifest.Manifest, data any) (util.Uint256, uint32, error) {
	d.calls++
	d.data = data
	return util.Uint256{1}, 100, nil
}

type testUpdater struct {
	calls int
	addr  util.Uint160
}

func (u *testUpdater) Update(_ []byte, _ []byte, _ any) (util.Uint256, uint32, error) {
	u.calls++
	return util.Uint256{2}, 100, nil
}

type testWaiter struct {
	state     vmstate.State
	exception string
	block     chan struct{}
}

func (w testWaiter) Wait(h util.Uint256, _ uint32, err error) (*state.AppExecResult, error) {
	if err != nil {
		return nil, err
	}
	if w.block != nil {
		<-w.block
	}
	return &state.AppExecResult{
		Container: h,
		Execution: state.Execution{VMState: w.state, FaultException: w.exception},
	}, nil
}

func newTestPrm(t *testing.T) (deployPrm, *testDeployer, *testUpdater) {
	_nef, err := nef.NewFile(make([]byte, 32))
	require.NoError(t, err)

	d := new(testDeployer)
	u := new(testUpdater)

	return deployPrm{
		logger: zaptest.NewLogger(t),
		getState: func(util.Uint160) (*state.Contract, error) {
			return nil, errors.New("Unknown contract")
		},
		deployer: d,
		updater: func(addr util.Uint160) contractUpdater {
			u.addr = addr
			return u
		},
		waiter:        testWaiter{state: vmstate.Halt},
		sender:        util.Uint160{3},
		localNEF:      *_nef,
		localManifest: *manifest.NewManifest("Payroll Attestation"),
	}, d, u
}

func TestDeploy(t *testing.T) {
	prm, d, u := newTestPrm(t)

	addr, err := deploy(context.Background(), prm)
	require.NoError(t, err)
	require.Equal(t, state.CreateContractHash(prm.sender, prm.localNEF.Checksum, "Payroll Attestation"), addr)
	require.Equal(t, 1, d.calls)
	require.Nil(t, d.data)
	require.Zero(t, u.calls)

	t.Run("allowed caller", func(t *testing.T) {
		prm, d, _ := newTestPrm(t)
		caller := util.Uint160{4}
		prm.allowedCaller = &caller

		_, err := deploy(context.Background(), prm)
		require.NoError(t, err)
		require.Equal(t, []any{caller}, d.data)
	})

	t.Run("fault", func(t *testing.T) {
		prm, _, _ := newTestPrm(t)
		prm.waiter = testWaiter{state: vmstate.Fault, exception: "invalid caller"}

		_, err := deploy(context.Background(), prm)
		require.ErrorIs(t, err, attestation.ErrInvalidCaller)
	})

	t.Run("state failure", func(t *testing.T) {
		prm, d, _ := newTestPrm(t)
		prm.getState = func(util.Uint160) (*state.Contract, error) {
			return nil, errors.New("connection refused")
		}

		_, err := deploy(context.Background(), prm)
		require.Error(t, err)
		require.Zero(t, d.calls)
	})

	t.Run("context", func(t *testing.T) {
		prm, _, _ := newTestPrm(t)
		block := make(chan struct{})
		defer close(block)
		prm.waiter = testWaiter{state: vmstate.Halt, block: block}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := deploy(ctx, prm)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestDeployExisting(t *testing.T) {
	prm, d, u := newTestPrm(t)

	addr := state.CreateContractHash(prm.sender, prm.localNEF.Checksum, prm.localManifest.Name)
	onChain := &state.Contract{ContractBase: state.ContractBase{ID: 1, Hash: addr, NEF: prm.localNEF}}
	prm.getState = func(a util.Uint160) (*state.Contract, error) {
		if a != addr {
			return nil, errors.New("Unknown contract")
		}
		return onChain, nil
	}

	res, err := deploy(context.Background(), prm)
	require.NoError(t, err)
	require.Equal(t, addr, res)
	require.Zero(t, d.calls)
	require.Zero(t, u.calls)

	t.Run("same NEF at address", func(t *testing.T) {
		prm := prm
		prm.address = &addr
		prm.update = true

		res, err := deploy(context.Background(), prm)
		require.NoError(t, err)
		require.Equal(t, addr, res)
		require.Zero(t, d.calls)
		require.Zero(t, u.calls)
	})
}

func TestDeployUpdate(t *testing.T) {
	prm, d, u := newTestPrm(t)

	oldNEF, err := nef.NewFile([]byte{1, 2, 3})
	require.NoError(t, err)

	oldAddr := state.CreateContractHash(prm.sender, oldNEF.Checksum, prm.localManifest.Name)
	require.NotEqual(t, oldAddr, state.CreateContractHash(prm.sender, prm.localNEF.Checksum, prm.localManifest.Name))

	onChain := &state.Contract{ContractBase: state.ContractBase{ID: 1, Hash: oldAddr, NEF: *oldNEF}}
	prm.getState = func(a util.Uint160) (*state.Contract, error) {
		if a != oldAddr {
			return nil, errors.New("Unknown contract")
		}
		return onChain, nil
	}
	prm.address = &oldAddr

	// Different NEF is not updated unless requested.
	res, err := deploy(context.Background(), prm)
	require.NoError(t, err)
	require.Equal(t, oldAddr, res)
	require.Zero(t, d.calls)
	require.Zero(t, u.calls)

	prm.update = true
	res, err = deploy(context.Background(), prm)
	require.NoError(t, err)
	require.Equal(t, oldAddr, res)
	require.Zero(t, d.calls)
	require.Equal(t, 1, u.calls)
	require.Equal(t, oldAddr, u.addr)

	t.Run("missing", func(t *testing.T) {
		prm, d, u := newTestPrm(t)
		prm.address = &oldAddr
		prm.update = true

		_, err := deploy(context.Background(), prm)
		require.ErrorContains(t, err, "missing on the chain")
		require.Zero(t, d.calls)
		require.Zero(t, u.calls)
	})
}
