// Package deploy implements deployment of Payroll Attestation contract to
// the Neo blockchain.
package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/nspcc-dev/payroll-contract/rpc/attestation"
	"go.uber.org/zap"
)

// Blockchain groups services provided by particular Neo blockchain network
// that are required for the contract deployment.
type Blockchain interface {
	// RPCActor groups functions needed to compose and send transactions.
	actor.RPCActor

	// GetContractStateByHash returns network state of the smart contract by its
	// address. GetContractStateByHash returns error with 'Unknown contract'
	// substring if requested contract is missing.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)
}

// Prm groups all parameters of the deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Particular Neo blockchain instance to deploy the contract to.
	Blockchain Blockchain

	// Local process account used for transaction signing (must be unlocked).
	// It becomes the contract owner.
	LocalAccount *wallet.Account

	NEF      nef.File
	Manifest manifest.Manifest

	// Account allowed to record payments and receipts. Nil leaves recording
	// open to anyone.
	AllowedCaller *util.Uint160

	// Address of the already deployed contract. Nil means the address derived
	// from the local account, NEF checksum and contract name. The derived
	// address changes with the NEF, so updates require Address to be set.
	Address *util.Uint160

	// Update already deployed contract if its NEF differs from the local one.
	Update bool
}

// contractDeployer is a Management contract subset used by Deploy.
type contractDeployer interface {
	Deploy(exe *nef.File, manif *manifest.Manifest, data any) (util.Uint256, uint32, error)
}

// contractUpdater is a Payroll Attestation contract subset used by Deploy.
type contractUpdater interface {
	Update(script []byte, manifest []byte, data any) (util.Uint256, uint32, error)
}

type waiter interface {
	Wait(h util.Uint256, vub uint32, err error) (*state.AppExecResult, error)
}

type deployPrm struct {
	logger        *zap.Logger
	getState      func(util.Uint160) (*state.Contract, error)
	deployer      contractDeployer
	updater       func(util.Uint160) contractUpdater
	waiter        waiter
	sender        util.Uint160
	localNEF      nef.File
	localManifest manifest.Manifest
	allowedCaller *util.Uint160
	address       *util.Uint160
	update        bool
}

// Deploy makes Payroll Attestation contract available on the chain and returns
// its address. Unless Prm.Address is set, the address is determined by the
// local account, NEF checksum and contract name, so Deploy is safe to repeat:
// already deployed contract is left as is. With Prm.Address set, Deploy never
// deploys a new contract: the one at the given address is updated if
// Prm.Update is set and NEF differs, and missing contract is an error.
//
// Deploy waits for the transaction to be accepted and fails if it's not
// HALTed. Deploy aborts by context.
func Deploy(ctx context.Context, prm Prm) (util.Uint160, error) {
	simpleLocalActor, err := actor.NewSimple(prm.Blockchain, prm.LocalAccount)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("init transaction sender from single local account: %w", err)
	}

	return deploy(ctx, deployPrm{
		logger:   prm.Logger,
		getState: prm.Blockchain.GetContractStateByHash,
		deployer: management.New(simpleLocalActor),
		updater: func(addr util.Uint160) contractUpdater {
			return attestation.New(simpleLocalActor, addr)
		},
		waiter:        simpleLocalActor,
		sender:        prm.LocalAccount.ScriptHash(),
		localNEF:      prm.NEF,
		localManifest: prm.Manifest,
		allowedCaller: prm.AllowedCaller,
		address:       prm.Address,
		update:        prm.Update,
	})
}

func deploy(ctx context.Context, prm deployPrm) (util.Uint160, error) {
	addr := state.CreateContractHash(prm.sender, prm.localNEF.Checksum, prm.localManifest.Name)
	if prm.address != nil {
		addr = *prm.address
	}
	l := prm.logger.With(zap.String("contract", prm.localManifest.Name), zap.Stringer("address", addr))

	l.Info("checking contract presence on the chain...")

	onChain, err := prm.getState(addr)
	if err != nil && !isErrContractNotFound(err) {
		return util.Uint160{}, fmt.Errorf("get contract state: %w", err)
	}

	if onChain != nil && err == nil {
		if onChain.NEF.Checksum == prm.localNEF.Checksum || !prm.update {
			l.Info("contract is already deployed, skip", zap.Int32("id", onChain.ID))
			return addr, nil
		}

		l.Info("contract differs from the local one, updating...")

		bManifest, err := json.Marshal(prm.localManifest)
		if err != nil {
			return util.Uint160{}, fmt.Errorf("encode contract manifest into JSON: %w", err)
		}

		bNEF, err := prm.localNEF.Bytes()
		if err != nil {
			return util.Uint160{}, fmt.Errorf("encode contract NEF: %w", err)
		}

		err = await(ctx, prm.waiter, func() (util.Uint256, uint32, error) {
			return prm.updater(addr).Update(bNEF, bManifest, nil)
		})
		if err != nil {
			return util.Uint160{}, fmt.Errorf("update contract: %w", err)
		}

		l.Info("contract successfully updated")
		return addr, nil
	}

	if prm.address != nil {
		return util.Uint160{}, fmt.Errorf("contract %s is missing on the chain", addr.StringLE())
	}

	var data []any
	if prm.allowedCaller != nil {
		data = []any{*prm.allowedCaller}
		l = l.With(zap.Stringer("allowed caller", prm.allowedCaller))
	}

	l.Info("deploying contract...")

	err = await(ctx, prm.waiter, func() (util.Uint256, uint32, error) {
		if data == nil {
			return prm.deployer.Deploy(&prm.localNEF, &prm.localManifest, nil)
		}
		return prm.deployer.Deploy(&prm.localNEF, &prm.localManifest, data)
	})
	if err != nil {
		return util.Uint160{}, fmt.Errorf("deploy contract: %w", err)
	}

	l.Info("contract successfully deployed")

	return addr, nil
}

// await sends transaction and waits for its acceptance unless context is
// done first. Non-HALT state is an error.
func await(ctx context.Context, w waiter, send func() (util.Uint256, uint32, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	type waitRes struct {
		res *state.AppExecResult
		err error
	}

	ch := make(chan waitRes, 1)
	go func() {
		res, err := w.Wait(send())
		ch <- waitRes{res, err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return r.err
		}
		if r.res.VMState != vmstate.Halt {
			return &attestation.FaultError{Exception: r.res.FaultException}
		}
		return nil
	}
}

func isErrContractNotFound(err error) bool {
	return strings.Contains(err.Error(), "Unknown contract")
}
