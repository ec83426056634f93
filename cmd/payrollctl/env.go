package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/nspcc-dev/payroll-contract/client"
	"github.com/nspcc-dev/payroll-contract/config"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// env groups resources shared by the commands.
type env struct {
	cfg *config.Config
	log *zap.Logger

	chain *remoteBlockchain
}

// newEnv loads configuration, applies global flag overrides and builds the
// logger. Resulting env should be closed.
func newEnv(c *cli.Context) (*env, error) {
	var (
		cfg *config.Config
		err error
	)

	if p := c.GlobalString("config"); p != "" {
		cfg, err = config.Load(p)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = new(config.Config)
		cfg.SetDefaults()
	}

	override(&cfg.RPC.Endpoint, c.GlobalString("rpc"))
	override(&cfg.Wallet.Path, c.GlobalString("wallet"))
	override(&cfg.Wallet.Address, c.GlobalString("account"))
	override(&cfg.Wallet.Password, c.GlobalString("password"))
	override(&cfg.Contract.Address, c.GlobalString("contract"))
	override(&cfg.Logger.Level, c.GlobalString("log-level"))

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := newLogger(cfg.Logger.Level)
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, log: log}, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(lvl)
	c.Encoding = "console"
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := c.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

func (e *env) close() {
	if e.chain != nil {
		e.chain.close()
	}
	_ = e.log.Sync()
}

// connect dials the RPC server. Signing account is read from the wallet if
// signer is set, otherwise a random one is used for read-only calls.
func (e *env) connect(ctx context.Context, signer bool) (*remoteBlockchain, error) {
	if e.chain != nil {
		return e.chain, nil
	}

	if e.cfg.RPC.Endpoint == "" {
		return nil, errors.New("missing Neo RPC endpoint")
	}

	var (
		acc *wallet.Account
		err error
	)

	if signer {
		acc, err = e.account()
	} else {
		acc, err = wallet.NewAccount()
	}
	if err != nil {
		return nil, err
	}

	e.chain, err = newRemoteBlockchain(ctx, e.cfg.RPC, acc)
	if err != nil {
		return nil, fmt.Errorf("init remote blockchain: %w", err)
	}

	e.log.Debug("connected to Neo RPC server",
		zap.String("endpoint", e.cfg.RPC.Endpoint),
		zap.Uint32("height", e.chain.currentBlock))

	return e.chain, nil
}

// account opens the configured wallet and decrypts the signing account.
func (e *env) account() (*wallet.Account, error) {
	if e.cfg.Wallet.Path == "" {
		return nil, errors.New("missing wallet")
	}

	w, err := wallet.NewWalletFromFile(e.cfg.Wallet.Path)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}
	defer w.Close()

	var addr util.Uint160
	if e.cfg.Wallet.Address == "" {
		addr = w.GetChangeAddress()
	} else if addr, err = config.ParseAccount(e.cfg.Wallet.Address); err != nil {
		return nil, err
	}

	acc := w.GetAccount(addr)
	if acc == nil {
		return nil, fmt.Errorf("account %s not found in the wallet", addr.StringLE())
	}

	err = acc.Decrypt(e.cfg.Wallet.Password, w.Scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypt account: %w", err)
	}

	return acc, nil
}

func (e *env) contractAddress() (util.Uint160, error) {
	if e.cfg.Contract.Address == "" {
		return util.Uint160{}, errors.New("missing contract address")
	}
	return config.ParseAccount(e.cfg.Contract.Address)
}

// client connects to the chain and returns Payroll Attestation client.
func (e *env) client(ctx context.Context, signer bool) (*client.Client, error) {
	addr, err := e.contractAddress()
	if err != nil {
		return nil, err
	}

	b, err := e.connect(ctx, signer)
	if err != nil {
		return nil, err
	}

	return client.New(e.log, b.actor, addr), nil
}

// action wraps command handler into env lifecycle.
func action(f func(ctx context.Context, c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := newEnv(c)
		if err != nil {
			return err
		}
		defer e.close()

		return f(context.Background(), c, e)
	}
}
