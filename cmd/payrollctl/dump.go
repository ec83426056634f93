package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/payroll-contract/dump"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

const dumpContractName = "attestation"

func dumpCommand() cli.Command {
	dirFlag := cli.StringFlag{Name: "dir", Usage: "Dump directory (overrides config)"}

	return cli.Command{
		Name:  "dump",
		Usage: "Snapshots of the contract storage",
		Subcommands: []cli.Command{
			{
				Name:  "create",
				Usage: "Dump contract state and storage at the latest state root",
				Flags: []cli.Flag{
					dirFlag,
					cli.StringFlag{Name: "label", Usage: "Label of the blockchain environment, e.g. 'testnet' (overrides config)"},
				},
				Action: action(createDumpAction),
			},
			{
				Name:   "list",
				Usage:  "Summarize ledgers of all dumps in the directory",
				Flags:  []cli.Flag{dirFlag},
				Action: action(listDumpsAction),
			},
		},
	}
}

func createDumpAction(ctx context.Context, c *cli.Context, e *env) error {
	override(&e.cfg.Dump.Dir, c.String("dir"))
	override(&e.cfg.Dump.Label, c.String("label"))

	if e.cfg.Dump.Label == "" {
		return errors.New("missing blockchain label")
	}

	addr, err := e.contractAddress()
	if err != nil {
		return err
	}

	b, err := e.connect(ctx, false)
	if err != nil {
		return err
	}

	err = os.MkdirAll(e.cfg.Dump.Dir, 0700)
	if err != nil {
		return fmt.Errorf("create root dir: %w", err)
	}

	id := dump.ID{Label: e.cfg.Dump.Label, Block: b.currentBlock - 1}

	d, err := dump.NewCreator(e.cfg.Dump.Dir, id)
	if err != nil {
		return fmt.Errorf("init local dumper: %w", err)
	}
	defer d.Close()

	st, err := b.rpc.GetContractStateByHash(addr)
	if err != nil {
		return fmt.Errorf("get contract state by hash '%s': %w", addr.StringLE(), err)
	}

	w := d.AddLedger(dumpContractName, *st)
	err = b.iterateContractStorage(addr, w.Write)
	if err != nil {
		return fmt.Errorf("iterate contract storage: %w", err)
	}

	err = d.Flush()
	if err != nil {
		return fmt.Errorf("flush dump: %w", err)
	}

	e.log.Info("contract storage dumped",
		zap.Stringer("id", id),
		zap.String("dir", e.cfg.Dump.Dir),
		zap.Int("payments", w.Stats().Payments),
		zap.Int("receipts", w.Stats().Receipts),
		zap.Int("spent nonces", w.Stats().SpentNonces))

	return nil
}

func listDumpsAction(_ context.Context, c *cli.Context, e *env) error {
	override(&e.cfg.Dump.Dir, c.String("dir"))

	w := c.App.Writer

	return dump.IterateDumps(e.cfg.Dump.Dir, func(id dump.ID, r *dump.Reader) error {
		l, err := r.Ledger(dumpContractName)
		if err != nil {
			return fmt.Errorf("dump %s: %w", id, err)
		}

		caller := "anyone"
		if l.AllowedCaller != nil {
			caller = address.Uint160ToString(*l.AllowedCaller)
		}

		fmt.Fprintf(w, "%s: owner %s, allowed caller %s, %d payments, %d receipts, %d spent nonces\n",
			id, address.Uint160ToString(l.Owner), caller, len(l.Payments), len(l.Receipts), len(l.SpentNonces))
		return nil
	})
}
