package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/payroll-contract/client"
	"github.com/nspcc-dev/payroll-contract/commitment"
	"github.com/nspcc-dev/payroll-contract/config"
	"github.com/nspcc-dev/payroll-contract/contracts"
	"github.com/nspcc-dev/payroll-contract/deploy"
	"github.com/urfave/cli"
)

var preimageFlags = []cli.Flag{
	cli.StringFlag{Name: "claim", Usage: "Claim ID (generated for 'payment record' if empty)"},
	cli.StringFlag{Name: "execution", Usage: "Execution (payroll) reference"},
	cli.StringFlag{Name: "amount", Usage: "Paid amount, decimal"},
	cli.StringFlag{Name: "token", Usage: "Token symbol"},
	cli.StringFlag{Name: "chain", Usage: "Token chain"},
	cli.StringFlag{Name: "recipient", Usage: "Recipient ID (optional)"},
	cli.StringFlag{Name: "nonce", Usage: "Commitment nonce, lowercase hex (generated if empty)"},
}

func deployCommand() cli.Command {
	return cli.Command{
		Name:  "deploy",
		Usage: "Deploy Payroll Attestation contract, the signing account becomes its owner",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "allowed-caller", Usage: "Account allowed to record (overrides config)"},
			cli.BoolFlag{Name: "update", Usage: "Update contract at the configured address if it differs"},
		},
		Action: action(deployAction),
	}
}

func deployAction(ctx context.Context, c *cli.Context, e *env) error {
	prm := deploy.Prm{
		Logger: e.log,
		Update: c.Bool("update"),
	}

	if prm.Update {
		addr, err := e.contractAddress()
		if err != nil {
			return fmt.Errorf("update: %w", err)
		}
		prm.Address = &addr
	}

	ctr, err := contracts.ReadDir(e.cfg.Contract.Artifacts)
	if err != nil {
		return err
	}
	prm.NEF = ctr.NEF
	prm.Manifest = ctr.Manifest

	caller := e.cfg.Contract.AllowedCaller
	override(&caller, c.String("allowed-caller"))
	if caller != "" {
		u, err := config.ParseAccount(caller)
		if err != nil {
			return fmt.Errorf("allowed caller: %w", err)
		}
		prm.AllowedCaller = &u
	}

	acc, err := e.account()
	if err != nil {
		return err
	}
	prm.LocalAccount = acc

	b, err := newRemoteBlockchain(ctx, e.cfg.RPC, acc)
	if err != nil {
		return fmt.Errorf("init remote blockchain: %w", err)
	}
	e.chain = b
	prm.Blockchain = b.rpc

	addr, err := deploy.Deploy(ctx, prm)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Contract: %s (%s)\n", addr.StringLE(), address.Uint160ToString(addr))
	return nil
}

func commitmentCommand() cli.Command {
	return cli.Command{
		Name:      "commitment",
		Usage:     "Compute payment commitment locally",
		UsageText: "payrollctl commitment --claim ID --execution REF --amount N --token SYM --chain NAME [--recipient ID] [--nonce HEX]",
		Flags:     preimageFlags,
		Action: func(c *cli.Context) error {
			p, err := readPreimage(c, false, true)
			if err != nil {
				return err
			}
			printPreimage(c, p)
			return nil
		},
	}
}

func paymentCommand() cli.Command {
	claimFlag := cli.StringFlag{Name: "claim", Usage: "Claim ID"}

	return cli.Command{
		Name:  "payment",
		Usage: "Payment attestations",
		Subcommands: []cli.Command{
			{
				Name:   "record",
				Usage:  "Record commitment to the payment, keep printed nonce for verification",
				Flags:  preimageFlags,
				Action: action(recordPaymentAction),
			},
			{
				Name:   "get",
				Usage:  "Print payment attestation",
				Flags:  []cli.Flag{claimFlag},
				Action: action(getPaymentAction),
			},
			{
				Name:   "verify",
				Usage:  "Verify payment details against recorded commitment",
				Flags:  preimageFlags,
				Action: action(verifyPaymentAction),
			},
		},
	}
}

func recordPaymentAction(ctx context.Context, c *cli.Context, e *env) error {
	p, err := readPreimage(c, true, true)
	if err != nil {
		return err
	}

	cl, err := e.client(ctx, true)
	if err != nil {
		return err
	}

	_, err = cl.RecordPayment(ctx, p)
	if err != nil {
		return err
	}

	printPreimage(c, p)
	return nil
}

func getPaymentAction(ctx context.Context, c *cli.Context, e *env) error {
	claim := c.String("claim")
	if claim == "" {
		return errors.New("missing claim ID")
	}

	cl, err := e.client(ctx, false)
	if err != nil {
		return err
	}

	p, err := cl.Payment(claim)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Claim:      %s\n", p.ClaimID)
	fmt.Fprintf(w, "Execution:  %s\n", p.ExecutionRef)
	fmt.Fprintf(w, "Commitment: %s\n", hex.EncodeToString(p.Commitment))
	fmt.Fprintf(w, "Recorded:   %s\n", p.RecordedAt.UTC().Format(time.RFC3339))
	return nil
}

func verifyPaymentAction(ctx context.Context, c *cli.Context, e *env) error {
	p, err := readPreimage(c, false, false)
	if err != nil {
		return err
	}

	cl, err := e.client(ctx, false)
	if err != nil {
		return err
	}

	_, err = cl.VerifyPayment(p)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Payment %s is verified\n", p.ClaimID)
	return nil
}

// readPreimage builds preimage from the command flags. Missing claim ID and
// nonce are either generated or reported.
func readPreimage(c *cli.Context, genClaim, genNonce bool) (commitment.Preimage, error) {
	p := commitment.Preimage{
		ClaimID:      c.String("claim"),
		ExecutionRef: c.String("execution"),
		Amount:       c.String("amount"),
		TokenSymbol:  c.String("token"),
		TokenChain:   c.String("chain"),
		RecipientID:  c.String("recipient"),
		NonceHex:     c.String("nonce"),
	}

	if p.ClaimID == "" {
		if !genClaim {
			return p, errors.New("missing claim ID")
		}
		p.ClaimID = uuid.New().String()
	}

	if p.NonceHex == "" {
		if !genNonce {
			return p, errors.New("missing nonce")
		}
		n, err := commitment.NewNonce(commitment.DefaultNonceSize)
		if err != nil {
			return p, err
		}
		p.NonceHex = n
	}

	return p, p.Validate()
}

func printPreimage(c *cli.Context, p commitment.Preimage) {
	sum := p.Sum()
	w := c.App.Writer
	fmt.Fprintf(w, "Claim:      %s\n", p.ClaimID)
	fmt.Fprintf(w, "Nonce:      %s\n", p.NonceHex)
	fmt.Fprintf(w, "Commitment: %s\n", hex.EncodeToString(sum[:]))
}

func receiptCommand() cli.Command {
	authorizerFlag := cli.StringFlag{Name: "authorizer", Usage: "Authorizer ID"}
	nonceFlag := cli.Uint64Flag{Name: "nonce", Usage: "Authorizer nonce"}

	return cli.Command{
		Name:  "receipt",
		Usage: "Payroll receipts",
		Subcommands: []cli.Command{
			{
				Name:  "record",
				Usage: "Record payroll receipt spending authorizer's nonce",
				Flags: []cli.Flag{
					cli.StringFlag{Name: "payroll", Usage: "Payroll ID (generated if empty)"},
					cli.StringFlag{Name: "batch-hash", Usage: "Hash of the payment batch"},
					authorizerFlag,
					nonceFlag,
					cli.StringFlag{Name: "executor", Usage: "Executor ID"},
					cli.StringFlag{Name: "status", Usage: "Outcome: success, partial or failed"},
					cli.StringFlag{Name: "tx-refs-hash", Usage: "Hash of the payment transaction references"},
				},
				Action: action(recordReceiptAction),
			},
			{
				Name:   "get",
				Usage:  "Print payroll receipt",
				Flags:  []cli.Flag{cli.StringFlag{Name: "payroll", Usage: "Payroll ID"}},
				Action: action(getReceiptAction),
			},
			{
				Name:   "nonce-used",
				Usage:  "Check whether authorizer's nonce is spent",
				Flags:  []cli.Flag{authorizerFlag, nonceFlag},
				Action: action(nonceUsedAction),
			},
		},
	}
}

func recordReceiptAction(ctx context.Context, c *cli.Context, e *env) error {
	r := client.Receipt{
		PayrollID:    c.String("payroll"),
		BatchHash:    c.String("batch-hash"),
		AuthorizerID: c.String("authorizer"),
		Nonce:        c.Uint64("nonce"),
		ExecutorID:   c.String("executor"),
		Status:       c.String("status"),
		TxRefsHash:   c.String("tx-refs-hash"),
	}
	if r.AuthorizerID == "" {
		return errors.New("missing authorizer ID")
	}
	if !c.IsSet("nonce") {
		return errors.New("missing nonce")
	}
	if r.PayrollID == "" {
		r.PayrollID = uuid.New().String()
	}

	cl, err := e.client(ctx, true)
	if err != nil {
		return err
	}

	err = cl.RecordReceipt(ctx, r)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Payroll: %s\n", r.PayrollID)
	return nil
}

func getReceiptAction(ctx context.Context, c *cli.Context, e *env) error {
	payroll := c.String("payroll")
	if payroll == "" {
		return errors.New("missing payroll ID")
	}

	cl, err := e.client(ctx, false)
	if err != nil {
		return err
	}

	r, err := cl.Receipt(payroll)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Payroll:    %s\n", r.PayrollID)
	fmt.Fprintf(w, "Batch:      %s\n", r.BatchHash)
	fmt.Fprintf(w, "Authorizer: %s\n", r.AuthorizerID)
	fmt.Fprintf(w, "Nonce:      %d\n", r.Nonce)
	fmt.Fprintf(w, "Executor:   %s\n", r.ExecutorID)
	fmt.Fprintf(w, "Status:     %s\n", r.Status)
	fmt.Fprintf(w, "Tx refs:    %s\n", r.TxRefsHash)
	fmt.Fprintf(w, "Recorded:   %s\n", r.RecordedAt.UTC().Format(time.RFC3339))
	return nil
}

func nonceUsedAction(ctx context.Context, c *cli.Context, e *env) error {
	authorizer := c.String("authorizer")
	if authorizer == "" {
		return errors.New("missing authorizer ID")
	}

	cl, err := e.client(ctx, false)
	if err != nil {
		return err
	}

	used, err := cl.IsNonceUsed(authorizer, c.Uint64("nonce"))
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, used)
	return nil
}

func accessCommand() cli.Command {
	return cli.Command{
		Name:  "access",
		Usage: "Contract access control",
		Subcommands: []cli.Command{
			{
				Name:   "owner",
				Usage:  "Print contract owner",
				Action: action(ownerAction),
			},
			{
				Name:   "allowed-caller",
				Usage:  "Print account allowed to record",
				Action: action(allowedCallerAction),
			},
			{
				Name:      "set-allowed-caller",
				Usage:     "Change account allowed to record (owner only)",
				UsageText: "payrollctl access set-allowed-caller --caller ADDRESS | --clear",
				Flags: []cli.Flag{
					cli.StringFlag{Name: "caller", Usage: "New allowed caller"},
					cli.BoolFlag{Name: "clear", Usage: "Allow anyone to record"},
				},
				Action: action(setAllowedCallerAction),
			},
		},
	}
}

func ownerAction(ctx context.Context, c *cli.Context, e *env) error {
	cl, err := e.client(ctx, false)
	if err != nil {
		return err
	}

	owner, err := cl.Owner()
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, address.Uint160ToString(owner))
	return nil
}

func allowedCallerAction(ctx context.Context, c *cli.Context, e *env) error {
	cl, err := e.client(ctx, false)
	if err != nil {
		return err
	}

	caller, err := cl.AllowedCaller()
	if err != nil {
		return err
	}

	if caller == nil {
		fmt.Fprintln(c.App.Writer, "anyone")
		return nil
	}

	fmt.Fprintln(c.App.Writer, address.Uint160ToString(*caller))
	return nil
}

func setAllowedCallerAction(ctx context.Context, c *cli.Context, e *env) error {
	var caller *util.Uint160

	switch s := c.String("caller"); {
	case s != "" && c.Bool("clear"):
		return errors.New("--caller and --clear are mutually exclusive")
	case s != "":
		u, err := config.ParseAccount(s)
		if err != nil {
			return err
		}
		caller = &u
	case !c.Bool("clear"):
		return errors.New("either --caller or --clear is required")
	}

	cl, err := e.client(ctx, true)
	if err != nil {
		return err
	}

	return cl.SetAllowedCaller(ctx, caller)
}
