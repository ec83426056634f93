package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "payrollctl"
	app.Usage = "Payroll Attestation contract tool"
	app.HideVersion = true
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "Path to the YAML configuration file",
			EnvVar: "PAYROLL_CONFIG",
		},
		cli.StringFlag{
			Name:  "rpc, r",
			Usage: "Neo RPC server endpoint (overrides config)",
		},
		cli.StringFlag{
			Name:  "wallet, w",
			Usage: "Path to the NEP-6 wallet (overrides config)",
		},
		cli.StringFlag{
			Name:  "account, a",
			Usage: "Wallet account address (overrides config)",
		},
		cli.StringFlag{
			Name:   "password",
			Usage:  "Wallet account password",
			EnvVar: "PAYROLL_WALLET_PASSWORD",
		},
		cli.StringFlag{
			Name:  "contract",
			Usage: "Payroll Attestation contract address (overrides config)",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Logging level (overrides config)",
		},
	}
	app.Commands = []cli.Command{
		deployCommand(),
		commitmentCommand(),
		paymentCommand(),
		receiptCommand(),
		accessCommand(),
		dumpCommand(),
	}
	return app
}
