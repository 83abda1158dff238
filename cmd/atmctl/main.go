package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/alovak/cardflow-atm/internal/atmclient"
	"github.com/alovak/cardflow-atm/internal/cardnum"
	"github.com/shopspring/decimal"
)

var (
	flagAddr     = flag.String("addr", "http://127.0.0.1:9090", "atm service base URL")
	flagTerminal = flag.String("terminal", "", "terminal ID for insert/balance/reserve/withdraw")
	flagTimeout  = flag.Duration("timeout", 10*time.Second, "request timeout")
	flagVerbose  = flag.Bool("verbose", false, "print full PAN (otherwise masked)")
)

const usage = `usage: atmctl [flags] <command> [args]

commands:
  account <balance>        create an account
  issue <account-id> <pin> issue a card
  block <card-id>          block a card
  unblock <card-id>        unblock a card
  open <reserve>           open a terminal
  insert <pan> <pin>       insert a card into -terminal
  balance                  account balance via -terminal
  reserve                  cash left in -terminal
  withdraw <amount>        withdraw cash from -terminal
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()

	cli := atmclient.New(*flagAddr, &http.Client{Timeout: *flagTimeout})
	must(run(ctx, cli, *flagTerminal, *flagVerbose, flag.Args(), os.Stdout))
}

func run(ctx context.Context, cli *atmclient.Client, terminalID string, verbose bool, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("command is required\n%s", usage)
	}
	cmd, args := args[0], args[1:]

	needTerminal := func() error {
		if terminalID == "" {
			return fmt.Errorf("-terminal is required for %s", cmd)
		}
		return nil
	}

	switch cmd {
	case "account":
		if err := wantArgs(cmd, args, 1); err != nil {
			return err
		}
		balance, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("balance: %w", err)
		}
		account, err := cli.CreateAccount(ctx, balance)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "account %s balance %s\n", account.ID, account.Balance)
	case "issue":
		if err := wantArgs(cmd, args, 2); err != nil {
			return err
		}
		pin, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("pin: %w", err)
		}
		card, err := cli.IssueCard(ctx, args[0], pin)
		if err != nil {
			return err
		}
		pan := cardnum.Mask(card.Number)
		if verbose {
			pan = card.Number + "   (WARNING: printing full PAN)"
		}
		fmt.Fprintf(out, "card %s PAN %s EXP(YYMM) %s\n", card.ID, pan, card.ExpiryYYMM)
	case "block", "unblock":
		if err := wantArgs(cmd, args, 1); err != nil {
			return err
		}
		var err error
		if cmd == "block" {
			err = cli.BlockCard(ctx, args[0])
		} else {
			err = cli.UnblockCard(ctx, args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "card %s %sed\n", args[0], cmd)
	case "open":
		if err := wantArgs(cmd, args, 1); err != nil {
			return err
		}
		reserve, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("reserve: %w", err)
		}
		id, err := cli.OpenTerminal(ctx, reserve)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "terminal %s\n", id)
	case "insert":
		if err := needTerminal(); err != nil {
			return err
		}
		if err := wantArgs(cmd, args, 2); err != nil {
			return err
		}
		pin, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("pin: %w", err)
		}
		accepted, err := cli.InsertCard(ctx, terminalID, args[0], pin)
		if err != nil {
			return err
		}
		if !accepted {
			fmt.Fprintln(out, "card rejected")
			return nil
		}
		fmt.Fprintln(out, "card accepted")
	case "balance":
		if err := needTerminal(); err != nil {
			return err
		}
		balance, err := cli.Balance(ctx, terminalID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "balance %s\n", balance)
	case "reserve":
		if err := needTerminal(); err != nil {
			return err
		}
		reserve, err := cli.Reserve(ctx, terminalID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "reserve %s\n", reserve)
	case "withdraw":
		if err := needTerminal(); err != nil {
			return err
		}
		if err := wantArgs(cmd, args, 1); err != nil {
			return err
		}
		amount, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		balance, err := cli.Withdraw(ctx, terminalID, amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "dispensed %s, balance %s\n", amount, balance)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	return nil
}

func wantArgs(cmd string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s takes %d argument(s), got %d", cmd, n, len(args))
	}
	return nil
}

func must(err error) {
	if err != nil {
		fail("%v", err)
	}
}

func fail(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
