package cli

import (
	"context"
	stdErrors "errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/dinero/ledger"
	"github.com/robinvdvleuten/dinero/loader"
)

type CheckCmd struct {
	File   string `help:"Ledger input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:"" default:"-"`
	Watch  bool   `help:"Check again every time the file or one of its includes changes." short:"w"`
	Output string `help:"Error output format (${enum})." enum:"text,json" default:"text" short:"o"`
}

func (cmd *CheckCmd) Run(ctx *kong.Context, globals *Globals) error {
	s := newSession(ctx, globals, fmt.Sprintf("check %s", filepath.Base(cmd.File)))
	defer s.finish()

	if cmd.Watch {
		return cmd.watch(s)
	}

	runCtx := s.context(context.Background())
	l, err := s.build(runCtx, cmd.File)
	if err != nil {
		return s.fail(err, cmd.Output, summarize(err))
	}

	s.printWarnings(l)
	printSuccess(s.stdout, fmt.Sprintf("Check passed: %s", stats(l)))
	return nil
}

// watch checks the ledger on every change until interrupted.
func (cmd *CheckCmd) watch(s *session) error {
	if cmd.File == loader.Stdin {
		return fmt.Errorf("--watch needs a file, not standard input")
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx := s.context(sigCtx)

	printInfof(s.stderr, "Watching %s", pathStyle.Render(cmd.File))

	ldr, err := s.loader(cmd.File)
	if err != nil {
		return err
	}
	return ldr.Watch(runCtx, cmd.File, func(result *loader.Result, err error) {
		var l *ledger.Ledger
		if err == nil {
			l, err = ledger.Build(runCtx, result.Ledger)
		}
		if err != nil {
			renderErrors(s.stderr, err, nil, cmd.Output)
			printError(s.stderr, summarize(err))
			return
		}
		s.printWarnings(l)
		printSuccess(s.stdout, fmt.Sprintf("Check passed: %s", stats(l)))
	})
}

func stats(l *ledger.Ledger) string {
	return fmt.Sprintf("%d transactions, %d accounts, %d commodities, %d prices",
		len(l.Transactions), l.Accounts.Len(), l.Commodities.Len(), len(l.Prices))
}

// summarize names the kind of failure for the closing line of a failed check.
func summarize(err error) string {
	var validation *ledger.ValidationErrors
	if stdErrors.As(err, &validation) {
		return fmt.Sprintf("%d validation error(s) found", len(validation.Errors))
	}
	var decode *loader.DecodeError
	if stdErrors.As(err, &decode) {
		return "parse error"
	}
	return "ledger error"
}
