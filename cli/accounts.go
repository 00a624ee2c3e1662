package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/alecthomas/kong"
	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/dinero/ledger"
)

type AccountsCmd struct {
	File    string `help:"Ledger input filename (use '-' for stdin)." arg:""`
	Pattern string `help:"Only list accounts matching this regular expression (case-insensitive)." arg:"" optional:""`
	Verbose bool   `help:"Show the type, origin and aliases of each account." short:"v"`
}

func (cmd *AccountsCmd) Run(ctx *kong.Context, globals *Globals) error {
	s := newSession(ctx, globals, fmt.Sprintf("accounts %s", filepath.Base(cmd.File)))
	defer s.finish()

	var re *regexp.Regexp
	if cmd.Pattern != "" {
		var err error
		if re, err = regexp.Compile("(?i)" + cmd.Pattern); err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}

	runCtx := s.context(context.Background())
	l, err := s.build(runCtx, cmd.File)
	if err != nil {
		return s.fail(err, "text", summarize(err))
	}

	accounts := l.Accounts.All()
	slices.SortFunc(accounts, func(a, b *ledger.Account) int {
		return strings.Compare(a.Name(), b.Name())
	})

	styles := s.styles(s.stdout)
	for _, a := range accounts {
		if re != nil && !re.MatchString(a.Name()) {
			continue
		}
		if !cmd.Verbose {
			_, _ = fmt.Fprintln(s.stdout, styles.Account(a.Name()))
			continue
		}
		line := fmt.Sprintf("%s  %s  %s", styles.Account(a.Name()), styles.Dim(a.Type().String()), styles.Dim(a.Origin().String()))
		if aliases := a.Aliases(); len(aliases) > 0 {
			line += "  " + strings.Join(aliases, ", ")
		}
		_, _ = fmt.Fprintln(s.stdout, line)
	}
	return nil
}
