package cli

import (
	"log/slog"
	"time"

	"github.com/robinvdvleuten/dinero/ledger"
)

// Globals defines global flags available to all commands.
type Globals struct {
	Telemetry      bool   `help:"Show timing telemetry for operations." env:"DINERO_TELEMETRY"`
	Strict         bool   `help:"Warn about undeclared accounts, commodities and payees." env:"DINERO_STRICT"`
	Pedantic       bool   `help:"Reject undeclared accounts, commodities and payees." env:"DINERO_PEDANTIC"`
	NoBalanceCheck bool   `help:"Do not verify balance assertions."`
	Color          string `help:"When to color output (${enum})." enum:"auto,always,never" default:"auto" env:"DINERO_COLOR"`
	LogLevel       string `help:"Minimum level of log messages (${enum})." enum:"debug,info,warn,error" default:"error" env:"DINERO_LOG_LEVEL"`
}

// Config returns the ledger configuration selected by the flags.
func (g *Globals) Config(logger *slog.Logger) *ledger.Config {
	cfg := ledger.NewConfig()
	switch {
	case g.Pedantic:
		cfg.Policy = ledger.Pedantic
	case g.Strict:
		cfg.Policy = ledger.Strict
	}
	cfg.SkipBalanceCheck = g.NoBalanceCheck
	if logger != nil {
		cfg.Logger = logger
	}
	return cfg
}

func (g *Globals) level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.LogLevel)); err != nil {
		return slog.LevelError
	}
	return level
}

type Commands struct {
	Globals

	Check    CheckCmd    `cmd:"" help:"Load, balance and validate a ledger file."`
	Print    PrintCmd    `cmd:"" help:"Print the resolved transactions matching a query."`
	Balance  BalanceCmd  `cmd:"" aliases:"bal" help:"Show account balances matching a query."`
	Prices   PricesCmd   `cmd:"" help:"Print declared and derived prices."`
	Accounts AccountsCmd `cmd:"" help:"List the accounts of a ledger."`
	Doctor   DoctorCmd   `cmd:"" help:"Doctor utilities for debugging ledger files and queries."`
}

// ReportFlags select the postings a report includes.
type ReportFlags struct {
	Begin   time.Time `help:"Only include postings on or after this date." format:"2006-01-02" short:"b"`
	End     time.Time `help:"Only include postings before this date." format:"2006-01-02" short:"e"`
	Real    bool      `help:"Ignore virtual postings." short:"R"`
	Cleared bool      `help:"Only include cleared transactions." short:"C"`
}

// Options converts the flags for ledger.Filter.
func (f ReportFlags) Options() ledger.FilterOptions {
	return ledger.FilterOptions{Begin: f.Begin, End: f.End, Real: f.Real, Cleared: f.Cleared}
}
