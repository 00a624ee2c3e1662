package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/robinvdvleuten/dinero/ast"
)

// Policy decides what happens when a transaction or price uses an account, commodity or
// payee that no directive declares.
type Policy int

const (
	// Silent registers undeclared entities without notice.
	Silent Policy = iota
	// Strict registers them and emits a warning.
	Strict
	// Pedantic rejects them and also requires an empty posting to be the last one.
	Pedantic
)

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Pedantic:
		return "pedantic"
	default:
		return "silent"
	}
}

// ParsePolicy parses "silent", "strict" or "pedantic".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "silent":
		return Silent, nil
	case "strict":
		return Strict, nil
	case "pedantic":
		return Pedantic, nil
	}
	return Silent, fmt.Errorf("invalid policy %q, expected silent, strict or pedantic", s)
}

// Config holds the settings of a ledger build.
type Config struct {
	// SkipBalanceCheck ignores balance assertions.
	SkipBalanceCheck bool
	Policy           Policy
	// Logger receives warnings as they are found. Warnings are also kept on the Ledger.
	Logger *slog.Logger
}

// NewConfig creates a Config with defaults: balance checks on, silent policy and a logger
// that discards everything.
func NewConfig() *Config {
	return &Config{
		Policy: Silent,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// configFromAST reads the options embedded in a ledger file.
func configFromAST(tree *ast.Ledger) (*Config, error) {
	return configFromOptions(tree.OptionValues())
}

// configFromOptions parses options map into a Config.
// Supports:
//   - option "strict" "true"
//   - option "pedantic" "true"
//   - option "policy" "silent|strict|pedantic"
//   - option "no-balance-check" "true"
func configFromOptions(options map[string][]string) (*Config, error) {
	cfg := NewConfig()

	if vals := options["policy"]; len(vals) > 0 {
		policy, err := ParsePolicy(vals[0])
		if err != nil {
			return nil, err
		}
		cfg.Policy = policy
	}
	if vals := options["strict"]; len(vals) > 0 && isTrue(vals[0]) && cfg.Policy < Strict {
		cfg.Policy = Strict
	}
	if vals := options["pedantic"]; len(vals) > 0 && isTrue(vals[0]) {
		cfg.Policy = Pedantic
	}
	if vals := options["no-balance-check"]; len(vals) > 0 {
		cfg.SkipBalanceCheck = isTrue(vals[0])
	}

	return cfg, nil
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "true", "yes", "1", "on":
		return true
	}
	return false
}

// merge overlays the settings of a file on top of c. Flags win over file options in the
// direction of more checking: a file can raise the policy but not lower it.
func (c *Config) merge(file *Config) *Config {
	out := *c
	if file.Policy > out.Policy {
		out.Policy = file.Policy
	}
	out.SkipBalanceCheck = c.SkipBalanceCheck || file.SkipBalanceCheck
	if out.Logger == nil {
		out.Logger = file.Logger
	}
	if out.Logger == nil {
		out.Logger = NewConfig().Logger
	}
	return &out
}

// contextKey is a private type to avoid key collisions in context.
type contextKey struct{}

// WithContext returns a new context with the Config attached.
func (c *Config) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// ConfigFromContext retrieves the Config from context.
// Returns a default Config if not found.
func ConfigFromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(contextKey{}).(*Config); ok {
		return cfg
	}
	return NewConfig()
}
