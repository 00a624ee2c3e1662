package cli

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/dinero/ledger"
)

func TestCommandError(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := NewCommandError(1, nil)
		assert.EqualError(t, err, "command failed")
		assert.Equal(t, 1, err.ExitCode())
	})

	t.Run("wraps the reported cause", func(t *testing.T) {
		var err error = NewCommandError(42, ledger.ErrDivisionByZero)
		assert.True(t, errors.Is(err, ledger.ErrDivisionByZero))

		var cmdErr *CommandError
		assert.True(t, errors.As(err, &cmdErr))
		assert.Equal(t, 42, cmdErr.ExitCode())
	})
}
