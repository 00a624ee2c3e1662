// Package errors provides error formatting infrastructure for ledger errors.
// It separates error formatting from domain logic, allowing errors to be rendered in
// multiple formats (text, JSON) for different consumers.
//
// The package defines a Formatter interface and provides two implementations:
//   - TextFormatter: Formats errors for command-line output, followed by the offending
//     transaction or the source lines around the error
//   - JSONFormatter: Formats errors as structured JSON for scripts and editors
//
// Domain-specific error types remain in their respective packages (ledger, loader),
// while this package handles the presentation layer.
package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/robinvdvleuten/dinero/ast"
	"github.com/robinvdvleuten/dinero/formatter"
	"github.com/robinvdvleuten/dinero/ledger"
)

// Formatter formats errors for output in different formats.
type Formatter interface {
	// Format formats a single error.
	Format(err error) string

	// FormatAll formats multiple errors.
	FormatAll(errs []error) string
}

// Flatten expands errors that wrap several errors, such as ledger.ValidationErrors, into
// a flat list. Any other error is returned as a single element.
func Flatten(err error) []error {
	if err == nil {
		return nil
	}
	multi, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range multi.Unwrap() {
		out = append(out, Flatten(e)...)
	}
	return out
}

// TextFormatter formats errors for command-line output.
type TextFormatter struct {
	formatter     *formatter.Formatter
	sourceContent []byte // Optional source content for decode error context
}

// TextFormatterOption is an option for configuring TextFormatter.
type TextFormatterOption func(*TextFormatter)

// WithSource sets the source content shown around errors that only carry a position.
func WithSource(source []byte) TextFormatterOption {
	return func(tf *TextFormatter) {
		tf.sourceContent = source
	}
}

// NewTextFormatter creates a new text formatter. A nil formatter selects the defaults.
func NewTextFormatter(f *formatter.Formatter, opts ...TextFormatterOption) *TextFormatter {
	if f == nil {
		f = formatter.New()
	}
	tf := &TextFormatter{formatter: f}
	for _, opt := range opts {
		opt(tf)
	}
	return tf
}

// Format formats a single error, followed by the transaction it concerns if any.
func (tf *TextFormatter) Format(err error) string {
	var txnErr interface {
		GetTransaction() *ledger.Transaction
	}
	if stderrors.As(err, &txnErr) && txnErr.GetTransaction() != nil {
		return tf.formatWithTransaction(err.Error(), txnErr.GetTransaction())
	}

	var posErr interface{ GetPosition() ast.Position }
	if stderrors.As(err, &posErr) && tf.sourceContent != nil && posErr.GetPosition().Line > 0 {
		return tf.formatWithSourceContext(posErr.GetPosition(), err.Error(), tf.sourceContent)
	}

	return err.Error()
}

// FormatAll formats multiple errors, separating them with blank lines.
func (tf *TextFormatter) FormatAll(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var buf bytes.Buffer
	for i, err := range errs {
		buf.WriteString(strings.TrimRight(tf.Format(err), "\n"))

		// Add blank line between errors (but not after the last one)
		if i < len(errs)-1 {
			buf.WriteString("\n\n")
		}
	}

	return buf.String()
}

// formatWithSourceContext shows the error message followed by the source lines around
// the error position, with a caret under the column when it is known.
func (tf *TextFormatter) formatWithSourceContext(pos ast.Position, message string, sourceContent []byte) string {
	var buf bytes.Buffer

	buf.WriteString(message)
	buf.WriteString("\n\n")

	sourceLines := strings.Split(string(sourceContent), "\n")

	// Two lines before the error line and one after
	startLine := max(pos.Line-3, 0)
	endLine := min(pos.Line, len(sourceLines)-1)

	for i := startLine; i <= endLine; i++ {
		buf.WriteString("   ")
		buf.WriteString(sourceLines[i])
		buf.WriteByte('\n')

		if i == pos.Line-1 && pos.Column > 0 {
			buf.WriteString("   ")
			buf.WriteString(strings.Repeat(" ", pos.Column-1))
			buf.WriteString("^\n")
		}
	}

	return buf.String()
}

// formatWithTransaction writes the message and the transaction, indented by three spaces.
func (tf *TextFormatter) formatWithTransaction(message string, txn *ledger.Transaction) string {
	var buf bytes.Buffer

	buf.WriteString(message)
	buf.WriteString("\n\n")

	txnFormatter := formatter.New(formatter.WithIndentation(2))
	if tf.formatter.AmountColumn > 0 {
		txnFormatter.AmountColumn = tf.formatter.AmountColumn
	}

	var txnBuf bytes.Buffer
	if err := txnFormatter.FormatTransaction(txn, &txnBuf); err == nil {
		for _, line := range bytes.Split(txnBuf.Bytes(), []byte("\n")) {
			if len(line) > 0 {
				buf.WriteString("   ")
				buf.Write(line)
				buf.WriteByte('\n')
			}
		}
	}

	return buf.String()
}

// JSONFormatter formats errors as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// ErrorJSON represents an error in JSON format.
type ErrorJSON struct {
	Type     string         `json:"type"`
	Message  string         `json:"message"`
	Position *PositionJSON  `json:"position,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// PositionJSON represents a file position in JSON format.
type PositionJSON struct {
	Filename string `json:"filename"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// Format formats a single error as JSON.
func (jf *JSONFormatter) Format(err error) string {
	data, _ := json.Marshal(jf.toJSON(err))
	return string(data)
}

// FormatAll formats multiple errors as a JSON array.
func (jf *JSONFormatter) FormatAll(errs []error) string {
	data, _ := json.MarshalIndent(jf.FormatAllToSlice(errs), "", "  ")
	return string(data)
}

// FormatAllToSlice returns errors as a slice of ErrorJSON structs.
func (jf *JSONFormatter) FormatAllToSlice(errs []error) []ErrorJSON {
	result := make([]ErrorJSON, 0, len(errs))
	for _, err := range errs {
		result = append(result, jf.toJSON(err))
	}
	return result
}

// toJSON converts an error to ErrorJSON.
func (jf *JSONFormatter) toJSON(err error) ErrorJSON {
	errJSON := ErrorJSON{
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
		Details: make(map[string]any),
	}

	var posErr interface{ GetPosition() ast.Position }
	if stderrors.As(err, &posErr) {
		if pos := posErr.GetPosition(); !pos.IsZero() {
			errJSON.Position = &PositionJSON{
				Filename: pos.Filename,
				Line:     pos.Line,
				Column:   pos.Column,
			}
		}
	}

	var accErr interface{ GetAccount() *ledger.Account }
	if stderrors.As(err, &accErr) && accErr.GetAccount() != nil {
		errJSON.Details["account"] = accErr.GetAccount().Name()
	}

	var txnErr interface {
		GetTransaction() *ledger.Transaction
	}
	if stderrors.As(err, &txnErr) {
		if txn := txnErr.GetTransaction(); txn != nil {
			errJSON.Details["date"] = txn.Date.Format(ast.DateLayout)
			errJSON.Details["description"] = txn.Description
		}
	}

	var nb *ledger.TransactionNotBalancedError
	if stderrors.As(err, &nb) {
		if nb.Account != nil {
			errJSON.Details["found"] = nb.Found.String()
			errJSON.Details["expected"] = nb.Expected.String()
			errJSON.Details["difference"] = nb.Difference.String()
		} else {
			errJSON.Details["residual"] = nb.Residual.String()
		}
	}

	var exprErr *ledger.ExpressionError
	if stderrors.As(err, &exprErr) {
		errJSON.Details["kind"] = exprErr.Kind.String()
		if exprErr.Expr != "" {
			errJSON.Details["expression"] = exprErr.Expr
		}
	}

	if len(errJSON.Details) == 0 {
		errJSON.Details = nil
	}
	return errJSON
}
