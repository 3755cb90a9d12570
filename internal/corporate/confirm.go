package corporate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"pricebook/internal/models"
)

// Confirmer approves an adjustment before it rewrites history.
type Confirmer interface {
	Confirm(ctx context.Context, action models.AdjustmentAction) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, action models.AdjustmentAction) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, action models.AdjustmentAction) (bool, error) {
	return f(ctx, action)
}

// AutoConfirm approves every action.
var AutoConfirm = ConfirmFunc(func(context.Context, models.AdjustmentAction) (bool, error) {
	return true, nil
})

// PromptConfirmer asks an operator on a terminal. It blocks until a line is read;
// end of input declines.
type PromptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptConfirmer creates a confirmer reading answers from in and writing the
// summary to out.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm prints the adjustment and accepts "y" or "yes".
func (p *PromptConfirmer) Confirm(ctx context.Context, action models.AdjustmentAction) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	rule := strings.Repeat("=", 50)
	fmt.Fprintf(p.out, "\n%s\n", rule)
	fmt.Fprintf(p.out, "Action required for:              %s\n", action.Symbol)
	fmt.Fprintf(p.out, "Execution Date:                   %s\n", models.FormatDate(action.ExecDate))
	fmt.Fprintf(p.out, "Action Type:                      %s\n", action.Type)
	fmt.Fprintf(p.out, "Details:                          %s\n", action.Details)
	fmt.Fprintf(p.out, "Calculated Adjustment Factor:     %.6f\n", action.Factor)
	fmt.Fprintf(p.out, "This will multiply all historical prices (Open, High, Low, Close, etc.)\n")
	fmt.Fprintf(p.out, "for %s before %s by the factor above.\n", action.Symbol, models.FormatDate(action.ExecDate))
	fmt.Fprintf(p.out, "%s\n", rule)
	fmt.Fprint(p.out, "Do you want to apply this adjustment? (y/n): ")

	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
