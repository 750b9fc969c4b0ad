package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Ning0612/unfold/internal/domain"
)

// Confirmer asks the operator a yes/no question
type Confirmer interface {
	// Confirm returns the answer, or domain.ErrCancelled if input ended
	Confirm(ctx context.Context, message string, defaultYes bool) (bool, error)
}

// Terminal reads answers line by line from an input stream
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal creates a confirmer over in/out
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Stdio returns a confirmer on the process standard streams
func Stdio() *Terminal {
	return NewTerminal(os.Stdin, os.Stdout)
}

// Confirm accepts y, yes, n and no in any case. An empty answer takes the
// default; anything else asks again.
func (t *Terminal) Confirm(ctx context.Context, message string, defaultYes bool) (bool, error) {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}

	for {
		fmt.Fprintf(t.out, "%s %s: ", message, hint)

		line, err := t.readLine(ctx)
		if err != nil {
			fmt.Fprintln(t.out)
			return false, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(t.out, "Please enter 'y' for yes or 'n' for no.")
		}
	}
}

type lineResult struct {
	line string
	err  error
}

// readLine returns the next line, giving up when ctx is done
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	done := make(chan lineResult, 1)
	go func() {
		line, err := t.in.ReadString('\n')
		done <- lineResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err == io.EOF && res.line != "" {
			return res.line, nil
		}
		if res.err == io.EOF {
			return "", fmt.Errorf("%w: input closed", domain.ErrCancelled)
		}
		if res.err != nil {
			return "", fmt.Errorf("failed to read answer: %w", res.err)
		}
		return res.line, nil
	}
}
