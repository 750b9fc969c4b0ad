package prompt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/unfold/internal/domain"
)

func TestTerminal_Answers(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		defaultYes bool
		want       bool
	}{
		{"yes", "y\n", false, true},
		{"full yes upper", "YES\n", false, true},
		{"no", "n\n", true, false},
		{"full no", "no\n", true, false},
		{"empty takes default yes", "\n", true, true},
		{"empty takes default no", "\n", false, false},
		{"whitespace trimmed", "  y  \n", false, true},
		{"last line without newline", "y", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			term := NewTerminal(strings.NewReader(tt.input), out)

			got, err := term.Confirm(context.Background(), "Proceed?", tt.defaultYes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTerminal_DefaultHint(t *testing.T) {
	out := &bytes.Buffer{}
	_, err := NewTerminal(strings.NewReader("\n"), out).Confirm(context.Background(), "Delete?", false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Delete? [y/N]: ")

	out.Reset()
	_, err = NewTerminal(strings.NewReader("\n"), out).Confirm(context.Background(), "Proceed?", true)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Proceed? [Y/n]: ")
}

func TestTerminal_RepromptsOnInvalidAnswer(t *testing.T) {
	out := &bytes.Buffer{}
	term := NewTerminal(strings.NewReader("maybe\nok\nn\n"), out)

	got, err := term.Confirm(context.Background(), "Delete?", true)
	require.NoError(t, err)
	assert.False(t, got)
	assert.Equal(t, 2, strings.Count(out.String(), "Please enter 'y' for yes or 'n' for no."))
	assert.Equal(t, 3, strings.Count(out.String(), "Delete?"))
}

func TestTerminal_EOFCancels(t *testing.T) {
	term := NewTerminal(strings.NewReader(""), io.Discard)

	_, err := term.Confirm(context.Background(), "Proceed?", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCancelled))
}

func TestTerminal_ContextCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewTerminal(pr, io.Discard).Confirm(ctx, "Proceed?", true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
