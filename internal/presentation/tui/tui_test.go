package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/reviewlink/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrint_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tui.Print(&buf, "# Title\n\nbody\n"))
	assert.Equal(t, "# Title\n\nbody\n", buf.String())
	assert.False(t, tui.IsTerminal(&buf))
}

func TestNewRenderer(t *testing.T) {
	render, err := tui.NewRenderer(80)
	require.NoError(t, err)
	out, err := render("**bold** text")
	require.NoError(t, err)
	assert.Contains(t, out, "text")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "1.2.3\n")
	assert.Contains(t, buf.String(), "reviewlink")
	assert.Contains(t, buf.String(), "1.2.3")
}
