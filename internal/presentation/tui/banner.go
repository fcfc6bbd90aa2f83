package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the startup banner. Colors degrade to plain text when w
// is not a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	name := out.String("reviewlink").Bold().Foreground(p.Color("#a78bfa"))
	tag := out.String("comments in, updates out").Foreground(p.Color("#f472b6"))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s\n", name, strings.TrimSpace(version))
	fmt.Fprintf(w, "  %s\n", tag)
	fmt.Fprintln(w)
}
