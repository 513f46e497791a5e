package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the product name and version.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	name := out.String("shastarun").Bold().Foreground(out.Color("#818cf8"))
	ver := out.String(strings.TrimSpace(version)).Foreground(out.Color("#c084fc"))
	fmt.Fprintf(w, "%s %s\n", name, ver)
}
