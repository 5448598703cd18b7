// Package startup prints the console banner shown when the server starts.
package startup

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const indent = "    "

var (
	logoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	urlStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// BannerOptions configures the startup banner display.
type BannerOptions struct {
	Version  string
	LocalURL string
	DataDir  string
	DevMode  bool
	// NoAPIKey warns that the selected provider has no key configured.
	NoAPIKey bool
}

// colorsEnabled reports whether w is a terminal and NO_COLOR is unset.
func colorsEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type printer struct {
	w     io.Writer
	color bool
}

func (p printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, indent+format+"\n", args...)
}

// PrintBanner writes the startup banner to w.
func PrintBanner(w io.Writer, opts BannerOptions) {
	p := printer{w: w, color: colorsEnabled(w)}

	fmt.Fprintln(w)
	logo := p.style(logoStyle, "◆") + "  " + p.style(titleStyle, "D E E P C H A T")
	p.line("%s%s%s", logo, strings.Repeat(" ", 24), p.style(dimStyle, opts.Version))
	fmt.Fprintln(w)

	p.line("%s  %s", p.style(dimStyle, "▸ Local"), p.style(urlStyle, opts.LocalURL))
	p.line("%s   %s", p.style(dimStyle, "▸ Data"), opts.DataDir)
	if opts.DevMode {
		p.line("%s", p.style(warningStyle, "▸ Development mode: origin checks disabled"))
	}
	if opts.NoAPIKey {
		p.line("%s", p.style(warningStyle, "▸ No API key configured for the selected provider"))
	}
	fmt.Fprintln(w)
}

// PrintFooter prints the footer with shutdown instructions.
func PrintFooter(w io.Writer) {
	p := printer{w: w, color: colorsEnabled(w)}
	p.line("%s", p.style(dimStyle, "Press Ctrl+C to stop"))
	fmt.Fprintln(w)
}
