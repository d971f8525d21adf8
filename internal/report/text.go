package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// TextOptions controls WriteText.
type TextOptions struct {
	// Color enables ANSI styling.
	Color bool
}

// ColorEnabled reports whether w is a terminal that should receive colour.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type palette struct {
	header lipgloss.Style
	pass   lipgloss.Style
	fail   lipgloss.Style
	faint  lipgloss.Style
	on     bool
}

func newPalette(color bool) palette {
	return palette{
		header: lipgloss.NewStyle().Bold(true),
		pass:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		fail:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		faint:  lipgloss.NewStyle().Faint(true),
		on:     color,
	}
}

func (p palette) paint(style lipgloss.Style, s string) string {
	if !p.on {
		return s
	}
	return style.Render(s)
}

// WriteText renders reports in order, one block per suite, followed by a total.
func WriteText(w io.Writer, reports []*RunReport, opts TextOptions) error {
	p := newPalette(opts.Color)
	var b strings.Builder

	total, failed := 0, 0
	for i, r := range reports {
		if i > 0 {
			b.WriteString("\n")
		}
		writeSuite(&b, p, r)
		total += len(r.Results)
		failed += r.Failed()
	}

	summary := fmt.Sprintf("suites: %d, expectations: %d, failures: %d", len(reports), total, failed)
	if failed > 0 {
		summary = p.paint(p.fail, summary)
	} else {
		summary = p.paint(p.pass, summary)
	}
	b.WriteString("\n" + summary + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSuite(b *strings.Builder, p palette, r *RunReport) {
	title := "Suite " + r.SuiteName
	if r.TargetHost != "" {
		title += " (" + r.TargetHost + ")"
	}
	b.WriteString(p.paint(p.header, title) + "\n")

	for _, res := range r.Results {
		if res.Verdict == Pass {
			b.WriteString("  " + p.paint(p.pass, "✔") + " " + res.Description + "\n")
			continue
		}
		b.WriteString("  " + p.paint(p.fail, "✖") + " " + res.Description + "\n")
		if res.Probe != "" {
			b.WriteString("      " + p.paint(p.faint, strings.TrimSpace(res.Probe+" "+res.Field+" should "+res.Matcher)) + "\n")
		}
		writeIndented(b, res.Diagnostic, "      ")
		if res.Detail != "" {
			writeIndented(b, res.Detail, "        ")
		}
	}

	counts := fmt.Sprintf("  %d expectations, %d passed, %d failed", len(r.Results), r.Passed(), r.Failed())
	b.WriteString(counts + "\n")
}

func writeIndented(b *strings.Builder, text, indent string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		b.WriteString(indent + line + "\n")
	}
}
