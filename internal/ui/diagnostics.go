package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"github.com/g5becks/blockparse/internal/textparse"
)

type styles struct {
	yellow *color.Color
	red    *color.Color
	dim    *color.Color
	bold   *color.Color
}

func newStyles() styles {
	return styles{
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		dim:    color.New(color.Faint),
		bold:   color.New(color.Bold),
	}
}

// DiagnosticPrinter renders parse diagnostics to stderr with colored
// output. Printing is serialized so parallel parses can share one
// printer.
type DiagnosticPrinter struct {
	w  io.Writer
	mu sync.Mutex
	s  styles

	count int
}

// NewDiagnosticPrinter creates a printer that writes to stderr.
func NewDiagnosticPrinter() *DiagnosticPrinter {
	return &DiagnosticPrinter{w: os.Stderr, s: newStyles()}
}

// NewDiagnosticPrinterWithWriter creates a printer that writes to the
// given writer.
func NewDiagnosticPrinterWithWriter(w io.Writer) *DiagnosticPrinter {
	return &DiagnosticPrinter{w: w, s: newStyles()}
}

// Handle is the callback wired into textparse.Options.Diagnostic.
func (p *DiagnosticPrinter) Handle(pos textparse.Position, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count++

	fmt.Fprintf(p.w, "%s %s %s\n",
		p.s.yellow.Sprint("warning:"),
		p.s.bold.Sprint(pos.String()),
		msg,
	)
}

// Count reports how many diagnostics the printer has seen.
func (p *DiagnosticPrinter) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.count
}

// PrintFatal renders a fatal parse failure.
func (p *DiagnosticPrinter) PrintFatal(path string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "%s %s: %v\n",
		p.s.red.Sprint("✗"),
		p.s.bold.Sprint(path),
		err,
	)
}
