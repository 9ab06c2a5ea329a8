// Package report prints the human-readable progress and result lines of a
// remediation check.
package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// Status line symbols.
const (
	SymbolOK      = "✅"
	SymbolFail    = "❌"
	SymbolWarn    = "⚠️"
	SymbolUnknown = "❓"
)

const timeLayout = "2006-01-02 15:04:05"

// Reporter writes status lines to a writer
type Reporter struct {
	w       io.Writer
	ok      *color.Color
	fail    *color.Color
	warn    *color.Color
	unknown *color.Color
	heading *color.Color
	now     func() time.Time
}

// New creates a Reporter writing to w. A nil w writes to stdout.
func New(w io.Writer) *Reporter {
	if w == nil {
		w = os.Stdout
	}
	return &Reporter{
		w:       w,
		ok:      color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		unknown: color.New(color.FgCyan),
		heading: color.New(color.Bold),
		now:     time.Now,
	}
}

// DisableColor turns off ANSI colouring regardless of the terminal.
func (r *Reporter) DisableColor() {
	for _, c := range []*color.Color{r.ok, r.fail, r.warn, r.unknown, r.heading} {
		c.DisableColor()
	}
}

// SetClock replaces the clock used for timestamps.
func (r *Reporter) SetClock(now func() time.Time) {
	r.now = now
}

// Now returns the reporter's current time.
func (r *Reporter) Now() time.Time {
	return r.now()
}

// Banner prints the opening block of a check.
func (r *Reporter) Banner(title string, fields ...Field) {
	r.heading.Fprintf(r.w, "\n=== %s ===\n", title)
	fmt.Fprintf(r.w, "Date/Time: %s\n", r.now().Format(timeLayout))
	for _, f := range fields {
		fmt.Fprintf(r.w, "%s: %s\n", f.Label, f.Value)
	}
	fmt.Fprintln(r.w, "=====================================")
}

// Section prints a step heading.
func (r *Reporter) Section(title string) {
	r.heading.Fprintf(r.w, "\n=== %s ===\n", title)
}

// Infof prints a plain progress line.
func (r *Reporter) Infof(format string, args ...any) {
	fmt.Fprintf(r.w, format+"\n", args...)
}

// Detailf prints an indented continuation line.
func (r *Reporter) Detailf(format string, args ...any) {
	fmt.Fprintf(r.w, "   "+format+"\n", args...)
}

func (r *Reporter) Successf(format string, args ...any) {
	r.ok.Fprintf(r.w, SymbolOK+" "+format+"\n", args...)
}

func (r *Reporter) Failuref(format string, args ...any) {
	r.fail.Fprintf(r.w, SymbolFail+" "+format+"\n", args...)
}

func (r *Reporter) Warnf(format string, args ...any) {
	r.warn.Fprintf(r.w, SymbolWarn+" "+format+"\n", args...)
}

func (r *Reporter) Unknownf(format string, args ...any) {
	r.unknown.Fprintf(r.w, SymbolUnknown+" "+format+"\n", args...)
}

// Field is one labelled value of a banner
type Field struct {
	Label string
	Value string
}

// F builds a Field.
func F(label, value string) Field {
	return Field{Label: label, Value: value}
}
