// Package output handles CLI output formatting including verbose mode,
// progress indicators and filename breakdowns.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"hukudok/internal/codec"
)

// DefaultProgressMessage prefixes progress lines when no message is given.
const DefaultProgressMessage = "Encoding document"

// defaultLineWidth is cleared when the terminal width is unknown.
const defaultLineWidth = 60

// Config holds output configuration.
type Config struct {
	Verbose   bool      // Enable verbose output
	Writer    io.Writer // Output destination (default: os.Stdout)
	ErrWriter io.Writer // Error output destination (default: os.Stderr)
	IsTTY     bool      // Whether output is a terminal
	Width     int       // Terminal width in columns, 0 if unknown
}

// Output handles formatted output with verbose and progress support. It is
// safe for concurrent use by batch workers.
type Output struct {
	config          Config
	progressActive  bool
	progressTotal   int
	progressCurrent int
	progressMessage string
	mu              sync.Mutex
}

// New creates a new Output instance with the given configuration.
func New(config Config) *Output {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}
	return &Output{config: config}
}

// DefaultConfig returns a Config for stdout with terminal detection.
func DefaultConfig() Config {
	fd := int(os.Stdout.Fd())
	config := Config{
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		IsTTY:     term.IsTerminal(fd),
	}
	if config.IsTTY {
		if width, _, err := term.GetSize(fd); err == nil {
			config.Width = width
		}
	}
	return config
}

func line(format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return msg
}

// Verbose prints a message only when verbose mode is enabled.
func (o *Output) Verbose(format string, args ...interface{}) {
	if !o.config.Verbose {
		return
	}
	o.print(o.config.Writer, line(format, args...))
}

// Info prints an informational message (always shown).
func (o *Output) Info(format string, args ...interface{}) {
	o.print(o.config.Writer, line(format, args...))
}

// Warn prints a warning to stderr.
func (o *Output) Warn(format string, args ...interface{}) {
	o.print(o.config.ErrWriter, "warning: "+line(format, args...))
}

// Error prints an error message to stderr.
func (o *Output) Error(format string, args ...interface{}) {
	o.print(o.config.ErrWriter, line(format, args...))
}

// print writes msg below an active progress line and redraws it.
func (o *Output) print(w io.Writer, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	showing := o.progressActive && o.config.IsTTY
	if showing {
		o.clearLine()
	}
	fmt.Fprint(w, msg)
	if showing && o.progressCurrent > 0 {
		o.drawProgress()
	}
}

func (o *Output) clearLine() {
	width := o.config.Width
	if width <= 0 {
		width = defaultLineWidth
	}
	fmt.Fprint(o.config.Writer, "\r"+strings.Repeat(" ", width-1)+"\r")
}

func (o *Output) progressEnabled() bool {
	return o.config.IsTTY && !o.config.Verbose
}

// StartProgress begins a progress indicator session for total documents.
// Progress is shown only on a terminal and never in verbose mode.
func (o *Output) StartProgress(total int, message string) {
	if !o.progressEnabled() {
		return
	}
	if message == "" {
		message = DefaultProgressMessage
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progressActive = true
	o.progressTotal = total
	o.progressCurrent = 0
	o.progressMessage = message
}

// UpdateProgress redraws the indicator for the current document count. It
// has the signature of a batch progress callback.
func (o *Output) UpdateProgress(current, total int) {
	if !o.progressEnabled() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.progressActive {
		return
	}
	o.progressCurrent = current
	if total > 0 {
		o.progressTotal = total
	}
	o.drawProgress()
}

func (o *Output) drawProgress() {
	fmt.Fprintf(o.config.Writer, "\r%s %d/%d...", o.progressMessage, o.progressCurrent, o.progressTotal)
}

// EndProgress clears the progress indicator.
func (o *Output) EndProgress() {
	if !o.progressEnabled() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.progressActive {
		return
	}
	o.progressActive = false
	o.clearLine()
}

// Fields prints label/value pairs with the values aligned.
func (o *Output) Fields(pairs ...[2]string) {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}
	var b strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&b, "  %-*s  %s\n", width+1, p[0]+":", p[1])
	}
	o.print(o.config.Writer, b.String())
}

// Breakdown prints every segment of f under its field name. Segments holding
// their field's sentinel are marked as empty.
func (o *Output) Breakdown(f codec.Filename) {
	pairs := make([][2]string, 0, len(f.Segments))
	for _, s := range f.Segments {
		value := s.Text
		if rule, ok := codec.RuleFor(s.Field); ok && rule.Sentinel != "" && s.Text == rule.Sentinel {
			value += " (empty)"
		}
		pairs = append(pairs, [2]string{string(s.Field), value})
	}
	o.Fields(pairs...)
}

// IsVerbose returns whether verbose mode is enabled.
func (o *Output) IsVerbose() bool {
	return o.config.Verbose
}

// IsTTY returns whether the output is a terminal.
func (o *Output) IsTTY() bool {
	return o.config.IsTTY
}
