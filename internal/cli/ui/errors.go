package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/conduit-lang/rtti/internal/snapshot"
	"github.com/conduit-lang/rtti/pkg/rtti"
	"github.com/conduit-lang/rtti/pkg/serial"
	"github.com/fatih/color"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message is a formatted diagnostic
//
// Example output:
//
//	❌ TYPE NOT FOUND: Buton
//	   No registered type is named 'Buton'.
//
//	   Did you mean: Button?
//
//	   → List registered types: rtti types
type Message struct {
	Level       Level
	Context     string
	Problem     string
	Detail      string
	Suggestions []string
	Help        []string
}

// Format renders the message
func (m Message) Format(noColor bool) string {
	var b strings.Builder

	var head, body *color.Color
	var symbol string
	switch m.Level {
	case LevelWarning:
		head, body, symbol = palette(noColor, color.FgYellow, color.Bold), palette(noColor, color.FgYellow), "⚠️"
	case LevelInfo:
		head, body, symbol = palette(noColor, color.FgCyan, color.Bold), palette(noColor, color.FgCyan), "ℹ️"
	default:
		head, body, symbol = palette(noColor, color.FgRed, color.Bold), palette(noColor, color.FgRed), "❌"
	}

	if m.Context != "" {
		head.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		head.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}
	if m.Detail != "" {
		for _, line := range strings.Split(m.Detail, "\n") {
			body.Fprintf(&b, "   %s\n", line)
		}
	}
	if len(m.Suggestions) > 0 {
		b.WriteString("\n")
		palette(noColor, color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}
	if len(m.Help) > 0 {
		b.WriteString("\n")
		cyan := palette(noColor, color.FgCyan)
		for _, h := range m.Help {
			cyan.Fprintf(&b, "   → %s\n", h)
		}
	}
	return b.String()
}

// WriteError writes err as a diagnostic
func WriteError(w io.Writer, err error, noColor bool) {
	fmt.Fprint(w, Explain(err).Format(noColor))
}

// WriteSuccess writes a success line
func WriteSuccess(w io.Writer, message string, noColor bool) {
	palette(noColor, color.FgGreen, color.Bold).Fprintf(w, "✓ %s\n", message)
}

// TypeNotFound describes a type lookup miss
func TypeNotFound(name string, known []string) Message {
	return Message{
		Context:     "type not found",
		Problem:     name,
		Detail:      fmt.Sprintf("No registered type is named '%s'.", name),
		Suggestions: Suggest(name, known),
		Help:        []string{"List registered types: rtti types"},
	}
}

// Explain maps an error to a diagnostic with hints for the known kinds
func Explain(err error) Message {
	m := Message{Problem: err.Error()}

	var se *serial.StreamError
	switch {
	case serial.IsCircularReference(err):
		m.Context = "circular reference"
		m.Problem = "strong references form a cycle"
		m.Detail = cycleDetail(err)
		m.Help = []string{"Mark one edge of each cycle as weak with rtti.Weak()"}
	case serial.IsSchemaTooNew(err):
		m.Context = "schema too new"
		m.Help = []string{"The stream was written by a newer build; upgrade before decoding"}
	case serial.IsUnknownTypeID(err):
		m.Context = "unknown type"
		m.Help = []string{"List registered types: rtti types", "Show the stream records: rtti inspect <file>"}
	case serial.IsTruncated(err):
		m.Context = "truncated stream"
		m.Help = []string{"Show what could be parsed: rtti inspect <file>"}
	case errors.As(err, &se):
		m.Context = "invalid stream"
	case errors.Is(err, snapshot.ErrNotFound):
		m.Context = "snapshot not found"
		m.Help = []string{"List stored snapshots: rtti snapshot list"}
	case errors.Is(err, snapshot.ErrChecksumMismatch):
		m.Context = "corrupt snapshot"
	case rtti.IsRegistrationError(err):
		m.Context = "registration"
	}
	return m
}

// cycleDetail keeps the per-cycle lines of a circular reference error
func cycleDetail(err error) string {
	var lines []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "Cycle ") {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return strings.Join(lines, "\n")
}
