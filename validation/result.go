package validation

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Severity grades a single check result.
type Severity int

const (
	Good Severity = iota
	Info
	Warning
	Failed
)

func (s Severity) String() string {
	switch s {
	case Good:
		return "GOOD"
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Failed:
		return "FAILED"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

var severityStyles = map[Severity]lipgloss.Style{
	Good:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	Failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
}

// Result is the outcome of one check on one module version.
type Result struct {
	Check    string
	Severity Severity
	Message  string
}

// Report collects the results for one module version.
type Report struct {
	Module  string
	Results []Result
}

func (r *Report) add(check string, sev Severity, format string, args ...any) {
	r.Results = append(r.Results, Result{
		Check:    check,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Failed reports whether any result is Failed.
func (r *Report) Failed() bool {
	return r.Count(Failed) > 0
}

// Count returns the number of results with the given severity.
func (r *Report) Count(sev Severity) int {
	n := 0
	for _, res := range r.Results {
		if res.Severity == sev {
			n++
		}
	}
	return n
}

// Find returns the results of one check.
func (r *Report) Find(check string) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Check == check {
			out = append(out, res)
		}
	}
	return out
}

// Print writes one line per result.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "%s:\n", r.Module)
	for _, res := range r.Results {
		tag := severityStyles[res.Severity].Render("[" + res.Severity.String() + "]")
		fmt.Fprintf(w, "  %s %s: %s\n", tag, res.Check, res.Message)
	}
}
