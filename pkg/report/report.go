// Package report provides a severity-ranked, hierarchically categorized
// collection of validation issues.
package report

import (
	"fmt"
	"strings"
)

// Severity indicates the importance of an issue
type Severity int

const (
	None Severity = iota
	Info
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case None:
		return "None"
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// ParseSeverity converts a string to a Severity
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "none":
		return None, nil
	case "info":
		return Info, nil
	case "warning", "warn":
		return Warning, nil
	case "error":
		return Error, nil
	default:
		return None, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Issue is a single finding. Subject and ViewData are opaque to this package;
// callers use them to link an issue back to the object it concerns.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Subject  any      `json:"-"`
	ViewData any      `json:"-"`
}

// NewIssue creates an issue without view data.
func NewIssue(severity Severity, message string, subject any) Issue {
	return Issue{Severity: severity, Message: message, Subject: subject}
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s", i.Severity, i.Message)
}

// Report is a category of issues with nested sub-reports.
type Report struct {
	Category   string    `json:"category"`
	Issues     []Issue   `json:"issues,omitempty"`
	SubReports []*Report `json:"subReports,omitempty"`
}

// New creates a report.
func New(category string, issues []Issue, subReports ...*Report) *Report {
	return &Report{Category: category, Issues: issues, SubReports: subReports}
}

// Add appends issues to this report.
func (r *Report) Add(issues ...Issue) {
	r.Issues = append(r.Issues, issues...)
}

// AddSubReport nests sub under this report.
func (r *Report) AddSubReport(sub *Report) {
	if sub != nil {
		r.SubReports = append(r.SubReports, sub)
	}
}

// Severity returns the highest severity found in this report and its
// sub-reports, or None when there are no issues.
func (r *Report) Severity() Severity {
	highest := None
	r.walk(func(i Issue) {
		if i.Severity > highest {
			highest = i.Severity
		}
	})
	return highest
}

// ErrorCount counts Error issues recursively.
func (r *Report) ErrorCount() int { return r.count(Error) }

// WarningCount counts Warning issues recursively.
func (r *Report) WarningCount() int { return r.count(Warning) }

// InfoCount counts Info issues recursively.
func (r *Report) InfoCount() int { return r.count(Info) }

// AllIssues returns every issue of this report and its sub-reports,
// depth first, own issues before sub-report issues.
func (r *Report) AllIssues() []Issue {
	var out []Issue
	r.walk(func(i Issue) { out = append(out, i) })
	return out
}

// AllErrors returns every Error issue recursively.
func (r *Report) AllErrors() []Issue {
	return r.IssuesBySeverity(Error)
}

// IssuesBySeverity returns the issues of one severity recursively.
func (r *Report) IssuesBySeverity(severity Severity) []Issue {
	var out []Issue
	r.walk(func(i Issue) {
		if i.Severity == severity {
			out = append(out, i)
		}
	})
	return out
}

// IsEmpty reports whether the report holds no issues at any depth.
func (r *Report) IsEmpty() bool {
	return len(r.AllIssues()) == 0
}

// Format renders the report as indented text, one issue per line.
func (r *Report) Format() string {
	var sb strings.Builder
	r.format(&sb, 0)
	return sb.String()
}

func (r *Report) format(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%s%s (%s)\n", indent, r.Category, r.Severity())
	for _, issue := range r.Issues {
		fmt.Fprintf(sb, "%s  %s\n", indent, issue)
	}
	for _, sub := range r.SubReports {
		sub.format(sb, depth+1)
	}
}

func (r *Report) count(severity Severity) int {
	n := 0
	r.walk(func(i Issue) {
		if i.Severity == severity {
			n++
		}
	})
	return n
}

func (r *Report) walk(fn func(Issue)) {
	if r == nil {
		return
	}
	for _, issue := range r.Issues {
		fn(issue)
	}
	for _, sub := range r.SubReports {
		sub.walk(fn)
	}
}
