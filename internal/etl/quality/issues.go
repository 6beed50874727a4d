package quality

import (
	"fmt"
	"strings"
)

// RecordIssues pairs a record identifier with the issue codes found on it.
// The identifier is the record's natural key, or "idx:<n>" when the source
// lacked one.
type RecordIssues struct {
	ID     string
	Issues []string
}

// Failed reports whether the record collected any issues.
func (r RecordIssues) Failed() bool {
	return len(r.Issues) > 0
}

// AggregateError is a single error enumerating every failing identifier
// and its issues, for callers that want hard-stop semantics from the
// list-level validators.
type AggregateError struct {
	// Name identifies the batch being validated (usually the staged file).
	Name    string
	Failing []RecordIssues
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "validation failed for %s:", e.Name)
	for _, r := range e.Failing {
		fmt.Fprintf(&sb, "\n%s: %s", r.ID, strings.Join(r.Issues, ", "))
	}
	return sb.String()
}

// FailOnIssues returns an AggregateError when any result carries issues,
// nil otherwise.
func FailOnIssues(results []RecordIssues, name string) error {
	var failing []RecordIssues
	for _, r := range results {
		if r.Failed() {
			failing = append(failing, r)
		}
	}
	if len(failing) == 0 {
		return nil
	}
	return &AggregateError{Name: name, Failing: failing}
}
