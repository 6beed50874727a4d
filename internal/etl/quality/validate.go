package quality

import (
	"math"
	"regexp"

	"github.com/etl/backend/internal/etl/batch"
)

// Issue codes produced by the validators.
const (
	IssueMissingPrefix      = "missing_"
	IssueInvalidStatus      = "invalid_status:"
	IssueInvalidEmail       = "invalid_email"
	IssueNegativeOrderTotal = "negative_order_total"
	IssueInvalidOrderTotal  = "invalid_order_total"
)

// emailRE is the basic local@domain.tld shape check, anchored at the start
// of the value.
var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+`)

// defaultRequiredFields are checked when the caller supplies none.
var defaultRequiredFields = []string{"order_id", "customer_id", "order_date", "order_total"}

// defaultAllowedStatuses are accepted when the caller supplies none.
var defaultAllowedStatuses = []string{"paid", "pending", "refunded", "cancelled"}

// ValidateOptions configures ValidateOrders.
type ValidateOptions struct {
	RequiredFields  []string
	AllowedStatuses []string
}

// ValidateOrders collects business-rule issue codes per record and writes
// them into a validation_issues column on a copy of the batch. An empty
// list means the record passed. This stage never rejects records; callers
// decide what to do with issues.
func ValidateOrders(b batch.Batch, opts ValidateOptions) batch.Batch {
	required := opts.RequiredFields
	if len(required) == 0 {
		required = defaultRequiredFields
	}
	allowed := make(map[string]struct{})
	statuses := opts.AllowedStatuses
	if len(statuses) == 0 {
		statuses = defaultAllowedStatuses
	}
	for _, s := range statuses {
		allowed[s] = struct{}{}
	}

	out := b.Clone()
	for _, rec := range out {
		issues := []string{}

		for _, f := range required {
			v := rec[f]
			// A literal zero is a present value, not a missing one; this
			// matters for numeric totals.
			if batch.Falsy(v) && !isZero(v) {
				issues = append(issues, IssueMissingPrefix+f)
			}
		}

		if status, ok := batch.AsString(rec["status"]); ok && status != "" {
			if _, ok := allowed[status]; !ok {
				issues = append(issues, IssueInvalidStatus+status)
			}
		}

		if email, ok := rec["email"].(string); ok && email != "" {
			if !emailRE.MatchString(email) {
				issues = append(issues, IssueInvalidEmail)
			}
		}

		rec["validation_issues"] = issues
	}
	return out
}

// isZero reports whether a value is the numeric literal zero (booleans
// count, matching loose provider payload semantics).
func isZero(v any) bool {
	switch t := v.(type) {
	case float64:
		return t == 0 && !math.IsNaN(t)
	case int:
		return t == 0
	case int64:
		return t == 0
	case bool:
		return !t
	default:
		return false
	}
}
