package quality

import (
	"fmt"
	"strings"

	"github.com/etl/backend/internal/etl/batch"
)

// The list-level validators run against raw-ish record lists before
// normalization, keyed by identifier rather than full batch columns. They
// are a lighter-weight, pre-load sanity pass.

// CheckOrders validates a list of raw order records. A required field is
// missing when absent, nil, or a blank string.
func CheckOrders(orders []batch.Record, requiredFields []string) []RecordIssues {
	if len(requiredFields) == 0 {
		requiredFields = defaultRequiredFields
	}

	results := make([]RecordIssues, 0, len(orders))
	for idx, o := range orders {
		issues := []string{}
		for _, f := range requiredFields {
			if blankField(o, f) {
				issues = append(issues, IssueMissingPrefix+f)
			}
		}

		if v, ok := o["order_total"]; ok && v != nil {
			if total, ok := batch.AsFloat(v); !ok {
				issues = append(issues, IssueInvalidOrderTotal)
			} else if total < 0 {
				issues = append(issues, IssueNegativeOrderTotal)
			}
		}

		results = append(results, RecordIssues{ID: recordID(o, "order_id", idx), Issues: issues})
	}
	return results
}

// CheckCustomers validates a list of raw customer records.
func CheckCustomers(customers []batch.Record) []RecordIssues {
	results := make([]RecordIssues, 0, len(customers))
	for idx, c := range customers {
		issues := []string{}
		if blankField(c, "customer_id") {
			issues = append(issues, IssueMissingPrefix+"customer_id")
		}
		if email, ok := c["email"].(string); ok && email != "" && !strings.Contains(email, "@") {
			issues = append(issues, IssueInvalidEmail)
		}
		results = append(results, RecordIssues{ID: recordID(c, "customer_id", idx), Issues: issues})
	}
	return results
}

// CheckTransactions validates a list of raw transaction records. A zero
// amount is present; only absent/nil amounts are flagged.
func CheckTransactions(transactions []batch.Record) []RecordIssues {
	results := make([]RecordIssues, 0, len(transactions))
	for idx, t := range transactions {
		issues := []string{}
		if blankField(t, "transaction_id") {
			issues = append(issues, IssueMissingPrefix+"transaction_id")
		}
		if v, ok := t["amount"]; !ok || v == nil {
			issues = append(issues, IssueMissingPrefix+"amount")
		}
		results = append(results, RecordIssues{ID: recordID(t, "transaction_id", idx), Issues: issues})
	}
	return results
}

func blankField(rec batch.Record, field string) bool {
	v, ok := rec[field]
	if !ok || v == nil {
		return true
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return true
	}
	return false
}

func recordID(rec batch.Record, key string, idx int) string {
	if id, ok := batch.AsString(rec[key]); ok && id != "" {
		return id
	}
	return fmt.Sprintf("idx:%d", idx)
}
