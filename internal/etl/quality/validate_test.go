package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etl/backend/internal/etl/batch"
)

func validOrder() batch.Record {
	return batch.Record{
		"order_id":    "o1",
		"customer_id": "c1",
		"order_date":  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"order_total": 25.0,
		"status":      "paid",
		"email":       "buyer@example.com",
	}
}

func issuesOf(t *testing.T, rec batch.Record) []string {
	t.Helper()
	issues, ok := rec["validation_issues"].([]string)
	require.True(t, ok, "validation_issues column missing")
	return issues
}

func TestValidateOrders_ValidRecordPasses(t *testing.T) {
	out := ValidateOrders(batch.Batch{validOrder()}, ValidateOptions{})
	assert.Empty(t, issuesOf(t, out[0]))
}

func TestValidateOrders_MissingRequiredFields(t *testing.T) {
	rec := validOrder()
	rec["order_id"] = nil
	delete(rec, "customer_id")

	out := ValidateOrders(batch.Batch{rec}, ValidateOptions{})

	issues := issuesOf(t, out[0])
	assert.Contains(t, issues, "missing_order_id")
	assert.Contains(t, issues, "missing_customer_id")
}

func TestValidateOrders_ZeroTotalIsNotMissing(t *testing.T) {
	rec := validOrder()
	rec["order_total"] = 0.0

	out := ValidateOrders(batch.Batch{rec}, ValidateOptions{})
	assert.Empty(t, issuesOf(t, out[0]))
}

func TestValidateOrders_EmptyStringIsMissing(t *testing.T) {
	rec := validOrder()
	rec["order_id"] = ""

	out := ValidateOrders(batch.Batch{rec}, ValidateOptions{})
	assert.Contains(t, issuesOf(t, out[0]), "missing_order_id")
}

func TestValidateOrders_InvalidStatus(t *testing.T) {
	rec := validOrder()
	rec["status"] = "shipped"

	out := ValidateOrders(batch.Batch{rec}, ValidateOptions{})
	assert.Contains(t, issuesOf(t, out[0]), "invalid_status:shipped")
}

func TestValidateOrders_CustomStatuses(t *testing.T) {
	rec := validOrder()
	rec["status"] = "shipped"

	out := ValidateOrders(batch.Batch{rec}, ValidateOptions{
		AllowedStatuses: []string{"shipped"},
	})
	assert.Empty(t, issuesOf(t, out[0]))
}

func TestValidateOrders_AbsentStatusSkipsRule(t *testing.T) {
	rec := validOrder()
	delete(rec, "status")

	out := ValidateOrders(batch.Batch{rec}, ValidateOptions{})
	assert.Empty(t, issuesOf(t, out[0]))
}

func TestValidateOrders_InvalidEmail(t *testing.T) {
	tests := []struct {
		email string
		bad   bool
	}{
		{"buyer@example.com", false},
		{"no-at-sign", true},
		{"x@nodot", true},
		{"a b@example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			rec := validOrder()
			rec["email"] = tt.email

			out := ValidateOrders(batch.Batch{rec}, ValidateOptions{})
			if tt.bad {
				assert.Contains(t, issuesOf(t, out[0]), IssueInvalidEmail)
			} else {
				assert.Empty(t, issuesOf(t, out[0]))
			}
		})
	}
}

func TestValidateOrders_CustomRequiredFields(t *testing.T) {
	rec := batch.Record{"order_id": "o1"}

	out := ValidateOrders(batch.Batch{rec}, ValidateOptions{
		RequiredFields: []string{"order_id"},
	})
	assert.Empty(t, issuesOf(t, out[0]))
}

func TestValidateOrders_DoesNotMutateInput(t *testing.T) {
	b := batch.Batch{validOrder()}
	ValidateOrders(b, ValidateOptions{})

	_, ok := b[0]["validation_issues"]
	assert.False(t, ok)
}
