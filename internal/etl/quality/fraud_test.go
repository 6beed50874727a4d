package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/etl/backend/internal/etl/batch"
)

// cleanRecord passes every fraud rule
func cleanRecord() batch.Record {
	return batch.Record{
		"order_total":      50.0,
		"shipping_country": "US",
		"billing_country":  "US",
		"email":            "buyer@example.com",
		"billing_name":     "Jo Buyer",
		"billing_address":  map[string]any{"address1": "1 Main St"},
	}
}

func TestFlagFraud_CleanOrderScoresZero(t *testing.T) {
	out := FlagFraud(batch.Batch{cleanRecord()}, FraudOptions{})

	assert.Equal(t, 0, out[0]["fraud_score"])
	assert.Equal(t, false, out[0]["fraud_flag"])
}

func TestFlagFraud_HighValue(t *testing.T) {
	rec := cleanRecord()
	rec["order_total"] = 2000.0

	out := FlagFraud(batch.Batch{rec}, FraudOptions{})

	assert.Equal(t, 3, out[0]["fraud_score"])
	assert.Equal(t, false, out[0]["fraud_flag"])
}

func TestFlagFraud_HighValueThresholdInclusive(t *testing.T) {
	rec := cleanRecord()
	rec["order_total"] = 1000.0

	out := FlagFraud(batch.Batch{rec}, FraudOptions{})
	assert.Equal(t, 3, out[0]["fraud_score"])
}

func TestFlagFraud_CustomThreshold(t *testing.T) {
	rec := cleanRecord()
	rec["order_total"] = 200.0

	out := FlagFraud(batch.Batch{rec}, FraudOptions{HighValueThreshold: 100})
	assert.Equal(t, 3, out[0]["fraud_score"])
}

func TestFlagFraud_CountryMismatch(t *testing.T) {
	rec := cleanRecord()
	rec["billing_country"] = "GB"

	out := FlagFraud(batch.Batch{rec}, FraudOptions{})
	assert.Equal(t, 2, out[0]["fraud_score"])
}

func TestFlagFraud_CountryRuleSkippedWhenOneSideMissing(t *testing.T) {
	rec := cleanRecord()
	delete(rec, "billing_country")

	out := FlagFraud(batch.Batch{rec}, FraudOptions{})
	assert.Equal(t, 0, out[0]["fraud_score"])
}

func TestFlagFraud_DisposableEmail(t *testing.T) {
	rec := cleanRecord()
	rec["email"] = "buyer@Mailinator.com"

	out := FlagFraud(batch.Batch{rec}, FraudOptions{})
	assert.Equal(t, 3, out[0]["fraud_score"])
}

func TestFlagFraud_ExtraSuspiciousDomain(t *testing.T) {
	rec := cleanRecord()
	rec["email"] = "buyer@shady.example"

	out := FlagFraud(batch.Batch{rec}, FraudOptions{
		ExtraSuspiciousDomains: []string{"Shady.Example"},
	})
	assert.Equal(t, 3, out[0]["fraud_score"])
}

func TestFlagFraud_MissingIdentity(t *testing.T) {
	rec := cleanRecord()
	rec["billing_name"] = nil

	out := FlagFraud(batch.Batch{rec}, FraudOptions{})
	assert.Equal(t, 1, out[0]["fraud_score"])

	rec = cleanRecord()
	rec["billing_address"] = map[string]any{}

	out = FlagFraud(batch.Batch{rec}, FraudOptions{})
	assert.Equal(t, 1, out[0]["fraud_score"])
}

func TestFlagFraud_FlagsAtThreshold(t *testing.T) {
	// High value (3) plus missing identity (1) reaches the flag threshold
	rec := cleanRecord()
	rec["order_total"] = 5000.0
	rec["billing_name"] = ""

	out := FlagFraud(batch.Batch{rec}, FraudOptions{})

	assert.Equal(t, 4, out[0]["fraud_score"])
	assert.Equal(t, true, out[0]["fraud_flag"])
}

func TestFlagFraud_ScoresAreAdditive(t *testing.T) {
	rec := batch.Record{
		"order_total":      9999.0,
		"shipping_country": "US",
		"billing_country":  "RU",
		"email":            "x@tempmail.com",
	}

	out := FlagFraud(batch.Batch{rec}, FraudOptions{})

	// 3 (high value) + 2 (mismatch) + 3 (disposable) + 1 (no identity)
	assert.Equal(t, 9, out[0]["fraud_score"])
	assert.Equal(t, true, out[0]["fraud_flag"])
}

func TestFlagFraud_MalformedEmailNeverMatches(t *testing.T) {
	rec := cleanRecord()
	rec["email"] = "a@b@tempmail.com"

	out := FlagFraud(batch.Batch{rec}, FraudOptions{})
	assert.Equal(t, 0, out[0]["fraud_score"])
}

func TestFlagFraud_DoesNotMutateInput(t *testing.T) {
	b := batch.Batch{cleanRecord()}
	FlagFraud(b, FraudOptions{})

	_, ok := b[0]["fraud_score"]
	assert.False(t, ok)
}
