// Package quality implements the rule-based fraud scoring and business
// validation stage. Quality findings are informational: they annotate
// records with scores and issue lists but never drop a row or raise.
package quality

import (
	"strings"

	"github.com/etl/backend/internal/etl/batch"
	"github.com/etl/backend/internal/etl/normalize"
)

// disposableEmailDomains are always treated as suspicious.
var disposableEmailDomains = map[string]struct{}{
	"mailinator.com":   {},
	"10minutemail.com": {},
	"tempmail.com":     {},
	"trashmail.com":    {},
}

// Fraud rule weights. Scores are additive with no cap; a record is flagged
// at fraudFlagThreshold or above.
const (
	scoreHighValue       = 3
	scoreCountryMismatch = 2
	scoreDisposableEmail = 3
	scoreMissingIdentity = 1

	fraudFlagThreshold = 4
)

// FraudOptions configures FlagFraud.
type FraudOptions struct {
	// HighValueThreshold is the order total at which the high-value rule
	// fires. Zero selects the default of 1000.
	HighValueThreshold float64

	// ExtraSuspiciousDomains extends the built-in disposable-domain set.
	ExtraSuspiciousDomains []string
}

// FlagFraud scores each record against the fraud rules and writes
// fraud_score and fraud_flag columns on a copy of the batch. Missing
// optional fields simply leave their rule unscored.
func FlagFraud(b batch.Batch, opts FraudOptions) batch.Batch {
	threshold := opts.HighValueThreshold
	if threshold == 0 {
		threshold = 1000
	}

	suspicious := make(map[string]struct{}, len(disposableEmailDomains)+len(opts.ExtraSuspiciousDomains))
	for d := range disposableEmailDomains {
		suspicious[d] = struct{}{}
	}
	for _, d := range opts.ExtraSuspiciousDomains {
		suspicious[strings.ToLower(d)] = struct{}{}
	}

	out := b.Clone()
	for _, rec := range out {
		score := 0

		// High-value order; an unparseable or missing total counts as 0.
		total, ok := normalize.ParseAmount(rec["order_total"])
		if ok && total >= threshold {
			score += scoreHighValue
		}

		// Shipping vs billing country mismatch, only when both present.
		ship, shipOK := batch.AsString(rec["shipping_country"])
		bill, billOK := batch.AsString(rec["billing_country"])
		if shipOK && billOK && ship != "" && bill != "" && ship != bill {
			score += scoreCountryMismatch
		}

		if domain, ok := emailDomain(rec["email"]); ok {
			if _, bad := suspicious[domain]; bad {
				score += scoreDisposableEmail
			}
		}

		if batch.Falsy(rec["billing_name"]) || batch.Falsy(rec["billing_address"]) {
			score += scoreMissingIdentity
		}

		rec["fraud_score"] = score
		rec["fraud_flag"] = score >= fraudFlagThreshold
	}
	return out
}

// emailDomain extracts the lowercased domain from an email cell. Addresses
// without exactly one '@' are malformed and never match.
func emailDomain(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "", false
	}
	return strings.ToLower(parts[1]), true
}
