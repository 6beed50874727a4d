package normalize

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/etl/backend/internal/etl/batch"
)

// RateFetcher supplies live FX rates. Rates are multipliers that convert an
// amount in the keyed currency into the base currency.
type RateFetcher interface {
	FetchRates(ctx context.Context, base string) (map[string]float64, error)
}

// CurrencyOptions configures NormalizeCurrency.
type CurrencyOptions struct {
	AmountColumn   string
	CurrencyColumn string

	// Rates maps currency code to the multiplier into TargetCurrency.
	// When empty and a currency column exists, rates are fetched live via
	// Fetcher; a fetch failure degrades to an empty map (rate 1.0 for
	// everything) and is never surfaced to the caller.
	Rates          map[string]float64
	TargetCurrency string
	Fetcher        RateFetcher
	Logger         *zap.Logger
}

// currencySymbolRE strips everything that is not a digit, dot or minus sign
// before parsing an amount string.
var currencySymbolRE = regexp.MustCompile(`[^0-9.\-]`)

// ParseAmount parses a cell that may hold a number or a symbol-prefixed
// amount string. It returns false for unparseable or missing cells.
func ParseAmount(v any) (float64, bool) {
	if batch.Missing(v) {
		return 0, false
	}
	switch t := v.(type) {
	case float64, float32, int, int64:
		return batch.AsFloat(t)
	case string:
		s := currencySymbolRE.ReplaceAllString(strings.TrimSpace(t), "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// NormalizeCurrency parses the amount column and writes a
// "<amount>_normalized" column holding the amount converted into the target
// currency. Without a currency column, amounts are assumed to already be in
// the target currency and pass through unconverted. Unparseable amounts
// normalize to nil.
func NormalizeCurrency(ctx context.Context, b batch.Batch, opts CurrencyOptions) batch.Batch {
	out := b.Clone()
	outCol := opts.AmountColumn + "_normalized"

	hasCurrency := opts.CurrencyColumn != "" && out.HasColumn(opts.CurrencyColumn)

	rates := opts.Rates
	if len(rates) == 0 && hasCurrency && opts.Fetcher != nil {
		fetched, err := opts.Fetcher.FetchRates(ctx, opts.TargetCurrency)
		if err != nil {
			// Degrade gracefully: no rates means rate 1.0 for everything.
			if opts.Logger != nil {
				opts.Logger.Warn("FX rate fetch failed; proceeding without conversion",
					zap.String("target_currency", opts.TargetCurrency),
					zap.Error(err))
			}
		} else {
			rates = fetched
			if opts.Logger != nil {
				opts.Logger.Info("fetched FX rates for currency normalization",
					zap.Int("rates", len(rates)))
			}
		}
	}

	for _, rec := range out {
		amount, ok := ParseAmount(rec[opts.AmountColumn])
		if !ok {
			rec[outCol] = nil
			continue
		}
		if !hasCurrency {
			rec[outCol] = amount
			continue
		}
		rate := 1.0
		if code, ok := batch.AsString(rec[opts.CurrencyColumn]); ok {
			if r, ok := rates[code]; ok {
				rate = r
			}
		}
		rec[outCol] = amount * rate
	}
	return out
}
