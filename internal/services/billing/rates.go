package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateSnapshot is the set of rates a bill is priced with.
type RateSnapshot struct {
	GoldRate   decimal.Decimal `json:"gold_rate"`
	SilverRate decimal.Decimal `json:"silver_rate"`
	GSTRate    decimal.Decimal `json:"gst_rate"`
}

type RateProvider interface {
	RateSnapshot(ctx context.Context) (RateSnapshot, error)
}
