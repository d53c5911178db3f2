package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var t0 = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return t0.AddDate(0, 0, n)
}

func buy(id string, qty, price int64, at time.Time) Operation {
	return Operation{
		ID:          id,
		PortfolioID: "pf-1",
		AssetSymbol: "GGAL",
		Kind:        OperationBuy,
		Currency:    CurrencyARS,
		Quantity:    decimal.NewFromInt(qty),
		UnitPrice:   decimal.NewFromInt(price),
		ExecutedAt:  at,
	}
}

func sell(id string, qty, price int64, at time.Time) Operation {
	op := buy(id, qty, price, at)
	op.Kind = OperationSell
	return op
}

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}
