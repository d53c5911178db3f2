package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LivePrice is the current unit price of an asset. An empty Currency means
// the asset's native (traded) currency. A USD price for an ARS-traded
// instrument marks it as USD-pegged: its value is USD-native.
type LivePrice struct {
	Amount   decimal.Decimal
	Currency Currency
}

// ValuedPosition is one priced holding.
type ValuedPosition struct {
	AssetSymbol string
	// Currency is the currency CurrentValue, CostBasis and Gain are in.
	Currency          Currency
	CostCurrency      Currency
	Quantity          decimal.Decimal
	AverageCost       decimal.Decimal
	CostBasis         decimal.Decimal
	CurrentValue      decimal.Decimal
	Gain              decimal.Decimal
	GainPct           decimal.Decimal
	ValueARS          decimal.Decimal
	ValueUSD          decimal.Decimal
	CostBasisARS      decimal.Decimal
	CostBasisUSD      decimal.Decimal
	GainARS           decimal.Decimal
	GainUSD           decimal.Decimal
	PortfolioSharePct decimal.Decimal
}

// ValuedPortfolio is a priced snapshot of a set of holdings.
type ValuedPortfolio struct {
	Positions     []ValuedPosition
	TotalValueARS decimal.Decimal
	TotalValueUSD decimal.Decimal
	TotalGainARS  decimal.Decimal
	TotalGainUSD  decimal.Decimal
	Rate          *ExchangeRate
	// NativeOnly is set when no exchange rate was available. Each position
	// then carries figures only in its own currency and totals only sum
	// positions native to that currency.
	NativeOnly bool
}

// ValuePortfolio prices holdings with live prices and normalizes every
// figure into ARS and USD. Closed holdings are skipped. Each amount is
// converted exactly once, from its own native currency.
//
// When rate is nil the native-only snapshot is returned together with
// ErrMissingExchangeRate so the caller can still display it.
func ValuePortfolio(holdings []Holding, prices map[string]LivePrice, rate *ExchangeRate) (*ValuedPortfolio, error) {
	if rate != nil {
		if err := rate.Validate(); err != nil {
			return nil, err
		}
	}

	vp := &ValuedPortfolio{
		Positions:     []ValuedPosition{},
		TotalValueARS: decimal.Zero,
		TotalValueUSD: decimal.Zero,
		TotalGainARS:  decimal.Zero,
		TotalGainUSD:  decimal.Zero,
		Rate:          rate,
		NativeOnly:    rate == nil,
	}

	for _, h := range holdings {
		if h.IsClosed() {
			continue
		}

		price, ok := prices[h.AssetSymbol]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingPrice, h.AssetSymbol)
		}

		pos := valuePosition(h, price, rate)

		vp.TotalValueARS = vp.TotalValueARS.Add(pos.ValueARS)
		vp.TotalValueUSD = vp.TotalValueUSD.Add(pos.ValueUSD)
		vp.TotalGainARS = vp.TotalGainARS.Add(pos.GainARS)
		vp.TotalGainUSD = vp.TotalGainUSD.Add(pos.GainUSD)
		vp.Positions = append(vp.Positions, pos)
	}

	for i := range vp.Positions {
		pos := &vp.Positions[i]

		value, total := pos.ValueUSD, vp.TotalValueUSD
		if vp.NativeOnly && pos.Currency == CurrencyARS {
			value, total = pos.ValueARS, vp.TotalValueARS
		}
		pos.PortfolioSharePct = percent(value, total)
	}

	if vp.NativeOnly && len(vp.Positions) > 0 {
		return vp, ErrMissingExchangeRate
	}

	return vp, nil
}

func valuePosition(h Holding, price LivePrice, rate *ExchangeRate) ValuedPosition {
	valueCurrency := price.Currency
	if valueCurrency == "" {
		valueCurrency = h.Currency
	}

	pos := ValuedPosition{
		AssetSymbol:  h.AssetSymbol,
		Currency:     valueCurrency,
		CostCurrency: h.Currency,
		Quantity:     h.Quantity,
		AverageCost:  h.AverageCost,
		CostBasis:    decimal.Zero,
		CurrentValue: h.Quantity.Mul(price.Amount),
		Gain:         decimal.Zero,
		GainPct:      decimal.Zero,
		ValueARS:     decimal.Zero,
		ValueUSD:     decimal.Zero,
		CostBasisARS: decimal.Zero,
		CostBasisUSD: decimal.Zero,
		GainARS:      decimal.Zero,
		GainUSD:      decimal.Zero,
	}

	nativeCost := h.CostBasis()

	if rate == nil {
		setIn(&pos.ValueARS, &pos.ValueUSD, valueCurrency, pos.CurrentValue)
		setIn(&pos.CostBasisARS, &pos.CostBasisUSD, h.Currency, nativeCost)

		if valueCurrency == h.Currency {
			pos.CostBasis = nativeCost
			pos.Gain = pos.CurrentValue.Sub(nativeCost)
			pos.GainPct = gainPct(pos.Gain, nativeCost)
			setIn(&pos.GainARS, &pos.GainUSD, valueCurrency, pos.Gain)
		}

		return pos
	}

	pos.ValueARS = Convert(pos.CurrentValue, valueCurrency, CurrencyARS, *rate)
	pos.ValueUSD = Convert(pos.CurrentValue, valueCurrency, CurrencyUSD, *rate)
	pos.CostBasisARS = Convert(nativeCost, h.Currency, CurrencyARS, *rate)
	pos.CostBasisUSD = Convert(nativeCost, h.Currency, CurrencyUSD, *rate)
	pos.GainARS = pos.ValueARS.Sub(pos.CostBasisARS)
	pos.GainUSD = pos.ValueUSD.Sub(pos.CostBasisUSD)

	pos.CostBasis = Convert(nativeCost, h.Currency, valueCurrency, *rate)
	pos.Gain = pos.CurrentValue.Sub(pos.CostBasis)
	pos.GainPct = gainPct(pos.Gain, pos.CostBasis)

	return pos
}

func setIn(ars, usd *decimal.Decimal, currency Currency, amount decimal.Decimal) {
	if currency == CurrencyARS {
		*ars = amount
		return
	}
	*usd = amount
}

func gainPct(gain, cost decimal.Decimal) decimal.Decimal {
	if !cost.IsPositive() {
		return decimal.Zero
	}
	return gain.Div(cost).Mul(hundred)
}

func percent(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(hundred)
}
