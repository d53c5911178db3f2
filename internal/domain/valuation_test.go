package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, expected string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, d(expected).Equal(got), "%s: expected %s, got %s", msg, expected, got)
}

func testRate() *ExchangeRate {
	return &ExchangeRate{Buy: d("900"), Sell: d("1000")}
}

func testHoldings() []Holding {
	return []Holding{
		{PortfolioID: "pf-1", AssetSymbol: "GGAL", Currency: CurrencyARS, Quantity: d("10"), AverageCost: d("1000")},
		{PortfolioID: "pf-1", AssetSymbol: "AAPL", Currency: CurrencyUSD, Quantity: d("2"), AverageCost: d("150")},
	}
}

func TestValuePortfolio_TwoCurrencies(t *testing.T) {
	prices := map[string]LivePrice{
		"GGAL": {Amount: d("1200")},
		"AAPL": {Amount: d("200")},
	}

	vp, err := ValuePortfolio(testHoldings(), prices, testRate())
	require.NoError(t, err)
	require.Len(t, vp.Positions, 2)
	assert.False(t, vp.NativeOnly)

	ggal := vp.Positions[0]
	assert.Equal(t, CurrencyARS, ggal.Currency)
	assertDec(t, "12000", ggal.CurrentValue, "ggal value")
	assertDec(t, "10000", ggal.CostBasis, "ggal cost")
	assertDec(t, "2000", ggal.Gain, "ggal gain")
	assertDec(t, "20", ggal.GainPct, "ggal gain pct")
	assertDec(t, "12000", ggal.ValueARS, "ggal ARS")
	assertDec(t, "12", ggal.ValueUSD, "ggal USD")
	assertDec(t, "2", ggal.GainUSD, "ggal gain USD")

	aapl := vp.Positions[1]
	assertDec(t, "400", aapl.CurrentValue, "aapl value")
	assertDec(t, "360000", aapl.ValueARS, "aapl ARS")
	assertDec(t, "270000", aapl.CostBasisARS, "aapl cost ARS")
	assertDec(t, "90000", aapl.GainARS, "aapl gain ARS")

	assertDec(t, "372000", vp.TotalValueARS, "total ARS")
	assertDec(t, "412", vp.TotalValueUSD, "total USD")
	assertDec(t, "92000", vp.TotalGainARS, "total gain ARS")
	assertDec(t, "102", vp.TotalGainUSD, "total gain USD")

	shares := ggal.PortfolioSharePct.Add(aapl.PortfolioSharePct)
	assertDec(t, "100", shares.Round(8), "shares sum")
	assert.True(t, aapl.PortfolioSharePct.GreaterThan(ggal.PortfolioSharePct))
}

func TestValuePortfolio_USDPeggedInstrument(t *testing.T) {
	holdings := []Holding{
		{AssetSymbol: "AL30", Currency: CurrencyARS, Quantity: d("100"), AverageCost: d("1000")},
	}
	prices := map[string]LivePrice{"AL30": {Amount: d("1.1"), Currency: CurrencyUSD}}

	vp, err := ValuePortfolio(holdings, prices, testRate())
	require.NoError(t, err)

	pos := vp.Positions[0]
	assert.Equal(t, CurrencyUSD, pos.Currency)
	assert.Equal(t, CurrencyARS, pos.CostCurrency)
	assertDec(t, "110", pos.ValueUSD, "value stays USD-native")
	assertDec(t, "99000", pos.ValueARS, "value ARS")
	assertDec(t, "100000", pos.CostBasisARS, "cost stays ARS-native")
	assertDec(t, "100", pos.CostBasisUSD, "cost USD")
	assertDec(t, "10", pos.Gain, "gain in value currency")
	assertDec(t, "10", pos.GainPct, "gain pct")
	assertDec(t, "100", pos.PortfolioSharePct, "single position share")
}

func TestValuePortfolio_MissingRateFallsBackToNative(t *testing.T) {
	prices := map[string]LivePrice{
		"GGAL": {Amount: d("1200")},
		"AAPL": {Amount: d("200")},
	}

	vp, err := ValuePortfolio(testHoldings(), prices, nil)
	require.ErrorIs(t, err, ErrMissingExchangeRate)
	require.NotNil(t, vp)
	assert.True(t, vp.NativeOnly)

	assertDec(t, "12000", vp.TotalValueARS, "ARS-native total")
	assertDec(t, "400", vp.TotalValueUSD, "USD-native total")
	assertDec(t, "2000", vp.Positions[0].Gain, "native gain")
	assertDec(t, "0", vp.Positions[0].ValueUSD, "no conversion")
	assertDec(t, "100", vp.Positions[0].PortfolioSharePct, "share within ARS group")
	assertDec(t, "100", vp.Positions[1].PortfolioSharePct, "share within USD group")
}

func TestValuePortfolio_ZeroHoldings(t *testing.T) {
	vp, err := ValuePortfolio(nil, nil, testRate())
	require.NoError(t, err)
	assert.Empty(t, vp.Positions)
	assert.True(t, vp.TotalValueARS.IsZero())
	assert.True(t, vp.TotalValueUSD.IsZero())

	// No rate and nothing to value is not an error.
	_, err = ValuePortfolio(nil, nil, nil)
	assert.NoError(t, err)

	closed := []Holding{{AssetSymbol: "GGAL", Currency: CurrencyARS, Quantity: decimal.Zero, AverageCost: d("100")}}
	vp, err = ValuePortfolio(closed, map[string]LivePrice{}, testRate())
	require.NoError(t, err)
	assert.Empty(t, vp.Positions)
}

func TestValuePortfolio_ZeroTotalValue(t *testing.T) {
	holdings := []Holding{{AssetSymbol: "GGAL", Currency: CurrencyARS, Quantity: d("5"), AverageCost: decimal.Zero}}

	vp, err := ValuePortfolio(holdings, map[string]LivePrice{"GGAL": {Amount: decimal.Zero}}, testRate())
	require.NoError(t, err)
	assert.True(t, vp.Positions[0].PortfolioSharePct.IsZero())
	assert.True(t, vp.Positions[0].GainPct.IsZero())
}

func TestValuePortfolio_Errors(t *testing.T) {
	_, err := ValuePortfolio(testHoldings(), map[string]LivePrice{"GGAL": {Amount: d("1")}}, testRate())
	assert.ErrorIs(t, err, ErrMissingPrice)

	_, err = ValuePortfolio(testHoldings(), nil, &ExchangeRate{Buy: d("0"), Sell: d("1")})
	assert.ErrorIs(t, err, ErrInvalidExchangeRate)
}
