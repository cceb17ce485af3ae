package datafeed

import (
	"errors"
	"testing"

	"dex-datafeed/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketStart(t *testing.T) {
	assert.Equal(t, int64(1080000), bucketStart(1100, 60))
	assert.Equal(t, int64(960000), bucketStart(1017, 60))
	assert.Equal(t, int64(0), bucketStart(59, 60))
	assert.Equal(t, int64(1704067200000), bucketStart(1704067200, 3600))
	assert.Equal(t, int64(-60000), bucketStart(-1, 60))
}

func TestMergeSameBucketUpdatesBar(t *testing.T) {
	cached := &models.MBar{Time: 1000000, Open: 10, High: 12, Low: 9, Close: 11}

	bar, isNew, err := Merge(cached, 1017, 60, 13)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, models.MBar{Time: 1000000, Open: 10, High: 13, Low: 9, Close: 13}, bar)

	// cached bar untouched
	assert.Equal(t, 12.0, cached.High)
}

func TestMergeLowerPrice(t *testing.T) {
	cached := &models.MBar{Time: 960000, Open: 10, High: 12, Low: 9, Close: 11}

	bar, isNew, err := Merge(cached, 1000, 60, 8)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, 8.0, bar.Low)
	assert.Equal(t, 12.0, bar.High)
	assert.Equal(t, 8.0, bar.Close)
	assert.Equal(t, 10.0, bar.Open)
}

func TestMergeNextBucketOpensBar(t *testing.T) {
	cached := &models.MBar{Time: 1000000, Open: 10, High: 12, Low: 9, Close: 11}

	bar, isNew, err := Merge(cached, 1100, 60, 14)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, models.MBar{Time: 1080000, Open: 14, High: 14, Low: 14, Close: 14}, bar)
}

func TestMergeWithoutSeedFails(t *testing.T) {
	_, _, err := Merge(nil, 1100, 60, 14)
	assert.True(t, errors.Is(err, ErrNoSeedBar))
}

func TestMergeRejectsNonPositiveResolution(t *testing.T) {
	cached := &models.MBar{Time: 0, Open: 1, High: 1, Low: 1, Close: 1}
	for _, res := range []int64{0, -60} {
		assert.NotPanics(t, func() {
			_, _, err := Merge(cached, 1100, res, 14)
			assert.Error(t, err)
		})
	}
}

func TestMergeKeepsOHLCInvariant(t *testing.T) {
	bar := models.MBar{Time: 0, Open: 5, High: 5, Low: 5, Close: 5}
	prices := []float64{5.5, 4.2, 7.1, 3.3, 6.0, 6.0, 2.9}

	for i, p := range prices {
		next, _, err := Merge(&bar, int64(i*7), 60, p)
		require.NoError(t, err)
		assert.LessOrEqual(t, next.Low, minf(next.Open, next.Close))
		assert.GreaterOrEqual(t, next.High, maxf(next.Open, next.Close))
		assert.GreaterOrEqual(t, next.Time, bar.Time)
		bar = next
	}
	assert.Equal(t, 2.9, bar.Low)
	assert.Equal(t, 7.1, bar.High)
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// -----------------------------------------------------------------------------

func TestDerivePrices(t *testing.T) {
	// token sold for 2 WBNB: 100 tokens in, 2 WBNB out, trade worth 600 USD
	swap := models.MSwap{
		Amount0In:  "100",
		Amount0Out: "0",
		Amount1In:  "0",
		Amount1Out: "2",
		AmountUSD:  "600",
	}

	ref, fiat, err := DerivePrices(swap)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, ref, 1e-12)
	assert.InDelta(t, 6.0, fiat, 1e-9)
}

func TestDerivePricesNetsBothDirections(t *testing.T) {
	swap := models.MSwap{
		Amount0In:  "10",
		Amount0Out: "60",
		Amount1In:  "3",
		Amount1Out: "0.5",
		AmountUSD:  "750",
	}

	ref, fiat, err := DerivePrices(swap)
	require.NoError(t, err)
	// net0 = 50, net1 = 2.5
	assert.InDelta(t, 0.05, ref, 1e-12)
	assert.InDelta(t, 15.0, fiat, 1e-9)
}

func TestDerivePricesDegenerate(t *testing.T) {
	cases := map[string]models.MSwap{
		"zero token leg":     {Amount0In: "5", Amount0Out: "5", Amount1In: "1", AmountUSD: "10"},
		"zero reference leg": {Amount0In: "5", Amount1In: "0", Amount1Out: "0", AmountUSD: "10"},
		"zero usd":           {Amount0In: "5", Amount1Out: "1", AmountUSD: "0"},
		"garbage amount":     {Amount0In: "abc", Amount1Out: "1", AmountUSD: "10"},
	}

	for name, swap := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := DerivePrices(swap)
			assert.True(t, errors.Is(err, ErrDegenerateSwap), "got %v", err)
		})
	}
}
