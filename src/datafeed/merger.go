package datafeed

import (
	"errors"
	"fmt"
	"math"

	"dex-datafeed/src/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoSeedBar means live data arrived before any history page seeded the ticker.
	ErrNoSeedBar = errors.New("no cached bar to merge into")

	// ErrDegenerateSwap means the swap legs cannot produce a finite price.
	ErrDegenerateSwap = errors.New("degenerate swap")
)

// -----------------------------------------------------------------------------

// bucketStart returns the start of the bucket containing ts, in epoch milliseconds.
// resolutionSeconds must be positive; Merge checks it.
func bucketStart(tsSeconds, resolutionSeconds int64) int64 {
	bucket := tsSeconds / resolutionSeconds
	if tsSeconds < 0 && tsSeconds%resolutionSeconds != 0 {
		bucket--
	}
	return bucket * resolutionSeconds * 1000
}

// -----------------------------------------------------------------------------

// Merge folds a trade price into the cached bar. A trade in a later bucket opens a
// new bar; anything else updates the cached one. The bool reports a new bar.
func Merge(cached *models.MBar, tsSeconds, resolutionSeconds int64, price float64) (models.MBar, bool, error) {
	if cached == nil {
		return models.MBar{}, false, ErrNoSeedBar
	}
	if resolutionSeconds <= 0 {
		return models.MBar{}, false, fmt.Errorf("invalid resolution: %ds", resolutionSeconds)
	}

	bucket := bucketStart(tsSeconds, resolutionSeconds)
	if bucket > cached.Time {
		return models.MBar{
			Time:  bucket,
			Open:  price,
			High:  price,
			Low:   price,
			Close: price,
		}, true, nil
	}

	bar := *cached
	bar.High = math.Max(bar.High, price)
	bar.Low = math.Min(bar.Low, price)
	bar.Close = price
	return bar, false, nil
}

// -----------------------------------------------------------------------------

// DerivePrices computes the token price in the reference asset and in fiat.
func DerivePrices(swap models.MSwap) (refPrice, fiatPrice float64, err error) {
	amounts := make([]decimal.Decimal, 0, 5)
	for _, s := range []string{swap.Amount0In, swap.Amount0Out, swap.Amount1In, swap.Amount1Out, swap.AmountUSD} {
		d, perr := parseAmount(s)
		if perr != nil {
			return 0, 0, fmt.Errorf("%w: %v", ErrDegenerateSwap, perr)
		}
		amounts = append(amounts, d)
	}

	net0 := amounts[0].Sub(amounts[1]).Abs()
	net1 := amounts[2].Sub(amounts[3]).Abs()
	if net0.IsZero() || net1.IsZero() {
		return 0, 0, fmt.Errorf("%w: zero net leg", ErrDegenerateSwap)
	}

	ref := net1.DivRound(net0, 32)
	fiat := amounts[4].DivRound(net1, 32).Mul(ref)

	refPrice = ref.InexactFloat64()
	fiatPrice = fiat.InexactFloat64()
	if !finitePositive(refPrice) || !finitePositive(fiatPrice) {
		return 0, 0, fmt.Errorf("%w: non-finite price", ErrDegenerateSwap)
	}
	return refPrice, fiatPrice, nil
}

// -----------------------------------------------------------------------------

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// -----------------------------------------------------------------------------

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
