package datafeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dex-datafeed/src/helpers"
	"dex-datafeed/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatafeed(quotes *fakeQuoteSource, stream *fakeStreamSource, sinks ...*recordingSink) *Datafeed {
	cfg := models.MDatafeedConfig{PollIntervalSeconds: 1}
	var d *Datafeed
	if len(sinks) > 0 {
		d = NewDatafeed(cfg, quotes, stream, quietLogger(), sinks[0])
	} else {
		d = NewDatafeed(cfg, quotes, stream, quietLogger())
	}
	d.poller.interval = testInterval
	return d
}

func scenarioQuotes() *fakeQuoteSource {
	return &fakeQuoteSource{
		quote: &models.MReferenceQuote{BaseSymbol: "WBNB", QuoteSymbol: "BUSD", QuotePrice: 300},
		aggregates: []models.MRawAggregate{{
			Minute: "2024-01-01T00:00:00Z", Open: 1.0, Close: 1.2, High: 1.3, Low: 0.9, Volume: 100,
		}},
	}
}

var cake = models.MSymbolDescriptor{Ticker: "0xcake", Exchange: "Pancake v2"}

// -----------------------------------------------------------------------------

func TestOnReadyReturnsConfiguration(t *testing.T) {
	d := newTestDatafeed(scenarioQuotes(), &fakeStreamSource{})
	defer d.Close()

	cfg, err := d.OnReady(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "5", "15", "30", "60", "240", "720", "1D", "1W"}, cfg.SupportedResolutions)

	ref, ok := d.Reference().Reference()
	require.True(t, ok)
	assert.Equal(t, 300.0, ref.Rate)
}

func TestOnReadyRefreshFailureStillConfigures(t *testing.T) {
	d := newTestDatafeed(&fakeQuoteSource{quoteErr: errors.New("rate limited")}, &fakeStreamSource{})
	defer d.Close()

	cfg, err := d.OnReady(context.Background())
	assert.True(t, helpers.IsReferenceUnavailable(err))
	assert.NotEmpty(t, cfg.SupportedResolutions)
}

func TestSearchSymbolsIsEmpty(t *testing.T) {
	d := newTestDatafeed(scenarioQuotes(), &fakeStreamSource{})
	defer d.Close()

	assert.Empty(t, d.SearchSymbols("cake", "", "crypto"))
}

func TestGetBarsFirstRequestSeedsCache(t *testing.T) {
	quotes := scenarioQuotes()
	d := newTestDatafeed(quotes, &fakeStreamSource{})
	defer d.Close()
	_, err := d.OnReady(context.Background())
	require.NoError(t, err)

	res, err := d.GetBars(context.Background(), cake, "1D", models.MPeriodParams{
		From: 1704067100, To: 1704067300, FirstDataRequest: true,
	})
	require.NoError(t, err)
	assert.False(t, res.NoData)
	require.Len(t, res.Bars, 1)
	assert.InDelta(t, 360, res.Bars[0].Close, 1e-9)

	assert.Equal(t, 1440, quotes.lastQuery.IntervalMinutes)
	assert.Equal(t, "0xcake", quotes.lastQuery.BaseAsset)
	assert.Equal(t, "Pancake v2", quotes.lastQuery.Exchange)

	cached, ok := d.Bars().Get("0xcake")
	require.True(t, ok)
	assert.Equal(t, res.Bars[0], *cached)
}

func TestGetBarsLaterPageDoesNotSeed(t *testing.T) {
	d := newTestDatafeed(scenarioQuotes(), &fakeStreamSource{})
	defer d.Close()
	_, _ = d.OnReady(context.Background())

	res, err := d.GetBars(context.Background(), cake, "60", models.MPeriodParams{From: 1704067100, To: 1704067300})
	require.NoError(t, err)
	assert.Len(t, res.Bars, 1)

	_, ok := d.Bars().Get("0xcake")
	assert.False(t, ok)
}

func TestGetBarsNoData(t *testing.T) {
	d := newTestDatafeed(scenarioQuotes(), &fakeStreamSource{})
	defer d.Close()

	// no reference rate yet
	res, err := d.GetBars(context.Background(), cake, "60", models.MPeriodParams{From: 1704067100, To: 1704067300, FirstDataRequest: true})
	require.NoError(t, err)
	assert.True(t, res.NoData)
	assert.Empty(t, res.Bars)

	_, ok := d.Bars().Get("0xcake")
	assert.False(t, ok)
}

func TestGetBarsUpstreamError(t *testing.T) {
	quotes := scenarioQuotes()
	quotes.aggErr = helpers.NewUpstreamQueryError(helpers.RateLimitHint, nil)
	d := newTestDatafeed(quotes, &fakeStreamSource{})
	defer d.Close()

	_, err := d.GetBars(context.Background(), cake, "60", models.MPeriodParams{From: 1, To: 2})
	assert.True(t, helpers.IsUpstreamQuery(err))
}

func TestGetBarsBadResolution(t *testing.T) {
	d := newTestDatafeed(scenarioQuotes(), &fakeStreamSource{})
	defer d.Close()

	_, err := d.GetBars(context.Background(), cake, "1M", models.MPeriodParams{From: 1, To: 2})
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestSubscribeAfterHistoryDeliversLiveBars(t *testing.T) {
	stream := &fakeStreamSource{}
	stream.Set(swapAt(1704067230, "7"), nil)
	sink := newRecordingSink()

	d := newTestDatafeed(scenarioQuotes(), stream, sink)
	_, _ = d.OnReady(context.Background())

	_, err := d.GetBars(context.Background(), cake, "60", models.MPeriodParams{From: 1704067100, To: 1704067300, FirstDataRequest: true})
	require.NoError(t, err)

	col := &barCollector{}
	h, err := d.SubscribeBars(cake, "60", "", col.Handle)
	require.NoError(t, err)
	assert.NotEmpty(t, h.SubscriberUID)

	require.Eventually(t, func() bool { return col.Len() > 0 }, time.Second, testInterval)
	bar := col.Last()
	assert.Equal(t, int64(1704067200000), bar.Time)
	assert.Equal(t, 7.0, bar.Close)
	assert.Equal(t, 390.0, bar.High)
	assert.Equal(t, 7.0, bar.Low)

	require.NoError(t, d.Close())
	assert.True(t, sink.closed)
	assert.GreaterOrEqual(t, len(sink.Bars("0xcake/60")), 2)
	assert.Empty(t, d.Subscriptions())
}

type stopEvent struct {
	uid, ticker string
	reason      StopReason
}

func recordStops(d *Datafeed) func() []stopEvent {
	var mu sync.Mutex
	var events []stopEvent
	d.SetStopListener(func(uid, ticker string, reason StopReason) {
		mu.Lock()
		events = append(events, stopEvent{uid, ticker, reason})
		mu.Unlock()
	})
	return func() []stopEvent {
		mu.Lock()
		defer mu.Unlock()
		return append([]stopEvent(nil), events...)
	}
}

func TestSubscribeReplacesTickerSubscription(t *testing.T) {
	d := newTestDatafeed(scenarioQuotes(), &fakeStreamSource{})
	defer d.Close()
	stops := recordStops(d)

	first, err := d.SubscribeBars(cake, "60", "a", func(models.MBar) {})
	require.NoError(t, err)
	second, err := d.SubscribeBars(cake, "5", "b", func(models.MBar) {})
	require.NoError(t, err)

	assert.True(t, first.Stopped())
	assert.False(t, second.Stopped())

	subs := d.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, "b", subs[0].SubscriberUID)
	assert.Equal(t, []stopEvent{{"a", "0xcake", StopReplaced}}, stops())
}

func TestSubscribeRejectsActiveUID(t *testing.T) {
	d := newTestDatafeed(scenarioQuotes(), &fakeStreamSource{})
	defer d.Close()
	stops := recordStops(d)

	first, err := d.SubscribeBars(cake, "60", "shared", func(models.MBar) {})
	require.NoError(t, err)

	other := models.MSymbolDescriptor{Ticker: "0xother", Exchange: "Pancake v2"}
	_, err = d.SubscribeBars(other, "60", "shared", func(models.MBar) {})
	assert.ErrorIs(t, err, ErrDuplicateSubscription)

	_, err = d.SubscribeBars(cake, "5", "shared", func(models.MBar) {})
	assert.ErrorIs(t, err, ErrDuplicateSubscription)

	assert.False(t, first.Stopped())
	subs := d.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, "0xcake", subs[0].Ticker)
	assert.Empty(t, stops())
}

func TestSubscribeBadResolutionKeepsExisting(t *testing.T) {
	d := newTestDatafeed(scenarioQuotes(), &fakeStreamSource{})
	defer d.Close()

	first, err := d.SubscribeBars(cake, "60", "a", func(models.MBar) {})
	require.NoError(t, err)

	_, err = d.SubscribeBars(cake, "bogus", "b", func(models.MBar) {})
	assert.Error(t, err)
	assert.False(t, first.Stopped())
}

func TestUnsubscribeBars(t *testing.T) {
	d := newTestDatafeed(scenarioQuotes(), &fakeStreamSource{})
	defer d.Close()

	h, err := d.SubscribeBars(cake, "60", "uid-1", func(models.MBar) {})
	require.NoError(t, err)

	stops := recordStops(d)

	assert.True(t, d.UnsubscribeBars("uid-1"))
	assert.True(t, h.Stopped())
	assert.False(t, d.UnsubscribeBars("uid-1"))
	assert.Empty(t, d.Subscriptions())
	assert.Equal(t, []stopEvent{{"uid-1", "0xcake", StopUnsubscribed}}, stops())

	// the uid is free again
	_, err = d.SubscribeBars(cake, "60", "uid-1", func(models.MBar) {})
	assert.NoError(t, err)
}

func TestHandleCancelDeregisters(t *testing.T) {
	d := newTestDatafeed(scenarioQuotes(), &fakeStreamSource{})
	defer d.Close()

	h, err := d.SubscribeBars(cake, "60", "uid-1", func(models.MBar) {})
	require.NoError(t, err)
	h.Cancel()

	assert.Empty(t, d.Subscriptions())
	assert.False(t, d.UnsubscribeBars("uid-1"))
}

func TestStatus(t *testing.T) {
	d := newTestDatafeed(scenarioQuotes(), &fakeStreamSource{})
	defer d.Close()
	_, _ = d.OnReady(context.Background())
	_, err := d.SubscribeBars(cake, "60", "uid-1", func(models.MBar) {})
	require.NoError(t, err)

	st := d.Status()
	require.NotNil(t, st.Reference)
	assert.Equal(t, 300.0, st.Reference.Rate)
	require.Len(t, st.Subscriptions, 1)
	assert.Equal(t, "0xcake", st.Subscriptions[0].Ticker)
}

func TestDatafeedInstancesDoNotShareState(t *testing.T) {
	a := newTestDatafeed(scenarioQuotes(), &fakeStreamSource{})
	b := newTestDatafeed(scenarioQuotes(), &fakeStreamSource{})
	defer a.Close()
	defer b.Close()

	_, _ = a.OnReady(context.Background())
	_, okA := a.Reference().Reference()
	_, okB := b.Reference().Reference()
	assert.True(t, okA)
	assert.False(t, okB)
}
