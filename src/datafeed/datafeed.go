package datafeed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"dex-datafeed/src/helpers"
	"dex-datafeed/src/interfaces"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/metrics"
	"dex-datafeed/src/models"

	"github.com/google/uuid"
)

const sinkQueueSize = 256

// ErrDuplicateSubscription means the uid already names an active subscription.
var ErrDuplicateSubscription = errors.New("subscription uid already in use")

// StopReason tells a StopListener why a subscription ended.
type StopReason string

const (
	StopUnsubscribed StopReason = "unsubscribed"
	StopReplaced     StopReason = "replaced"
)

// StopListener hears about subscriptions ended by UnsubscribeBars or replaced by
// a newer subscription on the same ticker. It must not call back into the facade.
type StopListener func(uid, ticker string, reason StopReason)

type sinkJob struct {
	ticker     string
	resolution string
	bars       []models.MBar
}

// -----------------------------------------------------------------------------

// Datafeed is the charting-library facing adapter. Each instance owns its caches.
type Datafeed struct {
	Config models.MDatafeedConfig
	Logger *logger.Logger

	quotes    interfaces.IQuoteSource
	reference *PriceReferenceCache
	history   *HistoricalBarBuilder
	bars      *BarsCache
	resolver  *SymbolResolver
	poller    *PollingSubscription
	sinks     []interfaces.IBarSink

	subMu    sync.Mutex // serializes subscribe/unsubscribe
	mu       sync.Mutex
	byTicker map[string]*SubscriptionHandle
	byUID    map[string]*SubscriptionHandle
	onStop   StopListener

	sinkMu     sync.RWMutex
	sinkClosed bool
	sinkQueue  chan sinkJob
	sinkWg     sync.WaitGroup
	closeOnce  sync.Once
}

// -----------------------------------------------------------------------------

func NewDatafeed(cfg models.MDatafeedConfig, quotes interfaces.IQuoteSource, stream interfaces.IStreamSource, log *logger.Logger, sinks ...interfaces.IBarSink) *Datafeed {
	if log == nil {
		log = logger.NewLogger(nil, "Datafeed")
	}
	if len(cfg.SupportedResolutions) == 0 {
		cfg.SupportedResolutions = DefaultSupportedResolutions
	}

	reference := NewPriceReferenceCache(quotes)
	bars := NewBarsCache()
	interval := time.Duration(cfg.PollIntervalSeconds) * time.Second

	d := &Datafeed{
		Config:    cfg,
		Logger:    log,
		quotes:    quotes,
		reference: reference,
		history:   NewHistoricalBarBuilder(reference, log.Named("HistoricalBarBuilder")),
		bars:      bars,
		resolver:  NewSymbolResolver(quotes, cfg),
		poller:    NewPollingSubscription(stream, bars, interval, log.Named("PollingSubscription")),
		sinks:     sinks,
		byTicker:  make(map[string]*SubscriptionHandle),
		byUID:     make(map[string]*SubscriptionHandle),
	}

	if len(sinks) > 0 {
		d.sinkQueue = make(chan sinkJob, sinkQueueSize)
		d.sinkWg.Add(1)
		go d.sinkLoop()
		d.poller.SetObserver(func(ticker, resolution string, bar models.MBar, _ bool) {
			d.enqueue(ticker, resolution, []models.MBar{bar})
		})
	}

	return d
}

// -----------------------------------------------------------------------------

func (d *Datafeed) Reference() *PriceReferenceCache { return d.reference }
func (d *Datafeed) Bars() *BarsCache                { return d.bars }

// -----------------------------------------------------------------------------

// Configuration is the static part of OnReady.
func (d *Datafeed) Configuration() models.MDatafeedConfiguration {
	return models.MDatafeedConfiguration{
		SupportedResolutions: append([]string(nil), d.Config.SupportedResolutions...),
	}
}

// -----------------------------------------------------------------------------

// OnReady refreshes the reference rate and returns the configuration. The
// configuration is valid even when the refresh error is non-nil.
func (d *Datafeed) OnReady(ctx context.Context) (models.MDatafeedConfiguration, error) {
	err := d.reference.Refresh(ctx)
	if err != nil {
		d.Logger.Warning("Reference refresh failed: %v", err)
	}
	return d.Configuration(), err
}

// -----------------------------------------------------------------------------

// SearchSymbols is not supported and always returns no results.
func (d *Datafeed) SearchSymbols(userInput, exchange, symbolType string) []models.MSearchResult {
	d.Logger.Debug("Search requested: %q %q %q", userInput, exchange, symbolType)
	return []models.MSearchResult{}
}

// -----------------------------------------------------------------------------

func (d *Datafeed) ResolveSymbol(ctx context.Context, symbolName string) (models.MSymbolDescriptor, error) {
	return d.resolver.Resolve(ctx, symbolName)
}

// -----------------------------------------------------------------------------

// GetBars fetches one history page. On FirstDataRequest the last bar seeds BarsCache.
func (d *Datafeed) GetBars(ctx context.Context, symbol models.MSymbolDescriptor, resolution string, period models.MPeriodParams) (models.MHistoryResult, error) {
	minutes, err := ResolutionMinutes(resolution)
	if err != nil {
		return models.MHistoryResult{}, err
	}

	start := time.Now()
	raw, err := d.quotes.Aggregates(ctx, models.MAggregateQuery{
		BaseAsset:       symbol.Ticker,
		Exchange:        symbol.Exchange,
		From:            period.From,
		To:              period.To,
		IntervalMinutes: minutes,
	})
	metrics.UpstreamDuration.WithLabelValues("aggregates").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues("aggregates").Inc()
		return models.MHistoryResult{}, err
	}

	bars := d.history.Build(raw, period.From, period.To)

	if len(bars) == 0 {
		return models.MHistoryResult{Bars: bars, NoData: true}, nil
	}

	if period.FirstDataRequest {
		d.bars.Put(symbol.Ticker, bars[len(bars)-1])
	}
	metrics.BarsTotal.WithLabelValues("history").Add(float64(len(bars)))
	d.enqueue(symbol.Ticker, resolution, bars)

	return models.MHistoryResult{Bars: bars}, nil
}

// -----------------------------------------------------------------------------

// SubscribeBars starts live polling for symbol. A ticker has at most one active
// subscription; an existing one is cancelled first and reported as replaced. An
// empty uid gets a generated one. A uid that is already active is rejected.
func (d *Datafeed) SubscribeBars(symbol models.MSymbolDescriptor, resolution, uid string, onRealtime BarHandler) (*SubscriptionHandle, error) {
	if symbol.Ticker == "" {
		return nil, helpers.NewMalformedSymbolError(symbol.FullName())
	}
	if uid == "" {
		uid = uuid.NewString()
	}

	d.subMu.Lock()
	defer d.subMu.Unlock()

	d.mu.Lock()
	if _, ok := d.byUID[uid]; ok {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSubscription, uid)
	}
	stale := d.byTicker[symbol.Ticker]
	d.mu.Unlock()

	h, err := d.poller.Start(symbol.Ticker, resolution, uid, onRealtime)
	if err != nil {
		return nil, err
	}
	h.onStop = func() { d.forget(h) }

	if stale != nil {
		d.Logger.Info("Replacing subscription %s on %s with %s", stale.SubscriberUID, stale.Ticker, uid)
		stale.Cancel()
		d.notifyStop(stale, StopReplaced)
	}

	d.mu.Lock()
	d.byTicker[symbol.Ticker] = h
	d.byUID[uid] = h
	d.mu.Unlock()

	return h, nil
}

// -----------------------------------------------------------------------------

// UnsubscribeBars cancels the subscription with uid. Returns false if none exists.
func (d *Datafeed) UnsubscribeBars(uid string) bool {
	d.subMu.Lock()
	defer d.subMu.Unlock()

	d.mu.Lock()
	h, ok := d.byUID[uid]
	d.mu.Unlock()
	if !ok {
		return false
	}

	h.Cancel()
	d.notifyStop(h, StopUnsubscribed)
	d.Logger.Info("Unsubscribed %s from %s", uid, h.Ticker)
	return true
}

// -----------------------------------------------------------------------------

// SetStopListener installs the listener for ended subscriptions.
func (d *Datafeed) SetStopListener(listener StopListener) {
	d.mu.Lock()
	d.onStop = listener
	d.mu.Unlock()
}

func (d *Datafeed) notifyStop(h *SubscriptionHandle, reason StopReason) {
	d.mu.Lock()
	listener := d.onStop
	d.mu.Unlock()
	if listener != nil {
		listener(h.SubscriberUID, h.Ticker, reason)
	}
}

// -----------------------------------------------------------------------------

func (d *Datafeed) forget(h *SubscriptionHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.byTicker[h.Ticker] == h {
		delete(d.byTicker, h.Ticker)
	}
	if d.byUID[h.SubscriberUID] == h {
		delete(d.byUID, h.SubscriberUID)
	}
}

// -----------------------------------------------------------------------------

// Subscriptions returns the active handles ordered by uid.
func (d *Datafeed) Subscriptions() []*SubscriptionHandle {
	d.mu.Lock()
	out := make([]*SubscriptionHandle, 0, len(d.byUID))
	for _, h := range d.byUID {
		out = append(out, h)
	}
	d.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SubscriberUID < out[j].SubscriberUID })
	return out
}

// -----------------------------------------------------------------------------

func (d *Datafeed) Status() models.MDatafeedStatus {
	status := models.MDatafeedStatus{CachedSymbols: d.bars.Len()}
	if ref, ok := d.reference.Reference(); ok {
		status.Reference = &ref
	}
	for _, h := range d.Subscriptions() {
		status.Subscriptions = append(status.Subscriptions, h.Status())
	}
	return status
}

// -----------------------------------------------------------------------------

// Close cancels every subscription, drains pending sink writes and closes the sinks.
func (d *Datafeed) Close() error {
	var firstErr error
	d.closeOnce.Do(func() {
		for _, h := range d.Subscriptions() {
			h.Cancel()
		}

		if d.sinkQueue != nil {
			d.sinkMu.Lock()
			d.sinkClosed = true
			close(d.sinkQueue)
			d.sinkMu.Unlock()
			d.sinkWg.Wait()
		}

		for _, s := range d.sinks {
			if err := s.Close(); err != nil {
				d.Logger.Error("Failed to close sink %s: %v", s.Name(), err)
				if firstErr == nil {
					firstErr = fmt.Errorf("close sink %s: %w", s.Name(), err)
				}
			}
		}
	})
	return firstErr
}

// -----------------------------------------------------------------------------

func (d *Datafeed) enqueue(ticker, resolution string, bars []models.MBar) {
	if d.sinkQueue == nil || len(bars) == 0 {
		return
	}
	job := sinkJob{ticker: ticker, resolution: resolution, bars: append([]models.MBar(nil), bars...)}

	d.sinkMu.RLock()
	defer d.sinkMu.RUnlock()
	if d.sinkClosed {
		return
	}

	select {
	case d.sinkQueue <- job:
	default:
		d.Logger.Warning("Sink queue full, dropping %d bars for %s", len(bars), ticker)
	}
}

// -----------------------------------------------------------------------------

func (d *Datafeed) sinkLoop() {
	defer d.sinkWg.Done()
	for job := range d.sinkQueue {
		for _, s := range d.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := s.WriteBars(ctx, job.ticker, job.resolution, job.bars); err != nil {
				metrics.SinkErrorsTotal.WithLabelValues(s.Name()).Inc()
				d.Logger.Error("Sink %s failed for %s: %v", s.Name(), job.ticker, err)
			}
			cancel()
		}
	}
}
