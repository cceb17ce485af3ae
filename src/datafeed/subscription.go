package datafeed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"dex-datafeed/src/helpers"
	"dex-datafeed/src/interfaces"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/metrics"
	"dex-datafeed/src/models"
)

const DefaultPollInterval = 10 * time.Second

// BarHandler receives live bars. It runs on the polling goroutine and must not
// call Cancel on its own handle.
type BarHandler func(bar models.MBar)

// BarObserver sees every live bar after it is delivered.
type BarObserver func(ticker, resolution string, bar models.MBar, isNew bool)

// -----------------------------------------------------------------------------

// SubscriptionHandle owns one polling goroutine.
type SubscriptionHandle struct {
	Ticker        string
	Resolution    string
	SubscriberUID string
	StartedAt     time.Time

	resolutionSeconds int64
	onRealtime        BarHandler

	ticks    atomic.Int64
	failures atomic.Int64

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	onStop  func()
}

// -----------------------------------------------------------------------------

// Cancel stops polling and returns without waiting for an in-flight poll; its
// result is discarded. No callback runs after Cancel returns. Safe to call twice.
func (h *SubscriptionHandle) Cancel() {
	h.once.Do(func() {
		h.cancel()

		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()

		metrics.ActiveSubscriptions.Dec()
		if h.onStop != nil {
			h.onStop()
		}
	})
}

// -----------------------------------------------------------------------------

// Done is closed when the polling goroutine has exited. After Cancel this can
// lag while an upstream call that ignores its context is still running.
func (h *SubscriptionHandle) Done() <-chan struct{} {
	return h.done
}

// -----------------------------------------------------------------------------

func (h *SubscriptionHandle) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

// -----------------------------------------------------------------------------

func (h *SubscriptionHandle) Status() models.MSubscriptionStatus {
	return models.MSubscriptionStatus{
		UID:        h.SubscriberUID,
		Ticker:     h.Ticker,
		Resolution: h.Resolution,
		StartedAt:  h.StartedAt,
		Ticks:      h.ticks.Load(),
		Failures:   h.failures.Load(),
	}
}

// -----------------------------------------------------------------------------

// PollingSubscription starts periodic latest-swap polls that update BarsCache.
type PollingSubscription struct {
	stream   interfaces.IStreamSource
	bars     *BarsCache
	errs     *helpers.ErrorHandler
	logger   *logger.Logger
	interval time.Duration
	observer BarObserver
}

// -----------------------------------------------------------------------------

func NewPollingSubscription(stream interfaces.IStreamSource, bars *BarsCache, interval time.Duration, log *logger.Logger) *PollingSubscription {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = logger.NewLogger(nil, "PollingSubscription")
	}
	return &PollingSubscription{
		stream:   stream,
		bars:     bars,
		errs:     helpers.NewErrorHandler(log),
		logger:   log,
		interval: interval,
	}
}

// -----------------------------------------------------------------------------

// SetObserver installs a hook for every delivered live bar.
func (p *PollingSubscription) SetObserver(observer BarObserver) {
	p.observer = observer
}

// -----------------------------------------------------------------------------

// ErrorCount is the number of tick failures swallowed so far.
func (p *PollingSubscription) ErrorCount() int64 {
	return p.errs.ErrorCount()
}

// -----------------------------------------------------------------------------

// Start begins polling ticker every interval. The first poll happens after one interval.
func (p *PollingSubscription) Start(ticker, resolution, uid string, onRealtime BarHandler) (*SubscriptionHandle, error) {
	if onRealtime == nil {
		return nil, fmt.Errorf("subscription %s: nil bar handler", uid)
	}
	resSeconds, err := ResolutionSeconds(resolution)
	if err != nil {
		return nil, fmt.Errorf("subscription %s: %w", uid, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &SubscriptionHandle{
		Ticker:            ticker,
		Resolution:        resolution,
		SubscriberUID:     uid,
		StartedAt:         time.Now(),
		resolutionSeconds: resSeconds,
		onRealtime:        onRealtime,
		cancel:            cancel,
		done:              make(chan struct{}),
	}

	metrics.ActiveSubscriptions.Inc()
	go p.runLoop(ctx, h)

	p.logger.Info("Subscribed %s to %s (%s) every %v", uid, ticker, resolution, p.interval)
	return h, nil
}

// -----------------------------------------------------------------------------

func (p *PollingSubscription) runLoop(ctx context.Context, h *SubscriptionHandle) {
	defer close(h.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, h)
		}
	}
}

// -----------------------------------------------------------------------------

func (p *PollingSubscription) tick(ctx context.Context, h *SubscriptionHandle) {
	h.ticks.Add(1)
	label := "tick " + h.SubscriberUID

	swap, err := p.stream.LatestSwap(ctx, h.Ticker)
	if ctx.Err() != nil {
		metrics.TicksTotal.WithLabelValues(metrics.TickDropped).Inc()
		return
	}
	if err != nil {
		h.failures.Add(1)
		metrics.TicksTotal.WithLabelValues(metrics.TickError).Inc()
		metrics.UpstreamErrorsTotal.WithLabelValues("latest_swap").Inc()
		p.errs.Handle(err, label)
		return
	}
	if swap == nil {
		metrics.TicksTotal.WithLabelValues(metrics.TickNoSwap).Inc()
		p.logger.Debug("No swap for %s", h.Ticker)
		return
	}

	_, fiat, err := DerivePrices(*swap)
	if err != nil {
		h.failures.Add(1)
		metrics.TicksTotal.WithLabelValues(metrics.TickDegenerate).Inc()
		p.errs.Warn(err, label)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		metrics.TicksTotal.WithLabelValues(metrics.TickDropped).Inc()
		return
	}

	cached, _ := p.bars.Get(h.Ticker)
	bar, isNew, err := Merge(cached, swap.Timestamp, h.resolutionSeconds, fiat)
	if err != nil {
		h.failures.Add(1)
		if errors.Is(err, ErrNoSeedBar) {
			metrics.TicksTotal.WithLabelValues(metrics.TickNoSeed).Inc()
			p.errs.Warn(err, label+" ("+h.Ticker+")")
		} else {
			metrics.TicksTotal.WithLabelValues(metrics.TickError).Inc()
			p.errs.Handle(err, label)
		}
		return
	}

	p.bars.Put(h.Ticker, bar)
	h.onRealtime(bar)
	metrics.TicksTotal.WithLabelValues(metrics.TickDelivered).Inc()

	if isNew {
		metrics.BarsTotal.WithLabelValues("live_new").Inc()
	} else {
		metrics.BarsTotal.WithLabelValues("live_update").Inc()
	}
	if p.observer != nil {
		p.observer(h.Ticker, h.Resolution, bar, isNew)
	}
}
