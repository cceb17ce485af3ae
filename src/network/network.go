package network

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"dex-datafeed/src/helpers"
	"dex-datafeed/src/interfaces"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultRatePerSec = 5
	defaultBurst      = 5
	maxResponseBytes  = 16 << 20
)

type AsyncNetworkManager struct {
	Config       *models.MConfig
	ProxyManager interfaces.IProxyManager
	Logger       *logger.Logger

	limiter *rate.Limiter
	mu      sync.RWMutex
	client  *http.Client
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	if log == nil {
		log = logger.NewLogger(cfg, "Network")
	}

	var proxies []string
	if cfg.Network.Enabled {
		proxies = cfg.Network.Proxies
	}

	rps := cfg.Network.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRatePerSec
	}
	burst := cfg.Network.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	nm := &AsyncNetworkManager{
		Config:       cfg,
		ProxyManager: helpers.NewProxyManager(proxies, cfg.Network.UserAgent, log.Named("ProxyManager")),
		Logger:       log,
		limiter:      rate.NewLimiter(rate.Limit(rps), burst),
	}
	nm.client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) createClient() *http.Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}

	if nm.ProxyManager.HasProxies() {
		proxyStr, err := nm.ProxyManager.GetCurrentProxy()
		if err == nil && proxyStr != "" {
			proxyURL, err := url.Parse(proxyStr)
			if err == nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}

	timeout := time.Duration(nm.Config.Network.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) rotateProxy() {
	if !nm.ProxyManager.HasProxies() {
		return
	}

	nm.ProxyManager.RotateProxy()
	client := nm.createClient()

	nm.mu.Lock()
	nm.client = client
	nm.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) httpClient() *http.Client {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return nm.client
}

// -----------------------------------------------------------------------------

// Post performs a single rate-limited JSON POST. A blocked response rotates the
// proxy for the next call; the failed call is not retried.
func (nm *AsyncNetworkManager) Post(ctx context.Context, urlStr string, headers map[string]string, payload []byte) ([]byte, error) {
	if err := nm.limiter.Wait(ctx); err != nil {
		return nil, helpers.NewTransportError(fmt.Sprintf("rate limiter wait for %s", urlStr), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, bytes.NewReader(payload))
	if err != nil {
		return nil, helpers.NewTransportError("build request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", nm.ProxyManager.GetUserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := nm.httpClient().Do(req)
	if err != nil {
		nm.Logger.Debug("Request to %s failed: %v", urlStr, err)
		return nil, helpers.NewTransportError(fmt.Sprintf("POST %s", urlStr), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		nm.Logger.Warning("Request blocked (%d). Rotating proxy.", resp.StatusCode)
		nm.rotateProxy()
		return nil, helpers.NewTransportError(fmt.Sprintf("POST %s", urlStr), fmt.Errorf("blocked (status %d)", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, helpers.NewTransportError("read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, helpers.NewTransportError(fmt.Sprintf("POST %s", urlStr), fmt.Errorf("bad status: %d: %s", resp.StatusCode, truncate(body, 256)))
	}

	return body, nil
}

// -----------------------------------------------------------------------------

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
