package helpers

import (
	"net/url"
	"strings"
	"sync"

	"dex-datafeed/src/logger"
)

const defaultUserAgent = "dex-datafeed/1.0 (+https://github.com)"

// -----------------------------------------------------------------------------

// ProxyManager rotates through a fixed list of configured proxies.
type ProxyManager struct {
	proxies   []string
	userAgent string
	index     int
	mu        sync.Mutex
	logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewProxyManager(proxies []string, userAgent string, log *logger.Logger) *ProxyManager {
	var validProxies []string
	for _, p := range proxies {
		if ValidateProxy(p) {
			validProxies = append(validProxies, FormatProxy(p))
		}
	}

	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if log == nil {
		log = logger.NewLogger(nil, "ProxyManager")
	}

	return &ProxyManager{
		proxies:   validProxies,
		userAgent: userAgent,
		logger:    log,
	}
}

// -----------------------------------------------------------------------------

func (pm *ProxyManager) GetCurrentProxy() (string, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if len(pm.proxies) == 0 {
		return "", nil
	}
	return pm.proxies[pm.index], nil
}

// -----------------------------------------------------------------------------

func (pm *ProxyManager) RotateProxy() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if len(pm.proxies) <= 1 {
		return
	}

	pm.index = (pm.index + 1) % len(pm.proxies)
	pm.logger.Info("Rotating proxy to: %s", pm.proxies[pm.index])
}

// -----------------------------------------------------------------------------

func (pm *ProxyManager) GetUserAgent() string {
	return pm.userAgent
}

// -----------------------------------------------------------------------------

func (pm *ProxyManager) HasProxies() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.proxies) > 0
}

// -----------------------------------------------------------------------------

// ValidateProxy checks if a proxy string is roughly valid.
// A missing scheme is allowed, FormatProxy adds it.
func ValidateProxy(proxyStr string) bool {
	if strings.TrimSpace(proxyStr) == "" {
		return false
	}
	u, err := url.Parse(FormatProxy(proxyStr))
	return err == nil && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https" || u.Scheme == "socks5")
}

// -----------------------------------------------------------------------------

// FormatProxy ensures the proxy has a scheme.
func FormatProxy(proxyStr string) string {
	if !strings.Contains(proxyStr, "://") {
		return "http://" + proxyStr
	}
	return proxyStr
}
