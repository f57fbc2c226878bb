package helpers

import (
	"net/http"
	"net/url"
	"strings"
)

// -----------------------------------------------------------------------------

// ProxyFunc returns the proxy selector shared by the REST client and the
// stream dialer. An empty proxy defers to the environment (HTTPS_PROXY etc.).
func ProxyFunc(proxy string) (func(*http.Request) (*url.URL, error), error) {
	proxy = strings.TrimSpace(proxy)
	if proxy == "" {
		return http.ProxyFromEnvironment, nil
	}
	if !ValidateProxy(proxy) {
		return nil, NewConfigurationError("invalid proxy "+proxy, nil)
	}

	u, err := url.Parse(FormatProxy(proxy))
	if err != nil {
		return nil, NewConfigurationError("invalid proxy "+proxy, err)
	}
	return http.ProxyURL(u), nil
}

// -----------------------------------------------------------------------------

// ValidateProxy checks if a proxy string is roughly valid.
func ValidateProxy(proxyStr string) bool {
	u, err := url.Parse(FormatProxy(proxyStr))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https" || u.Scheme == "socks5"
}

// -----------------------------------------------------------------------------

// FormatProxy ensures the proxy has a scheme.
func FormatProxy(proxyStr string) string {
	if !strings.Contains(proxyStr, "://") {
		return "http://" + proxyStr
	}
	return proxyStr
}
