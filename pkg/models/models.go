package models

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// ProxyType represents the protocol an endpoint is assumed to speak.
type ProxyType string

const (
	ProxyHTTP   ProxyType = "http"
	ProxyHTTPS  ProxyType = "https"
	ProxySOCKS4 ProxyType = "socks4"
	ProxySOCKS5 ProxyType = "socks5"
)

// ParseProxyType validates a user-supplied proxy type string.
func ParseProxyType(s string) (ProxyType, error) {
	switch ProxyType(s) {
	case ProxyHTTP, ProxyHTTPS, ProxySOCKS4, ProxySOCKS5:
		return ProxyType(s), nil
	default:
		return "", fmt.Errorf("unsupported proxy type: %q (must be http, https, socks4 or socks5)", s)
	}
}

// Endpoint is a single host:port proxy server. Endpoints are immutable
// values; two endpoints are equal when host and port are equal.
type Endpoint struct {
	Host string
	Port int
}

// Addr returns the endpoint in host:port form.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	return e.Addr()
}

// Verdict records the outcome of probing one endpoint. One verdict is
// produced per endpoint per validation pass and never mutated afterwards.
type Verdict struct {
	Endpoint Endpoint
	Valid    bool
	Latency  time.Duration
	Error    string
}
