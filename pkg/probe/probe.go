// Package probe performs a single bounded-time reachability test through
// one proxy endpoint.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/Jigsaw-Code/outline-sdk/x/configurl"
	"h12.io/socks"

	"proxychains-pool/pkg/models"
)

// Prober issues one HTTP request to a fixed target URL through a proxy
// endpoint and reports whether the round trip succeeded.
type Prober struct {
	targetURL string
	timeout   time.Duration
}

func NewProber(targetURL string, timeout time.Duration) *Prober {
	return &Prober{
		targetURL: targetURL,
		timeout:   timeout,
	}
}

// Probe tests a single endpoint configured as a proxy of proxyType. It
// always returns a Verdict; network failures are recorded on the verdict
// and never escalated. Any response within the timeout counts as success,
// regardless of status code: reachability through the proxy is what is
// being tested.
func (p *Prober) Probe(ctx context.Context, ep models.Endpoint, proxyType models.ProxyType) models.Verdict {
	verdict := models.Verdict{Endpoint: ep}

	transport, err := p.newTransport(ep, proxyType)
	if err != nil {
		verdict.Error = err.Error()
		return verdict
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   p.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.targetURL, nil)
	if err != nil {
		verdict.Error = fmt.Sprintf("failed to create request: %v", err)
		return verdict
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		verdict.Error = classifyError(err)
		return verdict
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	verdict.Valid = true
	verdict.Latency = time.Since(start)
	return verdict
}

// newTransport builds an HTTP transport that routes through ep per the
// given proxy type.
func (p *Prober) newTransport(ep models.Endpoint, proxyType models.ProxyType) (*http.Transport, error) {
	switch proxyType {
	case models.ProxyHTTP, models.ProxyHTTPS:
		proxyURL := &url.URL{Scheme: "http", Host: ep.Addr()}
		return &http.Transport{Proxy: http.ProxyURL(proxyURL)}, nil

	case models.ProxySOCKS4:
		dial := socks.Dial(fmt.Sprintf("socks4://%s?timeout=%ds", ep.Addr(), int(p.timeout.Seconds())))
		return &http.Transport{Dial: dial}, nil

	case models.ProxySOCKS5:
		dialer, err := configurl.NewDefaultConfigToDialer().NewStreamDialer("socks5://" + ep.Addr())
		if err != nil {
			return nil, fmt.Errorf("could not create dialer: %w", err)
		}
		dialContext := func(ctx context.Context, network, addr string) (net.Conn, error) {
			if !strings.HasPrefix(network, "tcp") {
				return nil, fmt.Errorf("protocol not supported: %v", network)
			}
			return dialer.DialStream(ctx, addr)
		}
		return &http.Transport{DialContext: dialContext}, nil

	default:
		return nil, fmt.Errorf("unsupported proxy type: %q", proxyType)
	}
}

// classifyError maps a request error to a short operator-facing message.
func classifyError(err error) string {
	base := findBaseError(err)

	var netErr net.Error
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Sprintf("timeout: %v", base)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Sprintf("connection refused: %v", base)
	case errors.Is(err, syscall.ECONNRESET):
		return fmt.Sprintf("connection reset: %v", base)
	case errors.As(err, &dnsErr):
		return fmt.Sprintf("dns error: %v", base)
	default:
		return base.Error()
	}
}

// findBaseError unwraps an error chain to find the most basic underlying error
func findBaseError(err error) error {
	for err != nil {
		// Try to unwrap as joined errors first
		if unwrapInterface, ok := err.(interface{ Unwrap() []error }); ok {
			errs := unwrapInterface.Unwrap()
			if len(errs) > 0 {
				// Take the last error in the joined slice as it's likely
				// to be the most specific one
				err = errs[len(errs)-1]
				continue
			}
		}

		// Try to unwrap as single error
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			// We've reached the base error
			return err
		}
		err = unwrapped
	}
	return err
}
