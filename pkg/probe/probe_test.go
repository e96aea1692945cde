package probe

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"syscall"
	"testing"
	"time"

	"proxychains-pool/pkg/models"
)

// proxyEndpoint turns an httptest server address into an Endpoint.
func proxyEndpoint(t *testing.T, srv *httptest.Server) models.Endpoint {
	t.Helper()
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("failed to split server address: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("failed to parse server port: %v", err)
	}
	return models.Endpoint{Host: host, Port: port}
}

func TestProbeHTTPProxy(t *testing.T) {
	// A plain HTTP server stands in for a forward proxy: the absolute-URI
	// GET for the target arrives like an ordinary request.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "93.184.216.34\n")
	}))
	defer srv.Close()

	p := NewProber("http://target.invalid", 2*time.Second)
	verdict := p.Probe(context.Background(), proxyEndpoint(t, srv), models.ProxyHTTP)

	if !verdict.Valid {
		t.Fatalf("Probe() verdict = %+v, want valid", verdict)
	}
	if verdict.Latency <= 0 {
		t.Errorf("Probe() latency = %v, want > 0", verdict.Latency)
	}
}

func TestProbeNonSuccessStatusStillValid(t *testing.T) {
	// Reachability through the proxy is what is tested; the application
	// status does not have to be 2xx.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewProber("http://target.invalid", 2*time.Second)
	verdict := p.Probe(context.Background(), proxyEndpoint(t, srv), models.ProxyHTTP)

	if !verdict.Valid {
		t.Fatalf("Probe() verdict = %+v, want valid despite 503", verdict)
	}
}

func TestProbeUnreachableProxy(t *testing.T) {
	// Grab a free port and close it again so the connect is refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	ln.Close()

	p := NewProber("http://target.invalid", 1*time.Second)
	verdict := p.Probe(context.Background(), models.Endpoint{Host: host, Port: port}, models.ProxyHTTP)

	if verdict.Valid {
		t.Fatal("Probe() reported an unreachable proxy as valid")
	}
	if verdict.Error == "" {
		t.Error("Probe() failure has no error classification")
	}
}

func TestProbeUnsupportedType(t *testing.T) {
	p := NewProber("http://target.invalid", 1*time.Second)
	verdict := p.Probe(context.Background(), models.Endpoint{Host: "1.2.3.4", Port: 8080}, models.ProxyType("ftp"))
	if verdict.Valid {
		t.Fatal("Probe() accepted an unsupported proxy type")
	}
	if verdict.Error == "" {
		t.Error("Probe() failure has no error classification")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  &net.OpError{Op: "dial", Err: context.DeadlineExceeded},
			want: "timeout",
		},
		{
			name: "refused",
			err:  &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
			want: "connection refused",
		},
		{
			name: "dns",
			err:  &net.DNSError{Err: "no such host", Name: "target.invalid"},
			want: "dns error",
		},
		{
			name: "other",
			err:  errors.New("malformed response"),
			want: "malformed response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			if len(got) < len(tt.want) || got[:len(tt.want)] != tt.want {
				t.Errorf("classifyError() = %q, want prefix %q", got, tt.want)
			}
		})
	}
}
