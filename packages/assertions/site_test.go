package assertions

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	wmhttp "github.com/abdul-hamid-achik/webmatch/packages/http"
)

// site answers every hostname: port 80 traffic goes to plain, port 443 to
// secure. The secure server's certificate is valid for example.com.
type site struct {
	plainAddr  string
	secureAddr string
	pool       *x509.CertPool
}

func newSite(t *testing.T, plain, secure http.Handler) *site {
	t.Helper()
	s := &site{pool: x509.NewCertPool()}

	if plain != nil {
		srv := httptest.NewServer(plain)
		t.Cleanup(srv.Close)
		s.plainAddr = srv.Listener.Addr().String()
	} else {
		// Nothing listens here once the server is closed.
		srv := httptest.NewServer(http.NotFoundHandler())
		s.plainAddr = srv.Listener.Addr().String()
		srv.Close()
	}

	if secure == nil {
		secure = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}
	tlsSrv := httptest.NewTLSServer(secure)
	t.Cleanup(tlsSrv.Close)
	s.secureAddr = tlsSrv.Listener.Addr().String()
	s.pool.AddCert(tlsSrv.Certificate())

	return s
}

func (s *site) transport(trusted bool) *http.Transport {
	dialer := &net.Dialer{}
	t := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			_, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			switch port {
			case "80":
				return dialer.DialContext(ctx, network, s.plainAddr)
			case "443":
				return dialer.DialContext(ctx, network, s.secureAddr)
			}
			return dialer.DialContext(ctx, network, addr)
		},
	}
	if trusted {
		t.TLSClientConfig = &tls.Config{RootCAs: s.pool}
	}
	return t
}

// prober trusts the site's certificate.
func (s *site) prober() *Prober {
	return NewProber(WithClientOptions(wmhttp.WithTransport(s.transport(true))))
}

// untrustingProber uses the system roots, which reject the test certificate.
func (s *site) untrustingProber() *Prober {
	return NewProber(WithClientOptions(wmhttp.WithTransport(s.transport(false))))
}

func redirectTo(status int, location string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", location)
		w.WriteHeader(status)
	})
}

func statusHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
