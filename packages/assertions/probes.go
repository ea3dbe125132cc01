package assertions

import (
	"fmt"

	"github.com/abdul-hamid-achik/webmatch/packages/http"
	"go.uber.org/zap"
)

// Prober runs probes against live targets. It holds no per-probe state and
// is safe for concurrent use once built.
type Prober struct {
	logger     *zap.Logger
	clientOpts []http.ClientOption
}

// ProberOption is a functional option for configuring a Prober.
type ProberOption func(*Prober)

// WithLogger sets the logger probes report to.
func WithLogger(logger *zap.Logger) ProberOption {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClientOptions applies extra options to every connection the prober makes.
func WithClientOptions(opts ...http.ClientOption) ProberOption {
	return func(p *Prober) {
		p.clientOpts = append(p.clientOpts, opts...)
	}
}

func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultProber = NewProber()

// Default returns the prober used by package-level helpers and Matcher.Match.
func Default() *Prober {
	return defaultProber
}

// IsUp reports whether the target answers 200, following redirects.
func IsUp(target string) bool {
	return defaultProber.CheckUp(target).Passed
}

// HasValidCert reports whether an HTTPS connection to the target succeeds.
// Not serving TLS, expired certificates and name mismatches all count as false.
func HasValidCert(target string) bool {
	return defaultProber.CheckCert(target).Passed
}

func (p *Prober) fetch(method, url string, followRedirects bool) (*http.Response, error) {
	client := http.MakeConnection(followRedirects, p.clientOpts...)
	return http.ExecuteWithRetryHook(func() (*http.Response, error) {
		return client.Do(http.NewRequest(method, url))
	}, func(err error) {
		p.logger.Warn("request timed out, retrying once",
			zap.String("method", method),
			zap.String("url", url),
			zap.Error(err),
		)
	})
}

func (p *Prober) head(url string, followRedirects bool) (*http.Response, error) {
	return p.fetch("HEAD", url, followRedirects)
}

// CheckUp passes when the target answers exactly 200, following up to four
// redirects.
func (p *Prober) CheckUp(target string) Result {
	resp, err := p.head(http.MakeURL(target), true)
	if err != nil {
		return fail(err.Error())
	}
	if resp.StatusCode == 200 {
		return pass()
	}
	return fail(fmt.Sprintf("Received status %d", resp.StatusCode))
}

// CheckCert forces an https HEAD request to the target and passes when the
// transport accepts the connection.
func (p *Prober) CheckCert(target string) Result {
	_, err := p.head("https://"+http.StripProtocol(target), false)
	if err != nil {
		return fail(err.Error())
	}
	return pass()
}

// CheckPermanentRedirect passes on a 301 whose Location matches expected.
func (p *Prober) CheckPermanentRedirect(target, expected string) Result {
	pattern, err := locationPattern(expected)
	if err != nil {
		return fail(err.Error())
	}

	resp, err := p.head(http.MakeURL(target), false)
	if err != nil {
		return fail(err.Error())
	}

	location := resp.Location()
	if resp.StatusCode == 301 && pattern.MatchString(location) {
		return pass()
	}
	return fail(sentence(
		temporaryRedirectFragment(resp.StatusCode),
		notRedirectFragment(resp.StatusCode),
		locationFragment(pattern, location),
	))
}

// CheckTemporaryRedirect passes on a 302 or 307 whose Location matches expected.
func (p *Prober) CheckTemporaryRedirect(target, expected string) Result {
	pattern, err := locationPattern(expected)
	if err != nil {
		return fail(err.Error())
	}

	resp, err := p.head(http.MakeURL(target), false)
	if err != nil {
		return fail(err.Error())
	}

	location := resp.Location()
	if resp.IsTemporaryRedirect() && pattern.MatchString(location) {
		return pass()
	}
	return fail(sentence(
		permanentRedirectFragment(resp.StatusCode),
		notRedirectFragment(resp.StatusCode),
		locationFragment(pattern, location),
	))
}

// CheckHTTPSEverywhere passes when the plain http form of the target
// permanently redirects to an https destination with a valid certificate.
func (p *Prober) CheckHTTPSEverywhere(target string) Result {
	resp, err := p.head("http://"+http.StripProtocol(target), false)
	if err != nil {
		p.logger.Debug("plain http request failed", zap.String("target", target), zap.Error(err))
		return fail("Connection failed")
	}

	location := resp.Location()
	protocol := http.Protocol(location)
	validCert := location != "" && p.CheckCert(location).Passed

	if resp.StatusCode == 301 && protocol == "https" && validCert {
		return pass()
	}
	return fail(sentence(
		temporaryRedirectFragment(resp.StatusCode),
		notRedirectFragment(resp.StatusCode),
		protocolFragment(protocol),
		certFragment(validCert),
	))
}

// CheckStatus passes when the target answers exactly the expected code.
// Redirects are not followed.
func (p *Prober) CheckStatus(target string, expected int) Result {
	resp, err := p.head(http.MakeURL(target), false)
	if err != nil {
		return fail(err.Error())
	}
	if resp.StatusCode == expected {
		return pass()
	}
	return fail(fmt.Sprintf("Received status %d", resp.StatusCode))
}
