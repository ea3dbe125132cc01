package http

import (
	"fmt"
	neturl "net/url"
	"regexp"
	"strings"
)

var (
	schemePattern   = regexp.MustCompile(`^https?://`)
	protocolPattern = regexp.MustCompile(`^(https?)`)
)

// MakeURL ensures the input carries a scheme, defaulting to plain http.
func MakeURL(urlOrDomain string) string {
	if schemePattern.MatchString(urlOrDomain) {
		return urlOrDomain
	}
	return "http://" + urlOrDomain
}

// StripProtocol removes a leading http:// or https://. A bare scheme with
// nothing after it is returned unchanged.
func StripProtocol(urlOrDomain string) string {
	for _, prefix := range []string{"https://", "http://"} {
		if rest, ok := strings.CutPrefix(urlOrDomain, prefix); ok && rest != "" {
			return rest
		}
	}
	return urlOrDomain
}

// Protocol returns the leading http or https of a URL, or "" if there is none.
func Protocol(rawURL string) string {
	m := protocolPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s (only http and https are allowed)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}

// Hostname returns the host part of a target, normalizing bare domains first.
func Hostname(target string) string {
	u, err := neturl.Parse(MakeURL(strings.TrimSpace(target)))
	if err != nil {
		return ""
	}
	return u.Hostname()
}
