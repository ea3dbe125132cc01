package assertions

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/abdul-hamid-achik/webmatch/packages/http"
)

func isRedirect(status int) bool {
	return status == 301 || status == 302 || status == 307
}

func temporaryRedirectFragment(status int) string {
	if status == 302 || status == 307 {
		return fmt.Sprintf("received a temporary redirect, status %d", status)
	}
	return ""
}

func permanentRedirectFragment(status int) string {
	if status == 301 {
		return fmt.Sprintf("received a permanent redirect, status %d", status)
	}
	return ""
}

func notRedirectFragment(status int) string {
	if isRedirect(status) {
		return ""
	}
	return fmt.Sprintf("not a redirect: received status %d", status)
}

func locationFragment(pattern *regexp.Regexp, location string) string {
	if pattern.MatchString(location) {
		return ""
	}
	if location == "" {
		return "received no location"
	}
	return "received location " + location
}

func protocolFragment(protocol string) string {
	switch protocol {
	case "https":
		return ""
	case "":
		return "destination has no protocol"
	default:
		return "destination uses protocol " + strings.ToUpper(protocol)
	}
}

func certFragment(valid bool) string {
	if valid {
		return ""
	}
	return "there's no valid SSL certificate"
}

// sentence joins the non-empty fragments with "; " and capitalizes the
// first letter. The rest is left alone so URLs keep their case.
func sentence(fragments ...string) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f != "" {
			parts = append(parts, f)
		}
	}
	if len(parts) == 0 {
		return "Check failed"
	}
	return capitalize(strings.Join(parts, "; "))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// locationPattern compiles the expected redirect destination. The expected
// value is normalized with MakeURL and used as a regular expression that
// must match the whole Location header, allowing one trailing slash.
func locationPattern(expected string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("^" + http.MakeURL(expected) + "/?$")
	if err != nil {
		return nil, fmt.Errorf("invalid location pattern %q: %v", expected, err)
	}
	return re, nil
}
