package assertions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Matcher names, as used in suite files and the HTTP API.
const (
	NameHaveAValidCert         = "have_a_valid_cert"
	NameRedirectPermanentlyTo  = "redirect_permanently_to"
	NameRedirectTemporarilyTo  = "redirect_temporarily_to"
	NameEnforceHTTPSEverywhere = "enforce_https_everywhere"
	NameBeStatus               = "be_status"
	NameBeUp                   = "be_up"
	NameMatchJSONSchema        = "match_json_schema"
)

// Matcher is a named check that can be evaluated against a target.
type Matcher struct {
	name        string
	description string
	eval        func(p *Prober, target string) Result
}

func (m Matcher) Name() string {
	return m.name
}

// Description reads as the tail of "expected <target> to ...".
func (m Matcher) Description() string {
	return m.description
}

// Match evaluates the matcher with the default prober.
func (m Matcher) Match(target string) Result {
	return defaultProber.Evaluate(target, m)
}

func HaveAValidCert() Matcher {
	return Matcher{
		name:        NameHaveAValidCert,
		description: "have a valid cert",
		eval: func(p *Prober, target string) Result {
			return p.CheckCert(target)
		},
	}
}

func RedirectPermanentlyTo(expected string) Matcher {
	return Matcher{
		name:        NameRedirectPermanentlyTo,
		description: "redirect permanently to " + expected,
		eval: func(p *Prober, target string) Result {
			return p.CheckPermanentRedirect(target, expected)
		},
	}
}

func RedirectTemporarilyTo(expected string) Matcher {
	return Matcher{
		name:        NameRedirectTemporarilyTo,
		description: "redirect temporarily to " + expected,
		eval: func(p *Prober, target string) Result {
			return p.CheckTemporaryRedirect(target, expected)
		},
	}
}

func EnforceHTTPSEverywhere() Matcher {
	return Matcher{
		name:        NameEnforceHTTPSEverywhere,
		description: "enforce https everywhere",
		eval: func(p *Prober, target string) Result {
			return p.CheckHTTPSEverywhere(target)
		},
	}
}

// BeStatus accepts the expected code as an int or a decimal string.
func BeStatus(code any) Matcher {
	m := Matcher{
		name:        NameBeStatus,
		description: fmt.Sprintf("be status %v", code),
	}
	expected, err := ParseStatus(code)
	if err != nil {
		m.eval = func(*Prober, string) Result {
			return fail(err.Error())
		}
		return m
	}
	m.eval = func(p *Prober, target string) Result {
		return p.CheckStatus(target, expected)
	}
	return m
}

func BeUp() Matcher {
	return Matcher{
		name:        NameBeUp,
		description: "be up",
		eval: func(p *Prober, target string) Result {
			return p.CheckUp(target)
		},
	}
}

// ParseStatus converts an expected status code given as any integer type or
// a decimal string.
func ParseStatus(code any) (int, error) {
	switch v := code.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case uint:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("invalid expected status code: %v", code)
}

// Evaluate runs m against target and stamps the result with both names.
func (p *Prober) Evaluate(target string, m Matcher) Result {
	var r Result
	if m.eval == nil {
		r = fail("empty matcher")
	} else {
		r = m.eval(p, target)
	}
	r.Target = target
	r.Matcher = m.name

	p.logger.Debug("probe finished",
		zap.String("target", target),
		zap.String("matcher", m.name),
		zap.Bool("passed", r.Passed),
		zap.String("message", r.Message),
	)
	return r
}

type tHelper interface {
	Helper()
}

// Expect evaluates m against target with the default prober and reports a
// failure on t. It returns whether the matcher passed.
func Expect(t require.TestingT, target string, m Matcher) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return defaultProber.Expect(t, target, m)
}

// Expect is the prober-specific form of the package-level Expect.
func (p *Prober) Expect(t require.TestingT, target string, m Matcher) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	r := p.Evaluate(target, m)
	if r.Err != nil {
		require.FailNow(t, fmt.Sprintf("cannot check %s: %v", target, r.Err))
		return false
	}
	if r.Passed {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected %s to %s", target, m.description), r.Message)
}
