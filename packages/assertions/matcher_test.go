package assertions

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingT captures failures instead of stopping the test.
type recordingT struct {
	errors []string
	failed bool
}

func (r *recordingT) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *recordingT) FailNow() {
	r.failed = true
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      any
		want    int
		wantErr bool
	}{
		{404, 404, false},
		{"404", 404, false},
		{" 301 ", 301, false},
		{int64(200), 200, false},
		{float64(302), 302, false},
		{float64(1.5), 0, true},
		{"abc", 0, true},
		{nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.in), func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBeStatus_StringAndIntAgree(t *testing.T) {
	s := newSite(t, statusHandler(http.StatusNotFound), nil)
	p := s.prober()

	fromString := p.Evaluate("example.com", BeStatus("404"))
	fromInt := p.Evaluate("example.com", BeStatus(404))

	assert.True(t, fromString.Passed, fromString.Message)
	assert.Equal(t, fromInt, fromString)
}

func TestBeStatus_InvalidCode(t *testing.T) {
	result := BeStatus("teapot").Match("example.com")

	assert.False(t, result.Passed)
	assert.Equal(t, "invalid expected status code: teapot", result.Message)
	assert.Equal(t, NameBeStatus, result.Matcher)
}

func TestMatcherNamesAndDescriptions(t *testing.T) {
	tests := []struct {
		m           Matcher
		name        string
		description string
	}{
		{HaveAValidCert(), NameHaveAValidCert, "have a valid cert"},
		{RedirectPermanentlyTo("b.com"), NameRedirectPermanentlyTo, "redirect permanently to b.com"},
		{RedirectTemporarilyTo("b.com"), NameRedirectTemporarilyTo, "redirect temporarily to b.com"},
		{EnforceHTTPSEverywhere(), NameEnforceHTTPSEverywhere, "enforce https everywhere"},
		{BeStatus(418), NameBeStatus, "be status 418"},
		{BeUp(), NameBeUp, "be up"},
		{MatchJSONSchema("s.json"), NameMatchJSONSchema, "match json schema s.json"},
		{MatchJSONSchemaAt("s.json", "data"), NameMatchJSONSchema, "match json schema s.json at data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.m.Name())
			assert.Equal(t, tt.description, tt.m.Description())
		})
	}
}

func TestEvaluate_StampsResult(t *testing.T) {
	s := newSite(t, statusHandler(http.StatusOK), nil)

	result := s.prober().Evaluate("example.com", BeUp())

	assert.True(t, result.Passed)
	assert.Equal(t, "example.com", result.Target)
	assert.Equal(t, NameBeUp, result.Matcher)
}

func TestEvaluate_ZeroMatcher(t *testing.T) {
	result := NewProber().Evaluate("example.com", Matcher{})

	assert.False(t, result.Passed)
	assert.Equal(t, "empty matcher", result.Message)
}

func TestProberExpect(t *testing.T) {
	s := newSite(t, redirectTo(http.StatusFound, "http://b.com/"), nil)
	p := s.prober()

	t.Run("passing", func(t *testing.T) {
		rt := &recordingT{}
		assert.True(t, p.Expect(rt, "a.com", RedirectTemporarilyTo("b.com")))
		assert.Empty(t, rt.errors)
	})

	t.Run("failing", func(t *testing.T) {
		rt := &recordingT{}
		assert.False(t, p.Expect(rt, "a.com", RedirectPermanentlyTo("b.com")))
		require.Len(t, rt.errors, 1)
		assert.Contains(t, rt.errors[0], "expected a.com to redirect permanently to b.com")
		assert.Contains(t, rt.errors[0], "temporary redirect")
		assert.False(t, rt.failed)
	})

	t.Run("unreadable schema aborts", func(t *testing.T) {
		rt := &recordingT{}
		assert.False(t, p.Expect(rt, "a.com", MatchJSONSchema("does/not/exist.json")))
		assert.True(t, rt.failed)
		require.Len(t, rt.errors, 1)
		assert.True(t, strings.Contains(rt.errors[0], "cannot check a.com"))
	})
}
