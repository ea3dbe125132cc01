package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/webmatch/packages/assertions"
	"github.com/abdul-hamid-achik/webmatch/packages/core/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const sample = `name: production
variables:
  domain: example.com
checks:
  - name: apex enforces https
    target: "{{domain}}"
    expect: enforce_https_everywhere
    tags: [tls]
  - target: "{{domain}}"
    expect: redirect_permanently_to
    to: www.example.com
  - target: www.example.com/missing
    expect: be_status
    status: 404
  - target: api.example.com/v1/info
    expect: match_json_schema
    schema: ./schemas/info.json
    path: data
    skip: flaky upstream
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample), "prod.webmatch.yaml")
	require.NoError(t, err)

	assert.Equal(t, "production", f.Name)
	assert.Equal(t, "prod.webmatch.yaml", f.Path)
	assert.Equal(t, "example.com", f.Variables["domain"])
	require.Len(t, f.Checks, 4)

	assert.Equal(t, "apex enforces https", f.Checks[0].Name)
	assert.Equal(t, []string{"tls"}, f.Checks[0].Tags)
	assert.Equal(t, 5, f.Checks[0].Line)
	assert.Equal(t, "www.example.com", f.Checks[1].To)
	assert.Equal(t, 9, f.Checks[1].Line)
	assert.Equal(t, 404, f.Checks[2].Status)
	assert.Equal(t, "data", f.Checks[3].Path)
	assert.Equal(t, "flaky upstream", f.Checks[3].Skip)

	assert.NoError(t, f.Validate())
}

func TestParse_DefaultName(t *testing.T) {
	f, err := Parse([]byte("checks: []\n"), "dir/staging.webmatch.yml")
	require.NoError(t, err)
	assert.Equal(t, "staging", f.Name)
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(nil, "empty.webmatch.yaml")
	require.NoError(t, err)
	assert.Empty(t, f.Checks)
	assert.ErrorContains(t, f.Validate(), "no checks defined")
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("checks: [\n"), "bad.webmatch.yaml")
	assert.ErrorContains(t, err, "parsing bad.webmatch.yaml")

	_, err = Parse([]byte("checks: 12\n"), "bad.webmatch.yaml")
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.webmatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	f, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path)

	_, err = ParseFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading suite")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	f := &File{
		Path: "broken.webmatch.yaml",
		Checks: []Check{
			{Target: "", Expect: "be_fast", Line: 3},
			{Target: "example.com", Expect: assertions.NameRedirectPermanentlyTo, Line: 5},
			{Target: "example.com", Expect: assertions.NameBeStatus, Status: "teapot", Line: 8},
			{Target: "example.com", Expect: assertions.NameBeStatus, Line: 10},
			{Target: "example.com", Expect: assertions.NameMatchJSONSchema, Line: 12},
			{Target: "-bad.example.com", Expect: assertions.NameBeUp, Line: 14},
			{Target: "example.com", Line: 16},
		},
	}

	errs := multierr.Errors(f.Validate())
	require.Len(t, errs, 8)

	assert.EqualError(t, errs[0], "broken.webmatch.yaml:3: check 1: missing target")
	assert.Contains(t, errs[1].Error(), `unknown expectation "be_fast"`)
	assert.Contains(t, errs[2].Error(), ":5: check 2: redirect_permanently_to needs a to location")
	assert.Contains(t, errs[3].Error(), "invalid expected status code: teapot")
	assert.Contains(t, errs[4].Error(), "be_status needs a status")
	assert.Contains(t, errs[5].Error(), "match_json_schema needs a schema")
	assert.Contains(t, errs[6].Error(), `invalid host "-bad.example.com"`)
	assert.Contains(t, errs[7].Error(), "missing expect")
}

func TestValidate_SkipsPlaceholders(t *testing.T) {
	c := Check{Target: "{{domain}}", Expect: assertions.NameBeStatus, Status: "{{code}}"}
	assert.NoError(t, c.Validate())
}

func TestValidate_InternationalHost(t *testing.T) {
	c := Check{Target: "https://bücher.example", Expect: assertions.NameBeUp}
	assert.NoError(t, c.Validate())
}

func TestCheck_Resolve(t *testing.T) {
	r := env.NewResolver(map[string]string{"domain": "example.com", "code": "410"})
	c := Check{
		Name:   "{{domain}} gone",
		Target: "{{domain}}/old",
		Expect: assertions.NameBeStatus,
		Status: "{{code}}",
	}

	resolved := c.Resolve(r)

	assert.Equal(t, "example.com gone", resolved.Name)
	assert.Equal(t, "example.com/old", resolved.Target)
	assert.Equal(t, "410", resolved.Status)
	assert.Equal(t, "{{domain}}/old", c.Target)
	assert.NoError(t, resolved.Validate())
}

func TestCheck_Matcher(t *testing.T) {
	tests := []struct {
		check       Check
		name        string
		description string
	}{
		{Check{Expect: "have_a_valid_cert"}, assertions.NameHaveAValidCert, "have a valid cert"},
		{Check{Expect: "redirect_permanently_to", To: "b.com"}, assertions.NameRedirectPermanentlyTo, "redirect permanently to b.com"},
		{Check{Expect: "redirect_temporarily_to", To: "b.com"}, assertions.NameRedirectTemporarilyTo, "redirect temporarily to b.com"},
		{Check{Expect: "enforce_https_everywhere"}, assertions.NameEnforceHTTPSEverywhere, "enforce https everywhere"},
		{Check{Expect: "be_status", Status: "404"}, assertions.NameBeStatus, "be status 404"},
		{Check{Expect: "be_up"}, assertions.NameBeUp, "be up"},
		{Check{Expect: "match_json_schema", Schema: "schemas/info.json"}, assertions.NameMatchJSONSchema, "match json schema " + filepath.Join("suites", "schemas/info.json")},
		{Check{Expect: "match_json_schema", Schema: "/abs/info.json", Path: "data"}, assertions.NameMatchJSONSchema, "match json schema /abs/info.json at data"},
	}

	for _, tt := range tests {
		t.Run(tt.check.Expect, func(t *testing.T) {
			m, err := tt.check.Matcher("suites")
			require.NoError(t, err)
			assert.Equal(t, tt.name, m.Name())
			assert.Equal(t, tt.description, m.Description())
		})
	}

	_, err := Check{Expect: "be_fast"}.Matcher(".")
	assert.ErrorContains(t, err, `unknown expectation "be_fast"`)

	_, err = Check{Expect: "be_status", Status: "x"}.Matcher(".")
	assert.Error(t, err)
}

func TestCheck_HasTag(t *testing.T) {
	c := Check{Tags: []string{"tls", "Prod"}}

	assert.True(t, c.HasTag())
	assert.True(t, c.HasTag("prod"))
	assert.True(t, c.HasTag("dns", "tls"))
	assert.False(t, c.HasTag("dns"))
	assert.False(t, Check{}.HasTag("tls"))
}

func TestCheck_DisplayName(t *testing.T) {
	assert.Equal(t, "named", Check{Name: "named", Target: "x"}.DisplayName())
	assert.Equal(t, "example.com be_up", Check{Target: "example.com", Expect: "be_up"}.DisplayName())
}
