package suite

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/webmatch/packages/assertions"
	"github.com/abdul-hamid-achik/webmatch/packages/http"
	"go.uber.org/multierr"
	"golang.org/x/net/idna"
)

// Kinds lists every accepted value of a check's expect field.
var Kinds = []string{
	assertions.NameHaveAValidCert,
	assertions.NameRedirectPermanentlyTo,
	assertions.NameRedirectTemporarilyTo,
	assertions.NameEnforceHTTPSEverywhere,
	assertions.NameBeStatus,
	assertions.NameBeUp,
	assertions.NameMatchJSONSchema,
}

func knownKind(kind string) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Validate reports every problem in the file at once. Use multierr.Errors to
// split the result.
func (f *File) Validate() error {
	var err error
	if len(f.Checks) == 0 {
		err = multierr.Append(err, fmt.Errorf("%s: no checks defined", f.Path))
	}
	for i, c := range f.Checks {
		for _, problem := range multierr.Errors(c.Validate()) {
			err = multierr.Append(err, fmt.Errorf("%s:%d: check %d: %w", f.Path, c.Line, i+1, problem))
		}
	}
	return err
}

// Validate checks one entry. Targets still holding {{placeholders}} are not
// checked for host syntax.
func (c Check) Validate() error {
	var err error

	if strings.TrimSpace(c.Target) == "" {
		err = multierr.Append(err, fmt.Errorf("missing target"))
	} else if !strings.Contains(c.Target, "{{") {
		err = multierr.Append(err, validateHost(c.Target))
	}

	switch {
	case c.Expect == "":
		err = multierr.Append(err, fmt.Errorf("missing expect"))
	case !knownKind(c.Expect):
		err = multierr.Append(err, fmt.Errorf("unknown expectation %q (want one of %s)", c.Expect, strings.Join(Kinds, ", ")))
	}

	switch c.Expect {
	case assertions.NameRedirectPermanentlyTo, assertions.NameRedirectTemporarilyTo:
		if strings.TrimSpace(c.To) == "" {
			err = multierr.Append(err, fmt.Errorf("%s needs a to location", c.Expect))
		}
	case assertions.NameBeStatus:
		if c.Status == nil {
			err = multierr.Append(err, fmt.Errorf("be_status needs a status"))
		} else if s, ok := c.Status.(string); !ok || !strings.Contains(s, "{{") {
			if _, perr := assertions.ParseStatus(c.Status); perr != nil {
				err = multierr.Append(err, perr)
			}
		}
	case assertions.NameMatchJSONSchema:
		if strings.TrimSpace(c.Schema) == "" {
			err = multierr.Append(err, fmt.Errorf("match_json_schema needs a schema"))
		}
	}

	return err
}

func validateHost(target string) error {
	host := http.Hostname(target)
	if host == "" {
		return fmt.Errorf("invalid target %q", target)
	}
	if _, err := idna.Lookup.ToASCII(host); err != nil {
		return fmt.Errorf("invalid host %q: %v", host, err)
	}
	return nil
}
