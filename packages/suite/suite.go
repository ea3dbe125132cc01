package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/webmatch/packages/assertions"
	"github.com/abdul-hamid-achik/webmatch/packages/core/env"
	"gopkg.in/yaml.v3"
)

type File struct {
	Path      string            `yaml:"-"`
	Name      string            `yaml:"name"`
	Variables map[string]string `yaml:"variables,omitempty"`
	Checks    []Check           `yaml:"checks"`
}

type Check struct {
	Name   string   `yaml:"name,omitempty"`
	Target string   `yaml:"target"`
	Expect string   `yaml:"expect"`
	To     string   `yaml:"to,omitempty"`
	Status any      `yaml:"status,omitempty"`
	Schema string   `yaml:"schema,omitempty"`
	Path   string   `yaml:"path,omitempty"`
	Tags   []string `yaml:"tags,omitempty"`
	Skip   string   `yaml:"skip,omitempty"`
	Line   int      `yaml:"-"`
}

// ParseFile reads and parses a suite file. Validation is separate.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes suite YAML. path is recorded on the result and used in
// error messages.
func Parse(data []byte, path string) (*File, error) {
	f := &File{Path: path}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(root.Content) == 0 {
		return f, nil
	}
	if err := root.Decode(f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	recordLines(root.Content[0], f.Checks)

	if f.Name == "" {
		f.Name = defaultName(path)
	}
	return f, nil
}

func recordLines(doc *yaml.Node, checks []Check) {
	if doc.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "checks" {
			continue
		}
		items := doc.Content[i+1].Content
		for j := range checks {
			if j < len(items) {
				checks[j].Line = items[j].Line
			}
		}
		return
	}
}

func defaultName(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".webmatch.yaml", ".webmatch.yml", ".yaml", ".yml"} {
		if trimmed, ok := strings.CutSuffix(base, ext); ok && trimmed != "" {
			return trimmed
		}
	}
	return base
}

// DisplayName is the check's name, or its target and matcher when unnamed.
func (c Check) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Target + " " + c.Expect
}

// HasTag reports whether the check carries any of tags. No tags matches all.
func (c Check) HasTag(tags ...string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range c.Tags {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

// Resolve substitutes variables in every string field.
func (c Check) Resolve(r *env.Resolver) Check {
	c.Name = r.Resolve(c.Name)
	c.Target = r.Resolve(c.Target)
	c.To = r.Resolve(c.To)
	c.Schema = r.Resolve(c.Schema)
	c.Path = r.Resolve(c.Path)
	if s, ok := c.Status.(string); ok {
		c.Status = r.Resolve(s)
	}
	return c
}

// Matcher builds the matcher the check names. Relative schema paths are
// taken from baseDir.
func (c Check) Matcher(baseDir string) (assertions.Matcher, error) {
	switch c.Expect {
	case assertions.NameHaveAValidCert:
		return assertions.HaveAValidCert(), nil
	case assertions.NameRedirectPermanentlyTo:
		return assertions.RedirectPermanentlyTo(c.To), nil
	case assertions.NameRedirectTemporarilyTo:
		return assertions.RedirectTemporarilyTo(c.To), nil
	case assertions.NameEnforceHTTPSEverywhere:
		return assertions.EnforceHTTPSEverywhere(), nil
	case assertions.NameBeUp:
		return assertions.BeUp(), nil
	case assertions.NameBeStatus:
		code, err := assertions.ParseStatus(c.Status)
		if err != nil {
			return assertions.Matcher{}, err
		}
		return assertions.BeStatus(code), nil
	case assertions.NameMatchJSONSchema:
		schema := c.Schema
		if schema != "" && !filepath.IsAbs(schema) {
			schema = filepath.Join(baseDir, schema)
		}
		return assertions.MatchJSONSchemaAt(schema, c.Path), nil
	}
	return assertions.Matcher{}, fmt.Errorf("unknown expectation %q", c.Expect)
}
