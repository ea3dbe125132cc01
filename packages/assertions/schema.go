package assertions

import (
	"fmt"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/webmatch/packages/http"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// MatchJSONSchema validates the target's JSON body against the schema file.
func MatchJSONSchema(schemaPath string) Matcher {
	return MatchJSONSchemaAt(schemaPath, "")
}

// MatchJSONSchemaAt validates the part of the body selected by a gjson path.
func MatchJSONSchemaAt(schemaPath, path string) Matcher {
	description := "match json schema " + schemaPath
	if path != "" {
		description += " at " + path
	}
	return Matcher{
		name:        NameMatchJSONSchema,
		description: description,
		eval: func(p *Prober, target string) Result {
			return p.CheckJSONSchema(target, schemaPath, path)
		},
	}
}

func loadSchema(schemaPath string) (*gojsonschema.Schema, error) {
	if strings.TrimSpace(schemaPath) == "" {
		return nil, fmt.Errorf("%w: no schema given", ErrSchemaUnreadable)
	}
	data, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaUnreadable, err)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaUnreadable, schemaPath, err)
	}
	return schema, nil
}

// CheckJSONSchema fetches the target with GET, following redirects, and
// validates the body. A path narrows validation to a sub-document.
func (p *Prober) CheckJSONSchema(target, schemaPath, path string) Result {
	schema, err := loadSchema(schemaPath)
	if err != nil {
		return Result{Message: err.Error(), Err: err}
	}

	resp, err := p.fetch("GET", http.MakeURL(target), true)
	if err != nil {
		return fail(err.Error())
	}
	if resp.StatusCode != 200 {
		return fail(fmt.Sprintf("Received status %d", resp.StatusCode))
	}

	doc := resp.Body
	if !gjson.ValidBytes(doc) {
		return fail("response body is not JSON")
	}
	if path != "" {
		selected := gjson.GetBytes(doc, path)
		if !selected.Exists() {
			return fail(fmt.Sprintf("path %q not found in response", path))
		}
		doc = []byte(selected.Raw)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fail(fmt.Sprintf("schema validation error: %v", err))
	}
	if result.Valid() {
		return pass()
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return fail(fmt.Sprintf("Schema validation failed: %s", strings.Join(errs, "; ")))
}
