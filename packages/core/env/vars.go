package env

import (
	"os"
	"strings"
)

// VarPrefix marks process environment variables that become suite variables.
// WEBMATCH_VAR_domain=example.com defines {{domain}}.
const VarPrefix = "WEBMATCH_VAR_"

// Merge combines variable sources. Later sources win.
func Merge(sources ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// FromOS returns the process environment variables carrying prefix, with the
// prefix removed. An empty prefix returns nothing.
func FromOS(prefix string) map[string]string {
	result := make(map[string]string)
	if prefix == "" {
		return result
	}
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if name, ok := strings.CutPrefix(key, prefix); ok && name != "" {
			result[name] = value
		}
	}
	return result
}
