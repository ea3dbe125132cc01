// Package suite reads declarative check files.
//
// A suite file is YAML with a name, optional variables, and a list of checks.
// Each check names a target and the matcher it must satisfy:
//
//	name: production
//	variables:
//	  domain: example.com
//	checks:
//	  - target: "{{domain}}"
//	    expect: enforce_https_everywhere
//	  - target: "{{domain}}"
//	    expect: redirect_permanently_to
//	    to: www.example.com
package suite
