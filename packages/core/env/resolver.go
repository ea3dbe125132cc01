package env

import (
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/webmatch/packages/builtin"
)

var variablePattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// WarnFunc receives a message for every placeholder left unresolved.
type WarnFunc func(format string, args ...any)

// Resolver substitutes {{name}}, {{$ENV}} and {{$func(args)}} placeholders.
// It is safe for concurrent use.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]string
	lookupEnv func(string) (string, bool)
	funcs     *builtin.Registry
	warnFunc  WarnFunc
}

// NewResolver starts with the merged sources, later sources winning.
func NewResolver(sources ...map[string]string) *Resolver {
	return &Resolver{
		variables: Merge(sources...),
		lookupEnv: os.LookupEnv,
		funcs:     builtin.NewRegistry(),
	}
}

func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) SetVariables(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

// SetFunctions replaces the registry used for {{$func(args)}} placeholders.
func (r *Resolver) SetFunctions(funcs *builtin.Registry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs = funcs
}

func (r *Resolver) lookup(expr string) (string, bool, error) {
	if name, ok := strings.CutPrefix(expr, "$"); ok {
		if builtin.IsCall(name) {
			r.mu.RLock()
			funcs := r.funcs
			r.mu.RUnlock()
			return funcs.Call(name)
		}
		val, found := r.lookupEnv(name)
		return val, found && val != "", nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	val, ok := r.variables[expr]
	return val, ok, nil
}

func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])
		val, ok, err := r.lookup(expr)
		switch {
		case err != nil:
			r.warn("function %s failed: %v", expr, err)
		case ok:
			return val
		case builtin.IsCall(strings.TrimPrefix(expr, "$")):
			r.warn("unknown function: %s", expr)
		case strings.HasPrefix(expr, "$"):
			r.warn("unresolved environment variable: %s", expr)
		default:
			r.warn("unresolved variable: %s", expr)
		}
		return match
	})
}

// Unresolved lists the placeholders in input that Resolve would leave intact.
// Function placeholders are evaluated to find out.
func (r *Resolver) Unresolved(input string) []string {
	var missing []string
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		if _, ok, err := r.lookup(expr); !ok || err != nil {
			missing = append(missing, expr)
		}
	}
	return missing
}

func (r *Resolver) Clone() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewResolver(r.variables)
	clone.lookupEnv = r.lookupEnv
	clone.warnFunc = r.warnFunc
	clone.funcs = r.funcs
	return clone
}
