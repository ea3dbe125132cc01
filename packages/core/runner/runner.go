package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/webmatch/packages/assertions"
	"github.com/abdul-hamid-achik/webmatch/packages/core/env"
	"github.com/abdul-hamid-achik/webmatch/packages/suite"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultConcurrency is the default number of concurrent checks in parallel mode
	DefaultConcurrency = 5
)

type Runner struct {
	prober  *assertions.Prober
	config  *Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

type Config struct {
	// Bail stops a sequential run at the first failing check.
	Bail       bool
	NameFilter string
	TagsFilter []string
	// Rate caps checks per second. Zero or less means no limit.
	Rate        float64
	Parallel    bool
	Concurrency int
	// Variables override those declared in the suite file.
	Variables map[string]string
}

type Option func(*Runner)

func WithProber(p *assertions.Prober) Option {
	return func(r *Runner) {
		if p != nil {
			r.prober = p
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRunner(cfg *Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}

	r := &Runner{
		prober: assertions.Default(),
		config: cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if cfg.Rate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}

	return r
}

type RunResult struct {
	File     string
	Name     string
	Results  []*CheckResult
	Duration time.Duration
	Passed   int
	Failed   int
	Skipped  int
	Latency  Latency
}

// Success reports whether no check failed.
func (r *RunResult) Success() bool {
	return r.Failed == 0
}

type CheckResult struct {
	Name        string
	Target      string
	Matcher     string
	Description string
	Line        int
	Passed      bool
	Skipped     bool
	SkipReason  string
	Message     string
	Duration    time.Duration
	// Error is set when the check could not be evaluated at all, such as an
	// unreadable schema.
	Error error
}

func (r *Runner) RunFile(ctx context.Context, path string) (*RunResult, error) {
	file, err := suite.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, file)
}

// Run evaluates every selected check in file. It returns an error, and no
// result, when the suite does not validate after variable resolution.
func (r *Runner) Run(ctx context.Context, file *suite.File) (*RunResult, error) {
	start := time.Now()

	resolver := env.NewResolver(file.Variables, r.config.Variables)
	resolver.SetWarnFunc(func(format string, args ...any) {
		r.logger.Warn(fmt.Sprintf(format, args...), zap.String("file", file.Path))
	})

	resolved := *file
	resolved.Checks = make([]suite.Check, len(file.Checks))
	for i, c := range file.Checks {
		resolved.Checks[i] = c.Resolve(resolver)
	}
	if err := resolved.Validate(); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}

	result := &RunResult{
		File: file.Path,
		Name: file.Name,
	}
	baseDir := filepath.Dir(file.Path)

	var selected []suite.Check
	for _, c := range resolved.Checks {
		if !r.shouldRun(c) {
			result.Results = append(result.Results, skipped(c, "filtered out"))
			result.Skipped++
			continue
		}
		if c.Skip != "" {
			result.Results = append(result.Results, skipped(c, c.Skip))
			result.Skipped++
			continue
		}
		selected = append(selected, c)
	}

	r.logger.Debug("running suite",
		zap.String("file", file.Path),
		zap.Int("checks", len(selected)),
		zap.Int("skipped", result.Skipped),
	)

	var executed []*CheckResult
	var runErr error
	if r.config.Parallel {
		executed, runErr = r.runParallel(ctx, selected, baseDir)
	} else {
		executed, runErr = r.runSequential(ctx, selected, baseDir)
	}

	latency := newLatencyRecorder()
	for _, cr := range executed {
		result.Results = append(result.Results, cr)
		latency.record(cr.Duration)
		if cr.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	result.Latency = latency.summary()
	result.Duration = time.Since(start)
	return result, runErr
}

func (r *Runner) runSequential(ctx context.Context, checks []suite.Check, baseDir string) ([]*CheckResult, error) {
	var results []*CheckResult
	for _, c := range checks {
		if err := r.wait(ctx); err != nil {
			return results, err
		}

		cr := r.runCheck(c, baseDir)
		results = append(results, cr)

		if !cr.Passed && r.config.Bail {
			break
		}
	}
	return results, nil
}

func (r *Runner) runParallel(ctx context.Context, checks []suite.Check, baseDir string) ([]*CheckResult, error) {
	concurrency := r.config.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]*CheckResult, len(checks))
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	var waitErr error
	for i, c := range checks {
		if err := r.wait(ctx); err != nil {
			waitErr = err
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, check suite.Check) {
			defer wg.Done()
			defer func() { <-sem }()

			results[idx] = r.runCheck(check, baseDir)
		}(i, c)
	}
	wg.Wait()

	// Unstarted checks leave nil slots behind when the context ends early.
	done := results[:0]
	for _, cr := range results {
		if cr != nil {
			done = append(done, cr)
		}
	}
	return done, waitErr
}

func (r *Runner) wait(ctx context.Context) error {
	if r.limiter == nil {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

func (r *Runner) runCheck(c suite.Check, baseDir string) *CheckResult {
	cr := &CheckResult{
		Name:    c.DisplayName(),
		Target:  c.Target,
		Matcher: c.Expect,
		Line:    c.Line,
	}

	m, err := c.Matcher(baseDir)
	if err != nil {
		cr.Error = err
		cr.Message = err.Error()
		return cr
	}
	cr.Description = m.Description()

	start := time.Now()
	outcome := r.prober.Evaluate(c.Target, m)
	cr.Duration = time.Since(start)

	cr.Passed = outcome.Passed
	cr.Message = outcome.Message
	cr.Error = outcome.Err
	return cr
}

func skipped(c suite.Check, reason string) *CheckResult {
	return &CheckResult{
		Name:       c.DisplayName(),
		Target:     c.Target,
		Matcher:    c.Expect,
		Line:       c.Line,
		Skipped:    true,
		SkipReason: reason,
	}
}

func (r *Runner) shouldRun(c suite.Check) bool {
	if r.config.NameFilter != "" && !matchesPattern(c.DisplayName(), r.config.NameFilter) {
		return false
	}
	return c.HasTag(r.config.TagsFilter...)
}

// matchesPattern supports a leading and/or trailing * wildcard.
func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	prefix := strings.HasSuffix(pattern, "*")
	suffix := strings.HasPrefix(pattern, "*")
	core := strings.TrimSuffix(strings.TrimPrefix(pattern, "*"), "*")

	switch {
	case prefix && suffix:
		return strings.Contains(name, core)
	case suffix:
		return strings.HasSuffix(name, core)
	case prefix:
		return strings.HasPrefix(name, core)
	}
	return name == pattern
}
