package validation

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/multierr"
)

// Status is the outcome of a single check.
type Status int

const (
	Passed Status = iota
	Failed
	Warning
	Skipped
)

var statusStyles = map[Status]struct {
	name string
	icon string
	attr color.Attribute
}{
	Passed:  {"passed", "✓", color.FgGreen},
	Failed:  {"failed", "✗", color.FgRed},
	Warning: {"warning", "!", color.FgYellow},
	Skipped: {"skipped", "○", color.FgHiBlack},
}

func (s Status) String() string {
	if st, ok := statusStyles[s]; ok {
		return st.name
	}
	return "unknown"
}

// Check is a named startup check. Run returns a short detail line; a
// failing Optional check only warns.
type Check struct {
	Name     string
	Optional bool
	Run      func(ctx context.Context) (string, error)
}

// Step records one executed (or skipped) check.
type Step struct {
	Name    string
	Status  Status
	Detail  string
	Err     error
	Elapsed time.Duration
}

// Result summarizes a suite run.
type Result struct {
	Steps    []Step
	Duration time.Duration
}

func (r Result) count(s Status) int {
	n := 0
	for _, step := range r.Steps {
		if step.Status == s {
			n++
		}
	}
	return n
}

func (r Result) Passed() int   { return r.count(Passed) }
func (r Result) Failed() int   { return r.count(Failed) }
func (r Result) Warnings() int { return r.count(Warning) }

// OK reports whether no required check failed.
func (r Result) OK() bool { return r.Failed() == 0 }

// Err combines the errors of failed checks. Warnings are not included.
func (r Result) Err() error {
	var err error
	for _, step := range r.Steps {
		if step.Status == Failed {
			err = multierr.Append(err, fmt.Errorf("%s: %w", step.Name, step.Err))
		}
	}
	return err
}

// Summary is a one-line description for logs.
func (r Result) Summary() string {
	var sb strings.Builder
	verdict := "passed"
	if !r.OK() {
		verdict = "failed"
	}
	fmt.Fprintf(&sb, "checks %s: %d/%d passed", verdict, r.Passed(), len(r.Steps))
	if n := r.Failed(); n > 0 {
		fmt.Fprintf(&sb, ", %d failed", n)
	}
	if n := r.Warnings(); n > 0 {
		fmt.Fprintf(&sb, ", %d warnings", n)
	}
	fmt.Fprintf(&sb, " in %v", r.Duration.Round(time.Millisecond))
	return sb.String()
}

// Suite runs checks in order, printing progress to its output.
type Suite struct {
	title    string
	out      io.Writer
	quiet    bool
	failFast bool
	checks   []Check
}

// Option configures a Suite.
type Option func(*Suite)

// WithOutput redirects progress output; the default is stdout.
func WithOutput(w io.Writer) Option { return func(s *Suite) { s.out = w } }

// Quiet disables progress output.
func Quiet() Option { return func(s *Suite) { s.quiet = true } }

// FailFast skips the remaining checks after the first required failure.
func FailFast() Option { return func(s *Suite) { s.failFast = true } }

// NewSuite returns an empty suite printing under title.
func NewSuite(title string, opts ...Option) *Suite {
	s := &Suite{title: title, out: os.Stdout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends checks.
func (s *Suite) Add(checks ...Check) *Suite {
	s.checks = append(s.checks, checks...)
	return s
}

// Run executes the checks. Once ctx is done the remaining checks are
// skipped.
func (s *Suite) Run(ctx context.Context) Result {
	start := time.Now()
	s.printf(color.New(color.FgCyan, color.Bold), "\n━━━ %s ━━━\n\n", s.title)

	res := Result{Steps: make([]Step, 0, len(s.checks))}
	stop := false
	for _, c := range s.checks {
		var step Step
		if stop || ctx.Err() != nil {
			step = Step{Name: c.Name, Status: Skipped}
		} else {
			step = s.runCheck(ctx, c)
			stop = s.failFast && step.Status == Failed
		}
		s.printStep(step)
		res.Steps = append(res.Steps, step)
	}
	res.Duration = time.Since(start)
	s.printResult(res)
	return res
}

func (s *Suite) runCheck(ctx context.Context, c Check) Step {
	if !s.quiet {
		fmt.Fprintf(s.out, "  ◌ %s...", c.Name)
	}
	t0 := time.Now()
	detail, err := c.Run(ctx)
	step := Step{Name: c.Name, Detail: detail, Err: err, Elapsed: time.Since(t0)}
	switch {
	case err == nil:
		step.Status = Passed
	case c.Optional:
		step.Status = Warning
	default:
		step.Status = Failed
	}
	return step
}

func (s *Suite) printf(c *color.Color, format string, args ...any) {
	if !s.quiet {
		c.Fprintf(s.out, format, args...)
	}
}

func (s *Suite) printStep(step Step) {
	if s.quiet {
		return
	}
	st := statusStyles[step.Status]
	c := color.New(st.attr)
	dim := color.New(color.FgHiBlack)

	// \r overwrites the "◌ running" line
	c.Fprintf(s.out, "\r  %s %s", st.icon, step.Name)
	if step.Detail != "" {
		dim.Fprintf(s.out, " - %s", step.Detail)
	}
	fmt.Fprintln(s.out)
	if step.Err != nil {
		c.Fprintf(s.out, "    └─ %v\n", step.Err)
	}
}

func (s *Suite) printResult(r Result) {
	if s.quiet {
		return
	}
	dim := color.New(color.FgHiBlack)
	fmt.Fprintln(s.out)
	if r.OK() {
		ok := color.New(color.FgGreen, color.Bold)
		ok.Fprint(s.out, "━━━ Checks Passed ")
		dim.Fprintf(s.out, "(%d/%d in %v)", r.Passed(), len(r.Steps), r.Duration.Round(time.Millisecond))
		ok.Fprintln(s.out, " ━━━")
	} else {
		bad := color.New(color.FgRed, color.Bold)
		bad.Fprint(s.out, "━━━ Checks Failed ")
		dim.Fprintf(s.out, "(%d passed, %d failed)", r.Passed(), r.Failed())
		bad.Fprintln(s.out, " ━━━")
	}
	fmt.Fprintln(s.out)
}
