package sreport

import (
	"context"

	"github.com/rs/zerolog"
)

// Extractor runs sreport for one user and date range and totals the SUs
type Extractor struct {
	runner  Runner
	parser  *Parser
	command string
	cluster string
	logger  zerolog.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithRunner replaces the os/exec runner
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithParser replaces the default report parser
func WithParser(p *Parser) Option {
	return func(e *Extractor) { e.parser = p }
}

// WithCommand sets the sreport binary name or path
func WithCommand(name string) Option {
	return func(e *Extractor) {
		if name != "" {
			e.command = name
		}
	}
}

// WithCluster scopes every query to one cluster
func WithCluster(cluster string) Option {
	return func(e *Extractor) { e.cluster = cluster }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an Extractor running "sreport" via os/exec by default
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		runner:  ExecRunner{},
		parser:  DefaultParser(),
		command: "sreport",
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ComputeUsage returns the total SUs billed to user between start and end.
// A failed command is returned as *CommandError; malformed rows count as zero.
func (e *Extractor) ComputeUsage(ctx context.Context, user, start, end string) (float64, error) {
	report, err := e.Extract(ctx, Query{User: user, Start: start, End: end})
	if err != nil {
		return 0, err
	}
	return report.Total, nil
}

// Extract runs q and returns the parsed report
func (e *Extractor) Extract(ctx context.Context, q Query) (Report, error) {
	args := q.Args(e.cluster)
	e.logger.Debug().Str("command", e.command).Strs("args", args).Msg("running sreport")

	out, err := e.runner.Run(ctx, e.command, args...)
	if err != nil {
		return Report{}, err
	}

	report := e.parser.Parse(out)
	if report.Skipped > 0 {
		e.logger.Debug().
			Str("user", q.User).
			Int("rows", report.Rows).
			Int("skipped", report.Skipped).
			Msg("skipped non-numeric report rows")
	}
	return report, nil
}
