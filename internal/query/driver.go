package query

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ari/su-usage/internal/history"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoOutputPath is returned when batch mode has nowhere to write
	ErrNoOutputPath = errors.New("batch mode requires an output CSV path (-o/--output-csv)")
	// ErrQueryFailed is returned in strict mode when any sreport run failed
	ErrQueryFailed = errors.New("one or more usage queries failed")
)

// OutputHeader is the first row of every batch output file
var OutputHeader = []string{"Username", "Total SUs"}

// Mode is the kind of run selected from the options
type Mode int

const (
	ModeHelp Mode = iota
	ModeSingle
	ModeBatch
)

// Options is the resolved run configuration. It is built once and never mutated.
type Options struct {
	User      string
	Days      int
	StartDate string
	EndDate   string
	InputCSV  string
	OutputCSV string
	Workers   int
	Strict    bool
}

// Mode picks batch over single user; with neither the run only prints help
func (o Options) Mode() Mode {
	switch {
	case o.InputCSV != "":
		return ModeBatch
	case o.User != "":
		return ModeSingle
	default:
		return ModeHelp
	}
}

// UsageSource computes the SU total for one user and date range
type UsageSource interface {
	ComputeUsage(ctx context.Context, user, start, end string) (float64, error)
}

// Recorder stores query results
type Recorder interface {
	Record(ctx context.Context, e *history.Entry) (int64, error)
}

// Result is one output row
type Result struct {
	Username string
	Total    float64
	Err      error
}

// Driver runs a query session end to end
type Driver struct {
	opts    Options
	usage   UsageSource
	history Recorder
	out     io.Writer
	logger  zerolog.Logger
	now     func() time.Time
	help    func() error
}

// DriverOption configures a Driver
type DriverOption func(*Driver)

// WithOutput sets where results and notices are printed
func WithOutput(w io.Writer) DriverOption {
	return func(d *Driver) { d.out = w }
}

// WithHistory logs every query to r
func WithHistory(r Recorder) DriverOption {
	return func(d *Driver) { d.history = r }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) DriverOption {
	return func(d *Driver) { d.logger = l }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) DriverOption {
	return func(d *Driver) { d.now = now }
}

// WithHelp sets the function that prints usage text when no user is given
func WithHelp(fn func() error) DriverOption {
	return func(d *Driver) { d.help = fn }
}

// NewDriver creates a Driver
func NewDriver(opts Options, usage UsageSource, options ...DriverOption) *Driver {
	d := &Driver{
		opts:   opts,
		usage:  usage,
		out:    os.Stdout,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, o := range options {
		o(d)
	}
	if d.opts.Workers < 1 {
		d.opts.Workers = 1
	}
	return d
}

// Run executes the selected mode and prints a completion notice
func (d *Driver) Run(ctx context.Context) error {
	dates := ResolveDates(d.now(), d.opts.Days, d.opts.StartDate, d.opts.EndDate)
	d.logger.Debug().Str("start", dates.Start).Str("end", dates.End).Msg("resolved date range")

	var results []Result
	switch d.opts.Mode() {
	case ModeBatch:
		var err error
		results, err = d.runBatch(ctx, dates)
		if err != nil {
			return err
		}
	case ModeSingle:
		r := d.query(ctx, d.opts.User, dates)
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("query interrupted: %w", err)
		}
		fmt.Fprintf(d.out, "%s,%s\n", r.Username, FormatTotal(r.Total))
		results = []Result{r}
	default:
		if err := d.printHelp(); err != nil {
			return err
		}
	}

	fmt.Fprintln(d.out, "Processing complete.")

	if d.opts.Strict {
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d: %w", failed, len(results), ErrQueryFailed)
		}
	}
	return nil
}

func (d *Driver) runBatch(ctx context.Context, dates DateRange) ([]Result, error) {
	users, err := ReadUsers(d.opts.InputCSV)
	if err != nil {
		return nil, err
	}

	if d.opts.OutputCSV == "" {
		return nil, ErrNoOutputPath
	}
	f, err := os.Create(d.opts.OutputCSV)
	if err != nil {
		return nil, fmt.Errorf("failed to create output CSV: %w", err)
	}
	defer f.Close()

	d.logger.Info().Int("users", len(users)).Int("workers", d.opts.Workers).Msg("starting batch")

	results := d.queryAll(ctx, users, dates)
	if err := ctx.Err(); err != nil {
		// an interrupted batch leaves no output that could pass for a finished one
		f.Close()
		os.Remove(d.opts.OutputCSV)
		return nil, fmt.Errorf("batch interrupted: %w", err)
	}
	if err := WriteResults(f, results); err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close output CSV: %w", err)
	}

	fmt.Fprintf(d.out, "Output written to %s\n", d.opts.OutputCSV)
	return results, nil
}

// queryAll runs one query per user on a bounded pool. Results keep input order.
func (d *Driver) queryAll(ctx context.Context, users []string, dates DateRange) []Result {
	results := make([]Result, len(users))

	var g errgroup.Group
	g.SetLimit(d.opts.Workers)
	for i, user := range users {
		i, user := i, user
		g.Go(func() error {
			results[i] = d.query(ctx, user, dates)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// query never fails the run; a failed lookup is a zero total with Err set.
// Once ctx is done no further sreport runs start and nothing is recorded.
func (d *Driver) query(ctx context.Context, user string, dates DateRange) Result {
	r := Result{Username: user}
	if err := ctx.Err(); err != nil {
		r.Err = err
		return r
	}

	name := strings.TrimSpace(user)
	if name == "" {
		// an empty user= filter would report every user on the cluster
		r.Err = errors.New("empty username")
	} else {
		r.Total, r.Err = d.usage.ComputeUsage(ctx, name, dates.Start, dates.End)
	}
	if err := ctx.Err(); err != nil {
		r.Total, r.Err = 0, err
		return r
	}

	if r.Err != nil {
		r.Total = 0
		d.logger.Warn().Err(r.Err).Str("user", user).Msg("usage query failed, reporting 0")
	} else {
		d.logger.Debug().Str("user", user).Float64("total", r.Total).Msg("usage query complete")
	}

	d.record(ctx, r, dates)
	return r
}

func (d *Driver) record(ctx context.Context, r Result, dates DateRange) {
	if d.history == nil {
		return
	}
	e := &history.Entry{
		Username:  r.Username,
		StartDate: dates.Start,
		EndDate:   dates.End,
		Total:     r.Total,
		Failed:    r.Err != nil,
		QueriedAt: d.now().Unix(),
	}
	if r.Err != nil {
		e.Error = r.Err.Error()
	}
	if _, err := d.history.Record(ctx, e); err != nil {
		d.logger.Warn().Err(err).Str("user", r.Username).Msg("failed to record query history")
	}
}

func (d *Driver) printHelp() error {
	if d.help != nil {
		return d.help()
	}
	_, err := fmt.Fprintln(d.out, "usage: su-usage [user] [--days N] [-s START] [-e END] [-i INPUT.csv -o OUTPUT.csv]")
	return err
}

// ReadUsers returns column 0 of every row in the CSV at path, unchanged.
// There is no header row; extra columns are ignored.
func ReadUsers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input CSV: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var users []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read input CSV %s: %w", path, err)
		}
		users = append(users, record[0])
	}
	return users, nil
}

// WriteResults writes the header and one row per result
func WriteResults(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OutputHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write([]string{r.Username, FormatTotal(r.Total)}); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", r.Username, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush output CSV: %w", err)
	}
	return nil
}
