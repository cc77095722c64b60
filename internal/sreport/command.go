package sreport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ReportType is the sreport report used for per-user SU accounting
const ReportType = "AccountUtilizationByUser"

// ErrCommandFailed is matched by every *CommandError
var ErrCommandFailed = errors.New("sreport command failed")

// Query identifies one usage lookup. Dates are YYYY-MM-DD.
type Query struct {
	User  string
	Start string
	End   string
}

// Args builds the sreport argument list for q. Hours, billing TRES,
// tree rollup and parsable output are fixed; cluster is optional.
func (q Query) Args(cluster string) []string {
	args := []string{
		"-t", "hours",
		"-T", "billing",
		"-P",
		"cluster", ReportType,
		"start=" + q.Start,
		"end=" + q.End,
		"tree",
		"user=" + q.User,
	}
	if cluster != "" {
		args = append(args, "cluster="+cluster)
	}
	return append(args, "-p")
}

// Runner executes an external command and returns its stdout
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError reports a failed sreport invocation, distinct from a
// successful run that found no usage.
type CommandError struct {
	Command  string
	ExitCode int // -1 when the process never started
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Command)
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

func (e *CommandError) Is(target error) bool { return target == ErrCommandFailed }

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run executes name with args and returns stdout. Exit status is checked.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		cerr := &CommandError{
			Command:  name,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cerr.ExitCode = exitErr.ExitCode()
		}
		return out, cerr
	}
	return out, nil
}
