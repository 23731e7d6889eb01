package poller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// RunResult is the outcome of an out-of-process poll run.
type RunResult struct {
	Success   bool      `json:"success"`
	Output    string    `json:"output"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Runner executes a single poll cycle in a separate process.
type Runner struct {
	argv    []string
	timeout time.Duration
}

// NewRunner creates a runner for command, which is split on whitespace.
func NewRunner(command string, timeout time.Duration) (*Runner, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, errors.New("poller command is empty")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Runner{argv: argv, timeout: timeout}, nil
}

// RunOnce runs the poll command and captures its output. It does not return
// an error; failures are reported in the result.
func (r *Runner) RunOnce(ctx context.Context) RunResult {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.argv[0], r.argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := RunResult{
		Success:   err == nil,
		Output:    stdout.String(),
		Error:     stderr.String(),
		Timestamp: time.Now().UTC(),
	}
	if ctx.Err() == context.DeadlineExceeded {
		res.Success = false
		res.Error = fmt.Sprintf("poller run timed out after %s", r.timeout)
	} else if err != nil && res.Error == "" {
		res.Error = err.Error()
	}
	return res
}
