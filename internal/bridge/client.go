// Package bridge invokes the external messaging tool as a subprocess.
//
// Each call runs `<command> --tool <name> [--flag value ...]` and decodes a
// JSON object `{"success": bool, "message": string, ...}` from stdout.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/pkg/logger"
	"github.com/threadmind/dm-concierge/pkg/metrics"
)

// Tool names understood by the bridge.
const (
	ToolListChats       = "list_chats"
	ToolListMessages    = "list_messages"
	ToolSendMessage     = "send_message"
	ToolMarkMessageSeen = "mark_message_seen"
)

// ErrorKind classifies bridge failures.
type ErrorKind string

const (
	KindTimeout  ErrorKind = "timeout"
	KindExec     ErrorKind = "exec"
	KindDecode   ErrorKind = "decode"
	KindRejected ErrorKind = "rejected"
)

// Error describes a failed tool call.
type Error struct {
	Tool    string
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("bridge %s: %s: %s", e.Tool, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config holds bridge settings.
type Config struct {
	// Command is split on whitespace; the first field is the executable.
	Command string
	Timeout time.Duration
	// Env is appended to the parent environment.
	Env []string
}

// Client runs bridge tools.
type Client struct {
	argv    []string
	timeout time.Duration
	env     []string
	logger  *logger.Logger
}

// NewClient creates a bridge client.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	argv := strings.Fields(cfg.Command)
	if len(argv) == 0 {
		return nil, errors.New("bridge command is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		argv:    argv,
		timeout: cfg.Timeout,
		env:     cfg.Env,
		logger:  log,
	}, nil
}

// ListChats returns the DM thread summaries.
func (c *Client) ListChats(ctx context.Context) ([]Thread, error) {
	env, err := c.call(ctx, ToolListChats, nil)
	if err != nil {
		return nil, err
	}
	return env.Threads, nil
}

// ListMessages returns the recent messages in a thread.
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]DirectMessage, error) {
	env, err := c.call(ctx, ToolListMessages, []string{"--thread_id", threadID})
	if err != nil {
		return nil, err
	}
	return env.Messages, nil
}

// SendMessage sends text to username and returns the bridge's status message.
func (c *Client) SendMessage(ctx context.Context, username, text string) (string, error) {
	env, err := c.call(ctx, ToolSendMessage, []string{"--username", username, "--message", text})
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// MarkMessageSeen marks a message as seen.
func (c *Client) MarkMessageSeen(ctx context.Context, threadID, messageID string) error {
	_, err := c.call(ctx, ToolMarkMessageSeen, []string{"--thread_id", threadID, "--message_id", messageID})
	return err
}

func (c *Client) call(ctx context.Context, tool string, args []string) (envelope, error) {
	start := time.Now()
	env, err := c.run(ctx, tool, args)

	status := "ok"
	if err != nil {
		var berr *Error
		if errors.As(err, &berr) {
			status = string(berr.Kind)
		}
		c.logger.Warn("bridge call failed", zap.String("tool", tool), zap.Error(err))
	}
	metrics.RecordBridgeCall(tool, status, time.Since(start).Seconds())
	return env, err
}

func (c *Client) run(ctx context.Context, tool string, args []string) (envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	argv := append(append(append([]string{}, c.argv[1:]...), "--tool", tool), args...)
	cmd := exec.CommandContext(ctx, c.argv[0], argv...)
	if len(c.env) > 0 {
		cmd.Env = append(os.Environ(), c.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return envelope{}, &Error{Tool: tool, Kind: KindTimeout, Message: fmt.Sprintf("no response within %s", c.timeout), Err: ctx.Err()}
	}

	var env envelope
	if err := json.Unmarshal(lastJSONLine(stdout.Bytes()), &env); err != nil {
		if runErr != nil {
			return envelope{}, &Error{Tool: tool, Kind: KindExec, Message: strings.TrimSpace(stderr.String()), Err: runErr}
		}
		return envelope{}, &Error{Tool: tool, Kind: KindDecode, Message: err.Error(), Err: err}
	}
	if !env.Success {
		return env, &Error{Tool: tool, Kind: KindRejected, Message: env.reason()}
	}
	return env, nil
}

// lastJSONLine returns the last stdout line that looks like a JSON object,
// so stray log lines printed by the tool are ignored.
func lastJSONLine(out []byte) []byte {
	out = bytes.TrimSpace(out)
	if len(out) > 0 && out[0] == '{' {
		if json.Valid(out) {
			return out
		}
	}
	lines := bytes.Split(out, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) > 0 && line[0] == '{' {
			return line
		}
	}
	return out
}
