package device

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tturner/nxsync/internal/logging"
)

// Runner executes a command line on a device. *transport.SSH satisfies it.
type Runner interface {
	Run(ctx context.Context, command string) (exitCode int, stdout, stderr string, err error)
}

// SSHChannel is a Channel that runs CLI commands on SSH exec sessions.
// Structured replies are requested by piping through "| json".
type SSHChannel struct {
	runner Runner
	log    *logging.Logger
}

// NewSSHChannel wraps a Runner.
func NewSSHChannel(runner Runner, logger *logging.Logger) *SSHChannel {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SSHChannel{runner: runner, log: logger}
}

// Show runs command and returns its text output.
func (c *SSHChannel) Show(ctx context.Context, command string) (string, error) {
	return c.run(ctx, command)
}

// ShowStructured runs "command | json". Output that is not a JSON object is
// reported as KindStructuredUnsupported with the text in RawOutput.
func (c *SSHChannel) ShowStructured(ctx context.Context, command string) (map[string]any, error) {
	out, err := c.run(ctx, command+" | json")
	if err != nil {
		if cerr, ok := err.(*CommandError); ok {
			cerr.Command = command
		}
		return nil, err
	}

	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return nil, nil
	}
	if strings.Contains(trimmed, "No such file") {
		return nil, &CommandError{Command: command, Kind: KindFailed, Message: trimmed, RawOutput: out}
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(trimmed), &body); err != nil {
		return nil, &CommandError{
			Command:   command,
			Kind:      KindStructuredUnsupported,
			Message:   structuredUnsupportedMarker,
			RawOutput: out,
		}
	}
	return body, nil
}

func (c *SSHChannel) run(ctx context.Context, command string) (string, error) {
	exitCode, stdout, stderr, err := c.runner.Run(ctx, command)
	c.log.LogCommand("ssh", command, len(stdout), err)
	if err != nil {
		return "", err
	}

	if exitCode != 0 {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = strings.TrimSpace(stdout)
		}
		return "", &CommandError{Command: command, Kind: classify(msg), Message: msg, RawOutput: stdout}
	}
	if isCLIError(stdout) {
		msg := strings.TrimSpace(stdout)
		return "", &CommandError{Command: command, Kind: classify(msg), Message: msg, RawOutput: stdout}
	}
	return stdout, nil
}

// isCLIError reports whether output is an NX-OS parser error rather than
// command output.
func isCLIError(out string) bool {
	trimmed := strings.TrimSpace(out)
	return strings.HasPrefix(trimmed, "% ") ||
		strings.HasPrefix(trimmed, "Syntax error while parsing") ||
		strings.Contains(trimmed, "Invalid command at")
}

var _ Channel = (*SSHChannel)(nil)
