package joern

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoFragments indicates the export produced no graph files.
	ErrNoFragments = errors.New("export produced no graph fragments")

	// ErrMalformedFragment indicates a fragment without a balanced outer wrapper.
	ErrMalformedFragment = errors.New("malformed graph fragment")

	// ErrScriptNotFound indicates the export script is missing. Fatal for a batch.
	ErrScriptNotFound = errors.New("export script not found")

	// ErrToolNotFound indicates the Joern installation directory is unusable.
	ErrToolNotFound = errors.New("joern installation not found")

	// ErrUnknownRepr indicates an unsupported export representation.
	ErrUnknownRepr = errors.New("unknown export representation")

	// ErrStderrOutput marks a command that exited cleanly but wrote to stderr.
	ErrStderrOutput = errors.New("command wrote to stderr")
)

// ExecError captures a failed external tool invocation.
type ExecError struct {
	Command  []string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	cmd := strings.Join(e.Command, " ")
	msg := fmt.Sprintf("command %q exited with code %d", cmd, e.ExitCode)
	if errors.Is(e.Err, ErrStderrOutput) {
		msg = fmt.Sprintf("command %q wrote to stderr", cmd)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + firstLine(stderr)
	}
	return msg
}

// LogFields exposes the invocation details for structured logging.
func (e *ExecError) LogFields() map[string]any {
	return map[string]any{
		"command":   strings.Join(e.Command, " "),
		"exit_code": e.ExitCode,
		"stdout":    strings.TrimSpace(e.Stdout),
		"stderr":    strings.TrimSpace(e.Stderr),
	}
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
