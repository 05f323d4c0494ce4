package joern

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// runner executes one external command and captures its output.
type runner struct {
	dir     string
	env     []string
	timeout time.Duration
}

type result struct {
	Stdout string
	Stderr string
}

// run executes name with args. A non-zero exit or a start failure is
// returned as *ExecError with captured output.
func (r *runner) run(ctx context.Context, name string, args ...string) (*result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.dir
	cmd.Env = r.env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	execErr := &ExecError{
		Command:  append([]string{name}, args...),
		ExitCode: -1,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		execErr.ExitCode = exitErr.ExitCode()
	}
	if ctx.Err() == context.DeadlineExceeded {
		execErr.Err = fmt.Errorf("timed out after %s: %w", r.timeout, err)
	}
	return res, execErr
}

// toolEnv returns the current environment with joernDir prepended to PATH
// and JOERN_HOME set.
func toolEnv(joernDir string) []string {
	env := os.Environ()
	out := make([]string, 0, len(env)+2)
	path := joernDir
	for _, kv := range env {
		switch {
		case strings.HasPrefix(kv, "PATH="):
			path = joernDir + string(os.PathListSeparator) + strings.TrimPrefix(kv, "PATH=")
		case strings.HasPrefix(kv, "JOERN_HOME="):
		default:
			out = append(out, kv)
		}
	}
	return append(out, "PATH="+path, "JOERN_HOME="+joernDir)
}
