// Package exec runs early-trigger and final jobs as bash commands.
//
// A job receives the record as a JSON object on stdin. Each complete or
// incomplete field is also exported as FASTLANE_<NAME>, with strings
// passed verbatim and other kinds as JSON. FASTLANE_STAGE is "trigger" or
// "final".
package exec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fwojciec/fastlane"
)

const (
	// DefaultTimeout bounds a job that sets no Timeout.
	DefaultTimeout = 2 * time.Minute

	maxOutputBytes = 16 * 1024
	maxLines       = 20
)

// Job is a shell command run when the early trigger fires or the final
// result is ready. A non-zero exit status is reported as an error.
type Job struct {
	Command string
	Timeout time.Duration
	Dir     string
	Env     []string  // extra KEY=VALUE pairs
	Stdout  io.Writer // receives the command's stdout; discarded if nil
}

// Trigger returns a TriggerFunc that runs the job with the required fields.
func (j Job) Trigger() fastlane.TriggerFunc {
	return func(ctx context.Context, required fastlane.Record) error {
		return j.run(ctx, "trigger", required, nil)
	}
}

// Final returns a FinalFunc that runs the job with the terminal record.
// FASTLANE_EVENTS holds the number of events in the session log.
func (j Job) Final() fastlane.FinalFunc {
	return func(ctx context.Context, rec fastlane.Record, events []fastlane.Event) error {
		return j.run(ctx, "final", rec, []string{"FASTLANE_EVENTS=" + strconv.Itoa(len(events))})
	}
}

func (j Job) run(ctx context.Context, stage string, rec fastlane.Record, extra []string) error {
	if strings.TrimSpace(j.Command) == "" {
		return fmt.Errorf("%s job: empty command", stage)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%s job: encode record: %w", stage, err)
	}
	env, err := Environ(rec)
	if err != nil {
		return fmt.Errorf("%s job: %w", stage, err)
	}

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := osexec.CommandContext(ctx, "bash", "-c", j.Command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second
	cmd.Dir = j.Dir
	cmd.Env = append(append(append(os.Environ(), j.Env...), env...), "FASTLANE_STAGE="+stage)
	cmd.Env = append(cmd.Env, extra...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = j.Stdout
	stderr := newTailBuffer(maxOutputBytes)
	cmd.Stderr = stderr

	err = cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *osexec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		if out := stderr.String(); out != "" {
			return fmt.Errorf("%s job exited with code %d: %s", stage, exitErr.ExitCode(), out)
		}
		return fmt.Errorf("%s job exited with code %d", stage, exitErr.ExitCode())
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s job: %w", stage, ctx.Err())
	}
	return fmt.Errorf("%s job: %w", stage, err)
}

// Environ returns FASTLANE_<NAME>=value pairs for the fields of rec that
// hold a value.
func Environ(rec fastlane.Record) ([]string, error) {
	env := make([]string, 0, len(rec))
	for _, fv := range rec {
		if fv.Phase == fastlane.PhasePending {
			continue
		}
		var v string
		if s, ok := fv.Value.(string); ok {
			v = s
		} else {
			data, err := json.Marshal(fv.Value)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", fv.Name, err)
			}
			v = string(data)
		}
		env = append(env, EnvName(fv.Name)+"="+v)
	}
	return env, nil
}

// EnvName maps a field name to its environment variable: upper-cased, with
// every character outside [A-Z0-9] replaced by an underscore.
func EnvName(field string) string {
	var b strings.Builder
	b.WriteString("FASTLANE_")
	for _, r := range strings.ToUpper(field) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
