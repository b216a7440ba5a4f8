// Package action runs entity scripts and normalizes their results.
//
// On/off kinds (switch, binary sensor) report state through the exit
// status of their state script. Value kinds (number, sensor) report the
// trimmed standard output of their state script, whatever the exit
// status. Scripts run through "bash -c" on the calling goroutine and are
// killed when the caller's context is cancelled.
package action

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fisaks/computer-assistant/internal/entity"
	"github.com/fisaks/computer-assistant/internal/logging"
	"github.com/fisaks/computer-assistant/internal/metrics"
)

var (
	ErrScriptSpawn  = errors.New("script could not be started")
	ErrScriptOutput = errors.New("script output is not valid UTF-8")
	ErrUnknownState = errors.New("unknown state")
	ErrNotSupported = errors.New("entity kind does not support this action")
)

const (
	DefaultShell = "bash"
	// CallerToken is passed as $0 to number command scripts.
	CallerToken  = "computer-assistant"
	StateOn      = "ON"
	StateOff     = "OFF"
	PayloadPress = "PRESS"
)

type Invoker struct {
	Shell   string
	Stdout  io.Writer // command script stdout
	Stderr  io.Writer // stderr of every script
	Metrics *metrics.Metrics
}

func NewInvoker(m *metrics.Metrics) *Invoker {
	return &Invoker{
		Shell:   DefaultShell,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Metrics: m,
	}
}

// ParseState accepts ON or OFF in any case.
func ParseState(payload string) (string, error) {
	switch strings.ToUpper(payload) {
	case StateOn:
		return StateOn, nil
	case StateOff:
		return StateOff, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownState, payload)
}

func (i *Invoker) shell() string {
	if i.Shell == "" {
		return DefaultShell
	}
	return i.Shell
}

func (i *Invoker) cmd(ctx context.Context, script string, stdout io.Writer, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, i.shell(), append([]string{"-c", script}, args...)...)
	cmd.Stdout = stdout
	cmd.Stderr = i.Stderr
	return cmd
}

// run executes the script and reports whether it exited with status zero.
func (i *Invoker) run(ctx context.Context, script string, stdout io.Writer, args ...string) (bool, error) {
	err := i.cmd(ctx, script, stdout, args...).Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %s: %w", ErrScriptSpawn, script, err)
}

func (i *Invoker) observe(kind entity.Kind, role string, start time.Time, err error) {
	i.Metrics.ObserveScript(kind.String(), role, time.Since(start), err)
}

// State produces the current state payload of a publishable entity.
func (i *Invoker) State(ctx context.Context, e entity.Entity) (state string, err error) {
	if !entity.IsPublishable(e) {
		return "", fmt.Errorf("%w: %s has no state", ErrNotSupported, e.Kind())
	}
	start := time.Now()
	defer func() { i.observe(e.Kind(), metrics.RoleState, start, err) }()

	script := entity.StateScript(e)
	if entity.ReportsOnOff(e) {
		return i.onOffState(ctx, e, script)
	}
	return i.valueState(ctx, script)
}

func (i *Invoker) onOffState(ctx context.Context, e entity.Entity, script string) (string, error) {
	ok, err := i.run(ctx, script, io.Discard)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		logging.Warn("state script could not be started, reporting OFF", "entity", e.ID(), "kind", e.Kind(), "error", err)
		return StateOff, nil
	}
	if ok {
		return StateOn, nil
	}
	return StateOff, nil
}

func (i *Invoker) valueState(ctx context.Context, script string) (string, error) {
	var out bytes.Buffer
	if _, err := i.run(ctx, script, &out); err != nil {
		return "", err
	}
	if !utf8.Valid(out.Bytes()) {
		return "", fmt.Errorf("%w: %s", ErrScriptOutput, script)
	}
	return strings.TrimSpace(out.String()), nil
}

// Command runs the script an updateable entity associates with payload.
func (i *Invoker) Command(ctx context.Context, e entity.Entity, payload string) (err error) {
	var (
		script string
		args   []string
	)
	switch v := e.(type) {
	case entity.Switch:
		state, perr := ParseState(payload)
		if perr != nil {
			return fmt.Errorf("switch %s: %w", v.ID(), perr)
		}
		script = v.OffScript
		if state == StateOn {
			script = v.OnScript
		}
	case entity.Button:
		if !strings.EqualFold(payload, PayloadPress) {
			logging.Debug("button payload ignored", "entity", v.ID(), "payload", payload)
			return nil
		}
		script = v.CommandScript
	case entity.Number:
		script = v.CommandScript
		args = []string{CallerToken, payload}
	default:
		return fmt.Errorf("%w: %s accepts no commands", ErrNotSupported, e.Kind())
	}

	start := time.Now()
	defer func() { i.observe(e.Kind(), metrics.RoleCommand, start, err) }()

	ok, err := i.run(ctx, script, i.Stdout, args...)
	if err != nil {
		return err
	}
	if !ok {
		logging.Warn("command script exited non-zero", "entity", e.ID(), "kind", e.Kind())
	}
	return nil
}
