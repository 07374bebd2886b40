package smf

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Command is a single external command invocation
type Command struct {
	// Name is the binary to execute
	Name string
	// Args are the arguments passed to the binary
	Args []string
}

// NewCommand builds a Command from a binary and its arguments
func NewCommand(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// String returns the command line joined by spaces
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// CommandResult is the outcome of a command that ran to completion
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports whether the command exited zero
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// Runner executes external commands. A non-zero exit is reported through
// CommandResult.ExitCode; the error is reserved for commands that could not
// be run.
type Runner interface {
	Run(ctx context.Context, cmd Command) (CommandResult, error)
}

// ExecRunner runs commands on the local host through os/exec
type ExecRunner struct {
	// Privileged prefixes each command with PrivilegeCommand
	Privileged bool

	// PrivilegeCommand is the privilege escalation command (default: "pfexec")
	PrivilegeCommand string

	// Timeout bounds each command. Zero disables the per-command timeout.
	Timeout time.Duration
}

// NewExecRunner creates an ExecRunner that escalates when not running as root
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Privileged:       os.Geteuid() != 0,
		PrivilegeCommand: DefaultPrivilegeCommand,
		Timeout:          DefaultCommandTimeout,
	}
}

// WithPrivilege configures privilege escalation
func (r *ExecRunner) WithPrivilege(use bool, command string) *ExecRunner {
	r.Privileged = use
	if command != "" {
		r.PrivilegeCommand = command
	}
	return r
}

// WithTimeout sets the per-command timeout
func (r *ExecRunner) WithTimeout(d time.Duration) *ExecRunner {
	r.Timeout = d
	return r
}

// Run executes cmd and captures its output
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (CommandResult, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var c *exec.Cmd
	if r.Privileged && r.PrivilegeCommand != "" {
		c = exec.CommandContext(ctx, r.PrivilegeCommand, append([]string{cmd.Name}, cmd.Args...)...)
	} else {
		c = exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := CommandResult{
		Stdout: stdout.String(),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, &CommandError{Command: cmd, ExitCode: -1, Stderr: res.Stderr, Err: err}
	}

	return res, nil
}

// runCommand runs cmd, wrapping launch failures in a *CommandError
func runCommand(ctx context.Context, r Runner, cmd Command) (CommandResult, error) {
	res, err := r.Run(ctx, cmd)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return res, err
		}
		return res, &CommandError{Command: cmd, ExitCode: -1, Stderr: res.Stderr, Err: err}
	}
	return res, nil
}

// runChecked runs cmd and converts a non-zero exit into a *CommandError
func runChecked(ctx context.Context, r Runner, cmd Command) (CommandResult, error) {
	res, err := runCommand(ctx, r, cmd)
	if err != nil {
		return res, err
	}
	if !res.Success() {
		return res, &CommandError{Command: cmd, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res, nil
}
