package vbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
)

// Result is the outcome of a single VBoxManage invocation. It is plain
// data: a nonzero exit status is not an error at this layer.
type Result struct {
	ExitStatus int
	Stdout     []byte
	Stderr     []byte
}

// Runner executes VBoxManage with an argument vector and captures the
// result. Implementations must pass arguments through verbatim — no shell
// interpretation. A failure to start the child process (binary not found,
// permission denied) is returned as an error; a child that ran and exited
// nonzero is reported through Result.ExitStatus.
type Runner interface {
	Run(ctx context.Context, args ...string) (Result, error)
}

// CommandFactory creates exec.Cmd instances. Allows test injection.
type CommandFactory func(ctx context.Context, binary string, args []string) *exec.Cmd

// DefaultCommandFactory creates a standard exec.Cmd bound to ctx.
func DefaultCommandFactory(ctx context.Context, binary string, args []string) *exec.Cmd {
	return exec.CommandContext(ctx, binary, args...)
}

type execRunner struct {
	binary     string
	runAs      []string // optional wrapper, e.g. ["runuser", "vbox"]
	cmdFactory CommandFactory
	log        *slog.Logger
}

// NewRunner creates a Runner for the given VBoxManage binary. runAsUser,
// when non-empty, wraps the invocation so it executes as the VirtualBox
// owner account (runuser/su, chosen by the config layer).
func NewRunner(binary string, runAs []string, factory CommandFactory, log *slog.Logger) Runner {
	if factory == nil {
		factory = DefaultCommandFactory
	}
	return &execRunner{
		binary:     binary,
		runAs:      runAs,
		cmdFactory: factory,
		log:        log,
	}
}

func (r *execRunner) Run(ctx context.Context, args ...string) (Result, error) {
	binary := r.binary
	argv := args
	if len(r.runAs) > 0 {
		binary = r.runAs[0]
		argv = append(append(append([]string{}, r.runAs[1:]...), r.binary), args...)
	}

	cmd := r.cmdFactory(ctx, binary, argv)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("running VBoxManage", "args", args)

	err := cmd.Run()
	res := Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The tool ran and exited nonzero. A timeout also surfaces
			// here once the child is killed, so check the context first.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, fmt.Errorf("VBoxManage %v: %w", args, ctxErr)
			}
			res.ExitStatus = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("starting VBoxManage %v: %w", args, err)
	}

	return res, nil
}
