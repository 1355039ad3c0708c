package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/bgpcheck/internal/config"
	"github.com/hamed0406/bgpcheck/internal/domain"
)

type shellProbe struct {
	args   *config.ShellArgs
	logger *zap.Logger
}

func newShell(a config.ProbeArgs, logger *zap.Logger) (Checker, error) {
	args, err := argsAs[*config.ShellArgs](a)
	if err != nil {
		return nil, err
	}
	return &shellProbe{args: args, logger: logger}, nil
}

func (p *shellProbe) Check(ctx context.Context) (domain.ProbeResult, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", p.args.Command)
	if len(p.args.Environment) > 0 {
		cmd.Env = p.args.Environment
	}
	// stop waiting on pipes held open by orphaned children
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logger.Debug("shell_run", zap.String("command", p.args.Command))
	err := cmd.Run()
	out := strings.TrimSpace(stdout.String())
	errOut := strings.TrimSpace(stderr.String())

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res := domain.Success("Shell command executed successfully")
		res.Output, res.Error = out, errOut
		return res, nil
	case errors.As(err, &exitErr) && exitErr.ExitCode() >= 0:
		res := domain.Failure(fmt.Sprintf("Command returned non-zero exit code: %d", exitErr.ExitCode()), errOut)
		res.Output = out
		return res, nil
	}
	res := domain.Failure("Shell command failed to execute", "Error: "+err.Error())
	res.Cause = err
	return res, nil
}
