package probe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hamed0406/bgpcheck/internal/config"
	"github.com/hamed0406/bgpcheck/internal/domain"
)

type fileProbe struct {
	args *config.FileArgs
}

func newFile(a config.ProbeArgs, _ *zap.Logger) (Checker, error) {
	args, err := argsAs[*config.FileArgs](a)
	if err != nil {
		return nil, err
	}
	return &fileProbe{args: args}, nil
}

func (p *fileProbe) Check(context.Context) (domain.ProbeResult, error) {
	path := p.args.Path
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err != nil {
		return domain.Failure(
			fmt.Sprintf("File path %q parent directory %q is not readable; the check will always fail", path, dir),
			err.Error()), nil
	}

	_, err := os.Stat(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		res := domain.Failure(fmt.Sprintf("Failed to check file %q", path), err.Error())
		res.Cause = err
		return res, nil
	}
	exists := err == nil

	switch {
	case exists && p.args.Exists:
		return domain.Success(fmt.Sprintf("File %s exists", path)), nil
	case exists:
		return domain.Failure(fmt.Sprintf("File %s exists", path), fmt.Sprintf("The file %s must not exist", path)), nil
	case p.args.Exists:
		return domain.Failure(fmt.Sprintf("File %s does not exist", path), fmt.Sprintf("The file %s must exist", path)), nil
	}
	return domain.Success(fmt.Sprintf("File %s does not exist", path)), nil
}
