// Package decompile drives the external unrpyc tool that turns compiled Ren'Py
// scripts (.rpyc) back into source (.rpy).
package decompile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNotFound means no working unrpyc installation was found.
var ErrNotFound = errors.New("unrpyc not found")

// Runner runs a command and returns its combined output. Tests replace it.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// Unrpyc invokes the decompiler.
type Unrpyc struct {
	// Command overrides discovery when set, e.g. "python3 /opt/unrpyc/unrpyc.py".
	Command string
	Timeout time.Duration
	Run     Runner
}

// New creates a decompiler. An empty command means discover one on first use.
func New(command string, timeout time.Duration) *Unrpyc {
	return &Unrpyc{Command: command, Timeout: timeout, Run: execRunner}
}

// candidates are tried in order, each checked with --help.
var candidates = [][]string{
	{"python3", "-m", "unrpyc"},
	{"unrpyc"},
}

// Find returns the command line that runs unrpyc.
func (u *Unrpyc) Find(ctx context.Context) ([]string, error) {
	if cmd := strings.Fields(u.Command); len(cmd) > 0 {
		return cmd, nil
	}

	for _, c := range candidates {
		args := append(append([]string{}, c[1:]...), "--help")
		if _, err := u.Run(ctx, c[0], args...); err == nil {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

// Pending lists the .rpyc files directly inside dir that have no .rpy next to them.
func Pending(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var pending []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".rpyc") {
			continue
		}
		compiled := filepath.Join(dir, e.Name())
		source := strings.TrimSuffix(compiled, filepath.Ext(compiled)) + ".rpy"
		if _, err := os.Stat(source); err == nil {
			continue
		}
		pending = append(pending, compiled)
	}
	return pending, nil
}

// Dir decompiles every pending .rpyc in dir and returns how many were processed.
// It stops at the first failure.
func (u *Unrpyc) Dir(ctx context.Context, dir string) (int, error) {
	pending, err := Pending(dir)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	cmd, err := u.Find(ctx)
	if err != nil {
		return 0, err
	}

	for i, file := range pending {
		if err := u.file(ctx, cmd, file); err != nil {
			return i, err
		}
		log.Debug().Str("file", file).Msg("Decompiled script")
	}
	return len(pending), nil
}

func (u *Unrpyc) file(ctx context.Context, cmd []string, file string) error {
	if u.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, cmd[1:]...), file)
	if _, err := u.Run(ctx, cmd[0], args...); err != nil {
		return fmt.Errorf("decompile %s: %w", filepath.Base(file), err)
	}
	return nil
}
