package decompile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

func recorder(fail func(name string, args []string) bool) (*[]call, Runner) {
	var calls []call
	return &calls, func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, call{name: name, args: args})
		if fail != nil && fail(name, args) {
			return nil, errors.New("exit status 1")
		}
		return nil, nil
	}
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func TestPending(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "script.rpyc")
	touch(t, dir, "script.rpy")
	options := touch(t, dir, "options.rpyc")
	touch(t, dir, "notes.txt")

	pending, err := Pending(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{options}, pending)
}

func TestFind_FallsBackToBinary(t *testing.T) {
	calls, run := recorder(func(name string, _ []string) bool { return name == "python3" })
	u := &Unrpyc{Run: run}

	cmd, err := u.Find(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"unrpyc"}, cmd)
	require.Len(t, *calls, 2)
	assert.Equal(t, []string{"-m", "unrpyc", "--help"}, (*calls)[0].args)
}

func TestFind_NotFound(t *testing.T) {
	_, run := recorder(func(string, []string) bool { return true })
	_, err := (&Unrpyc{Run: run}).Find(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFind_ExplicitCommand(t *testing.T) {
	calls, run := recorder(nil)
	cmd, err := (&Unrpyc{Command: "python3 /opt/unrpyc.py", Run: run}).Find(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"python3", "/opt/unrpyc.py"}, cmd)
	assert.Empty(t, *calls)
}

func TestDir(t *testing.T) {
	dir := t.TempDir()
	target := touch(t, dir, "script.rpyc")

	calls, run := recorder(nil)
	n, err := (&Unrpyc{Command: "unrpyc", Run: run}).Dir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, *calls, 1)
	assert.Equal(t, call{name: "unrpyc", args: []string{target}}, (*calls)[0])
}

func TestDir_Failure(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "script.rpyc")

	_, run := recorder(func(_ string, args []string) bool {
		return len(args) > 0 && strings.HasSuffix(args[len(args)-1], ".rpyc")
	})
	_, err := (&Unrpyc{Command: "unrpyc", Run: run}).Dir(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decompile script.rpyc")
}

func TestDir_NothingPending(t *testing.T) {
	calls, run := recorder(nil)
	n, err := (&Unrpyc{Run: run}).Dir(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, *calls)
}
