package harness

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/opmodel/dsbake/internal/errors"
	"github.com/opmodel/dsbake/internal/options"
	"github.com/opmodel/dsbake/internal/testutil"
)

func requireBash(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath(Interpreter); err != nil {
		t.Skip("bash not available")
	}
}

// fakeHarness writes script under name into a fresh harness directory.
func fakeHarness(t *testing.T, name, body string) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteScript(t, dir, name, body)
	return dir
}

func configFor(manager string) options.Configuration {
	return options.DefaultDomain().Defaults().With(options.EnvironmentManager, manager)
}

func TestLookup(t *testing.T) {
	for _, m := range []string{"conda", "virtualenv", "pipenv"} {
		d, err := Lookup(m, nil)
		require.NoError(t, err)
		assert.Equal(t, m+"_harness.sh", d.Script)
		assert.Equal(t, "bash", d.Interpreter)
		assert.False(t, d.NoOp())
	}

	d, err := Lookup("none", nil)
	require.NoError(t, err)
	assert.True(t, d.NoOp())

	_, err = Lookup("bazel", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, oerrors.ErrConfiguration))
}

func TestScripts(t *testing.T) {
	assert.Equal(t, []string{"conda_harness.sh", "pipenv_harness.sh", "virtualenv_harness.sh"}, Scripts())
	assert.Equal(t, []string{"conda", "none", "pipenv", "virtualenv"}, Managers())
}

func TestNewRunner_Bundled(t *testing.T) {
	r, err := NewRunner()
	require.NoError(t, err)

	for _, s := range append(Scripts(), "test_functions.sh") {
		info, err := os.Stat(filepath.Join(r.Dir(), s))
		require.NoError(t, err, s)
		assert.NotZero(t, info.Mode().Perm()&0o100, s)
	}
	assert.Equal(t, DefaultTimeout, r.Timeout())

	require.NoError(t, r.Close())
	_, err = os.Stat(r.Dir())
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, r.Close())
}

func TestNewRunner_DirMissing(t *testing.T) {
	_, err := NewRunner(WithDir(filepath.Join(t.TempDir(), "missing")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, oerrors.ErrConfiguration))
}

func TestRunner_Close_KeepsUserDir(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRunner(WithDir(dir))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestRunner_Run_None(t *testing.T) {
	r, err := NewRunner(WithDir(t.TempDir()))
	require.NoError(t, err)

	result, err := r.Run(context.Background(), t.TempDir(), configFor("none"))
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, "none", result.Manager)
}

func TestRunner_Run_UnknownManager(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "spawned")
	dir := fakeHarness(t, "bazel_harness.sh", "touch "+marker+"\n")
	r, err := NewRunner(WithDir(dir))
	require.NoError(t, err)

	_, err = r.Run(context.Background(), t.TempDir(), configFor("bazel"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, oerrors.ErrConfiguration))

	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr), "no subprocess is started")
}

func TestRunner_Run_MissingScript(t *testing.T) {
	r, err := NewRunner(WithDir(t.TempDir()))
	require.NoError(t, err)

	_, err = r.Run(context.Background(), t.TempDir(), configFor("conda"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, oerrors.ErrConfiguration))
}

func TestRunner_Run_Success(t *testing.T) {
	requireBash(t)

	dir := fakeHarness(t, "conda_harness.sh", `echo "root=$1"
echo "project=$PROJECT_NAME extra=$EXTRA"
echo "warn" >&2
`)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, EnvFile), []byte("PROJECT_NAME=\"churn\"\n"), 0o644))

	r, err := NewRunner(WithDir(dir), WithEnv("EXTRA=yes"))
	require.NoError(t, err)

	result, err := r.Run(context.Background(), root, configFor("conda"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, "root="+root)
	assert.Contains(t, result.Stdout, "project=churn extra=yes")
	assert.Equal(t, "warn\n", result.Stderr)
	assert.Contains(t, result.Output(), "warn")
}

func TestRunner_Run_Failure(t *testing.T) {
	requireBash(t)

	dir := fakeHarness(t, "pipenv_harness.sh", "echo 'make: *** [lint] Error 1'\nexit 3\n")
	r, err := NewRunner(WithDir(dir))
	require.NoError(t, err)

	result, err := r.Run(context.Background(), t.TempDir(), configFor("pipenv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, oerrors.ErrHarnessExecution))
	assert.Equal(t, 3, result.ExitCode)

	var detail *oerrors.DetailError
	require.True(t, errors.As(err, &detail))
	assert.Contains(t, detail.Output, "Error 1")
	assert.Equal(t, "3", detail.Context["Exit code"])
}

func TestRunner_Run_Timeout(t *testing.T) {
	requireBash(t)

	dir := fakeHarness(t, "virtualenv_harness.sh", "exec sleep 5\n")
	r, err := NewRunner(WithDir(dir), WithTimeout(100*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = r.Run(context.Background(), t.TempDir(), configFor("virtualenv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, oerrors.ErrHarnessExecution))
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestResult_Output(t *testing.T) {
	assert.Equal(t, "", (*Result)(nil).Output())
	assert.Equal(t, "out", (&Result{Stdout: "out"}).Output())
	assert.Equal(t, "err", (&Result{Stderr: "err"}).Output())
	assert.Equal(t, "out\nerr", (&Result{Stdout: "out\n", Stderr: "err"}).Output())
}
