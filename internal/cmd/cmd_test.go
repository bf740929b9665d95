package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/opmodel/dsbake/internal/errors"
	"github.com/opmodel/dsbake/internal/options"
	"github.com/opmodel/dsbake/internal/testutil"
)

// isolate points HOME at a fresh directory and clears dsbake env vars.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{
		"DSBAKE_CONFIG", "DSBAKE_HARNESS_DIR", "DSBAKE_TEMPLATE_DIR",
		"DSBAKE_TIMEOUT", "DSBAKE_PARALLEL", "DSBAKE_COMPATIBLE_ONLY",
		"DSBAKE_LOG_TIMESTAMPS",
	} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	appConfig = nil
	return home
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"configs", "render", "verify", "config", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestConfigsCmd_JSON(t *testing.T) {
	isolate(t)

	out, err := execute(t, "configs", "-o", "json")
	require.NoError(t, err)

	var configs []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &configs))
	assert.Len(t, configs, 24)
	for _, cfg := range configs {
		assert.Equal(t, "project_module", cfg[options.ModuleName])
	}
}

func TestConfigsCmd_CompatibleOnly(t *testing.T) {
	isolate(t)

	out, err := execute(t, "configs", "--compatible-only", "--set", "environment_manager=none", "-o", "json")
	require.NoError(t, err)

	var configs []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &configs))
	require.Len(t, configs, 2)
	for _, cfg := range configs {
		assert.Equal(t, options.RequirementsTxt, cfg[options.DependencyFile])
	}
}

func TestConfigsCmd_Table(t *testing.T) {
	isolate(t)

	out, err := execute(t, "configs", "--vary", "environment_manager")
	require.NoError(t, err)
	assert.Contains(t, out, "4 configurations")
	assert.Contains(t, out, "pipenv")
}

func TestConfigsCmd_InvalidFormat(t *testing.T) {
	isolate(t)

	_, err := execute(t, "configs", "-o", "xml")
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrConfiguration)
}

func TestConfigsCmd_UnknownOption(t *testing.T) {
	isolate(t)

	_, err := execute(t, "configs", "--set", "colour=blue")
	require.Error(t, err)
	assert.Equal(t, oerrors.ExitConfigurationError, oerrors.ExitCodeFromError(err))
}

func TestRenderCmd(t *testing.T) {
	tests := []struct {
		name    string
		license string
		want    bool
	}{
		{"with license", "MIT", true},
		{"without license", options.NoLicense, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			dir := filepath.Join(t.TempDir(), "out")

			out, err := execute(t, "render",
				"--dir", dir,
				"--set", "module_name=foo",
				"--set", "open_source_license="+tt.license)
			require.NoError(t, err)
			assert.Contains(t, out, "Rendered")
			assert.Contains(t, out, "make_dataset.py")

			assert.FileExists(t, filepath.Join(dir, "foo", "__init__.py"))
			assert.FileExists(t, filepath.Join(dir, "foo", "data", "make_dataset.py"))
			_, statErr := os.Stat(filepath.Join(dir, "LICENSE"))
			assert.Equal(t, tt.want, statErr == nil)
		})
	}
}

func TestRenderCmd_InvalidValue(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "out")

	_, err := execute(t, "render", "--dir", dir, "--set", "environment_manager=bazel")
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrConfiguration)
	assert.NoDirExists(t, dir)
}

func TestVerifyCmd_NoneManager(t *testing.T) {
	isolate(t)

	out, err := execute(t, "verify", "--set", "environment_manager=none", "-p", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "6 passed, 0 failed")
}

func TestVerifyCmd_UnknownManager(t *testing.T) {
	isolate(t)

	_, err := execute(t, "verify", "--set", "environment_manager=bazel")
	require.Error(t, err)
	assert.Equal(t, oerrors.ExitConfigurationError, oerrors.ExitCodeFromError(err))
}

func TestVerifyCmd_FailingHarness(t *testing.T) {
	isolate(t)
	dir := testutil.FakeHarnessDir(t, 3)

	out, err := execute(t, "verify",
		"--set", "environment_manager=conda",
		"--set", "dependency_file=environment.yml",
		"--set", "open_source_license=MIT",
		"--harness-dir", dir)
	require.Error(t, err)

	var exitErr *oerrors.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.True(t, exitErr.Printed)
	assert.Equal(t, oerrors.ExitVerificationFailed, exitErr.Code)
	assert.Contains(t, out, "harness execution error")
	assert.Contains(t, out, "0 passed, 1 failed")
}

func TestVerifyCmd_PassingHarness(t *testing.T) {
	isolate(t)
	dir := testutil.FakeHarnessDir(t, 0)

	out, err := execute(t, "verify",
		"--set", "environment_manager=virtualenv",
		"--set", "dependency_file=requirements.txt",
		"--harness-dir", dir,
		"-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "environment_manager: virtualenv")
	assert.Contains(t, out, "passed: true")
}

func TestVerifyCmd_VerboseShowsPassingHarnessOutput(t *testing.T) {
	isolate(t)
	dir := testutil.FakeHarnessDir(t, 0)

	out, err := execute(t, "verify", "-v",
		"--set", "environment_manager=virtualenv",
		"--set", "dependency_file=requirements.txt",
		"--set", "open_source_license=MIT",
		"--harness-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "harness output")
	assert.Contains(t, out, "virtualenv_harness.sh /")
	assert.Contains(t, out, "virtualenv_harness.sh done")
}

func TestVerifyCmd_QuietHidesPassingHarnessOutput(t *testing.T) {
	isolate(t)
	dir := testutil.FakeHarnessDir(t, 0)

	out, err := execute(t, "verify",
		"--set", "environment_manager=virtualenv",
		"--set", "dependency_file=requirements.txt",
		"--set", "open_source_license=MIT",
		"--harness-dir", dir)
	require.NoError(t, err)
	assert.NotContains(t, out, "harness output")
}

func TestDescribeFailure_KeepsPathsWithCommas(t *testing.T) {
	err := oerrors.NewFileSetMismatch([]string{"notes, draft.md"}, []string{"extra.txt"}, nil)

	out := describeFailure(err)
	assert.Contains(t, out, "- notes, draft.md")
	assert.Contains(t, out, "+ extra.txt")
}

func TestRootCmd_UnreadableConfigFails(t *testing.T) {
	home := isolate(t)
	path := testutil.WriteFile(t, home, "broken.yaml", "timeout: [\n")

	_, err := execute(t, "configs", "--config", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrConfiguration)
	assert.Contains(t, err.Error(), "dsbake config vet")

	_, err = execute(t, "verify", "--set", "environment_manager=none", "--config", path)
	require.Error(t, err)
	assert.Equal(t, oerrors.ExitConfigurationError, oerrors.ExitCodeFromError(err))
}

func TestRootCmd_UnreadableConfigToleratedByConfigCommands(t *testing.T) {
	home := isolate(t)
	path := testutil.WriteFile(t, home, "broken.yaml", "timeout: [\n")

	_, err := execute(t, "config", "vet", "--config", path)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "dsbake config vet' for details")
	assert.Equal(t, oerrors.ExitConfigurationError, oerrors.ExitCodeFromError(err))

	_, err = execute(t, "config", "init", "--force", "--config", path)
	require.NoError(t, err)

	_, err = execute(t, "configs", "--config", path)
	require.NoError(t, err)
}

func TestConfigInitThenVet(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".dsbake", "config.yaml")

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration initialized")
	require.FileExists(t, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: 20m0s")

	out, err = execute(t, "config", "vet")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
}

func TestConfigInit_Exists(t *testing.T) {
	isolate(t)

	_, err := execute(t, "config", "init")
	require.NoError(t, err)

	_, err = execute(t, "config", "init")
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrConfiguration)

	_, err = execute(t, "config", "init", "--force")
	require.NoError(t, err)
}

func TestConfigVet_Missing(t *testing.T) {
	isolate(t)

	_, err := execute(t, "config", "vet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsbake config init")
	assert.Equal(t, oerrors.ExitConfigurationError, oerrors.ExitCodeFromError(err))
}

func TestConfigVet_Invalid(t *testing.T) {
	home := isolate(t)
	path := testutil.WriteFile(t, home, "custom.yaml", "timeout: 5m\nparallel: 0\ncolour: blue\n")

	_, err := execute(t, "config", "vet", "--config", path)
	require.Error(t, err)
	assert.Equal(t, oerrors.ExitConfigurationError, oerrors.ExitCodeFromError(err))
}

func TestConfigShow_Sources(t *testing.T) {
	home := isolate(t)
	path := testutil.WriteFile(t, home, "custom.yaml", "parallel: 3\n")
	t.Setenv("DSBAKE_TIMEOUT", "1m")

	out, err := execute(t, "config", "show", "--config", path, "-o", "json")
	require.NoError(t, err)

	var values []struct {
		Key    string `json:"key"`
		Value  string `json:"value"`
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &values))

	sources := make(map[string]string, len(values))
	for _, v := range values {
		sources[v.Key] = v.Source
	}
	assert.Equal(t, "config", sources["parallel"])
	assert.Equal(t, "env", sources["timeout"])
	assert.Equal(t, "default", sources["harnessDir"])
}

func TestVersionCmd(t *testing.T) {
	isolate(t)

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dsbake:")
	assert.Contains(t, out, "Harness:")
}
