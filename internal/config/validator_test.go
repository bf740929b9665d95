package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/dsbake/internal/harness"
	"github.com/opmodel/dsbake/internal/testutil"
)

func TestValidate(t *testing.T) {
	require.ElementsMatch(t, harness.Scripts(), testutil.HarnessScripts)
	harnessDir := testutil.FakeHarnessDir(t, 0)

	tests := []struct {
		name       string
		cfg        *Config
		wantFields []string
	}{
		{"defaults", DefaultConfig(), nil},
		{"harness dir with scripts", &Config{Timeout: time.Minute, Parallel: 1, HarnessDir: harnessDir}, nil},
		{"zero timeout", &Config{Parallel: 1}, []string{KeyTimeout}},
		{"zero parallel", &Config{Timeout: time.Minute}, []string{KeyParallel}},
		{"missing harness dir", &Config{Timeout: time.Minute, Parallel: 1, HarnessDir: "/does/not/exist"}, []string{KeyHarnessDir}},
		{"empty harness dir", &Config{Timeout: time.Minute, Parallel: 1, HarnessDir: t.TempDir()}, []string{KeyHarnessDir}},
		{"bad template dir", &Config{Timeout: time.Minute, Parallel: 1, TemplateDir: t.TempDir()}, []string{KeyTemplateDir}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}

			var errs ValidationErrors
			require.True(t, errors.As(err, &errs))
			var fields []string
			for _, e := range errs {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestValidateFile(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateFile(writeConfig(t, "timeout: 10m\nparallel: 2\n")))
	})

	t.Run("empty file uses defaults", func(t *testing.T) {
		assert.NoError(t, ValidateFile(writeConfig(t, "")))
	})

	t.Run("unknown key", func(t *testing.T) {
		err := ValidateFile(writeConfig(t, "registry: example.com\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "registry")
	})

	t.Run("negative parallel", func(t *testing.T) {
		err := ValidateFile(writeConfig(t, "parallel: -1\n"))
		var errs ValidationErrors
		require.True(t, errors.As(err, &errs))
		assert.Equal(t, KeyParallel, errs[0].Field)
	})

	t.Run("missing file", func(t *testing.T) {
		assert.Error(t, ValidateFile(filepath.Join(t.TempDir(), "nope.yaml")))
	})
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{{Field: "timeout", Message: "must be a positive duration"}}
	assert.Contains(t, errs.Error(), "timeout: must be a positive duration")
	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
}
