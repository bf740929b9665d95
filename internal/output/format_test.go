package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in   string
		want OutputFormat
	}{
		{"yaml", FormatYAML},
		{"YML", FormatYAML},
		{"json", FormatJSON},
		{"table", FormatTable},
		{"", FormatTable},
		{"bogus", FormatTable},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOutputFormat(tt.in))
		})
	}
}

func TestOutputFormat_IsValid(t *testing.T) {
	assert.True(t, FormatJSON.IsValid())
	assert.False(t, OutputFormat("dir").IsValid())
	assert.Equal(t, []string{"table", "yaml", "json"}, ValidFormats())
}

type sample struct {
	Name  string            `yaml:"name"`
	Items map[string]string `yaml:"items"`
}

func TestWriteStructured(t *testing.T) {
	v := sample{Name: "case", Items: map[string]string{"module_name": "foo"}}

	var yamlBuf bytes.Buffer
	require.NoError(t, WriteStructured(&yamlBuf, FormatYAML, v))
	assert.Contains(t, yamlBuf.String(), "module_name: foo")

	var jsonBuf bytes.Buffer
	require.NoError(t, WriteStructured(&jsonBuf, FormatJSON, v))
	assert.JSONEq(t, `{"name":"case","items":{"module_name":"foo"}}`, jsonBuf.String())

	assert.Error(t, WriteStructured(&jsonBuf, FormatTable, v))
}
