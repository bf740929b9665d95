package harness

import (
	"fmt"
	"sort"
	"strings"

	oerrors "github.com/opmodel/dsbake/internal/errors"
	"github.com/opmodel/dsbake/internal/options"
)

// Interpreter runs every harness script.
const Interpreter = "bash"

// Descriptor names the script that exercises one environment manager.
type Descriptor struct {
	Manager     string
	Interpreter string
	Script      string
}

// NoOp reports whether the manager has nothing to exercise.
func (d Descriptor) NoOp() bool {
	return d.Script == ""
}

var descriptors = map[string]Descriptor{
	options.EnvironmentConda:      {Manager: options.EnvironmentConda, Interpreter: Interpreter, Script: "conda_harness.sh"},
	options.EnvironmentVirtualenv: {Manager: options.EnvironmentVirtualenv, Interpreter: Interpreter, Script: "virtualenv_harness.sh"},
	options.EnvironmentPipenv:     {Manager: options.EnvironmentPipenv, Interpreter: Interpreter, Script: "pipenv_harness.sh"},
	options.EnvironmentNone:       {Manager: options.EnvironmentNone},
}

// Lookup returns the descriptor for an environment manager. Unmapped
// managers are a configuration error.
func Lookup(manager string, cfg options.Configuration) (Descriptor, error) {
	d, ok := descriptors[manager]
	if !ok {
		return Descriptor{}, oerrors.NewConfigurationError(
			fmt.Sprintf("no harness for environment manager %q", manager),
			options.EnvironmentManager, cfg,
			fmt.Sprintf("Supported managers: %s", strings.Join(Managers(), ", ")))
	}
	return d, nil
}

// Managers returns the supported environment managers, sorted.
func Managers() []string {
	out := make([]string, 0, len(descriptors))
	for m := range descriptors {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Scripts returns the script names the harness directory must provide, sorted.
func Scripts() []string {
	var out []string
	for _, d := range descriptors {
		if !d.NoOp() {
			out = append(out, d.Script)
		}
	}
	sort.Strings(out)
	return out
}
