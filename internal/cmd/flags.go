package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	oerrors "github.com/opmodel/dsbake/internal/errors"
	"github.com/opmodel/dsbake/internal/options"
	"github.com/opmodel/dsbake/internal/output"
)

// matrixFlags selects the configurations a command works on.
type matrixFlags struct {
	set      []string
	vary     []string
	licenses []string
}

func (f *matrixFlags) addTo(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.set, "set", nil,
		"Pin an option to a value (key=value, repeatable)")
	cmd.Flags().StringSliceVar(&f.vary, "vary", nil,
		"Options to cross over (default: every option marked as varying)")
	cmd.Flags().StringSliceVar(&f.licenses, "license", nil,
		"License values crossed with \"No license\" (default: the license option's default)")
	cmd.Flags().Bool("compatible-only", false,
		"Skip dependency file and environment manager pairings that cannot work together (env: DSBAKE_COMPATIBLE_ONLY)")
}

// generator builds a validated generator over domain.
func (f *matrixFlags) generator(domain options.Domain) (*options.Generator, error) {
	overrides, err := options.ParseAssignments(f.set)
	if err != nil {
		return nil, err
	}

	opts := []options.GeneratorOption{options.WithOverrides(overrides)}
	if len(f.vary) > 0 {
		opts = append(opts, options.WithVarying(f.vary...))
	}
	if len(f.licenses) > 0 {
		opts = append(opts, options.WithLicenses(f.licenses...))
	}
	if GetConfig().CompatibleOnly {
		opts = append(opts, options.CompatibleOnly())
	}

	gen := options.NewGenerator(domain, opts...)
	if err := gen.Validate(); err != nil {
		return nil, err
	}
	return gen, nil
}

// varyingNames returns the option names that differ across configs, in
// domain order.
func varyingNames(domain options.Domain, configs []options.Configuration) []string {
	var names []string
	for _, name := range domain.Names() {
		for _, cfg := range configs[min(1, len(configs)):] {
			if cfg[name] != configs[0][name] {
				names = append(names, name)
				break
			}
		}
	}
	return names
}

// parseFormat validates an --output value.
func parseFormat(s string) (output.OutputFormat, error) {
	if !slices.Contains(output.ValidFormats(), strings.ToLower(s)) && !strings.EqualFold(s, "yml") {
		return "", oerrors.NewConfigurationError(
			fmt.Sprintf("unknown output format %q", s), "", nil,
			"Valid formats: "+strings.Join(output.ValidFormats(), ", "))
	}
	return output.ParseOutputFormat(s), nil
}
