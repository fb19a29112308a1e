package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "clipper.toml"

// loadConfigFile presets flags of cmd from a TOML file. Keys under
// [defaults] apply to every command that has such a flag; keys under a
// table named after the command must all be flags of it. Flags given on the
// command line always win. A missing file is only an error when explicit.
//
//	[defaults]
//	max-chars = 12
//
//	[run]
//	llm-provider = "anthropic"
//	resize-mode = "fill"
func loadConfigFile(cmd *cobra.Command, path string, explicit bool) error {
	var file map[string]map[string]any
	if _, err := toml.DecodeFile(path, &file); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	fromFile := map[string]bool{}
	apply := func(section string, strict bool) error {
		for key, value := range file[section] {
			f := cmd.Flags().Lookup(key)
			if f == nil {
				if strict {
					return fmt.Errorf("config %s: [%s] has no flag %q", path, section, key)
				}
				continue
			}
			if f.Changed && !fromFile[key] {
				continue
			}
			if err := cmd.Flags().Set(key, fmt.Sprint(value)); err != nil {
				return fmt.Errorf("config %s: [%s] %s: %w", path, section, key, err)
			}
			fromFile[key] = true
		}
		return nil
	}

	if err := apply("defaults", false); err != nil {
		return err
	}
	return apply(cmd.Name(), true)
}
