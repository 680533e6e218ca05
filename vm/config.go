package vm

import (
	"fmt"

	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config collects every tunable conf.h used to hard-code at compile
// time (_examples/original_source/src/conf.h), per SPEC_FULL.md's
// ambient-stack decision to expose them as a TOML-loadable struct rather
// than Go constants, the way the teacher's own config loading works
// (cmd/mag in chazu-maggie reads TOML via the same library).
type Config struct {
	// RuntimeChecking enables the assorted cantBeIntegerObject-style
	// sanity checks conf.h's RUNTIME_CHECK macro gated.
	RuntimeChecking bool `toml:"runtime_checking"`

	// InitialProcessPriority is the priority the bootstrap process runs
	// at before any image code changes it.
	InitialProcessPriority int `toml:"initial_process_priority"`

	// LowSpaceWordThreshold: once free heap words drop below it, Step's
	// periodic checkLowSpace runs a garbage collection. No low-space
	// semaphore is signalled. 0 disables the check.
	LowSpaceWordThreshold int `toml:"low_space_word_threshold"`

	// ImagePath is the snapshot file loaded at startup, if any.
	ImagePath string `toml:"image_path"`
}

// DefaultConfig returns the settings conf.h's #defines encode.
func DefaultConfig() *Config {
	return &Config{
		RuntimeChecking:        true,
		InitialProcessPriority: 4,
		LowSpaceWordThreshold:  2000,
	}
}

// LoadConfig reads a TOML config file, falling back to DefaultConfig for
// any field the file doesn't mention.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: reading %s", path)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configConstraint is a CUE schema checked against every loaded config
// at runtime via cuecontext, rather than a separate .cue file generated
// ahead of time — there is no code-generation step in this pipeline, just
// an inline constraint evaluated once per load.
const configConstraint = `
runtime_checking: bool
initial_process_priority: >=1 & <=8
low_space_word_threshold: >=0
image_path: string
`

func validateConfig(cfg *Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(configConstraint)
	if err := schema.Err(); err != nil {
		return errors.Wrap(err, "config: invalid built-in schema")
	}
	value := ctx.Encode(map[string]any{
		"runtime_checking":         cfg.RuntimeChecking,
		"initial_process_priority": cfg.InitialProcessPriority,
		"low_space_word_threshold": cfg.LowSpaceWordThreshold,
		"image_path":               cfg.ImagePath,
	})
	unified := schema.Unify(value)
	if err := unified.Validate(); err != nil {
		return errors.Wrap(err, "config: failed schema validation")
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{checking=%v priority=%d lowSpace=%d image=%q}",
		c.RuntimeChecking, c.InitialProcessPriority, c.LowSpaceWordThreshold, c.ImagePath)
}
