// Package config holds the resolved run configuration and the optional
// YAML defaults file it can be seeded from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jyeno/coremem/pkg/types"
)

// Config is the fully resolved configuration the pipeline consumes. The
// yaml tags describe the defaults file; the PID list and owner filter are
// per-invocation and only come from flags.
type Config struct {
	ShowSwap     bool   `yaml:"show_swap"`
	ShowArgs     bool   `yaml:"show_args"`
	Reverse      bool   `yaml:"reverse"`
	TotalOnly    bool   `yaml:"total_only"`
	TotalMachine bool   `yaml:"total_machine"`
	PerPID       bool   `yaml:"per_pid"`
	WatchSeconds int    `yaml:"watch_seconds"`
	Limit        int    `yaml:"limit"`
	ProcRoot     string `yaml:"proc_root"`
	Debug        bool   `yaml:"debug"`

	OwnerUID *uint32 `yaml:"-"`
	PIDs     []int   `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{ProcRoot: types.DefaultProcRoot}
}

// LoadFile parses a YAML defaults file over the built-in defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.ProcRoot == "" {
		cfg.ProcRoot = types.DefaultProcRoot
	}
	return cfg, cfg.Validate()
}

// DefaultPath is the per-user defaults file, or empty when the home
// directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "coremem", "config.yml")
}

// Validate rejects values no run can honor.
func (c Config) Validate() error {
	if c.WatchSeconds < 0 {
		return fmt.Errorf("watch interval must not be negative: %d", c.WatchSeconds)
	}
	if c.Limit < 0 {
		return fmt.Errorf("row limit must not be negative: %d", c.Limit)
	}
	return nil
}

// ParsePIDList splits a comma-separated PID list. Any malformed token is a
// configuration error.
func ParsePIDList(list string) ([]int, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	tokens := strings.Split(list, ",")
	pids := make([]int, 0, len(tokens))
	for _, token := range tokens {
		pid, err := strconv.ParseUint(strings.TrimSpace(token), 10, 31)
		if err != nil || pid == 0 {
			return nil, fmt.Errorf("invalid pid %q in list", token)
		}
		pids = append(pids, int(pid))
	}
	return pids, nil
}
