package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	defaultCommandTimeout = 10 * time.Second
	defaultStopTimeout    = 60 * time.Second
	defaultErrorIndicator = "error"

	envExecutable     = "SRVCTL_EXECUTABLE"
	envWorkDir        = "SRVCTL_WORK_DIR"
	envStateRoot      = "SRVCTL_STATE_ROOT"
	envStateName      = "SRVCTL_STATE_NAME"
	envCommandTimeout = "SRVCTL_COMMAND_TIMEOUT"
	envStopTimeout    = "SRVCTL_STOP_TIMEOUT"
)

// Config describes the supervised server and where its state lives.
type Config struct {
	// Executable is the server binary (or launcher script) to run.
	Executable string
	Args       []string
	WorkDir    string

	// StateRoot holds the live state directory and every backup beside it.
	StateRoot string
	// StateName is the live state directory name under StateRoot.
	StateName string

	CommandTimeout time.Duration
	StopTimeout    time.Duration

	// ErrorIndicator is the substring that marks a command as failed.
	ErrorIndicator string
	// Patterns maps a command keyword to the regexp signalling its completion.
	Patterns map[string]string
}

// Default returns the built-in configuration without any server configured.
func Default() Config {
	return Config{
		CommandTimeout: defaultCommandTimeout,
		StopTimeout:    defaultStopTimeout,
		ErrorIndicator: defaultErrorIndicator,
		Patterns:       map[string]string{"fill": "filled"},
	}
}

// Load builds a Config from an optional JSON file path plus environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Validate reports missing or malformed required fields.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Executable) == "" {
		errs = append(errs, errors.New("executable is required"))
	}
	if strings.TrimSpace(c.StateRoot) == "" {
		errs = append(errs, errors.New("state_root is required"))
	}
	switch name := strings.TrimSpace(c.StateName); {
	case name == "":
		errs = append(errs, errors.New("state_name is required"))
	case strings.ContainsRune(name, filepath.Separator), name == ".", name == "..":
		errs = append(errs, fmt.Errorf("state_name %q must be a plain directory name", name))
	}
	if c.CommandTimeout <= 0 {
		errs = append(errs, errors.New("command_timeout must be > 0"))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, errors.New("stop_timeout must be > 0"))
	}
	// An empty indicator would match every chunk and fail every command.
	if c.ErrorIndicator == "" {
		errs = append(errs, errors.New("error_indicator must not be empty"))
	}
	return errors.Join(errs...)
}

// StatePath is the absolute location of the live state directory.
func (c Config) StatePath() string {
	return filepath.Join(c.StateRoot, c.StateName)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envExecutable); v != "" {
		cfg.Executable = v
	}
	if v := os.Getenv(envWorkDir); v != "" {
		cfg.WorkDir = v
	}
	if v := os.Getenv(envStateRoot); v != "" {
		cfg.StateRoot = v
	}
	if v := os.Getenv(envStateName); v != "" {
		cfg.StateName = v
	}

	if v := os.Getenv(envCommandTimeout); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			cfg.CommandTimeout = dur
		} else {
			log.Warn("ignoring invalid duration", "env", envCommandTimeout, "value", v, "err", err)
		}
	}
	if v := os.Getenv(envStopTimeout); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			cfg.StopTimeout = dur
		} else {
			log.Warn("ignoring invalid duration", "env", envStopTimeout, "value", v, "err", err)
		}
	}
}

type fileConfig struct {
	Executable     string            `json:"executable"`
	Args           []string          `json:"args"`
	WorkDir        string            `json:"work_dir"`
	StateRoot      string            `json:"state_root"`
	StateName      string            `json:"state_name"`
	CommandTimeout string            `json:"command_timeout"`
	StopTimeout    string            `json:"stop_timeout"`
	ErrorIndicator string            `json:"error_indicator"`
	Patterns       map[string]string `json:"patterns"`
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raw fileConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Executable != "" {
		cfg.Executable = raw.Executable
	}
	if len(raw.Args) > 0 {
		cfg.Args = append([]string(nil), raw.Args...)
	}
	if raw.WorkDir != "" {
		cfg.WorkDir = raw.WorkDir
	}
	if raw.StateRoot != "" {
		cfg.StateRoot = raw.StateRoot
	}
	if raw.StateName != "" {
		cfg.StateName = raw.StateName
	}
	if raw.ErrorIndicator != "" {
		cfg.ErrorIndicator = raw.ErrorIndicator
	}
	for keyword, pattern := range raw.Patterns {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" || strings.ContainsAny(keyword, " \t") {
			return fmt.Errorf("invalid pattern keyword %q", keyword)
		}
		cfg.Patterns[keyword] = pattern
	}

	if raw.CommandTimeout != "" {
		dur, err := parsePositive("command_timeout", raw.CommandTimeout)
		if err != nil {
			return err
		}
		cfg.CommandTimeout = dur
	}
	if raw.StopTimeout != "" {
		dur, err := parsePositive("stop_timeout", raw.StopTimeout)
		if err != nil {
			return err
		}
		cfg.StopTimeout = dur
	}
	return nil
}

func parsePositive(field, value string) (time.Duration, error) {
	dur, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("%s must be > 0", field)
	}
	return dur, nil
}
