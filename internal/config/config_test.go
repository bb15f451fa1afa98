package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "srvctl.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.CommandTimeout != defaultCommandTimeout {
		t.Fatalf("expected default command timeout, got %v", cfg.CommandTimeout)
	}
	if cfg.ErrorIndicator != "error" {
		t.Fatalf("expected default error indicator, got %q", cfg.ErrorIndicator)
	}
	if cfg.Patterns["fill"] != "filled" {
		t.Fatalf("expected fill pattern, got %v", cfg.Patterns)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `{
		"executable": "/opt/server/run.sh",
		"args": ["nogui"],
		"state_root": "/srv/worlds",
		"state_name": "world",
		"command_timeout": "3s",
		"stop_timeout": "90s",
		"patterns": {"say": "\\[Server\\]"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Executable != "/opt/server/run.sh" || cfg.StateName != "world" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.Args) != 1 || cfg.Args[0] != "nogui" {
		t.Fatalf("unexpected args: %v", cfg.Args)
	}
	if cfg.CommandTimeout != 3*time.Second || cfg.StopTimeout != 90*time.Second {
		t.Fatalf("unexpected timeouts: %v %v", cfg.CommandTimeout, cfg.StopTimeout)
	}
	if cfg.Patterns["fill"] != "filled" || cfg.Patterns["say"] != `\[Server\]` {
		t.Fatalf("expected merged patterns, got %v", cfg.Patterns)
	}
	if cfg.StatePath() != filepath.Join("/srv/worlds", "world") {
		t.Fatalf("unexpected state path %q", cfg.StatePath())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestLoadFileRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `{"command_timeout": "-1s"}`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "command_timeout must be > 0") {
		t.Fatalf("expected duration error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(envExecutable, "/usr/bin/server")
	t.Setenv(envStateRoot, "/data")
	t.Setenv(envStateName, "level")
	t.Setenv(envCommandTimeout, "250ms")
	t.Setenv(envStopTimeout, "not-a-duration")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Executable != "/usr/bin/server" || cfg.StateRoot != "/data" || cfg.StateName != "level" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.CommandTimeout != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", cfg.CommandTimeout)
	}
	if cfg.StopTimeout != defaultStopTimeout {
		t.Fatalf("invalid env duration should be ignored, got %v", cfg.StopTimeout)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"executable is required", "state_root is required", "state_name is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}

	cfg.Executable = "server"
	cfg.StateRoot = "/srv"
	cfg.StateName = "a/b"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "plain directory name") {
		t.Fatalf("expected plain name error, got %v", err)
	}

	cfg.StateName = "world"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	cfg.ErrorIndicator = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "error_indicator") {
		t.Fatalf("expected error_indicator error, got %v", err)
	}
}
