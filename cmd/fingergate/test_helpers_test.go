package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fingergate/internal/config"
	"fingergate/internal/template"
	"fingergate/internal/testsupport"
)

// compareScript scores identical templates 88 and anything else 5.
const compareScript = `if [ "$1" = "$2" ]; then echo 88; else echo 5; fi`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	probe      template.Template
}

// setupCLITestEnv writes a config whose capture script always reads the same
// finger.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	probe := testsupport.Template(t, "alice")
	captureScript := "echo 'Place finger on sensor'\necho '" + probe.Encoded() + "'"
	opts = append([]testsupport.ConfigOption{testsupport.WithEngineScripts(captureScript, compareScript)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)

	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("FINGERGATE_API_TOKEN", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, probe: probe}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
