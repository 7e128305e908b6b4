package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"bioviz/internal/config"
	"bioviz/internal/testsupport"
)

// echoWorkerScript is a stand-in analysis worker: it announces readiness and
// answers every request with a matching ok envelope.
const echoWorkerScript = `
printf '%s\n' '{"status":"ready","message":"BioViz Engine initialized","version":"1.4.2"}'
while read -r line; do
  rid=${line##*'"request_id":"'}
  rid=${rid%%'"'*}
  printf '{"status":"ok","request_id":"%s","result":{"rows":42}}\n' "$rid"
done
`

// writeTestConfig marshals cfg next to its data directory so the CLI can load
// it through --config.
func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(*cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// runCLI executes the root command with args plus an optional --config flag
// and returns captured stdout and stderr.
func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()

	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output does not contain %q:\n%s", needle, haystack)
	}
}
