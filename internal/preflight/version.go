package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"bioviz/internal/config"
)

const versionProbeTimeout = 10 * time.Second

// versionOutput runs the worker's version probe. Overridable in tests.
var versionOutput = func(ctx context.Context, command string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	return cmd.CombinedOutput()
}

// CheckWorkerVersion probes `<binary> --version` and compares the reported
// protocol version against engine.min_protocol_version. Workers older than
// the minimum still pass: their replies carry no request ids, so the check
// surfaces that sole-pending matching will be in effect instead of failing.
func CheckWorkerVersion(ctx context.Context, cfg *config.Config) Result {
	const name = "Worker protocol"

	minimum := strings.TrimSpace(cfg.Engine.MinProtocolVersion)
	if minimum == "" {
		return Result{Name: name, Passed: true, Detail: "no minimum configured"}
	}
	minVersion, err := semver.NewVersion(minimum)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid engine.min_protocol_version %q: %v", minimum, err)}
	}

	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	out, err := versionOutput(probeCtx, cfg.Engine.Binary, "--version")
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s --version failed: %v", cfg.Engine.Binary, err)}
	}

	version := parseVersion(string(out))
	if version == nil {
		return Result{Name: name, Detail: fmt.Sprintf("no version in output %q", strings.TrimSpace(string(out)))}
	}

	if version.LessThan(minVersion) {
		return Result{
			Name:   name,
			Passed: true,
			Detail: fmt.Sprintf("worker %s predates %s: replies carry no request ids, sole-pending matching in effect", version, minimum),
		}
	}
	return Result{Name: name, Passed: true, Detail: "worker " + version.String()}
}

// parseVersion returns the first whitespace-separated token that parses as a
// semantic version. Workers print lines like "bio-engine 2.1.0".
func parseVersion(output string) *semver.Version {
	for _, field := range strings.Fields(output) {
		if v, err := semver.NewVersion(strings.TrimPrefix(field, "v")); err == nil {
			return v
		}
	}
	return nil
}
