package manifest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const policyTimeoutDefault = 300 * time.Second

// policyCandidates are tried, relative to the repo directory, when no
// script is configured.
var policyCandidates = []string{
	filepath.Join("tools", "verify_and_eval.sh"),
	"verify_and_eval.sh",
}

// evaluatePolicy runs the policy script against the release directory and
// parses its gate report from stdout.
func evaluatePolicy(ctx context.Context, opts Options) PolicyResult {
	res := PolicyResult{
		Status:  StatusUnknown,
		Gates:   map[string]Gate{},
		Version: PolicyVersion,
	}

	script := findPolicyScript(opts.PolicyScript, opts.RepoDir)
	if script == "" {
		warnf(opts.Warnings, "policy script not found, skipping evaluation")
		res.Status = StatusSkipped
		return res
	}

	timeout := opts.PolicyTimeout
	if timeout <= 0 {
		timeout = policyTimeoutDefault
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, script, opts.ReleaseDir)
	cmd.Dir = opts.RepoDir
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		res.Status = StatusTimeout
		return res
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.Status = StatusPass
	case errors.As(err, &exitErr):
		res.Status = StatusFail
		code := exitErr.ExitCode()
		res.ExitCode = &code
	default:
		warnf(opts.Warnings, "policy evaluation failed: %v", err)
		res.Status = StatusError
		res.Error = err.Error()
		return res
	}

	ts := utc(opts.Now())
	res.EvaluationUTC = &ts
	res.Gates = ParseGates(stdout.String())
	return res
}

func findPolicyScript(configured, repoDir string) string {
	candidates := []string{configured}
	if configured == "" {
		candidates = candidates[:0]
		for _, c := range policyCandidates {
			candidates = append(candidates, filepath.Join(repoDir, c))
		}
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		// Absolute so exec does not search PATH or resolve against cmd.Dir.
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}

// ParseGates reads a policy report. A line such as "=== Gate 1: Schema ==="
// opens a gate; a later line containing ✓ or PASS marks it passed, one
// containing ✗ or FAIL marks it failed. Gates with no verdict stay
// "unknown".
func ParseGates(output string) map[string]Gate {
	gates := map[string]Gate{}
	current := ""

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)

		switch {
		case strings.Contains(line, "===") && strings.Contains(line, "Gate"):
			parts := strings.Split(line, "===")
			if len(parts) >= 2 {
				name := strings.TrimSpace(parts[1])
				if strings.HasPrefix(name, "Gate") {
					current = name
					gates[current] = Gate{Status: StatusUnknown}
				}
			}
		case current != "" && (strings.Contains(line, "✓") || strings.Contains(upper, "PASS")):
			gates[current] = Gate{Status: StatusPass}
		case current != "" && (strings.Contains(line, "✗") || strings.Contains(upper, "FAIL")):
			gates[current] = Gate{Status: StatusFail}
		}
	}
	return gates
}
