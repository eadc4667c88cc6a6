package manifest

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"time"
)

const unknown = "unknown"

// gitInfo reads the current revision from git. Any failure yields
// "unknown" fields and the build time as timestamp.
func gitInfo(ctx context.Context, dir string, now func() time.Time, warn io.Writer) GitInfo {
	var info GitInfo
	queries := []struct {
		dst  *string
		args []string
	}{
		{&info.Commit, []string{"rev-parse", "HEAD"}},
		{&info.Branch, []string{"rev-parse", "--abbrev-ref", "HEAD"}},
		{&info.Remote, []string{"config", "--get", "remote.origin.url"}},
		{&info.Timestamp, []string{"show", "-s", "--format=%cI", "HEAD"}},
	}

	for _, q := range queries {
		out, err := git(ctx, dir, q.args...)
		if err != nil {
			warnf(warn, "failed to get git info: %v", err)
			return GitInfo{
				Branch:    unknown,
				Commit:    unknown,
				Remote:    unknown,
				Timestamp: utc(now()),
			}
		}
		*q.dst = out
	}
	return info
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", &gitError{args: args, msg: msg}
		}
		return "", err
	}
	return strings.TrimSpace(stdout.String()), nil
}

type gitError struct {
	args []string
	msg  string
}

func (e *gitError) Error() string {
	return "git " + strings.Join(e.args, " ") + ": " + e.msg
}
