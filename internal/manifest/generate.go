package manifest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/hglc/internal/sentence"
)

// DefaultToolFiles are the release tools hashed when Options.ToolFiles is
// empty.
var DefaultToolFiles = []string{
	"verify_and_eval.sh",
	"verify_and_eval.ps1",
	"generate_provenance.py",
	"generate-hashes.sh",
}

// Options controls Generate.
type Options struct {
	Version    string
	ReleaseDir string
	InputDir   string
	ToolsDir   string
	ToolFiles  []string
	Route      string

	// PolicyScript is run as `script <release-dir>`. When empty the usual
	// locations under RepoDir are tried.
	PolicyScript  string
	PolicyTimeout time.Duration
	SkipPolicy    bool

	// RepoDir is where git is queried. Empty means the current directory.
	RepoDir string

	// SentenceExtensions selects release files compiled into the sentences
	// list. Empty means ".hgl".
	SentenceExtensions []string
	ParseOptions       sentence.ParseOptions

	// Warnings receives non-fatal problems. Nil discards them.
	Warnings io.Writer
	Now      func() time.Time
}

// Generate builds the manifest for a release. Missing directories and a
// missing policy script are warnings, not errors.
func Generate(ctx context.Context, opts Options) (*Manifest, error) {
	if opts.Version == "" {
		return nil, fmt.Errorf("manifest: version is required")
	}
	if opts.ReleaseDir == "" {
		return nil, fmt.Errorf("manifest: release directory is required")
	}
	if opts.Route == "" {
		opts.Route = RouteStandard
	}
	if !ValidRoute(opts.Route) {
		return nil, fmt.Errorf("%w: %q (want standard, extended or constitutional)", ErrInvalidRoute, opts.Route)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.ToolFiles) == 0 {
		opts.ToolFiles = DefaultToolFiles
	}

	m := &Manifest{
		Artifact:  "HGL v" + opts.Version,
		BuildUTC:  utc(opts.Now()),
		Git:       gitInfo(ctx, opts.RepoDir, opts.Now, opts.Warnings),
		Inputs:    []FileEntry{},
		Outputs:   []FileEntry{},
		Tools:     []ToolEntry{},
		Sentences: []SentenceEntry{},
		Route:     opts.Route,
		Policy: PolicyResult{
			Status:  StatusUnknown,
			Gates:   map[string]Gate{},
			Version: PolicyVersion,
		},
	}

	var err error
	if opts.InputDir != "" {
		if m.Inputs, err = hashTree(ctx, opts.InputDir, nil, opts.Warnings); err != nil {
			return nil, err
		}
	}
	if m.Outputs, err = hashTree(ctx, opts.ReleaseDir, func(rel string) bool {
		return filepath.Base(rel) == FileName
	}, opts.Warnings); err != nil {
		return nil, err
	}
	if opts.ToolsDir != "" {
		if m.Tools, err = hashTools(ctx, opts.ToolsDir, opts.ToolFiles, opts.Warnings); err != nil {
			return nil, err
		}
	}
	m.Sentences = compileSentences(opts.ReleaseDir, m.Outputs, opts.SentenceExtensions, opts.ParseOptions)

	if opts.SkipPolicy {
		m.Policy.Status = StatusSkipped
	} else {
		m.Policy = evaluatePolicy(ctx, opts)
	}
	return m, nil
}

// compileSentences fingerprints every sentence source among the release
// outputs. A source that fails to compile is listed with its error.
func compileSentences(root string, outputs []FileEntry, exts []string, opts sentence.ParseOptions) []SentenceEntry {
	if len(exts) == 0 {
		exts = []string{".hgl"}
	}
	out := []SentenceEntry{}
	for _, f := range outputs {
		if !hasAnySuffix(f.Path, exts) {
			continue
		}
		entry := SentenceEntry{Path: f.Path}
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f.Path)))
		if err != nil {
			entry.Error = err.Error()
			out = append(out, entry)
			continue
		}
		c, err := sentence.Compile(string(data), opts)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Fingerprint = c.Fingerprint
		}
		out = append(out, entry)
	}
	return out
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
