// Package manifest builds release provenance manifests: hashes of the
// release inputs, outputs and tooling, the git revision they came from, the
// outcome of the release policy script and the fingerprint of every
// sentence shipped in the release.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// FileName is the manifest written into the release directory. It is
// excluded from the outputs it describes.
const FileName = "provenance.json"

// TimeFormat is the layout of every timestamp in a manifest.
const TimeFormat = "2006-01-02T15:04:05.000000Z"

// PolicyVersion identifies the gate set evaluated by the policy script.
const PolicyVersion = "v1.2"

// Routes a release can be built through.
const (
	RouteStandard       = "standard"
	RouteExtended       = "extended"
	RouteConstitutional = "constitutional"
)

// Policy statuses.
const (
	StatusUnknown = "unknown"
	StatusPass    = "pass"
	StatusFail    = "fail"
	StatusTimeout = "timeout"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// ErrInvalidRoute is returned for a route outside the known set.
var ErrInvalidRoute = errors.New("manifest: invalid route")

// Struct fields are declared in key order so the encoded manifest has
// sorted keys at every level.

// Manifest is the provenance record of one release.
type Manifest struct {
	Artifact  string          `json:"artifact"`
	BuildUTC  string          `json:"build_utc"`
	Git       GitInfo         `json:"git"`
	Inputs    []FileEntry     `json:"inputs"`
	Outputs   []FileEntry     `json:"outputs"`
	Policy    PolicyResult    `json:"policy"`
	Route     string          `json:"route"`
	Sentences []SentenceEntry `json:"sentences"`
	Tools     []ToolEntry     `json:"tools"`
}

// GitInfo identifies the source revision. Fields are "unknown" outside a
// repository.
type GitInfo struct {
	Branch    string `json:"branch"`
	Commit    string `json:"commit"`
	Remote    string `json:"remote"`
	Timestamp string `json:"timestamp"`
}

// FileEntry is a hashed file relative to its root directory.
type FileEntry struct {
	Path      string `json:"path"`
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"size_bytes"`
}

// ToolEntry is a hashed release tool.
type ToolEntry struct {
	Name      string `json:"name"`
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"size_bytes"`
}

// PolicyResult is the outcome of the release policy script.
type PolicyResult struct {
	Error         string          `json:"error,omitempty"`
	EvaluationUTC *string         `json:"evaluation_utc"`
	ExitCode      *int            `json:"exit_code,omitempty"`
	Gates         map[string]Gate `json:"gates"`
	Status        string          `json:"status"`
	Version       string          `json:"version"`
}

// Gate is one named check reported by the policy script.
type Gate struct {
	Status string `json:"status"`
}

// SentenceEntry is a sentence source shipped in the release.
type SentenceEntry struct {
	Error       string `json:"error,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Path        string `json:"path"`
}

// ValidRoute reports whether r is a known route.
func ValidRoute(r string) bool {
	switch r {
	case RouteStandard, RouteExtended, RouteConstitutional:
		return true
	}
	return false
}

// Marshal encodes m as two-space indented JSON with a trailing newline.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("manifest: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes m to path, creating parent directories.
func (m *Manifest) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("manifest: create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	return nil
}

// Load reads a manifest from path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	return &m, nil
}

func warnf(w io.Writer, format string, args ...any) {
	if w != nil {
		fmt.Fprintf(w, "Warning: "+format+"\n", args...)
	}
}

func utc(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}
