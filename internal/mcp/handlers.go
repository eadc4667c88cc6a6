package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/hglc/internal/engine"
	"github.com/ppiankov/hglc/internal/ledger"
	"github.com/ppiankov/hglc/internal/sentence"
)

// --- Input/Output types ---

// CompileInput defines parameters for the hglc_compile tool.
type CompileInput struct {
	Line string `json:"line" jsonschema:"the sentence line to compile"`
}

// CompileOutput contains the compiled record or rejection details.
type CompileOutput struct {
	Fingerprint string         `json:"fingerprint,omitempty"`
	Canonical   string         `json:"canonical,omitempty"`
	Duplicate   bool           `json:"duplicate,omitempty"`
	Sentence    map[string]any `json:"sentence,omitempty"`
	Rejected    bool           `json:"rejected,omitempty"`
	ErrorKind   string         `json:"error_kind,omitempty"`
	Field       string         `json:"field,omitempty"`
	Reason      string         `json:"reason,omitempty"`
}

// DocumentInput carries a JSON document as text.
type DocumentInput struct {
	JSON string `json:"json" jsonschema:"JSON document as text"`
}

// CanonicalizeOutput contains the canonical form.
type CanonicalizeOutput struct {
	Canonical string `json:"canonical"`
}

// FingerprintOutput contains the digest and the bytes it covers.
type FingerprintOutput struct {
	Fingerprint string `json:"fingerprint"`
	Canonical   string `json:"canonical"`
}

// LookupInput defines parameters for the hglc_lookup tool.
type LookupInput struct {
	Fingerprint string `json:"fingerprint" jsonschema:"64-character hex fingerprint"`
}

// LookupOutput describes a ledger entry. Found is false when the
// fingerprint is unknown.
type LookupOutput struct {
	Found       bool   `json:"found"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Canonical   string `json:"canonical,omitempty"`
	FirstRun    string `json:"first_run,omitempty"`
	FirstSeen   string `json:"first_seen,omitempty"`
	LastSeen    string `json:"last_seen,omitempty"`
	SeenCount   int    `json:"seen_count,omitempty"`
}

// --- Handlers ---

func (s *Server) handleCompile(ctx context.Context, req *mcpsdk.CallToolRequest, input CompileInput) (*mcpsdk.CallToolResult, CompileOutput, error) {
	res, err := s.svc.Compile(ctx, engine.SourceMCP, input.Line)
	if err != nil {
		var se *sentence.Error
		if errors.As(err, &se) {
			out := CompileOutput{
				Rejected:  true,
				ErrorKind: string(se.Kind),
				Field:     string(se.Field),
				Reason:    se.Reason,
			}
			return &mcpsdk.CallToolResult{IsError: true}, out, nil
		}
		return nil, CompileOutput{}, err
	}

	var rec map[string]any
	if err := json.Unmarshal(res.Canonical, &rec); err != nil {
		return nil, CompileOutput{}, fmt.Errorf("decode compiled record: %w", err)
	}
	return nil, CompileOutput{
		Fingerprint: res.Fingerprint,
		Canonical:   string(res.Canonical),
		Duplicate:   res.Duplicate,
		Sentence:    rec,
	}, nil
}

func (s *Server) handleCanonicalize(ctx context.Context, req *mcpsdk.CallToolRequest, input DocumentInput) (*mcpsdk.CallToolResult, CanonicalizeOutput, error) {
	b, err := s.svc.Canonicalize([]byte(input.JSON))
	if err != nil {
		return nil, CanonicalizeOutput{}, err
	}
	return nil, CanonicalizeOutput{Canonical: string(b)}, nil
}

func (s *Server) handleFingerprint(ctx context.Context, req *mcpsdk.CallToolRequest, input DocumentInput) (*mcpsdk.CallToolResult, FingerprintOutput, error) {
	b, fp, err := s.svc.Fingerprint([]byte(input.JSON))
	if err != nil {
		return nil, FingerprintOutput{}, err
	}
	return nil, FingerprintOutput{Fingerprint: fp, Canonical: string(b)}, nil
}

func (s *Server) handleLookup(ctx context.Context, req *mcpsdk.CallToolRequest, input LookupInput) (*mcpsdk.CallToolResult, LookupOutput, error) {
	e, err := s.svc.Lookup(ctx, input.Fingerprint)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, LookupOutput{Found: false}, nil
	}
	if err != nil {
		return nil, LookupOutput{}, err
	}
	return nil, LookupOutput{
		Found:       true,
		Fingerprint: e.Fingerprint,
		Canonical:   e.Canonical,
		FirstRun:    e.FirstRun,
		FirstSeen:   e.FirstSeen.UTC().Format(time.RFC3339),
		LastSeen:    e.LastSeen.UTC().Format(time.RFC3339),
		SeenCount:   e.SeenCount,
	}, nil
}
