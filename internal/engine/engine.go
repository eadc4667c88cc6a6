// Package engine runs the sentence compiler on behalf of every front end
// (CLI, watcher, gRPC, HTTP, MCP) and records each outcome in the ledger,
// the audit log and the metrics registry.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/hglc/internal/audit"
	"github.com/ppiankov/hglc/internal/canon"
	"github.com/ppiankov/hglc/internal/ledger"
	"github.com/ppiankov/hglc/internal/metrics"
	"github.com/ppiankov/hglc/internal/sentence"
)

// Sources recorded in audit entries and metric labels.
const (
	SourceCLI   = "cli"
	SourceWatch = "watch"
	SourceGRPC  = "grpc"
	SourceHTTP  = "http"
	SourceMCP   = "mcp"
)

// ErrNoLedger is returned by Lookup when the service runs without a ledger.
var ErrNoLedger = errors.New("engine: no ledger configured")

// Config wires optional sinks into a Service. Nil sinks are skipped.
type Config struct {
	Options    sentence.ParseOptions
	Ledger     *ledger.Store
	Audit      *audit.Log
	Metrics    *metrics.Metrics
	ConfigHash string
	// RunID tags audit entries; a random UUID is used when empty.
	RunID string
	Now   func() time.Time
}

// Result is a successful compile.
type Result struct {
	sentence.Compiled
	// Duplicate is true when the ledger already held this fingerprint.
	Duplicate bool
}

// Service compiles lines and records outcomes. Safe for concurrent use.
type Service struct {
	cfg Config
}

// New creates a Service.
func New(cfg Config) *Service {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{cfg: cfg}
}

// RunID identifies this service's audit entries.
func (s *Service) RunID() string {
	return s.cfg.RunID
}

// Options returns the parse options in effect.
func (s *Service) Options() sentence.ParseOptions {
	return s.cfg.Options
}

// Compile parses one line and records the outcome. A rejected line returns
// the *sentence.Error unwrapped so callers can errors.As it directly.
func (s *Service) Compile(ctx context.Context, source, line string) (*Result, error) {
	start := time.Now()
	c, err := sentence.Compile(line, s.cfg.Options)
	s.cfg.Metrics.ObserveCompileLatency(time.Since(start))

	if err != nil {
		var se *sentence.Error
		if !errors.As(err, &se) {
			return nil, err
		}
		s.cfg.Metrics.IncrementRejected(string(se.Kind))
		if aerr := s.record(audit.Entry{
			Source:    source,
			Outcome:   audit.OutcomeRejected,
			ErrorKind: string(se.Kind),
			Field:     string(se.Field),
			Reason:    se.Reason,
		}); aerr != nil {
			return nil, aerr
		}
		return nil, se
	}

	res := &Result{Compiled: c}
	var auditErr error
	recordOutcome := func(inserted bool) error {
		outcome := audit.OutcomeCompiled
		if !inserted {
			outcome = audit.OutcomeDuplicate
		}
		auditErr = s.record(audit.Entry{
			Source:      source,
			Outcome:     outcome,
			Fingerprint: c.Fingerprint,
		})
		return auditErr
	}

	// The ledger row commits only after the audit entry is appended.
	if s.cfg.Ledger != nil {
		inserted, err := s.cfg.Ledger.PutThen(ctx, c, s.cfg.RunID, s.cfg.Now(), recordOutcome)
		if err != nil {
			if auditErr != nil {
				return nil, auditErr
			}
			return nil, fmt.Errorf("engine: %w", err)
		}
		res.Duplicate = !inserted
	} else if err := recordOutcome(true); err != nil {
		return nil, err
	}

	if res.Duplicate {
		s.cfg.Metrics.IncrementDuplicate()
	}
	s.cfg.Metrics.IncrementCompiled(source)
	return res, nil
}

// Canonicalize re-encodes arbitrary JSON in canonical form.
func (s *Service) Canonicalize(data []byte) ([]byte, error) {
	return canon.Canonicalize(data)
}

// Fingerprint returns the canonical bytes of data and their digest.
func (s *Service) Fingerprint(data []byte) ([]byte, string, error) {
	b, err := canon.Canonicalize(data)
	if err != nil {
		return nil, "", err
	}
	return b, canon.Fingerprint(b), nil
}

// Lookup returns a previously compiled sentence by fingerprint.
func (s *Service) Lookup(ctx context.Context, fingerprint string) (ledger.Entry, error) {
	if s.cfg.Ledger == nil {
		return ledger.Entry{}, ErrNoLedger
	}
	return s.cfg.Ledger.Get(ctx, fingerprint)
}

// List returns ledger entries matching f.
func (s *Service) List(ctx context.Context, f ledger.Filter) ([]ledger.Entry, error) {
	if s.cfg.Ledger == nil {
		return nil, ErrNoLedger
	}
	return s.cfg.Ledger.List(ctx, f)
}

func (s *Service) record(e audit.Entry) error {
	if s.cfg.Audit == nil {
		return nil
	}
	e.Timestamp = s.cfg.Now().UTC().Format(audit.TimestampFormat)
	e.RunID = s.cfg.RunID
	e.ConfigHash = s.cfg.ConfigHash
	if err := s.cfg.Audit.Record(e); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}
