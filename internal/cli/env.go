package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppiankov/hglc/internal/audit"
	"github.com/ppiankov/hglc/internal/config"
	"github.com/ppiankov/hglc/internal/engine"
	"github.com/ppiankov/hglc/internal/ledger"
	"github.com/ppiankov/hglc/internal/metrics"
	"github.com/ppiankov/hglc/internal/sentence"
)

// loadConfig loads --config, exiting with EX_CONFIG when it is unreadable.
func loadConfig() (*config.Config, string) {
	cfg, hash, err := config.LoadWithHash(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(exitConfig)
	}
	return cfg, hash
}

// engineOptions selects which sinks an engine gets.
type engineOptions struct {
	strict   bool
	record   bool
	ledger   string
	auditLog string
	registry prometheus.Registerer
}

// openEngine builds an engine.Service from config and flags. With record
// unset the service is pure: no ledger, no audit log. The returned close
// func releases whatever was opened.
func openEngine(cfg *config.Config, cfgHash string, o engineOptions) (*engine.Service, func(), error) {
	ecfg := engine.Config{ConfigHash: cfgHash}
	if o.strict || cfg.StrictMarkers {
		ecfg.Options.Markers = sentence.MarkersStrict
	}
	if o.registry != nil {
		ecfg.Metrics = metrics.New(o.registry)
	}

	var closers []io.Closer
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
	}

	if o.record {
		ledgerPath := firstNonEmpty(o.ledger, cfg.LedgerPath)
		if ledgerPath != "" {
			store, err := ledger.Open(config.ExpandPath(ledgerPath))
			if err != nil {
				return nil, nil, err
			}
			closers = append(closers, store)
			ecfg.Ledger = store
		}

		auditPath := firstNonEmpty(o.auditLog, cfg.AuditLog)
		if auditPath != "" {
			log, err := audit.Open(config.ExpandPath(auditPath))
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			closers = append(closers, log)
			ecfg.Audit = log
		}
	}

	return engine.New(ecfg), closeAll, nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
