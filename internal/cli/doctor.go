package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hglc/internal/audit"
	"github.com/ppiankov/hglc/internal/config"
	"github.com/ppiankov/hglc/internal/ledger"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, ledger and compile log",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	checks := doctorChecks(configPath)

	hasFailures := false
	for _, c := range checks {
		mark := "✓"
		if !c.ok {
			mark = "✗"
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-16s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Println(line)
	}

	if hasFailures {
		fmt.Println()
		fmt.Println("Some checks failed. Run the suggested commands to fix.")
		return fmt.Errorf("doctor found issues")
	}

	fmt.Println()
	fmt.Println("All checks passed.")
	return nil
}

func doctorChecks(cfgPath string) []checkResult {
	var checks []checkResult

	// 1. Config file.
	if cfgPath == "" {
		cfgPath = filepath.Join(config.DefaultDir(), "config.yaml")
	}
	cfg, hash, err := config.LoadWithHash(cfgPath)
	switch {
	case err != nil:
		return append(checks, checkResult{label: "config", ok: false, detail: err.Error(), fix: "fix or remove " + cfgPath})
	case fileExists(config.ExpandPath(cfgPath)):
		checks = append(checks, checkResult{label: "config", ok: true, detail: fmt.Sprintf("%s (%s)", cfgPath, hash[:19])})
	default:
		checks = append(checks, checkResult{label: "config", ok: false, detail: "missing, using defaults", fix: "hglc init"})
	}

	// 2. Ledger opens and answers.
	if store, err := ledger.Open(cfg.LedgerPath); err != nil {
		checks = append(checks, checkResult{label: "ledger", ok: false, detail: err.Error()})
	} else {
		n, err := store.Count(context.Background())
		store.Close()
		if err != nil {
			checks = append(checks, checkResult{label: "ledger", ok: false, detail: err.Error()})
		} else {
			checks = append(checks, checkResult{label: "ledger", ok: true, detail: fmt.Sprintf("%s (%d sentences)", cfg.LedgerPath, n)})
		}
	}

	// 3. Compile log chain.
	if !fileExists(cfg.AuditLog) {
		checks = append(checks, checkResult{label: "compile log", ok: true, detail: "not created yet"})
	} else if r := audit.Verify(cfg.AuditLog); r.Valid {
		checks = append(checks, checkResult{label: "compile log", ok: true, detail: fmt.Sprintf("%d entries verified", r.Lines)})
	} else {
		checks = append(checks, checkResult{
			label:  "compile log",
			ok:     false,
			detail: fmt.Sprintf("chain broken at line %d: %s", r.ErrorLine, r.Error),
			fix:    "hglc audit replay " + cfg.AuditLog,
		})
	}

	// 4. git, needed for manifest provenance.
	if path, err := exec.LookPath("git"); err == nil {
		checks = append(checks, checkResult{label: "git", ok: true, detail: path})
	} else {
		checks = append(checks, checkResult{label: "git", ok: false, detail: "not found; manifests will record \"unknown\""})
	}

	return checks
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
