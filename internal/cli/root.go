package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes beyond 0/1, from sysexits.h.
const (
	exitDataErr = 65 // EX_DATAERR: a sentence or record was malformed
	exitConfig  = 78 // EX_CONFIG
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "hglc",
	Short: "Compiler for one-line cooperation sentences",
	Long:  "Compiles tag-based cooperation sentences (SUBJ/INTENT/ACT/OBJ with optional CONSENT, POLICY, PROOF)\ninto canonical JSON records with a stable SHA-256 fingerprint.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.hglc/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
