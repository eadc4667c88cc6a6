package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hglc/internal/canon"
)

func init() {
	rootCmd.AddCommand(canonCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(verifyCmd)
}

var canonCmd = &cobra.Command{
	Use:   "canon <file|->",
	Short: "Print the canonical form of a JSON record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCanon(args[0], os.Stdout)
	},
}

var hashCmd = &cobra.Command{
	Use:   "hash <file|->",
	Short: "Print the SHA-256 fingerprint of a JSON record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHash(args[0], os.Stdout)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <file|-> <fingerprint>",
	Short: "Check a JSON record against an expected fingerprint",
	Long:  "Canonicalizes the record and compares its fingerprint with the expected\nvalue (case-insensitive). Exits 0 on match, 1 on mismatch.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := runVerify(args[0], args[1], os.Stdout)
		if err != nil {
			return err
		}
		if !ok {
			os.Exit(1)
		}
		return nil
	},
}

func runCanon(path string, out io.Writer) error {
	data, err := readInput(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	b, err := canon.Canonicalize(data)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(b))
	return nil
}

func runHash(path string, out io.Writer) error {
	data, err := readInput(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	fp, err := canon.FingerprintJSON(data)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, fp)
	return nil
}

func runVerify(path, want string, out io.Writer) (bool, error) {
	data, err := readInput(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	got, err := canon.FingerprintJSON(data)
	if err != nil {
		return false, err
	}
	if !strings.EqualFold(got, strings.TrimSpace(want)) {
		fmt.Fprintf(out, "MISMATCH: %s\n  expected %s\n  actual   %s\n", path, strings.ToLower(want), got)
		return false, nil
	}
	fmt.Fprintf(out, "OK: %s %s\n", path, got)
	return true, nil
}
