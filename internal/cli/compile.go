package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hglc/internal/engine"
	"github.com/ppiankov/hglc/internal/rpc"
	"github.com/ppiankov/hglc/internal/sentence"
)

var (
	compileLines       bool
	compileKeepGoing   bool
	compileStrict      bool
	compileRecord      bool
	compileFingerprint bool
	compileLedger      string
	compileAuditLog    string
	compileRemote      string
)

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().BoolVar(&compileLines, "lines", false, "Compile each non-empty line as its own sentence")
	compileCmd.Flags().BoolVar(&compileKeepGoing, "keep-going", false, "With --lines, continue past malformed lines")
	compileCmd.Flags().BoolVar(&compileStrict, "strict", false, "Reject repeated, embedded or out-of-order markers")
	compileCmd.Flags().BoolVar(&compileRecord, "record", false, "Record results in the ledger and audit log")
	compileCmd.Flags().BoolVar(&compileFingerprint, "fingerprint", false, "Print \"<fingerprint>  <source>\" instead of the record")
	compileCmd.Flags().StringVar(&compileLedger, "ledger", "", "Ledger database path (overrides config)")
	compileCmd.Flags().StringVar(&compileAuditLog, "audit-log", "", "Audit log path (overrides config)")
	compileCmd.Flags().StringVar(&compileRemote, "remote", "", "Compile through a gRPC server at host:port")
}

var compileCmd = &cobra.Command{
	Use:   "compile <file|->...",
	Short: "Compile sentences into canonical JSON",
	Long: "Reads each file as one sentence (newlines count as spaces) and prints its\n" +
		"canonical JSON record. Malformed input prints \"ParseError: ...\" on stderr\n" +
		"and exits 65.",
	Args: cobra.MinimumNArgs(1),
	RunE: runCompile,
}

// compileFunc compiles one line, locally or remotely.
type compileFunc func(ctx context.Context, line string) (*engine.Result, error)

type compileOptions struct {
	lines       bool
	keepGoing   bool
	fingerprint bool
}

func runCompile(cmd *cobra.Command, args []string) error {
	var compile compileFunc
	cleanup := func() {}

	if compileRemote != "" {
		client, err := rpc.Dial(compileRemote)
		if err != nil {
			return err
		}
		cleanup = func() { client.Close() }
		compile = remoteCompile(client)
	} else {
		cfg, hash := loadConfig()
		svc, closeEngine, err := openEngine(cfg, hash, engineOptions{
			strict:   compileStrict,
			record:   compileRecord,
			ledger:   compileLedger,
			auditLog: compileAuditLog,
		})
		if err != nil {
			return err
		}
		cleanup = closeEngine
		compile = func(ctx context.Context, line string) (*engine.Result, error) {
			return svc.Compile(ctx, engine.SourceCLI, line)
		}
	}

	code, err := compileInputs(cmd.Context(), compile, args, compileOptions{
		lines:       compileLines,
		keepGoing:   compileKeepGoing,
		fingerprint: compileFingerprint,
	}, os.Stdout, os.Stderr)
	cleanup()
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

// compileInputs compiles every input and returns the process exit code.
// I/O failures are returned as errors; malformed sentences are reported on
// errOut and yield exitDataErr.
func compileInputs(ctx context.Context, compile compileFunc, paths []string, opts compileOptions, out, errOut io.Writer) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	failed := false

	for _, path := range paths {
		data, err := readInput(path)
		if err != nil {
			return 1, fmt.Errorf("read %s: %w", path, err)
		}

		type unit struct {
			where string
			text  string
		}
		var units []unit
		if opts.lines {
			for i, line := range strings.Split(string(data), "\n") {
				if strings.TrimSpace(line) == "" {
					continue
				}
				units = append(units, unit{where: fmt.Sprintf("%s:%d", path, i+1), text: line})
			}
		} else {
			units = []unit{{where: path, text: string(data)}}
		}

		for _, u := range units {
			res, err := compile(ctx, u.text)
			if err != nil {
				var se *sentence.Error
				if !errors.As(err, &se) {
					return 1, err
				}
				fmt.Fprintf(errOut, "ParseError: %s: %v\n", u.where, se)
				failed = true
				if !opts.keepGoing {
					return exitDataErr, nil
				}
				continue
			}
			if opts.fingerprint {
				fmt.Fprintf(out, "%s  %s\n", res.Fingerprint, u.where)
			} else {
				fmt.Fprintln(out, string(res.Canonical))
			}
		}
	}

	if failed {
		return exitDataErr, nil
	}
	return 0, nil
}

func remoteCompile(client *rpc.Client) compileFunc {
	return func(ctx context.Context, line string) (*engine.Result, error) {
		r, err := client.Compile(ctx, line)
		if err != nil {
			return nil, err
		}
		return &engine.Result{
			Compiled: sentence.Compiled{
				Sentence:    r.Sentence,
				Canonical:   r.Canonical,
				Fingerprint: r.Fingerprint,
			},
			Duplicate: r.Duplicate,
		}, nil
	}
}
