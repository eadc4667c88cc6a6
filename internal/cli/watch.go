package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hglc/internal/watch"
)

var (
	watchPoll   time.Duration
	watchNoScan bool
	watchStrict bool
	watchRecord bool
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchPoll, "poll", 0, "Poll at this interval instead of using filesystem events")
	watchCmd.Flags().BoolVar(&watchNoScan, "no-scan", false, "Skip compiling files already present at startup")
	watchCmd.Flags().BoolVar(&watchStrict, "strict", false, "Reject repeated, embedded or out-of-order markers")
	watchCmd.Flags().BoolVar(&watchRecord, "record", true, "Record results in the ledger and audit log")
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Recompile sentence files as they change",
	Long:  "Watches a directory for *.hgl files (see watch.extensions) and writes\nthe canonical record of each next to it as *.json.",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	cfg, hash := loadConfig()
	svc, closeEngine, err := openEngine(cfg, hash, engineOptions{strict: watchStrict, record: watchRecord})
	if err != nil {
		return err
	}
	defer closeEngine()

	logger := log.New(os.Stderr, "hglc: ", log.LstdFlags)
	compiler := watch.NewCompiler(svc, logger)
	opts := watch.Options{
		Extensions: cfg.Watch.Extensions,
		Debounce:   cfg.Watch.Debounce,
		Logger:     logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !watchNoScan {
		if err := watch.ScanExisting(ctx, dir, compiler.Handle, opts); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "hglc watching %s (run %s)\n", dir, svc.RunID())
	if watchPoll > 0 {
		return watch.NewPoller(dir, compiler.Handle, watchPoll, opts).Run(ctx)
	}
	return watch.New(dir, compiler.Handle, opts).Run(ctx)
}
