package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hglc/internal/config"
	"github.com/ppiankov/hglc/internal/ledger"
)

var (
	ledgerPathFlag string
	ledgerFilter   ledger.Filter
	ledgerJSON     bool
)

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerShowCmd)
	ledgerCmd.PersistentFlags().StringVar(&ledgerPathFlag, "ledger", "", "Ledger database path (overrides config)")

	f := ledgerListCmd.Flags()
	f.StringVar(&ledgerFilter.SubjectKind, "subject-kind", "", "Filter by subject kind")
	f.StringVar(&ledgerFilter.SubjectID, "subject", "", "Filter by subject id")
	f.StringVar(&ledgerFilter.Intent, "intent", "", "Filter by intent")
	f.StringVar(&ledgerFilter.Act, "act", "", "Filter by act")
	f.StringVar(&ledgerFilter.ObjectKind, "object-kind", "", "Filter by object kind")
	f.StringVar(&ledgerFilter.ObjectID, "object", "", "Filter by object id")
	f.IntVarP(&ledgerFilter.Limit, "limit", "n", 50, "Maximum entries")
	f.BoolVar(&ledgerJSON, "json", false, "Print JSON instead of a table")
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect compiled sentences",
	Long:  "Every sentence compiled with --record (or through serve/watch/mcp)\nis stored once per fingerprint with a seen count.",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sentences, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runLedgerList,
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show <fingerprint>",
	Short: "Show one stored sentence",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerShow,
}

func openLedger() (*ledger.Store, error) {
	cfg, _ := loadConfig()
	return ledger.Open(config.ExpandPath(firstNonEmpty(ledgerPathFlag, cfg.LedgerPath)))
}

func runLedgerList(cmd *cobra.Command, args []string) error {
	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), ledgerFilter)
	if err != nil {
		return err
	}
	if ledgerJSON {
		out, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(out))
		return nil
	}
	printLedgerTable(os.Stdout, entries)
	return nil
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out, _ := json.MarshalIndent(e, "", "  ")
	fmt.Println(string(out))
	return nil
}

func printLedgerTable(w io.Writer, entries []ledger.Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FINGERPRINT\tSUBJECT\tINTENT\tACT\tOBJECT\tSEEN\tLAST SEEN")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s:%s\t%s\t%s\t%s/%s\t%d\t%s\n",
			e.Fingerprint[:12], e.SubjectKind, e.SubjectID, e.Intent, e.Act,
			e.ObjectKind, e.ObjectID, e.SeenCount, e.LastSeen.UTC().Format(time.RFC3339))
	}
	tw.Flush()
}
