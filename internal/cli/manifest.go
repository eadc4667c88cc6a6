package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hglc/internal/manifest"
	"github.com/ppiankov/hglc/internal/sentence"
)

var (
	manifestVersion  string
	manifestRelease  string
	manifestInput    string
	manifestTools    string
	manifestRoute    string
	manifestNoPolicy bool
	manifestScript   string
	manifestOutput   string
	manifestPrint    bool
)

func init() {
	rootCmd.AddCommand(manifestCmd)
	f := manifestCmd.Flags()
	f.StringVar(&manifestVersion, "version", "", "Release version, e.g. 1.2-beta.1 (required)")
	f.StringVar(&manifestRelease, "release-dir", "", "Release directory containing output artifacts (required)")
	f.StringVar(&manifestInput, "input-dir", "", "Input directory (default manifest.input_dir)")
	f.StringVar(&manifestTools, "tools-dir", "", "Tools directory (default manifest.tools_dir)")
	f.StringVar(&manifestRoute, "route", manifest.RouteStandard, "Processing route (standard|extended|constitutional)")
	f.BoolVar(&manifestNoPolicy, "no-policy", false, "Skip policy evaluation")
	f.StringVar(&manifestScript, "policy-script", "", "Policy script (default manifest.policy_script, then tools/verify_and_eval.sh)")
	f.StringVar(&manifestOutput, "output", "", "Output path (default <release-dir>/provenance.json)")
	f.BoolVar(&manifestPrint, "print", false, "Print the manifest to stdout instead of saving")
	manifestCmd.MarkFlagRequired("version")
	manifestCmd.MarkFlagRequired("release-dir")
}

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Generate a release provenance manifest",
	Long: "Hashes release inputs, outputs and tools, records the git revision,\n" +
		"runs the policy script against the release and fingerprints every\n" +
		"sentence file shipped in it.",
	Args: cobra.NoArgs,
	RunE: runManifest,
}

func runManifest(cmd *cobra.Command, args []string) error {
	cfg, _ := loadConfig()
	mc := cfg.Manifest

	opts := manifest.Options{
		Version:            manifestVersion,
		ReleaseDir:         manifestRelease,
		InputDir:           firstNonEmpty(manifestInput, mc.InputDir),
		ToolsDir:           firstNonEmpty(manifestTools, mc.ToolsDir),
		ToolFiles:          mc.ToolFiles,
		Route:              manifestRoute,
		PolicyScript:       firstNonEmpty(manifestScript, mc.PolicyScript),
		PolicyTimeout:      mc.PolicyTimeout,
		SkipPolicy:         manifestNoPolicy,
		SentenceExtensions: cfg.Watch.Extensions,
		Warnings:           os.Stderr,
	}
	if cfg.StrictMarkers {
		opts.ParseOptions.Markers = sentence.MarkersStrict
	}

	fmt.Fprintf(os.Stderr, "Generating provenance manifest for HGL v%s\n", manifestVersion)
	fmt.Fprintf(os.Stderr, "  Release: %s\n", manifestRelease)
	fmt.Fprintf(os.Stderr, "  Route:   %s\n", manifestRoute)

	m, err := manifest.Generate(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if manifestPrint {
		data, err := m.Marshal()
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		return nil
	}

	out := manifestOutput
	if out == "" {
		out = filepath.Join(manifestRelease, manifest.FileName)
	}
	if err := m.Save(out); err != nil {
		return err
	}

	rejected := 0
	for _, s := range m.Sentences {
		if s.Error != "" {
			rejected++
		}
	}
	fmt.Fprintf(os.Stderr, "Provenance manifest saved to: %s\n", out)
	fmt.Fprintf(os.Stderr, "  Inputs:    %d files\n", len(m.Inputs))
	fmt.Fprintf(os.Stderr, "  Outputs:   %d files\n", len(m.Outputs))
	fmt.Fprintf(os.Stderr, "  Tools:     %d files\n", len(m.Tools))
	fmt.Fprintf(os.Stderr, "  Sentences: %d (%d rejected)\n", len(m.Sentences), rejected)
	fmt.Fprintf(os.Stderr, "  Policy:    %s\n", strings.ToUpper(m.Policy.Status))
	return nil
}
