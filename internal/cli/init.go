package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/hglc/internal/config"
)

var (
	initDir   string
	initForce bool
)

func init() {
	initCmd.Flags().StringVar(&initDir, "dir", "", "Config directory (default ~/.hglc)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap hglc configuration",
	Long: `Creates the config directory and a config.yaml holding every default,
so each setting can be edited in place.

The ledger database and compile log are created on first use.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := initDir
	if dir == "" {
		dir = config.DefaultDir()
	}

	content, err := defaultConfigYAML()
	if err != nil {
		return fmt.Errorf("generate default config: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	wrote, err := writeIfMissing(path, content)
	if err != nil {
		return err
	}

	fmt.Println("hglc init complete.")
	fmt.Println()
	if wrote {
		fmt.Println("Created:")
		fmt.Printf("  %s\n", path)
	} else {
		fmt.Println("All files already exist (use --force to overwrite).")
	}
	fmt.Println()
	fmt.Println("Verify:")
	fmt.Println("  hglc doctor")
	fmt.Println()
	fmt.Println("Compile a sentence:")
	fmt.Println("  echo 'SUBJ:Human:alice INTENT:approve ACT:access OBJ:dataset/d1' | hglc compile -")
	return nil
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// defaultConfigYAML renders DefaultConfig with a short header.
func defaultConfigYAML() (string, error) {
	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return "", err
	}
	header := "# hglc configuration.\n" +
		"# Every key is optional; missing keys keep the built-in default.\n" +
		"# strict_markers: reject repeated, embedded or out-of-order tag markers.\n\n"
	return header + string(data), nil
}
