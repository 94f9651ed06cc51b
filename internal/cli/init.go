package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/examguard/internal/config"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default examguard configuration",
	Long: `Creates ~/.examguard/config.yaml holding the default monitor settings,
audit log location, alert targets and exam options, with comments.

An existing file is left alone unless --force is given.`,
	// The config being created may not exist or parse yet.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := config.Dir()
	if dir == "" {
		return fmt.Errorf("cannot determine home directory")
	}

	path := filepath.Join(dir, "config.yaml")
	wrote, err := writeIfMissing(path, config.DefaultYAML())
	if err != nil {
		return err
	}

	fmt.Println("examguard init complete.")
	fmt.Println()
	if wrote {
		fmt.Printf("Created:\n  %s\n\n", path)
	} else {
		fmt.Println("Config already exists (use --force to overwrite).")
		fmt.Println()
	}

	fmt.Println("Check monitoring rules:")
	fmt.Println("  examguard check --scenario 'scenarios/*.yaml'")
	fmt.Println()
	fmt.Println("Start an exam:")
	fmt.Println("  examguard exam")
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
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
