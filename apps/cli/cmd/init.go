package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpcraft/packages/core/config"
	"github.com/abdul-hamid-achik/httpcraft/packages/craft"
)

var (
	forceInit  bool
	initTarget string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize httpcraft settings in the current directory",
	Long: `Initialize httpcraft in the current directory.

This creates:
  - .httpcraft.yaml  - Client settings (timeouts, redirects, archive)
  - state.json       - Target, headers, cookies and payload for send

Examples:
  httpcraft init
  httpcraft init --target https://staging.example.com --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().StringVar(&initTarget, "target", "http://localhost:5000", "Target written to the state file")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	settingsFile := filepath.Join(cwd, ".httpcraft.yaml")
	stateFile := filepath.Join(cwd, "state.json")

	if !forceInit {
		for _, f := range []string{settingsFile, stateFile} {
			if _, err := os.Stat(f); err == nil {
				return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	settings := config.DefaultConfig()
	settings.Archive = DefaultArchivePath
	if err := settings.SaveConfig(settingsFile); err != nil {
		return withExitCode(ExitPersistenceError, fmt.Errorf("failed to create settings file: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", settingsFile)

	client, err := craft.New(initTarget)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	defer client.Close()
	client.State().SetHeader("Accept", "*/*")
	if err := client.SaveConfig(stateFile); err != nil {
		return withExitCode(ExitPersistenceError, fmt.Errorf("failed to create state file: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", stateFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nhttpcraft initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'httpcraft send GET / --load-state state.json' to send a first request.\n")

	return nil
}
