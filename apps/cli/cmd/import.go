package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpcraft/packages/import/curl"
	"github.com/abdul-hamid-achik/httpcraft/packages/output"
	"github.com/abdul-hamid-achik/httpcraft/packages/persist"
)

var (
	importFileFlag    string
	importOutFlag     string
	importIndexFlag   int
	importNoColorFlag bool
)

var importCmd = &cobra.Command{
	Use:   "import [curl command]",
	Short: "Turn a curl command into a state file",
	Long: `Turn a curl command into a state file for send --load-state.

The target, headers, cookies and payload of the command are written to the
state file and the method and path to send are printed.

Examples:
  httpcraft import "curl -X POST https://api.example.com/login -d user=admin" -o state.json
  httpcraft import -f exported.sh --index 2 -o state.json`,
	RunE: importCommand,
}

func init() {
	importCmd.Flags().SetInterspersed(false)
	importCmd.Flags().StringVarP(&importFileFlag, "file", "f", "", "Read curl commands from a file")
	importCmd.Flags().IntVar(&importIndexFlag, "index", 1, "Which command of --file to import, counting from 1")
	importCmd.Flags().StringVarP(&importOutFlag, "output", "o", "state.json", "State file to write")
	importCmd.Flags().BoolVar(&importNoColorFlag, "no-color", getEnvBool("HTTPCRAFT_NO_COLOR", false), "Disable colored output (env: HTTPCRAFT_NO_COLOR)")
	rootCmd.AddCommand(importCmd)
}

func importCommand(cmd *cobra.Command, args []string) error {
	var command *curl.Command
	switch {
	case importFileFlag != "":
		cmds, err := curl.ParseFile(importFileFlag)
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}
		if importIndexFlag < 1 || importIndexFlag > len(cmds) {
			return withExitCode(ExitUsageError, fmt.Errorf("--index %d out of range (file has %d commands)", importIndexFlag, len(cmds)))
		}
		command = cmds[importIndexFlag-1]
	case len(args) > 0:
		var err error
		command, err = curl.Parse(strings.Join(args, " "))
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}
	default:
		return withExitCode(ExitUsageError, fmt.Errorf("pass a curl command or --file"))
	}

	cfg, err := command.Config()
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if err := persist.SaveConfig(importOutFlag, cfg); err != nil {
		return withExitCode(ExitPersistenceError, err)
	}

	console := output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithNoColor(importNoColorFlag),
	)
	console.FormatSuccess("State written to " + importOutFlag)
	if command.Insecure {
		fmt.Fprintln(cmd.OutOrStdout(), "note: the command disabled TLS verification, pass -k to send")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "httpcraft send %s %s --load-state %s\n", command.Method, command.Path(), importOutFlag)
	return nil
}
