package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpcraft/packages/archive"
	"github.com/abdul-hamid-achik/httpcraft/packages/core/config"
	"github.com/abdul-hamid-achik/httpcraft/packages/exchange"
	"github.com/abdul-hamid-achik/httpcraft/packages/output"
	"github.com/abdul-hamid-achik/httpcraft/packages/persist"
)

// DefaultArchivePath is used when neither --archive nor the settings file
// name one.
const DefaultArchivePath = "httpcraft.db"

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect archived exchanges",
	Long: `Inspect the exchanges recorded with send --archive.

Examples:
  httpcraft history list --limit 20
  httpcraft history list --search /api/users
  httpcraft history show 6f1c0b9e-2d7a-4c7e-a4b6-1f0c3e9d2a11
  httpcraft history export history.json --redact
  httpcraft history clear`,
}

var (
	historyArchiveFlag string
	historyLimitFlag   int
	historyOffsetFlag  int
	historySearchFlag  string
	historyRedactFlag  bool
	historyNoColorFlag bool
	historyOutputFlag  string
)

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived exchanges, most recent first",
	Args:  cobra.NoArgs,
	RunE:  historyListCommand,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one archived exchange",
	Args:  cobra.ExactArgs(1),
	RunE:  historyShowCommand,
}

var historyExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write every archived exchange as a history document, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  historyExportCommand,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every archived exchange",
	Args:  cobra.NoArgs,
	RunE:  historyClearCommand,
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyArchiveFlag, "archive", getEnvString("HTTPCRAFT_ARCHIVE", ""), "SQLite archive path (env: HTTPCRAFT_ARCHIVE)")
	historyCmd.PersistentFlags().BoolVar(&historyNoColorFlag, "no-color", getEnvBool("HTTPCRAFT_NO_COLOR", false), "Disable colored output (env: HTTPCRAFT_NO_COLOR)")

	historyListCmd.Flags().IntVarP(&historyLimitFlag, "limit", "l", archive.DefaultListLimit, "Maximum number of entries")
	historyListCmd.Flags().IntVar(&historyOffsetFlag, "offset", 0, "Skip this many entries")
	historyListCmd.Flags().StringVarP(&historySearchFlag, "search", "s", "", "Only entries whose URL contains this text")

	historyShowCmd.Flags().StringVarP(&historyOutputFlag, "output", "o", "console", "Output format: console, json")
	_ = historyShowCmd.RegisterFlagCompletionFunc("output", fixedCompletions(outputFormats...))

	historyExportCmd.Flags().BoolVar(&historyRedactFlag, "redact", false, "Replace sensitive header values with placeholders")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyClearCmd)
}

func openArchive() (*archive.Archive, error) {
	path := historyArchiveFlag
	if path == "" {
		fileConfig, err := config.LoadConfig("")
		if err != nil {
			return nil, withExitCode(ExitConfigError, fmt.Errorf("loading settings: %w", err))
		}
		path = fileConfig.Archive
	}
	if path == "" {
		path = DefaultArchivePath
	}

	a, err := archive.Open(path)
	if err != nil {
		return nil, withExitCode(ExitPersistenceError, err)
	}
	return a, nil
}

func historyListCommand(cmd *cobra.Command, args []string) error {
	a, err := openArchive()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var entries []archive.Entry
	if historySearchFlag != "" {
		entries, err = a.Search(ctx, historySearchFlag)
	} else {
		entries, err = a.List(ctx, historyLimitFlag, historyOffsetFlag)
	}
	if err != nil {
		return withExitCode(ExitPersistenceError, err)
	}

	total, err := a.Count(ctx)
	if err != nil {
		return withExitCode(ExitPersistenceError, err)
	}
	if historySearchFlag != "" {
		total = len(entries)
	}

	output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithNoColor(historyNoColorFlag),
	).FormatArchive(entries, total)
	return nil
}

func historyShowCommand(cmd *cobra.Command, args []string) error {
	a, err := openArchive()
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := a.Get(context.Background(), args[0])
	if err != nil {
		return withExitCode(ExitPersistenceError, err)
	}

	if historyOutputFlag == "json" {
		return output.NewJSONFormatter(output.WithJSONWriter(cmd.OutOrStdout())).FormatExchange(entry.Exchange)
	}
	output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithNoColor(historyNoColorFlag),
	).FormatExchange(entry.Exchange)
	return nil
}

func historyExportCommand(cmd *cobra.Command, args []string) error {
	a, err := openArchive()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	total, err := a.Count(ctx)
	if err != nil {
		return withExitCode(ExitPersistenceError, err)
	}

	var exs []*exchange.Exchange
	if total > 0 {
		entries, err := a.List(ctx, total, 0)
		if err != nil {
			return withExitCode(ExitPersistenceError, err)
		}
		exs = make([]*exchange.Exchange, 0, len(entries))
		for _, e := range entries {
			exs = append(exs, e.Exchange)
		}
		slices.Reverse(exs)
	}

	var opts []persist.HistoryOption
	if historyRedactFlag {
		opts = append(opts, persist.WithRedaction(persist.DefaultRedactedHeaders...))
	}
	if err := persist.SaveHistory(args[0], exs, opts...); err != nil {
		return withExitCode(ExitPersistenceError, err)
	}

	output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithNoColor(historyNoColorFlag),
	).FormatSuccess(fmt.Sprintf("Exported %d exchanges to %s", len(exs), args[0]))
	return nil
}

func historyClearCommand(cmd *cobra.Command, args []string) error {
	a, err := openArchive()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Clear(context.Background()); err != nil {
		return withExitCode(ExitPersistenceError, err)
	}
	output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithNoColor(historyNoColorFlag),
	).FormatSuccess("Archive cleared")
	return nil
}
