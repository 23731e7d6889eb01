// Package main implements normalize-logs, which rewrites a legacy logs.json
// into the current entry shape and optionally imports it into the store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/threadmind/dm-concierge/internal/model"
	"github.com/threadmind/dm-concierge/internal/store"
)

var (
	logFile  string
	doImport bool
	dbPath   string
)

var rootCmd = &cobra.Command{
	Use:   "normalize-logs",
	Short: "Normalize a legacy logs.json file",
	Long: `Reads a legacy JSON array of log entries, writes a .json.backup copy,
normalizes every entry in place and optionally appends the result to the
SQLite store.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), cmd.OutOrStdout(), logFile, doImport, dbPath)
	},
}

func init() {
	rootCmd.Flags().StringVar(&logFile, "file", "data/logs.json", "legacy log file to normalize")
	rootCmd.Flags().BoolVar(&doImport, "import", false, "append the normalized entries to the store")
	rootCmd.Flags().StringVar(&dbPath, "db", "data/concierge.db", "SQLite database used with --import")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, path string, importEntries bool, db string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	entries, warnings, err := store.NormalizeLegacyLogs(data)
	if err != nil {
		return fmt.Errorf("normalize %s: %w", path, err)
	}
	for _, w := range warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}

	backup := path + ".backup"
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	fmt.Fprintf(out, "backup written to %s\n", backup)

	normalized, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	if err := os.WriteFile(path, append(normalized, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(out, "normalized %d entries in %s\n", len(entries), path)

	if !importEntries {
		return nil
	}

	logs := make([]model.LogEntry, 0, len(entries))
	for i, e := range entries {
		le, err := store.LegacyEntry(e)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		logs = append(logs, le)
	}

	st, err := store.Open(ctx, db)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.ImportLogs(ctx, logs)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Fprintf(out, "imported %d entries into %s\n", n, db)
	return nil
}
