package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"nftgen/core"
	"nftgen/history"
	"nftgen/webui/auth"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [key]",
	Short: "Print the bcrypt hash of an API key for NFTGEN_API_KEY_HASH",
	Long: `Print the bcrypt hash of an API key.

The key is taken from the argument, or read from stdin when the argument is
"-". With no argument a new random key is generated and printed first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cost, _ := cmd.Flags().GetInt("cost")
		return runHashKey(cmd.InOrStdin(), cmd.OutOrStdout(), args, cost)
	},
}

func init() {
	hashKeyCmd.Flags().Int("cost", auth.DefaultCost, "bcrypt cost")
}

func runHashKey(in io.Reader, out io.Writer, args []string, cost int) error {
	var key string
	switch {
	case len(args) == 0:
		key = strings.ReplaceAll(uuid.NewString(), "-", "")
		fmt.Fprintf(out, "API key: %s\n", key)
	case args[0] == "-":
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read key: %w", err)
		}
		key = strings.TrimSpace(line)
	default:
		key = args[0]
	}

	hash, err := auth.HashKeyWithCost(key, cost)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "NFTGEN_API_KEY_HASH=%s\n", hash)
	return nil
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and maintain the generation history database",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if historyPath() == "" {
			return core.ErrMissingConfig("NFTGEN_HISTORY_DB")
		}
		return nil
	},
}

func historyPath() string {
	return core.GetEnvOrDefault("NFTGEN_HISTORY_DB", "")
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent generations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		store, err := history.Open(historyPath())
		if err != nil {
			return err
		}
		defer store.Close()

		gens, err := store.Recent(cmd.Context(), limit)
		if err != nil {
			return err
		}
		return printGenerations(cmd.OutOrStdout(), gens)
	},
}

var historyCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete generations older than --days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		store, err := history.Open(historyPath())
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Cleanup(cmd.Context(), days)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d generations\n", n)
		return nil
	},
}

var historyMigrateCmd = &cobra.Command{
	Use:   "migrate <up|down|version> [steps]",
	Short: "Apply, roll back or show schema migrations",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.OutOrStdout(), historyPath(), args)
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "number of generations to show")
	historyCleanupCmd.Flags().Int("days", 30, "retention in days")
	historyCmd.AddCommand(historyListCmd, historyCleanupCmd, historyMigrateCmd)
}

func runMigrate(out io.Writer, path string, args []string) error {
	switch args[0] {
	case "up":
		if err := history.MigrateUp(path); err != nil {
			return err
		}
	case "down":
		steps := -1
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid steps %q: must be a positive integer", args[1])
			}
			steps = n
		}
		if err := history.MigrateDown(path, steps); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or version)", args[0])
	}

	version, dirty, err := history.MigrationVersion(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Schema version %d", version)
	if dirty {
		fmt.Fprint(out, " (dirty)")
	}
	fmt.Fprintln(out)
	return nil
}

func printGenerations(w io.Writer, gens []history.Generation) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSTYLE\tSTATUS\tMODE\tTIME")
	for _, g := range gens {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%dms\n",
			g.ID, g.CreatedAt.Local().Format("2006-01-02 15:04:05"), g.Style, g.Status, g.Mode, g.ProcessingMS)
	}
	return tw.Flush()
}
