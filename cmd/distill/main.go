package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "distill",
		Short: "Extract field values from entity documents",
		Long: `Distill reads entity documents (JSON) and flattens their fields into
ordered key/value documents using the standard field type handlers.

Referenced entities are resolved among the documents of the same input file.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Int("depth", 0, "levels of referenced entities distilled inline")
	rootCmd.PersistentFlags().String("file-base-url", "", "base URL for file and image fields")

	rootCmd.AddCommand(NewExtractCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewFieldTypesCommand())
	rootCmd.AddCommand(NewEnvCommand())

	return rootCmd
}
