package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := newCommandContext()

	rootCmd := &cobra.Command{
		Use:           "cardid",
		Short:         "Card identity resolution CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.envFile, "env-file", "", "Path to .env file")
	flags.StringVar(&ctx.dataDir, "data-dir", "", "Base directory for catalog data (default: ~/.cardid)")
	flags.StringVar(&ctx.dbPath, "db", "", "Catalog database path")
	flags.StringVar(&ctx.indexPath, "index-path", "", "Name index directory")
	flags.StringVar(&ctx.matchingFile, "matching-file", "", "TOML file overriding matching weights and thresholds")
	flags.StringVar(&ctx.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.BoolVar(&ctx.offline, "offline", false, "Never call the remote catalog")

	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newClassifyCommand())
	rootCmd.AddCommand(newExpandCommand())
	rootCmd.AddCommand(newReindexCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newSetsCommand(ctx))

	return rootCmd
}
