package main

import (
	"os"

	"github.com/TrevorS/aucell/internal/config"
	"github.com/TrevorS/aucell/internal/logger"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var settingsPath string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "aucell",
	Short: "Score gene set activity in single cells and call active cells per set",
	Long: `Score gene set activity in single cells and call active cells per set.

Every cell's genes are ranked by expression. A gene set's score in a cell is
the normalized area under its recovery curve over the top of that ranking.
Each set's scores are then split into active and inactive cells.

Settings come from flags, AUCELL_* environment variables (AUCELL_RANK_CUTOFF
for --rank-cutoff) and an optional settings file passed with --config.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Bind(viper.GetViper(), settingsPath); err != nil {
			return err
		}
		return logger.Init(os.Stderr, viper.GetString("log-level"))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("aucell failed")
	}
}

// loadConfig binds the flags of the running command to viper and decodes the
// settings. Commands share flag names, so binding waits until one is chosen.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	return config.New(viper.GetViper())
}

func init() {
	config.SetDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&settingsPath, "config", "", "path to a settings file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", "info", "trace, debug, info, warn or error")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "goroutines per parallel stage, 0 for all CPUs")

	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
}
