package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/veridict/veridict/internal/model"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "veridict",
	Short: "Veridict - Research orchestration and verdict aggregation for claims",
	Long: `Veridict decomposes a claim into its analytical contexts and sub-claims,
researches each context against live web sources under an explicit budget,
validates that every extracted fact traces to a fetched page, and aggregates
per-claim, per-context, and overall truth/confidence verdicts.

Every fact in the output carries its source URL and a verbatim excerpt.
Facts that cannot be traced to fetched text are rejected, not scored.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for Veridict.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("veridict v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.veridict/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.veridict")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match VERIDICT_*
	viper.SetEnvPrefix("VERIDICT")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig builds the effective configuration: defaults overlaid with the
// config file and VERIDICT_* environment variables. Flags apply on top in
// each command.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the CLI logger. Verbose mode enables debug-level
// human-readable output; otherwise only warnings and errors surface.
func newLogger() (*zap.Logger, error) {
	if verbose {
		dev := zap.NewDevelopmentConfig()
		return dev.Build()
	}
	prod := zap.NewProductionConfig()
	prod.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return prod.Build()
}
