// Command bot runs the autofilter Telegram bot.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"autofilter/internal/config"
)

const (
	configFlag   = "config"
	logLevelFlag = "log-level"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bot",
	Short: "Telegram autofilter bot: indexes channel media and answers searches in groups",
	Args:  cobra.NoArgs,
	// no subcommand means serve
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP(configFlag, "c", "configs/config.yml",
		"Path to the YAML configuration file")
	_ = viper.BindPFlag(configFlag, rootCmd.PersistentFlags().Lookup(configFlag))

	rootCmd.PersistentFlags().StringP(logLevelFlag, "v", "",
		"Override log.level from the config file (debug, info, warn, error)")
	_ = viper.BindPFlag(logLevelFlag, rootCmd.PersistentFlags().Lookup(logLevelFlag))

	// AUTOFILTER_CONFIG and AUTOFILTER_LOG_LEVEL work as well
	viper.SetEnvPrefix("autofilter")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// loadConfig reads the configuration selected by the flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(viper.GetString(configFlag))
	if err != nil {
		return nil, err
	}
	if level := viper.GetString(logLevelFlag); level != "" {
		cfg.Log.Level = level
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
