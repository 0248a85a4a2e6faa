package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/cozy-creator/product-studio/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const studioPrefix = "STUDIO"

var Cmd = &cobra.Command{
	Use:   "studio",
	Short: "Product Studio CLI",
	Long:  "Generates catalog, ad and infographic imagery for product variants",

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		viper.SetEnvPrefix(studioPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(
			`-`, `_`,
			`.`, `_`,
		))
		viper.AutomaticEnv()

		return config.InitConfig()
	},
}

func Execute() {
	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pflags := Cmd.PersistentFlags()

	pflags.String("studio-home", "", "Path to the studio home directory")
	pflags.String("config-file", "", "Path to the config file")
	pflags.String("env-file", "", "Path to the env file")
	pflags.String("environment", "development", "Environment configuration; affects logging and gin mode")
	pflags.String("db-driver", "", "Database driver: 'sqlite' or 'pg'")
	pflags.String("db-dsn", "", "Database DSN (Connection URL or Path)")

	viper.BindPFlag("studio_home", pflags.Lookup("studio-home"))
	viper.BindPFlag("config_file", pflags.Lookup("config-file"))
	viper.BindPFlag("env_file", pflags.Lookup("env-file"))
	viper.BindPFlag("environment", pflags.Lookup("environment"))
	viper.BindPFlag("db.driver", pflags.Lookup("db-driver"))
	viper.BindPFlag("db.dsn", pflags.Lookup("db-dsn"))

	// Provider keys are read without the STUDIO_ prefix.
	viper.BindEnv("gemini.api_keys", "GEMINI_API_KEYS")
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")

	Cmd.AddCommand(runCmd, workerCmd, dbCmd)
	Cmd.CompletionOptions.HiddenDefaultCmd = true
}
