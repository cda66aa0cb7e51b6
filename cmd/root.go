package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the inboxswoop application
var rootCmd = &cobra.Command{
	Use:   "inboxswoop",
	Short: "Archives Gmail messages that match a search filter",
	Long: `inboxswoop lists the messages in your Gmail inbox that match a search
filter, fetches each one and archives it by removing the INBOX and UNREAD
labels. Every processed message is written to a local journal.

It can also serve a small static web page (inboxswoop serve).`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// Persistent flags shared by every subcommand.
var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxswoop version %s\n" .Version}}`)

	// If no subcommand is provided, run the archive command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "archive")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $XDG_CONFIG_HOME/inboxswoop/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error. Can also use INBOXSWOOP_LOG_LEVEL env var.")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json. Can also use INBOXSWOOP_LOG_FORMAT env var.")

	rootCmd.AddCommand(newArchiveCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
