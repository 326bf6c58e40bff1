package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "page-crawler",
	Short: "A bounded, polite, resumable web crawler.",
	Long: `page-crawler explores a link graph breadth-first from a seed page, up to a
depth and page-count limit, and writes one JSON record per page (title, word
list, bigrams, trigrams, edit rate and outbound links) to a JSONL file.

Requests are rate limited across all workers, the output stays within a byte
budget, and the visited set is checkpointed so an interrupted crawl can be
resumed without fetching any page twice.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path, JSON or YAML (default $XDG_CONFIG_HOME/page-crawler/config.yaml when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log claims, fetches and artifacts")

	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(dedupCmd)
	rootCmd.AddCommand(versionCmd)
}
