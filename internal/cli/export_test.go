package cmd

import "github.com/spf13/cobra"

// RootCommand exposes the command tree to the external test package.
func RootCommand() *cobra.Command {
	return rootCmd
}

// ParseCrawlFlags parses args into the crawl flag variables without running the command.
func ParseCrawlFlags(args []string) error {
	return crawlCmd.ParseFlags(args)
}
