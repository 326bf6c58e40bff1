package cmd

import (
	"fmt"

	"github.com/rohmanhakim/page-crawler/internal/report"
	"github.com/rohmanhakim/page-crawler/internal/storage"
	"github.com/spf13/cobra"
)

var (
	dedupIn  string
	dedupOut string
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Keep the first record per page from a JSONL output file.",
	Long: `A crash between writing a record and checkpointing it can make a resumed
crawl emit the same page twice. dedup reads a record stream, normalizes each
url and writes only the first record seen for it. Malformed lines are skipped
and counted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dedupIn == "" || dedupOut == "" {
			return fmt.Errorf("both --in and --out are required")
		}
		stats, err := storage.DedupFile(dedupIn, dedupOut)
		if err != nil {
			return err
		}
		return report.NewMarkdownWriter(cmd.OutOrStdout()).WriteDedup(dedupIn, dedupOut, stats)
	},
}

func init() {
	dedupCmd.Flags().StringVar(&dedupIn, "in", "", "JSONL file to read")
	dedupCmd.Flags().StringVar(&dedupOut, "out", "", "JSONL file to write")
}
