package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Import a PDF document",
	Long: `Splits a PDF into page chunks and imports them into the collection.
Importing the same document twice stores its pages twice unless
ingest.deterministic_ids is enabled.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openService(cmd, logToStderr)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := svc.Ingest(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	cmd.Printf("Imported %d chunks from %s into %s (%d batches)\n",
		report.Chunks, report.Source, svc.Collection(), report.Batches)
	if len(report.Highlights) > 0 {
		cmd.Println()
		cmd.Println("Key sentences:")
		for _, h := range report.Highlights {
			cmd.Printf("  p.%d  %s\n", h.Page, h.Sentence)
		}
	}
	return nil
}
