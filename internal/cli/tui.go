package cli

import (
	"context"

	"github.com/spf13/cobra"

	"pdfrag/internal/tui"
)

// runUI starts the interactive menu. Replaced in tests.
var runUI = func(ctx context.Context, svc Service) error {
	return tui.Run(ctx, svc)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	svc, cleanup, err := openService(cmd, logToFile)
	if err != nil {
		return err
	}
	defer cleanup()
	return runUI(cmd.Context(), svc)
}
