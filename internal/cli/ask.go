package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pdfrag/internal/domain"
)

var (
	askLimit   int
	askSources bool
	askPrompt  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the imported documents",
	Long: `Retrieves the pages most similar to the question and asks the chat
model to answer from them, naming the page it used.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askLimit, "limit", "n", 0, "number of pages to retrieve (default query.limit)")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "list the retrieved pages after the answer")
	askCmd.Flags().BoolVar(&askPrompt, "show-prompt", false, "print the prompt sent to the model")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openService(cmd, logToStderr)
	if err != nil {
		return err
	}
	defer cleanup()

	question := strings.Join(args, " ")
	ans, err := svc.Ask(cmd.Context(), question, askLimit)
	var qe *domain.QueryError
	if errors.As(err, &qe) {
		cmd.Println("The vector store rejected the query:")
		for _, m := range qe.Messages {
			cmd.Printf("  %s\n", m)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askPrompt {
		cmd.Println(ans.Prompt)
		cmd.Println()
	}
	cmd.Println(ans.Text)
	if askSources && len(ans.Records) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, r := range ans.Records {
			cmd.Printf("  [%d] page %d of %s\n", i+1, r.Page, r.Source)
		}
	}
	return nil
}
