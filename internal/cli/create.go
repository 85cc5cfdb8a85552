package cli

import (
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the collection that holds document pages",
	Long: `Creates the configured collection with source, page and content fields.
An existing collection is left untouched and reported.`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, _ []string) error {
	svc, cleanup, err := openService(cmd, logToStderr)
	if err != nil {
		return err
	}
	defer cleanup()

	res := svc.CreateCollection(cmd.Context())
	if res.Err != nil {
		cmd.Printf("Collection %s was not created: %v\n", res.Collection, res.Err)
		return nil
	}
	cmd.Printf("Created collection %s\n", res.Collection)
	return nil
}
