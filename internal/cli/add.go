package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Add a single document to the knowledge index",
	Long: `Indexes one PDF or Excel file without touching the rest of the store.
If the append fails partway the whole index is rebuilt from the knowledge
base folder to restore consistency.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	path := args[0]
	if err := a.knowledge.AddFileOrRebuild(context.Background(), path, cfg.Paths.KnowledgeBase); err != nil {
		return fmt.Errorf("add %s: %w", path, err)
	}
	cmd.Printf("Indexed %s (%d chunks total)\n", path, a.knowledge.Count())
	return nil
}
