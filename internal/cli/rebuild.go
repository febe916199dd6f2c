package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the knowledge index from the knowledge base folder",
	Long: `Scans the knowledge base folder for PDF and Excel files, extracts and
chunks their text and rebuilds the vector store from scratch. The previous
index keeps serving queries until the new one is complete.`,
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	if err := a.knowledge.Rebuild(context.Background(), cfg.Paths.KnowledgeBase); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	manifest, err := a.knowledge.Manifest()
	if err != nil {
		return err
	}
	cmd.Printf("Indexed %d chunks from %d files\n", a.knowledge.Count(), len(manifest))
	for _, name := range manifest {
		cmd.Printf("  %s\n", name)
	}
	return nil
}
