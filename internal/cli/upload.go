package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/intake"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Copy a PDF into the uploads folder and index it",
	Long: `Stores the given PDF under the uploads folder and appends it to the
knowledge index. Unsupported formats are rejected without being stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	src, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	in := intake.New(cfg.Paths.Uploads, cfg.Paths.KnowledgeBase, a.knowledge)
	receipt, err := in.Receive(context.Background(), filepath.Base(args[0]), src)
	if err != nil {
		return err
	}

	if receipt.IndexErr != nil {
		cmd.Printf("Stored %s but indexing failed: %v\n", receipt.Path, receipt.IndexErr)
		cmd.Println("The file will be picked up by the next rebuild.")
		return nil
	}
	cmd.Printf("Stored and indexed %s\n", receipt.Path)
	return nil
}
