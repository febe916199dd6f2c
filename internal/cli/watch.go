package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/helper"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the knowledge base folder and index new files",
	Long: `Watches the knowledge base folder, including subfolders created later,
and indexes every new PDF or Excel file as it appears. Runs until
interrupted.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	if err := helper.CreateFolder(cfg.Paths.KnowledgeBase); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watcher.New(cfg.Paths.KnowledgeBase, a.knowledge)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
