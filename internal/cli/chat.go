package cli

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/pipeline"
)

var (
	chatSession string
	chatRefine  bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask a question, or start an interactive session",
	Long: `With an argument, answers that single question and exits. Without one,
reads questions from stdin until EOF. Answers stream token by token unless
refinement is enabled. Conversation turns are remembered per session.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "session id for conversational memory (empty generates one)")
	chatCmd.Flags().BoolVar(&chatRefine, "refine", false, "rewrite answers in a softer tone")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	p, err := a.pipeline(chatRefine)
	if err != nil {
		return err
	}

	if chatSession == "" {
		chatSession = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(args) == 1 {
		answer(ctx, cmd, p, args[0])
		return nil
	}

	cmd.Printf("session %s, Ctrl-D to exit\n", chatSession)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for ctx.Err() == nil {
		cmd.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		answer(ctx, cmd, p, question)
	}
	return scanner.Err()
}

// answer prints one reply. The refinement pass needs the complete answer,
// so refined replies are printed in one piece instead of streamed.
func answer(ctx context.Context, cmd *cobra.Command, p *pipeline.Pipeline, question string) {
	if chatRefine || cfg.Refine.Enabled {
		cmd.Println(p.Generate(ctx, question, chatSession))
		return
	}
	for f := range p.GenerateStream(ctx, question, chatSession) {
		cmd.Print(f.Text)
	}
	cmd.Println()
}
