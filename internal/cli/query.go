package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var queryK int

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Show the retrieved context for a question",
	Long: `Searches both indices for the question and prints the assembled context
block without calling the chat model. Useful for checking what the bot
would ground its answer on.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "top", "k", 0, "results per index (0 uses the configured value)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryK > 0 {
		cfg.RAG.RetrievalK = queryK
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	contextBlock := a.retriever().Retrieve(context.Background(), args[0])
	if contextBlock == "" {
		cmd.Println("No matching context found.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), contextBlock)
	return nil
}
