// Package cli wires the chatbot commands together.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/config"
)

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "chatbot",
	Short: "Knowledge base chatbot for Japanese building documents",
	Long: `Indexes PDF and Excel documents into a local vector store and answers
questions against them, with conversational memory and streaming output.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "./configs/config.yaml", "path to the configuration file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
