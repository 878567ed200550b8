package cmd

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "formdeck",
	Short: "AI-assisted form builder backend",
	Long: `Formdeck edits form definitions with natural-language instructions.
An LLM proposes changes as JSON Patch operations or full replacements;
every proposal is validated, applied locally, and persisted only after
explicit approval.

Available commands:
  serve    - Run the HTTP/WebSocket API server
  chat     - Edit a form interactively from the terminal
  health   - Check the configured AI provider
  version  - Print version information`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(healthCmd)
}
