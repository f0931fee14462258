package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/veloforge/dreamride/cmd/cli/img"
)

func init() {
	// A .env file is optional for the CLI; flags and the environment win.
	_ = godotenv.Load()
	rootCmd.AddGroup(img.Group)
	rootCmd.AddCommand(img.Generate)
	rootCmd.AddCommand(img.Open)
}

var rootCmd = &cobra.Command{
	Use:  "dreamride-cli",
	Long: `Command line utilities for Dreamride https://github.com/veloforge/dreamride`,
	Run: func(cmd *cobra.Command, args []string) {
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
