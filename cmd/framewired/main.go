package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "framewired",
		Short:         "Framed binary protocol server",
		Long:          "framewired accepts TCP peers, keeps one session per peer and answers echo and ping frames.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		serveCmd(),
		pingCmd(),
		configCmd(),
		versionCmd(),
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "framewired: %v\n", err)
		os.Exit(1)
	}
}
