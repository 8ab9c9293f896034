// Command cdn-plan prints how the build artifacts distribution is assembled.
//
// Usage:
//
//	cdn-plan order --bucket-arn arn:aws:s3:::my-builds
//	cdn-plan graph --bucket-arn arn:aws:s3:::my-builds -f mermaid
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cdn-plan",
		Short: "Inspect the assembly plan of the build artifacts CDN",
		Long: `cdn-plan assembles the build artifacts distribution in memory and reports
the order in which its resources are declared. Nothing is synthesized to disk.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newOrderCmd(),
		newGraphCmd(),
	)
	return rootCmd
}
