package main

import (
	"fmt"
	"runtime"

	"github.com/dshills/snowcortex/pkg/cortex"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display detailed version information including commit hash and build date.`,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("snowcortex v%s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
		fmt.Printf("Adapter: %s (default model %s)\n", cortex.LLMType, cortex.DefaultModel)
		fmt.Printf("Go version: %s\n", runtime.Version())
	},
}
